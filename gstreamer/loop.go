package gstreamer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
)

// busPollInterval bounds how long the loop blocks waiting for a message
// before checking whether it should quit.
const busPollInterval = 100 * time.Millisecond

// loop implements media.Loop by polling the pipeline's bus. Polling with
// a bounded timeout instead of parking in a glib main loop keeps shutdown
// under this package's control and off any foreign event loop.
type loop struct {
	pipe     *pipeline
	quit     chan struct{}
	quitOnce sync.Once
	running  atomic.Bool
}

func newLoop(p *pipeline) *loop {
	return &loop{pipe: p, quit: make(chan struct{})}
}

func (l *loop) Run() {
	l.running.Store(true)
	defer l.running.Store(false)

	if l.pipe == nil {
		<-l.quit
		return
	}

	gstBus := l.pipe.pipe.GetPipelineBus()
	// force watcher list creation before dispatching
	b := l.pipe.Bus().(*bus)

	for {
		select {
		case <-l.quit:
			return
		default:
		}

		msg := gstBus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		b.dispatch(translate(msg))
		msg.Unref()
	}
}

func (l *loop) Quit() {
	l.quitOnce.Do(func() { close(l.quit) })
}

func (l *loop) IsRunning() bool { return l.running.Load() }
