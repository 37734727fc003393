package gstreamer

import (
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/media"
)

// awaitPollInterval is how often AwaitState re-checks a pending
// transition.
const awaitPollInterval = 10 * time.Millisecond

// pipeline implements media.Pipeline over a gst.Pipeline.
type pipeline struct {
	composite
	pipe *gst.Pipeline

	busOnce sync.Once
	busW    *bus
}

func (p *pipeline) Bus() media.Bus {
	p.busOnce.Do(func() {
		p.busW = &bus{}
	})
	return p.busW
}

// SetState requests the transition. The binding reports refusal as an
// error; an accepted transition that has not committed yet is pending.
func (p *pipeline) SetState(s media.State) media.StateChange {
	if err := p.pipe.SetState(toGstState(s)); err != nil {
		return media.StateChangeFailure
	}
	if p.State() == s {
		return media.StateChangeSuccess
	}
	return media.StateChangeAsync
}

// AwaitState polls the committed state until it reaches s or the timeout
// elapses.
func (p *pipeline) AwaitState(s media.State, timeout time.Duration) media.StateChange {
	deadline := time.Now().Add(timeout)
	for {
		if p.State() == s {
			return media.StateChangeSuccess
		}
		if time.Now().After(deadline) {
			return media.StateChangeAsync
		}
		time.Sleep(awaitPollInterval)
	}
}

func (p *pipeline) State() media.State {
	return fromGstState(p.pipe.GetCurrentState())
}

func toGstState(s media.State) gst.State {
	switch s {
	case media.StateReady:
		return gst.StateReady
	case media.StatePaused:
		return gst.StatePaused
	case media.StatePlaying:
		return gst.StatePlaying
	default:
		return gst.StateNull
	}
}

func fromGstState(s gst.State) media.State {
	switch s {
	case gst.StateReady:
		return media.StateReady
	case gst.StatePaused:
		return media.StatePaused
	case gst.StatePlaying:
		return media.StatePlaying
	default:
		return media.StateNull
	}
}

// bus implements media.Bus. Watchers are registered here; the loop pulls
// raw messages off the gst bus and feeds them through dispatch, so all
// watchers run on the loop goroutine.
type bus struct {
	mu       sync.Mutex
	watchers []func(media.Message) bool
}

func (b *bus) Subscribe(fn func(media.Message) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, fn)
}

func (b *bus) dispatch(msg media.Message) {
	b.mu.Lock()
	watchers := append([]func(media.Message) bool{}, b.watchers...)
	b.mu.Unlock()

	var keep []func(media.Message) bool
	for _, fn := range watchers {
		if fn(msg) {
			keep = append(keep, fn)
		}
	}

	b.mu.Lock()
	b.watchers = keep
	b.mu.Unlock()
}

// translate converts a raw gst message into the contract's message type.
func translate(msg *gst.Message) media.Message {
	out := media.Message{Source: msg.Source()}

	switch msg.Type() {
	case gst.MessageEOS:
		out.Kind = media.MessageEOS
	case gst.MessageError:
		out.Kind = media.MessageError
		if gerr := msg.ParseError(); gerr != nil {
			out.Text = gerr.Error()
			out.Debug = gerr.DebugString()
		}
	case gst.MessageWarning:
		out.Kind = media.MessageWarning
		if gerr := msg.ParseWarning(); gerr != nil {
			out.Text = gerr.Error()
			out.Debug = gerr.DebugString()
		}
	case gst.MessageStateChanged:
		out.Kind = media.MessageStateChanged
		old, next := msg.ParseStateChanged()
		out.Old = fromGstState(old)
		out.New = fromGstState(next)
	case gst.MessageStreamStatus:
		out.Kind = media.MessageStreamStatus
	default:
		out.Kind = media.MessageOther
	}
	return out
}
