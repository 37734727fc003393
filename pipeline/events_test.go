package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/testutil"
)

type capturePublisher struct {
	mu       sync.Mutex
	messages []media.Message
}

func (p *capturePublisher) Publish(msg media.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func routerFixture(t *testing.T, publisher EventPublisher) (*testutil.Pipeline, *Controller, *Router) {
	t.Helper()
	f := testutil.New()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)

	c := NewController(f, pipe, testLogger(), nil)
	r := NewRouter(c, publisher, testLogger(), nil)
	r.Attach(pipe.Bus())
	return pipe.(*testutil.Pipeline), c, r
}

func runLoop(t *testing.T, c *Controller) chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		_ = c.Play()
		close(done)
	}()
	require.Eventually(t, c.Loop().IsRunning, time.Second, time.Millisecond)
	return done
}

func waitDone(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestRouterQuitsOnEOS(t *testing.T) {
	pipe, c, r := routerFixture(t, nil)
	done := runLoop(t, c)

	pipe.InjectMessage(media.Message{Kind: media.MessageEOS, Source: "sink"})

	waitDone(t, done)
	assert.NoError(t, r.Err())
	assert.Equal(t, media.StateNull, pipe.State())
}

func TestRouterQuitsOnErrorAndKeepsFirst(t *testing.T) {
	pipe, c, r := routerFixture(t, nil)
	done := runLoop(t, c)

	pipe.InjectMessage(media.Message{
		Kind: media.MessageError, Source: "source_0",
		Text: "could not read stream", Debug: "rtspsrc.c(42)",
	})
	pipe.InjectMessage(media.Message{
		Kind: media.MessageError, Source: "source_1", Text: "later failure",
	})

	waitDone(t, done)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "could not read stream")
	assert.NotContains(t, r.Err().Error(), "later failure")
}

func TestRouterWarningDoesNotQuit(t *testing.T) {
	pipe, c, r := routerFixture(t, nil)
	done := runLoop(t, c)

	pipe.InjectMessage(media.Message{
		Kind: media.MessageWarning, Source: "decoder", Text: "dropping frames",
	})

	assert.True(t, c.Loop().IsRunning(), "warnings must not stop the pipeline")
	assert.NoError(t, r.Err())

	c.Quit()
	waitDone(t, done)
}

func TestRouterPublishesEveryMessage(t *testing.T) {
	publisher := &capturePublisher{}
	pipe, c, _ := routerFixture(t, publisher)
	done := runLoop(t, c)

	pipe.InjectMessage(media.Message{Kind: media.MessageWarning, Source: "x"})
	pipe.InjectMessage(media.Message{Kind: media.MessageStateChanged, Source: "p"})
	pipe.InjectMessage(media.Message{Kind: media.MessageEOS})

	waitDone(t, done)
	assert.Equal(t, 3, publisher.count())
}
