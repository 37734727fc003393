package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// EventPublisher forwards bus messages to an external system. Publishing
// is best effort; failures must not affect pipeline control flow.
type EventPublisher interface {
	Publish(msg media.Message)
}

// Router subscribes to a pipeline bus and maps messages to control
// actions: end-of-stream and errors shut the pipeline down, warnings are
// logged and everything else is recorded at debug level. The first error
// observed is retained for the caller.
type Router struct {
	controller *Controller
	logger     *slog.Logger
	metrics    *Metrics
	publisher  EventPublisher

	mu  sync.Mutex
	err error
}

// NewRouter creates a Router that drives controller from bus messages.
// publisher may be nil.
func NewRouter(controller *Controller, publisher EventPublisher, logger *slog.Logger, metrics *Metrics) *Router {
	return &Router{
		controller: controller,
		logger:     logger,
		metrics:    metrics,
		publisher:  publisher,
	}
}

// Attach subscribes the router to the bus. The watcher stays attached for
// the pipeline's lifetime.
func (r *Router) Attach(bus media.Bus) {
	bus.Subscribe(r.route)
}

// Err returns the first error observed on the bus, or nil.
func (r *Router) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Router) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// route handles one bus message. It always returns true: the subscription
// survives shutdown so that late messages are still drained.
func (r *Router) route(msg media.Message) bool {
	r.metrics.recordBusMessage(msg.Kind.String())
	if r.publisher != nil {
		r.publisher.Publish(msg)
	}

	switch msg.Kind {
	case media.MessageEOS:
		r.logger.Info("end of stream", "source", msg.Source)
		r.controller.Quit()

	case media.MessageError:
		r.logger.Error("pipeline error", "source", msg.Source,
			"code", msg.Code, "error", msg.Text, "debug", msg.Debug)
		r.setErr(errors.WrapFatal(
			fmt.Errorf("%s: %s", msg.Source, msg.Text),
			"Router", "route", "pipeline reported an error"))
		r.controller.Quit()

	case media.MessageWarning:
		r.logger.Warn("pipeline warning", "source", msg.Source,
			"warning", msg.Text, "debug", msg.Debug)

	case media.MessageStateChanged:
		r.logger.Debug("state changed", "source", msg.Source,
			"old", msg.Old.String(), "new", msg.New.String())

	default:
		r.logger.Debug("bus message", "kind", msg.Kind.String(), "source", msg.Source)
	}

	return true
}
