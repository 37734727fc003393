package pipeline

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// DefaultStateTimeout bounds how long a synchronous state change waits for
// an asynchronous transition to settle.
const DefaultStateTimeout = 10 * time.Second

// StateOptions modifies a single state change request.
type StateOptions struct {
	// Async returns as soon as the framework accepts the transition
	// instead of waiting for it to settle.
	Async bool

	// Timeout bounds the settle wait. Zero selects DefaultStateTimeout.
	Timeout time.Duration

	// Snapshot writes visualization artifacts around the transition.
	Snapshot bool
}

func (o StateOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultStateTimeout
	}
	return o.Timeout
}

// Controller drives a pipeline through its lifecycle states and runs its
// event loop. Shutdown is idempotent: concurrent Quit calls collapse to
// one teardown.
type Controller struct {
	framework media.Framework
	pipe      media.Pipeline
	loop      media.Loop
	logger    *slog.Logger
	metrics   *Metrics

	quitting atomic.Bool
}

// NewController creates a Controller for pipe using the framework's loop.
func NewController(f media.Framework, pipe media.Pipeline, logger *slog.Logger, metrics *Metrics) *Controller {
	return &Controller{
		framework: f,
		pipe:      pipe,
		loop:      f.NewLoop(pipe),
		logger:    logger,
		metrics:   metrics,
	}
}

// Pipeline returns the controlled pipeline.
func (c *Controller) Pipeline() media.Pipeline { return c.pipe }

// Loop returns the event loop driving the pipeline's bus.
func (c *Controller) Loop() media.Loop { return c.loop }

// SetState requests a transition to target. A rejected transition fails
// immediately with a TransitionError. An accepted-but-asynchronous
// transition is waited on unless opts.Async is set; if it does not settle
// within the timeout a TransitionTimeoutError is returned. The pipeline is
// left in whatever intermediate state it reached; no rollback is
// attempted.
func (c *Controller) SetState(target media.State, opts StateOptions) error {
	c.logger.Info("requesting state", "pipeline", c.pipe.Name(), "target", target.String())
	start := time.Now()

	if opts.Snapshot {
		c.snapshot(target, "start")
	}

	switch c.pipe.SetState(target) {
	case media.StateChangeFailure:
		return &errors.TransitionError{Target: target.String()}
	case media.StateChangeAsync:
		if opts.Async {
			c.logger.Debug("transition is asynchronous, not waiting",
				"pipeline", c.pipe.Name(), "target", target.String())
			break
		}
		timeout := opts.timeout()
		c.logger.Debug("waiting for transition",
			"pipeline", c.pipe.Name(), "target", target.String(), "timeout", timeout)
		if c.pipe.AwaitState(target, timeout) == media.StateChangeAsync {
			return &errors.TransitionTimeoutError{
				Target: target.String(),
				Waited: time.Since(start),
			}
		}
	}

	c.metrics.observeTransition(target.String(), time.Since(start))
	if opts.Snapshot {
		c.snapshot(target, "end")
	}

	c.logger.Info("state reached", "pipeline", c.pipe.Name(),
		"state", target.String(), "took", time.Since(start))
	return nil
}

// Ready brings the pipeline to the ready state.
func (c *Controller) Ready() error {
	return c.SetState(media.StateReady, StateOptions{Snapshot: true})
}

// Pause brings the pipeline to the paused state.
func (c *Controller) Pause() error {
	return c.SetState(media.StatePaused, StateOptions{Snapshot: true})
}

// Stop brings the pipeline to the null state.
func (c *Controller) Stop() error {
	return c.SetState(media.StateNull, StateOptions{})
}

// Play transitions to playing and runs the event loop until Quit. It
// blocks for the lifetime of the pipeline. The playing transition is
// requested asynchronously because live sources cannot finish it before
// data flows.
func (c *Controller) Play() error {
	if err := c.SetState(media.StatePlaying, StateOptions{Async: true, Snapshot: true}); err != nil {
		return err
	}
	c.logger.Info("running", "pipeline", c.pipe.Name())
	c.loop.Run()
	return nil
}

// Quit tears the pipeline down and stops the event loop. It is safe to
// call from bus callbacks and from signal handlers; only the first call
// acts.
func (c *Controller) Quit() {
	if !c.quitting.CompareAndSwap(false, true) {
		return
	}
	c.logger.Info("quitting", "pipeline", c.pipe.Name())
	if err := c.Stop(); err != nil {
		c.logger.Error("failed to stop pipeline on quit",
			"pipeline", c.pipe.Name(), "error", err)
	}
	c.loop.Quit()
}

func (c *Controller) snapshot(target media.State, phase string) {
	stem := c.pipe.Name() + "." + phase + "." + target.String()
	if err := c.framework.Snapshot(c.pipe, stem); err != nil {
		c.logger.Debug("snapshot failed", "stem", stem, "error", err)
	}
}
