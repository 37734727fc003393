package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// Linker connects live nodes and ports, classifying every failure mode the
// framework can report.
type Linker struct {
	logger  *slog.Logger
	metrics *Metrics
}

// NewLinker creates a Linker. metrics may be nil.
func NewLinker(logger *slog.Logger, metrics *Metrics) *Linker {
	return &Linker{logger: logger, metrics: metrics}
}

// portRef renders a port as "node:port" for diagnostics.
func portRef(p media.Port) string {
	if p == nil {
		return "<nil>"
	}
	owner := "<detached>"
	if p.Owner() != nil {
		owner = p.Owner().Name()
	}
	return fmt.Sprintf("%s:%s", owner, p.Name())
}

// Link links two nodes, auto-discovering matching source/sink ports.
// Failures are reported as a generic LinkError: node-level linking does
// not surface the finer-grained reasons port linking does.
func (l *Linker) Link(a, b media.Node) error {
	l.logger.Debug("linking", "src", a.Name(), "sink", b.Name())
	if err := a.LinkTo(b); err != nil {
		l.metrics.recordLinkFailure(errors.LinkGeneric)
		return &errors.LinkError{
			Reason: errors.LinkGeneric,
			Src:    a.Name(),
			Sink:   b.Name(),
			Detail: err.Error(),
		}
	}
	return nil
}

// LinkPorts links a source port to a sink port, classifying failure into
// hierarchy mismatch, already linked, format incompatibility, or generic.
func (l *Linker) LinkPorts(src, sink media.Port) error {
	if src == nil || sink == nil {
		return &errors.LinkError{
			Reason: errors.LinkGeneric,
			Src:    portRef(src),
			Sink:   portRef(sink),
			Detail: "one side is nil",
		}
	}

	l.logger.Debug("linking ports", "src", portRef(src), "sink", portRef(sink))

	result, detail := src.Link(sink)
	if result == media.LinkOK {
		l.logger.Debug("port link OK", "src", portRef(src), "sink", portRef(sink))
		return nil
	}

	linkErr := &errors.LinkError{
		Src:  portRef(src),
		Sink: portRef(sink),
	}

	switch result {
	case media.LinkWrongHierarchy:
		linkErr.Reason = errors.LinkHierarchy
	case media.LinkWasLinked:
		linkErr.Reason = errors.LinkAlreadyLinked
		if peer, ok := src.Peer(); ok {
			linkErr.SrcPeer = portRef(peer)
		}
		if peer, ok := sink.Peer(); ok {
			linkErr.SinkPeer = portRef(peer)
		}
	case media.LinkWrongFormat:
		linkErr.Reason = errors.LinkNoFormat
		linkErr.SrcCaps = src.Caps()
		linkErr.SinkCaps = sink.Caps()
	default:
		linkErr.Reason = errors.LinkGeneric
		linkErr.Detail = detail
	}

	l.metrics.recordLinkFailure(linkErr.Reason)
	return linkErr
}

// AutoLink links a strictly linear sequence of nodes in order. It does not
// attempt fan-out or fan-in. On the first failing pair it returns the
// classified error immediately; links made before the failure are left
// intact. Callers that need atomicity must tear the composite down.
func (l *Linker) AutoLink(nodes []media.Node) error {
	var prev media.Node
	for _, node := range nodes {
		if prev != nil {
			if err := l.Link(prev, node); err != nil {
				return err
			}
		}
		prev = node
	}
	return nil
}
