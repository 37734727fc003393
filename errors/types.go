package errors

import (
	"fmt"
	"time"
)

// NodeCreationError reports that the media framework could not instantiate
// a node of the requested type, usually because the plugin providing the
// type is not installed.
type NodeCreationError struct {
	Type string
	Name string
	Err  error
}

func (e *NodeCreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to create %s with name %s: %v", e.Type, e.Name, e.Err)
	}
	return fmt.Sprintf("failed to create %s with name %s", e.Type, e.Name)
}

func (e *NodeCreationError) Unwrap() error { return e.Err }

// PortNotFoundError reports that no unlinked port of the requested
// direction could be resolved within a composite.
type PortNotFoundError struct {
	Composite string
	Direction string
}

func (e *PortNotFoundError) Error() string {
	return fmt.Sprintf("no unlinked %s port found in %s (perhaps request one?)",
		e.Direction, e.Composite)
}

// LinkReason classifies why a link between two ports failed.
type LinkReason int

const (
	// LinkGeneric is any framework-reported failure not covered below.
	LinkGeneric LinkReason = iota
	// LinkHierarchy means the two ports live in incompatible containment
	// scopes; the caller must ghost one side first.
	LinkHierarchy
	// LinkAlreadyLinked means one of the ports already has a peer.
	LinkAlreadyLinked
	// LinkNoFormat means capability negotiation between the ports failed.
	LinkNoFormat
)

// String returns the string representation of LinkReason
func (r LinkReason) String() string {
	switch r {
	case LinkHierarchy:
		return "hierarchy-mismatch"
	case LinkAlreadyLinked:
		return "already-linked"
	case LinkNoFormat:
		return "format-incompatible"
	default:
		return "generic"
	}
}

// LinkError reports a failed link between two nodes or ports, classified by
// Reason. Src and Sink identify the endpoints as "node:port". The remaining
// fields carry reason-specific diagnostics.
type LinkError struct {
	Reason LinkReason
	Src    string
	Sink   string

	// Populated for LinkAlreadyLinked: the existing peer on each side,
	// empty when that side was free.
	SrcPeer  string
	SinkPeer string

	// Populated for LinkNoFormat: the formats each side attempted.
	SrcCaps  string
	SinkCaps string

	// Populated for LinkGeneric: the framework's symbolic reason.
	Detail string
}

func (e *LinkError) Error() string {
	switch e.Reason {
	case LinkHierarchy:
		return fmt.Sprintf(
			"could not link %s to %s: ports are in different containment scopes; "+
				"ghost the inner port to its composite first", e.Src, e.Sink)
	case LinkAlreadyLinked:
		msg := fmt.Sprintf("could not link %s to %s: already linked", e.Src, e.Sink)
		if e.SrcPeer != "" {
			msg += fmt.Sprintf(" (%s -> %s)", e.Src, e.SrcPeer)
		}
		if e.SinkPeer != "" {
			msg += fmt.Sprintf(" (%s -> %s)", e.Sink, e.SinkPeer)
		}
		return msg
	case LinkNoFormat:
		return fmt.Sprintf(
			"could not link %s to %s: formats are incompatible:\n%s: %s\n%s: %s",
			e.Src, e.Sink, e.Src, e.SrcCaps, e.Sink, e.SinkCaps)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("could not link %s to %s: %s", e.Src, e.Sink, e.Detail)
		}
		return fmt.Sprintf("could not link %s to %s", e.Src, e.Sink)
	}
}

// PortAcquisitionError reports that an on-demand port request was refused
// by its node (e.g. a muxer that would not hand out another sink port).
type PortAcquisitionError struct {
	Node string
	Port string
	Err  error
}

func (e *PortAcquisitionError) Error() string {
	return fmt.Sprintf("could not find or request port %s from %s", e.Port, e.Node)
}

func (e *PortAcquisitionError) Unwrap() error { return e.Err }

// TransitionError reports that the framework refused a lifecycle state
// transition outright.
type TransitionError struct {
	Target string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("failed state transition to %s", e.Target)
}

// TransitionTimeoutError reports that a pending lifecycle transition did
// not complete within the bounded wait. Not fatal by itself; callers are
// expected to treat repeated timeouts as fatal.
type TransitionTimeoutError struct {
	Target string
	Waited time.Duration
}

func (e *TransitionTimeoutError) Error() string {
	return fmt.Sprintf("state transition to %s still pending after %s", e.Target, e.Waited)
}
