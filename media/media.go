// Package media defines the contract between mce and the underlying
// media-processing framework. The framework owns the concrete node
// implementations (decoders, inference engines, tilers, renderers, sinks)
// and their worker threads; mce owns graph construction, dynamic linking
// and lifecycle orchestration on top of these interfaces.
//
// Callbacks registered through Node (port-added, child-added) and probes
// registered through Port are NOT guaranteed to fire on the thread running
// the event loop and must be treated as arriving from an arbitrary thread.
package media

import "time"

// Direction of data flow at a port.
type Direction int

const (
	// DirectionSource is an output port.
	DirectionSource Direction = iota
	// DirectionSink is an input port.
	DirectionSink
)

// String returns the conventional short name for the direction, which is
// also the prefix used for generated ghost port names.
func (d Direction) String() string {
	if d == DirectionSource {
		return "src"
	}
	return "sink"
}

// State is a pipeline lifecycle state.
type State int

const (
	// StateNull is the idle, deallocated state.
	StateNull State = iota
	// StateReady means resources are allocated but no data flows.
	StateReady
	// StatePaused means the graph is prerolled and suspended.
	StatePaused
	// StatePlaying means the graph is actively processing.
	StatePlaying
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}

// StateChange is the framework's verdict on a requested state transition.
type StateChange int

const (
	// StateChangeFailure means the transition was refused outright.
	StateChangeFailure StateChange = iota
	// StateChangeSuccess means the transition completed synchronously.
	StateChangeSuccess
	// StateChangeAsync means the transition is pending completion.
	StateChangeAsync
)

// LinkResult is the framework's verdict on a port-to-port link attempt.
// It mirrors the failure modes the framework can report so that the linker
// can classify them without knowing the framework.
type LinkResult int

const (
	// LinkOK means the ports were linked.
	LinkOK LinkResult = iota
	// LinkWrongHierarchy means the ports live in incompatible containment
	// scopes and one side must be ghosted first.
	LinkWrongHierarchy
	// LinkWasLinked means one of the ports already has a peer.
	LinkWasLinked
	// LinkWrongFormat means capability negotiation failed.
	LinkWrongFormat
	// LinkRefused is any other framework-reported failure.
	LinkRefused
)

// Framework creates live graph objects. Implementations wrap a concrete
// media stack; tests use the in-memory implementation in testutil.
type Framework interface {
	// NewNode instantiates a node of the given type with the given name.
	NewNode(typeName, name string) (Node, error)

	// NewComposite creates an empty composite that can own child nodes
	// and expose ghost ports.
	NewComposite(name string) (Composite, error)

	// NewPipeline creates a root composite with a bus and lifecycle state.
	NewPipeline(name string) (Pipeline, error)

	// NewLoop creates the cooperative event loop that drives the given
	// pipeline's bus dispatch. A pipeline owns at most one loop.
	NewLoop(p Pipeline) Loop

	// Snapshot writes a visualization artifact for the composite under the
	// configured output directory, using stem as the base filename. It is
	// a no-op (returning nil) when no directory is configured.
	Snapshot(c Composite, stem string) error
}

// Node is a live processing unit owned by a composite.
type Node interface {
	// Name returns the node's unique name.
	Name() string

	// TypeName returns the type tag the node was created from.
	TypeName() string

	// SetProperty applies a configuration property.
	SetProperty(name string, value any) error

	// StaticPort returns the always-present port with the given name.
	StaticPort(name string) (Port, bool)

	// RequestPort requests an on-demand port by name, e.g. "sink_3" from a
	// muxer that accepts a variable number of inputs.
	RequestPort(name string) (Port, error)

	// Ports returns the node's current ports of the given direction in
	// declaration order.
	Ports(d Direction) []Port

	// LinkTo links this node to a downstream node, auto-discovering
	// matching ports.
	LinkTo(sink Node) error

	// OnPortAdded registers a callback invoked when the node exposes a new
	// port after internal negotiation (e.g. a demuxer discovering streams).
	OnPortAdded(fn func(owner Node, port Port))

	// OnChildAdded registers a callback invoked when the node (if it is a
	// decode bin or similar) creates an internal child element.
	OnChildAdded(fn func(parent, child Node))
}

// Port is a typed connection point on a node.
type Port interface {
	// Name returns the port name, unique per node and direction.
	Name() string

	// Direction returns the port's data flow direction.
	Direction() Direction

	// Owner returns the node the port belongs to.
	Owner() Node

	// IsLinked reports whether the port has a peer.
	IsLinked() bool

	// Peer returns the linked peer port, if any.
	Peer() (Port, bool)

	// Link links this (source) port to a sink port. The string carries the
	// framework's symbolic reason when the result is LinkRefused.
	Link(sink Port) (LinkResult, string)

	// Caps returns the port's current negotiated format descriptor, or the
	// queried capabilities when nothing is negotiated yet. Empty when the
	// framework cannot report a format. Used for media-type filtering and
	// link failure diagnostics.
	Caps() string

	// AddBufferProbe attaches a hook invoked synchronously for every
	// buffer flowing through this port, on the framework's processing
	// thread. The hook must return quickly.
	AddBufferProbe(fn BufferProbe)
}

// Composite is a node that owns a sub-graph of child nodes. Children do
// not outlive the composite.
type Composite interface {
	Node

	// Add adds a pre-built node as a child.
	Add(n Node) error

	// ByName returns the child with the given name.
	ByName(name string) (Node, bool)

	// Children returns the child nodes in the order they were added.
	Children() []Node

	// FindUnlinkedPort returns the first unlinked port of the given
	// direction among the children, searching children in the order they
	// were added and each child's ports in declaration order.
	FindUnlinkedPort(d Direction) (Port, bool)

	// NewGhostPort creates, activates and adds an externally visible port
	// that proxies the given unlinked inner port. Ghosting is permanent:
	// the returned port cannot be detached from its inner target.
	NewGhostPort(name string, inner Port) (Port, error)
}

// Pipeline is the root composite. It owns the bus and the lifecycle state.
type Pipeline interface {
	Composite

	// Bus returns the pipeline's message bus.
	Bus() Bus

	// SetState requests a transition to the target state.
	SetState(s State) StateChange

	// AwaitState blocks until a pending transition to the target state
	// completes, up to timeout. Returns StateChangeAsync when the
	// transition is still pending at the deadline.
	AwaitState(s State, timeout time.Duration) StateChange

	// State returns the last committed state.
	State() State
}

// Bus delivers asynchronous framework notifications. Messages are
// dispatched on the thread running the pipeline's event loop.
type Bus interface {
	// Subscribe registers a watcher. Returning false detaches the watcher.
	Subscribe(fn func(Message) bool)
}

// Loop is the cooperative event loop driving bus dispatch for one pipeline.
type Loop interface {
	// Run blocks, dispatching messages, until Quit is called.
	Run()

	// Quit stops the loop. Safe to call from any thread, repeatedly.
	Quit()

	// IsRunning reports whether Run is currently blocked in dispatch.
	IsRunning() bool
}
