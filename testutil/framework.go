// Package testutil provides an in-memory implementation of the media
// framework contract for tests. It models the parts of a real framework
// that the orchestration layer depends on: port directions and linking
// rules, containment hierarchy, ghost ports, request ports, bus dispatch
// and asynchronous state transitions, without any actual media flowing.
package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mdegans/mce/media"
)

// PortLayout describes the static ports a node type is created with.
type PortLayout struct {
	Sinks   []string
	Sources []string
	// Request enables on-demand sink ports, muxer style.
	Request bool
}

// defaultLayouts covers the node types the orchestration layer creates.
// Unknown types get one sink and one source.
var defaultLayouts = map[string]PortLayout{
	"nvstreammux":        {Sources: []string{"src"}, Request: true},
	"uridecodebin":       {},
	"nveglglessink":      {Sinks: []string{"sink"}},
	"fakesink":           {Sinks: []string{"sink"}},
	"filesink":           {Sinks: []string{"sink"}},
	"videotestsrc":       {Sources: []string{"src"}},
	"nvinfer":            {Sinks: []string{"sink"}, Sources: []string{"src"}},
	"nvvideoconvert":     {Sinks: []string{"sink"}, Sources: []string{"src"}},
	"nvmultistreamtiler": {Sinks: []string{"sink"}, Sources: []string{"src"}},
	"nvdsosd":            {Sinks: []string{"sink"}, Sources: []string{"src"}},
	"nvegltransform":     {Sinks: []string{"sink"}, Sources: []string{"src"}},
}

// Framework is the in-memory media.Framework. The zero value is usable.
type Framework struct {
	mu sync.Mutex

	// FailTypes makes NewNode fail for the listed node types.
	FailTypes map[string]error

	// PendingStates makes every pipeline state change asynchronous. Tests
	// settle transitions with Pipeline.Settle.
	PendingStates bool

	// Layouts overrides static port layouts per node type.
	Layouts map[string]PortLayout

	snapshots []string
}

// New creates a Framework.
func New() *Framework { return &Framework{} }

// Snapshots returns the stems of all snapshots taken, in order.
func (f *Framework) Snapshots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.snapshots))
	copy(out, f.snapshots)
	return out
}

func (f *Framework) layout(typeName string) PortLayout {
	if f.Layouts != nil {
		if l, ok := f.Layouts[typeName]; ok {
			return l
		}
	}
	if l, ok := defaultLayouts[typeName]; ok {
		return l
	}
	return PortLayout{Sinks: []string{"sink"}, Sources: []string{"src"}}
}

// NewNode implements media.Framework.
func (f *Framework) NewNode(typeName, name string) (media.Node, error) {
	if err, ok := f.FailTypes[typeName]; ok {
		return nil, err
	}
	n := &Node{typeName: typeName, name: name, props: make(map[string]any)}
	layout := f.layout(typeName)
	for _, p := range layout.Sinks {
		n.addPort(p, media.DirectionSink)
	}
	for _, p := range layout.Sources {
		n.addPort(p, media.DirectionSource)
	}
	n.request = layout.Request
	return n, nil
}

// NewComposite implements media.Framework.
func (f *Framework) NewComposite(name string) (media.Composite, error) {
	c := &Composite{Node: Node{typeName: "bin", name: name, props: make(map[string]any)}}
	c.Node.self = c
	return c, nil
}

// NewPipeline implements media.Framework.
func (f *Framework) NewPipeline(name string) (media.Pipeline, error) {
	p := &Pipeline{
		Composite: Composite{Node: Node{typeName: "pipeline", name: name, props: make(map[string]any)}},
		framework: f,
		bus:       &Bus{},
	}
	p.Node.self = p
	return p, nil
}

// NewLoop implements media.Framework.
func (f *Framework) NewLoop(p media.Pipeline) media.Loop {
	return &Loop{quit: make(chan struct{})}
}

// Snapshot implements media.Framework by recording the stem.
func (f *Framework) Snapshot(c media.Composite, stem string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, stem)
	return nil
}

// Node is an in-memory media.Node.
type Node struct {
	mu       sync.Mutex
	typeName string
	name     string
	props    map[string]any
	parent   *Composite
	request  bool

	// self points back to the outer composite when this Node is embedded
	// in one, so ghost ports report the composite as their owner.
	self media.Node

	ports []*Port

	portAdded  []func(owner media.Node, port media.Port)
	childAdded []func(parent, child media.Node)
}

func (n *Node) addPort(name string, d media.Direction) *Port {
	p := &Port{owner: n, name: name, direction: d}
	n.ports = append(n.ports, p)
	return p
}

// Name implements media.Node.
func (n *Node) Name() string { return n.name }

// TypeName implements media.Node.
func (n *Node) TypeName() string { return n.typeName }

// SetProperty implements media.Node.
func (n *Node) SetProperty(name string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.props[name] = value
	return nil
}

// Property returns a previously set property, for assertions.
func (n *Node) Property(name string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.props[name]
	return v, ok
}

// StaticPort implements media.Node.
func (n *Node) StaticPort(name string) (media.Port, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.ports {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// RequestPort implements media.Node. Request port names carry their
// direction as a prefix, e.g. "sink_0".
func (n *Node) RequestPort(name string) (media.Port, error) {
	if !n.request {
		return nil, fmt.Errorf("%s does not accept port requests", n.name)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.ports {
		if p.name == name {
			return nil, fmt.Errorf("port %s already exists on %s", name, n.name)
		}
	}
	d := media.DirectionSink
	if strings.HasPrefix(name, "src") {
		d = media.DirectionSource
	}
	return n.addPort(name, d), nil
}

// Ports implements media.Node.
func (n *Node) Ports(d media.Direction) []media.Port {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []media.Port
	for _, p := range n.ports {
		if p.direction == d {
			out = append(out, p)
		}
	}
	return out
}

// LinkTo implements media.Node by linking the first unlinked source port
// to the sink's first unlinked sink port.
func (n *Node) LinkTo(sink media.Node) error {
	src := n.firstUnlinked(media.DirectionSource)
	if src == nil {
		return fmt.Errorf("%s has no unlinked source port", n.name)
	}
	var dst media.Port
	switch s := sink.(type) {
	case *Node:
		dst = s.firstUnlinked(media.DirectionSink)
	case *Composite:
		dst = s.firstUnlinked(media.DirectionSink)
	case *Pipeline:
		dst = s.firstUnlinked(media.DirectionSink)
	}
	if dst == nil {
		return fmt.Errorf("%s has no unlinked sink port", sink.Name())
	}
	if result, detail := src.Link(dst); result != media.LinkOK {
		return fmt.Errorf("link %s to %s failed: %v %s", n.name, sink.Name(), result, detail)
	}
	return nil
}

func (n *Node) firstUnlinked(d media.Direction) media.Port {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.ports {
		if p.direction == d && !p.IsLinked() {
			return p
		}
	}
	return nil
}

// OnPortAdded implements media.Node.
func (n *Node) OnPortAdded(fn func(owner media.Node, port media.Port)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.portAdded = append(n.portAdded, fn)
}

// OnChildAdded implements media.Node.
func (n *Node) OnChildAdded(fn func(parent, child media.Node)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.childAdded = append(n.childAdded, fn)
}

// EmitPort adds a new source port with the given negotiated caps and fires
// the port-added callbacks, simulating a decode source finishing
// negotiation.
func (n *Node) EmitPort(name, caps string) *Port {
	n.mu.Lock()
	p := n.addPort(name, media.DirectionSource)
	p.caps = caps
	fns := append([]func(media.Node, media.Port){}, n.portAdded...)
	n.mu.Unlock()
	for _, fn := range fns {
		fn(n, p)
	}
	return p
}

// EmitChild fires the child-added callbacks with a new internal child
// node, simulating a decode bin creating an element.
func (n *Node) EmitChild(typeName, name string) *Node {
	child := &Node{typeName: typeName, name: name, props: make(map[string]any)}
	n.mu.Lock()
	fns := append([]func(media.Node, media.Node){}, n.childAdded...)
	n.mu.Unlock()
	for _, fn := range fns {
		fn(n, child)
	}
	return child
}
