package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/mdegans/mce/media"
)

// Composite is an in-memory media.Composite.
type Composite struct {
	Node

	cmu      sync.Mutex
	children []media.Node
}

// Add implements media.Composite.
func (c *Composite) Add(n media.Node) error {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	for _, existing := range c.children {
		if existing.Name() == n.Name() {
			return fmt.Errorf("child %s already in %s", n.Name(), c.Name())
		}
	}
	switch child := n.(type) {
	case *Node:
		child.parent = c
	case *Composite:
		child.Node.parent = c
	case *Pipeline:
		child.Node.parent = c
	default:
		return fmt.Errorf("foreign node implementation %T", n)
	}
	c.children = append(c.children, n)
	return nil
}

// ByName implements media.Composite.
func (c *Composite) ByName(name string) (media.Node, bool) {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	for _, child := range c.children {
		if child.Name() == name {
			return child, true
		}
	}
	return nil, false
}

// Children implements media.Composite.
func (c *Composite) Children() []media.Node {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	out := make([]media.Node, len(c.children))
	copy(out, c.children)
	return out
}

// FindUnlinkedPort implements media.Composite: children in add order, each
// child's ports in declaration order, first unlinked port wins.
func (c *Composite) FindUnlinkedPort(d media.Direction) (media.Port, bool) {
	for _, child := range c.Children() {
		for _, p := range child.Ports(d) {
			if !p.IsLinked() {
				return p, true
			}
		}
	}
	return nil, false
}

// NewGhostPort implements media.Composite. The inner port is consumed: it
// reports linked from here on and cannot be ghosted again.
func (c *Composite) NewGhostPort(name string, inner media.Port) (media.Port, error) {
	ip, ok := inner.(*Port)
	if !ok {
		return nil, fmt.Errorf("foreign port implementation %T", inner)
	}
	if ip.IsLinked() {
		return nil, fmt.Errorf("inner port %s is already linked", ip.Name())
	}
	c.Node.mu.Lock()
	for _, p := range c.Node.ports {
		if p.name == name {
			c.Node.mu.Unlock()
			return nil, fmt.Errorf("port %s already exists on %s", name, c.Name())
		}
	}
	ghost := &Port{owner: &c.Node, name: name, direction: ip.direction, inner: ip, caps: ip.Caps()}
	c.Node.ports = append(c.Node.ports, ghost)
	c.Node.mu.Unlock()

	ip.mu.Lock()
	ip.peer = ghost
	ip.mu.Unlock()
	return ghost, nil
}

// Pipeline is an in-memory media.Pipeline.
type Pipeline struct {
	Composite
	framework *Framework
	bus       *Bus

	smu     sync.Mutex
	state   media.State
	pending media.State
	settled chan struct{}
}

// Bus implements media.Pipeline.
func (p *Pipeline) Bus() media.Bus { return p.bus }

// InjectMessage dispatches a bus message to all subscribers, synchronously
// on the calling goroutine.
func (p *Pipeline) InjectMessage(msg media.Message) { p.bus.Inject(msg) }

// SetState implements media.Pipeline. With Framework.PendingStates set the
// transition stays pending until Settle is called.
func (p *Pipeline) SetState(s media.State) media.StateChange {
	p.smu.Lock()
	defer p.smu.Unlock()
	if p.framework.PendingStates {
		p.pending = s
		if p.settled == nil {
			p.settled = make(chan struct{})
		}
		return media.StateChangeAsync
	}
	p.state = s
	return media.StateChangeSuccess
}

// AwaitState implements media.Pipeline.
func (p *Pipeline) AwaitState(s media.State, timeout time.Duration) media.StateChange {
	p.smu.Lock()
	if p.state == s {
		p.smu.Unlock()
		return media.StateChangeSuccess
	}
	ch := p.settled
	p.smu.Unlock()
	if ch == nil {
		return media.StateChangeFailure
	}
	select {
	case <-ch:
		p.smu.Lock()
		defer p.smu.Unlock()
		if p.state == s {
			return media.StateChangeSuccess
		}
		return media.StateChangeFailure
	case <-time.After(timeout):
		return media.StateChangeAsync
	}
}

// Settle completes a pending asynchronous transition.
func (p *Pipeline) Settle() {
	p.smu.Lock()
	defer p.smu.Unlock()
	p.state = p.pending
	if p.settled != nil {
		close(p.settled)
		p.settled = nil
	}
}

// State implements media.Pipeline.
func (p *Pipeline) State() media.State {
	p.smu.Lock()
	defer p.smu.Unlock()
	return p.state
}

// Bus is an in-memory media.Bus with synchronous dispatch.
type Bus struct {
	mu       sync.Mutex
	watchers []func(media.Message) bool
}

// Subscribe implements media.Bus.
func (b *Bus) Subscribe(fn func(media.Message) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watchers = append(b.watchers, fn)
}

// Inject dispatches msg to every subscriber on the calling goroutine,
// dropping subscribers that return false.
func (b *Bus) Inject(msg media.Message) {
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

// Loop is an in-memory media.Loop.
type Loop struct {
	mu      sync.Mutex
	quit    chan struct{}
	closed  bool
	running bool
}

// Run implements media.Loop.
func (l *Loop) Run() {
	l.mu.Lock()
	l.running = true
	ch := l.quit
	l.mu.Unlock()
	<-ch
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

// Quit implements media.Loop.
func (l *Loop) Quit() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		close(l.quit)
		l.closed = true
	}
}

// IsRunning implements media.Loop.
func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
