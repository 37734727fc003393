package testutil

import (
	"strings"
	"sync"

	"github.com/mdegans/mce/media"
)

// Port is an in-memory media.Port. Link enforces the containment rule a
// real framework enforces: ports may only link when their owners live in
// the same container, so crossing a composite boundary requires a ghost
// port.
type Port struct {
	mu        sync.Mutex
	owner     *Node
	name      string
	direction media.Direction
	caps      string
	peer      *Port

	// ghost links this outer port to the inner port it proxies.
	inner *Port

	probes []media.BufferProbe
}

// Name implements media.Port.
func (p *Port) Name() string { return p.name }

// Direction implements media.Port.
func (p *Port) Direction() media.Direction { return p.direction }

// Owner implements media.Port. Ghost ports are owned by their composite's
// embedded node; self maps that back to the outer composite type.
func (p *Port) Owner() media.Node {
	if p.owner.self != nil {
		return p.owner.self
	}
	return p.owner
}

// IsLinked implements media.Port.
func (p *Port) IsLinked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer != nil
}

// Peer implements media.Port.
func (p *Port) Peer() (media.Port, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.peer == nil {
		return nil, false
	}
	return p.peer, true
}

// SetCaps sets the port's reported format.
func (p *Port) SetCaps(caps string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps = caps
}

// Caps implements media.Port.
func (p *Port) Caps() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps
}

// Link implements media.Port.
func (p *Port) Link(sink media.Port) (media.LinkResult, string) {
	s, ok := sink.(*Port)
	if !ok {
		return media.LinkRefused, "foreign port implementation"
	}
	if p.direction != media.DirectionSource || s.direction != media.DirectionSink {
		return media.LinkRefused, "wrong direction"
	}
	if p.IsLinked() || s.IsLinked() {
		return media.LinkWasLinked, ""
	}
	if !sameContainer(p, s) {
		return media.LinkWrongHierarchy, ""
	}
	if !capsCompatible(p.Caps(), s.Caps()) {
		return media.LinkWrongFormat, ""
	}
	p.mu.Lock()
	p.peer = s
	p.mu.Unlock()
	s.mu.Lock()
	s.peer = p
	s.mu.Unlock()
	return media.LinkOK, ""
}

// AddBufferProbe implements media.Port.
func (p *Port) AddBufferProbe(fn media.BufferProbe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes = append(p.probes, fn)
}

// Push runs the port's probes against buf, simulating a buffer flowing
// through. It reports whether the buffer survived all probes.
func (p *Port) Push(buf media.Buffer) bool {
	p.mu.Lock()
	probes := append([]media.BufferProbe{}, p.probes...)
	p.mu.Unlock()
	for _, fn := range probes {
		if fn(p, buf) == media.ProbeDrop {
			return false
		}
	}
	return true
}

// container resolves the port's effective container for hierarchy checks.
// A ghost port's outer side lives in the composite's parent.
func (p *Port) container() *Composite {
	owner := p.owner
	if owner.self != nil {
		// outer port of a composite
		return owner.parent
	}
	return owner.parent
}

func sameContainer(a, b *Port) bool {
	return a.container() == b.container()
}

// capsCompatible applies a prefix rule: empty caps match anything, and two
// formats are compatible when one is a prefix of the other.
func capsCompatible(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
