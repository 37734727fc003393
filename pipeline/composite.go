package pipeline

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// Composite wraps a framework composite and adds ghost-port management: a
// subset of unlinked inner ports can be exposed as externally addressable
// ports so that the composite links like a primitive node.
//
// Ghost port names are generated from per-direction counters owned by this
// instance. The counters only ever increase, so names are never reused
// within one composite even across failed attempts; ghosting is not
// reversible. The counters are atomic because ghosting may be triggered
// from structural-change callbacks that arrive off the loop thread, but
// structural mutations themselves follow a single-writer discipline: no
// two may run concurrently on the same composite.
type Composite struct {
	framework media.Framework
	bin       media.Composite
	linker    *Linker
	logger    *slog.Logger

	srcGhosts  atomic.Int64
	sinkGhosts atomic.Int64
}

// NewComposite builds a composite named name containing the described
// nodes as children. If autoLink is set the children are linked in
// declaration order. desc may be empty for a composite populated later
// via Add.
func NewComposite(f media.Framework, name string, desc GraphDescription,
	autoLink bool, logger *slog.Logger, metrics *Metrics) (*Composite, error) {

	logger.Debug("creating composite", "name", name,
		"nodes", len(desc), "auto_link", autoLink)

	bin, err := f.NewComposite(name)
	if err != nil {
		return nil, errors.WrapFatal(err, "Composite", "NewComposite", "create composite "+name)
	}

	c := &Composite{
		framework: f,
		bin:       bin,
		linker:    NewLinker(logger, metrics),
		logger:    logger,
	}

	if len(desc) > 0 {
		nodes, err := BuildNodes(f, desc, logger)
		if err != nil {
			return nil, err
		}
		if err := c.Add(nodes, autoLink); err != nil {
			return nil, err
		}
	}

	c.snapshot(name + ".init.complete")
	return c, nil
}

// Bin returns the underlying framework composite, for adding to a parent
// container or linking as a unit.
func (c *Composite) Bin() media.Composite { return c.bin }

// Name returns the composite's name.
func (c *Composite) Name() string { return c.bin.Name() }

// Add adds pre-built nodes as children, optionally auto-linking them in
// the supplied order.
func (c *Composite) Add(nodes []media.Node, autoLink bool) error {
	for _, node := range nodes {
		if err := c.bin.Add(node); err != nil {
			return errors.WrapFatal(err, "Composite", "Add",
				fmt.Sprintf("add %s to %s", node.Name(), c.Name()))
		}
	}
	if autoLink {
		return c.linker.AutoLink(nodes)
	}
	return nil
}

// ByName returns the child node with the given name.
func (c *Composite) ByName(name string) (media.Node, bool) {
	return c.bin.ByName(name)
}

// ghostCounter returns the counter for a direction.
func (c *Composite) ghostCounter(d media.Direction) *atomic.Int64 {
	if d == media.DirectionSource {
		return &c.srcGhosts
	}
	return &c.sinkGhosts
}

// MakeGhost exposes an unlinked inner port as an external ghost port and
// returns it, ready to link.
//
// If inner is nil, the first unlinked port of the requested direction is
// resolved by searching children in the order they were added (first
// match, deterministic). If inner is supplied, direction is taken from it
// and the supplied port must be unlinked; an already-linked port fails
// with a LinkError and does not touch the name counter.
func (c *Composite) MakeGhost(direction media.Direction, inner media.Port) (media.Port, error) {
	c.logger.Debug("creating ghost port", "composite", c.Name(), "direction", direction)

	if inner != nil {
		direction = inner.Direction()
		if inner.IsLinked() {
			return nil, &errors.LinkError{
				Reason: errors.LinkAlreadyLinked,
				Src:    portRef(inner),
				Sink:   portRef(inner),
			}
		}
	} else {
		found, ok := c.bin.FindUnlinkedPort(direction)
		if !ok {
			return nil, &errors.PortNotFoundError{
				Composite: c.Name(),
				Direction: direction.String(),
			}
		}
		c.logger.Debug("unlinked port found", "composite", c.Name(), "port", portRef(found))
		inner = found
	}

	counter := c.ghostCounter(direction)
	outerName := fmt.Sprintf("%s_%d", direction, counter.Load())

	c.logger.Debug("adding ghost port", "composite", c.Name(),
		"ghost", outerName, "inner", portRef(inner))

	ghost, err := c.bin.NewGhostPort(outerName, inner)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Composite", "MakeGhost",
			fmt.Sprintf("ghost %s for inner port %s", outerName, portRef(inner)))
	}
	counter.Add(1)
	return ghost, nil
}

// snapshot writes a best-effort visualization artifact.
func (c *Composite) snapshot(stem string) {
	if err := c.framework.Snapshot(c.bin, stem); err != nil {
		c.logger.Debug("snapshot failed", "stem", stem, "error", err)
	}
}
