package gstreamer

import (
	"fmt"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// composite implements media.Composite over a gst.Bin. Child order is
// tracked here because the underlying bin does not guarantee iteration
// order, and FindUnlinkedPort promises a deterministic search.
type composite struct {
	node
	bin *gst.Bin

	mu       sync.Mutex
	children []media.Node
}

func (c *composite) Add(n media.Node) error {
	gn, ok := n.(interface{ element() *gst.Element })
	if !ok {
		return fmt.Errorf("node %s is not a gstreamer node", n.Name())
	}
	if err := c.bin.Add(gn.element()); err != nil {
		return errors.WrapFatal(err, "composite", "Add",
			fmt.Sprintf("add %s to %s", n.Name(), c.Name()))
	}
	c.mu.Lock()
	c.children = append(c.children, n)
	c.mu.Unlock()
	return nil
}

func (c *composite) ByName(name string) (media.Node, bool) {
	el, err := c.bin.GetElementByName(name)
	if err != nil || el == nil {
		return nil, false
	}
	return &node{el: el, framework: c.framework}, true
}

func (c *composite) Children() []media.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]media.Node, len(c.children))
	copy(out, c.children)
	return out
}

func (c *composite) FindUnlinkedPort(d media.Direction) (media.Port, bool) {
	for _, child := range c.Children() {
		for _, p := range child.Ports(d) {
			if !p.IsLinked() {
				return p, true
			}
		}
	}
	return nil, false
}

// NewGhostPort creates, activates and adds a ghost pad proxying inner.
// The pad is activated before it is added so that it can link while the
// pipeline is already constructed.
func (c *composite) NewGhostPort(name string, inner media.Port) (media.Port, error) {
	ip, ok := inner.(*port)
	if !ok {
		return nil, fmt.Errorf("inner port is not a gstreamer port")
	}

	ghost := gst.NewGhostPad(name, ip.pad)
	if ghost == nil {
		return nil, fmt.Errorf("failed to create ghost pad %s in %s", name, c.Name())
	}
	if !ghost.SetActive(true) {
		return nil, fmt.Errorf("failed to activate ghost pad %s in %s", name, c.Name())
	}
	if !c.bin.AddPad(ghost.Pad) {
		return nil, fmt.Errorf("failed to add ghost pad %s to %s", name, c.Name())
	}
	return &port{pad: ghost.Pad, owner: c}, nil
}
