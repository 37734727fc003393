package gstreamer

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// node implements media.Node over a gst.Element. Wrappers are created on
// demand and carry no state of their own, so two wrappers for the same
// element are interchangeable; callers compare nodes by name.
type node struct {
	el        *gst.Element
	framework *Framework
}

func (n *node) Name() string { return n.el.GetName() }

func (n *node) TypeName() string {
	factory := n.el.GetFactory()
	if factory == nil {
		return ""
	}
	return factory.GetName()
}

func (n *node) SetProperty(name string, value any) error {
	if err := n.el.SetProperty(name, value); err != nil {
		return errors.WrapInvalid(err, "node", "SetProperty",
			fmt.Sprintf("set %s on %s", name, n.Name()))
	}
	return nil
}

func (n *node) StaticPort(name string) (media.Port, bool) {
	pad := n.el.GetStaticPad(name)
	if pad == nil {
		return nil, false
	}
	return &port{pad: pad, owner: n}, true
}

func (n *node) RequestPort(name string) (media.Port, error) {
	pad := n.el.GetRequestPad(name)
	if pad == nil {
		return nil, fmt.Errorf("element %s refused pad request %s", n.Name(), name)
	}
	return &port{pad: pad, owner: n}, nil
}

func (n *node) Ports(d media.Direction) []media.Port {
	var out []media.Port
	for _, pad := range n.el.GetPads() {
		if toDirection(pad.Direction()) == d {
			out = append(out, &port{pad: pad, owner: n})
		}
	}
	return out
}

func (n *node) LinkTo(sink media.Node) error {
	s, ok := sink.(interface{ element() *gst.Element })
	if !ok {
		return fmt.Errorf("sink %s is not a gstreamer node", sink.Name())
	}
	if err := n.el.Link(s.element()); err != nil {
		return err
	}
	return nil
}

func (n *node) element() *gst.Element { return n.el }

func (n *node) OnPortAdded(fn func(owner media.Node, port media.Port)) {
	n.el.Connect("pad-added", func(el *gst.Element, pad *gst.Pad) {
		owner := &node{el: el, framework: n.framework}
		fn(owner, &port{pad: pad, owner: owner})
	})
}

func (n *node) OnChildAdded(fn func(parent, child media.Node)) {
	n.el.Connect("element-added", func(bin *gst.Bin, el *gst.Element) {
		fn(&node{el: bin.Element, framework: n.framework},
			&node{el: el, framework: n.framework})
	})
}

func toDirection(d gst.PadDirection) media.Direction {
	if d == gst.PadDirectionSource {
		return media.DirectionSource
	}
	return media.DirectionSink
}
