package gstreamer

import (
	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/media"
)

// port implements media.Port over a gst.Pad.
type port struct {
	pad   *gst.Pad
	owner media.Node
}

func (p *port) Name() string { return p.pad.GetName() }

func (p *port) Direction() media.Direction {
	return toDirection(p.pad.Direction())
}

func (p *port) Owner() media.Node { return p.owner }

func (p *port) IsLinked() bool { return p.pad.IsLinked() }

func (p *port) Peer() (media.Port, bool) {
	peer := p.pad.GetPeer()
	if peer == nil {
		return nil, false
	}
	var owner media.Node
	if parent := peer.GetParentElement(); parent != nil {
		owner = &node{el: parent}
	}
	return &port{pad: peer, owner: owner}, true
}

// Link maps the framework's pad link verdict to the contract's result set.
func (p *port) Link(sink media.Port) (media.LinkResult, string) {
	s, ok := sink.(*port)
	if !ok {
		return media.LinkRefused, "foreign port implementation"
	}
	ret := p.pad.Link(s.pad)
	switch ret {
	case gst.PadLinkOK:
		return media.LinkOK, ""
	case gst.PadLinkWrongHierarchy:
		return media.LinkWrongHierarchy, ""
	case gst.PadLinkWasLinked:
		return media.LinkWasLinked, ""
	case gst.PadLinkNoFormat:
		return media.LinkWrongFormat, ""
	default:
		return media.LinkRefused, ret.String()
	}
}

// Caps reports the negotiated format, falling back to the queried
// capabilities before negotiation.
func (p *port) Caps() string {
	if caps := p.pad.GetCurrentCaps(); caps != nil {
		return caps.String()
	}
	if caps := p.pad.QueryCaps(nil); caps != nil {
		return caps.String()
	}
	return ""
}

// AddBufferProbe bridges a gst buffer probe to the contract's probe. The
// probe runs on the streaming thread.
func (p *port) AddBufferProbe(fn media.BufferProbe) {
	extract := emptyExtractor
	if n, ok := p.owner.(*node); ok && n.framework != nil {
		extract = n.framework.extract
	}
	p.pad.AddProbe(gst.PadProbeTypeBuffer, func(pad *gst.Pad, info *gst.PadProbeInfo) gst.PadProbeReturn {
		buf := info.GetBuffer()
		if buf == nil {
			return gst.PadProbeOK
		}
		if fn(p, &buffer{buf: buf, frames: extract(buf)}) == media.ProbeDrop {
			return gst.PadProbeDrop
		}
		return gst.PadProbeOK
	})
}
