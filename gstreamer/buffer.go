package gstreamer

import (
	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/media"
)

// MetaExtractor pulls per-frame detection metadata out of a raw buffer.
// The inference plugins attach their metadata in a vendor format the
// bindings do not expose, so extraction is pluggable: deployments with
// cgo access to the metadata library install a real extractor, everything
// else sees buffers without frames.
type MetaExtractor func(buf *gst.Buffer) []media.FrameMeta

func emptyExtractor(*gst.Buffer) []media.FrameMeta { return nil }

// buffer implements media.Buffer over a gst.Buffer.
type buffer struct {
	buf    *gst.Buffer
	frames []media.FrameMeta

	overlays []pendingOverlay
}

type pendingOverlay struct {
	frameIndex int
	text       media.OverlayText
}

func (b *buffer) Frames() []media.FrameMeta { return b.frames }

// AttachOverlay records the overlay for downstream rendering. Rendering
// requires the same vendor metadata library as extraction; without it the
// overlays are retained on the wrapper for the extractor integration to
// flush.
func (b *buffer) AttachOverlay(frameIndex int, text media.OverlayText) {
	b.overlays = append(b.overlays, pendingOverlay{frameIndex: frameIndex, text: text})
}

// Overlays returns the overlays attached during the probe.
func (b *buffer) Overlays() []media.OverlayText {
	out := make([]media.OverlayText, len(b.overlays))
	for i, o := range b.overlays {
		out[i] = o.text
	}
	return out
}
