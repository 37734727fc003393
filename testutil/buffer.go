package testutil

import (
	"sync"

	"github.com/mdegans/mce/media"
)

// Buffer is an in-memory media.Buffer carrying fabricated detection
// metadata. Attached overlays are recorded per frame for assertions.
type Buffer struct {
	mu       sync.Mutex
	frames   []media.FrameMeta
	overlays map[int][]media.OverlayText
}

// NewBuffer creates a Buffer with the given frames.
func NewBuffer(frames ...media.FrameMeta) *Buffer {
	return &Buffer{
		frames:   frames,
		overlays: make(map[int][]media.OverlayText),
	}
}

// Frames implements media.Buffer.
func (b *Buffer) Frames() []media.FrameMeta {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]media.FrameMeta, len(b.frames))
	copy(out, b.frames)
	return out
}

// AttachOverlay implements media.Buffer.
func (b *Buffer) AttachOverlay(frameIndex int, text media.OverlayText) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlays[frameIndex] = append(b.overlays[frameIndex], text)
}

// Overlays returns the overlays attached to the frame at frameIndex.
func (b *Buffer) Overlays(frameIndex int) []media.OverlayText {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]media.OverlayText{}, b.overlays[frameIndex]...)
}
