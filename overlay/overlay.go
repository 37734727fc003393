// Package overlay renders per-frame detection summaries on top of the
// video. It plugs into the pipeline as a buffer probe on the on-screen
// display's input port, so it sees every batched buffer after inference
// metadata is attached and before anything is drawn.
package overlay

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mdegans/mce/media"
)

// Counts aggregates detected objects by class for one frame.
type Counts struct {
	Vehicles  int
	Bicycles  int
	People    int
	RoadSigns int
	Total     int
}

// CountClasses tallies the frame's detections.
func CountClasses(frame media.FrameMeta) Counts {
	var c Counts
	for _, obj := range frame.Objects {
		switch obj.Class {
		case media.ClassVehicle:
			c.Vehicles++
		case media.ClassBicycle:
			c.Bicycles++
		case media.ClassPerson:
			c.People++
		case media.ClassRoadSign:
			c.RoadSigns++
		}
		c.Total++
	}
	return c
}

// Renderer composes the summary text attached to each frame. It keeps a
// running total of frames seen, readable concurrently with the probe.
type Renderer struct {
	logger *slog.Logger
	frames atomic.Int64
}

// NewRenderer creates a Renderer.
func NewRenderer(logger *slog.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// FramesSeen returns the number of frames the probe has processed.
func (r *Renderer) FramesSeen() int64 { return r.frames.Load() }

// Probe is the per-buffer hook. It runs on the framework's processing
// thread for every buffer, so it only tallies metadata and attaches text;
// it never blocks. Buffers always pass through.
func (r *Renderer) Probe(port media.Port, buf media.Buffer) media.ProbeResult {
	for i, frame := range buf.Frames() {
		r.frames.Add(1)
		counts := CountClasses(frame)

		buf.AttachOverlay(i, summaryText(frame.FrameNum, counts))

		r.logger.Debug("frame annotated",
			"frame", frame.FrameNum,
			"source", frame.SourceIndex,
			"objects", counts.Total,
			"vehicles", counts.Vehicles,
			"people", counts.People)
	}
	return media.ProbeOK
}

// summaryText builds the overlay placed in the frame's top-left corner.
func summaryText(frameNum int, c Counts) media.OverlayText {
	return media.OverlayText{
		Text: fmt.Sprintf("Frame=%d Objects=%d Vehicles=%d People=%d",
			frameNum, c.Total, c.Vehicles, c.People),
		X:             10,
		Y:             12,
		Font:          "Serif",
		FontSize:      10,
		FontColor:     media.Color{R: 1, G: 1, B: 1, A: 1},
		SetBackground: true,
		Background:    media.Color{R: 0, G: 0, B: 0, A: 1},
	}
}
