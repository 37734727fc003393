package media

// ObjectClass is a detected object classification. The enumeration is
// fixed by the primary detector's label set.
type ObjectClass int

const (
	// ClassVehicle is a detected vehicle.
	ClassVehicle ObjectClass = iota
	// ClassBicycle is a detected bicycle.
	ClassBicycle
	// ClassPerson is a detected person.
	ClassPerson
	// ClassRoadSign is a detected road sign.
	ClassRoadSign
)

// String returns the string representation of ObjectClass
func (c ObjectClass) String() string {
	switch c {
	case ClassVehicle:
		return "vehicle"
	case ClassBicycle:
		return "bicycle"
	case ClassPerson:
		return "person"
	case ClassRoadSign:
		return "roadsign"
	default:
		return "unknown"
	}
}

// ObjectMeta describes one detected object in a frame.
type ObjectMeta struct {
	Class      ObjectClass
	Confidence float64
}

// FrameMeta describes one frame of a batch flowing through a port.
type FrameMeta struct {
	FrameNum    int
	SourceIndex int
	Objects     []ObjectMeta
}

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// OverlayText is human-readable text attached to a frame for downstream
// rendering.
type OverlayText struct {
	Text          string
	X, Y          int
	Font          string
	FontSize      int
	FontColor     Color
	SetBackground bool
	Background    Color
}

// Buffer is one batched media buffer with its structured detections. It is
// valid only for the duration of the probe invocation it is passed to.
type Buffer interface {
	// Frames returns per-frame detection metadata for the batch.
	Frames() []FrameMeta

	// AttachOverlay attaches overlay text to the frame at the given index
	// of the batch, to be rendered downstream.
	AttachOverlay(frameIndex int, text OverlayText)
}

// ProbeResult tells the framework what to do with the probed buffer.
type ProbeResult int

const (
	// ProbeOK passes the buffer downstream.
	ProbeOK ProbeResult = iota
	// ProbeDrop discards the buffer.
	ProbeDrop
)

// BufferProbe is a per-buffer inspection hook. It runs synchronously on
// the framework thread delivering the buffer and must return quickly.
type BufferProbe func(port Port, buf Buffer) ProbeResult
