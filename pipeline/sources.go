package pipeline

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// Source decode node type and the internals it creates at runtime. The
// decode bin's children are not known until container/codec detection
// completes, so they are matched by name prefix inside structural-change
// callbacks.
const (
	sourceType    = "uridecodebin"
	decodeBinName = "decodebin"
	hwDecoderName = "nvv4l2decoder"
)

// defaultSurfaceFeature marks ports backed by hardware surface memory.
// Sources whose negotiated format lacks it cannot feed the inference
// graph directly.
const defaultSurfaceFeature = "memory:NVMM"

// AttachmentState tracks the resolution of one source attachment.
type AttachmentState int

const (
	// AttachmentPending means media-type negotiation has not completed.
	AttachmentPending AttachmentState = iota
	// AttachmentLinked means the source is durably linked.
	AttachmentLinked
	// AttachmentAbandoned means negotiation produced an unusable format or
	// the link failed; the source is left permanently unlinked (format
	// mismatches are never retried).
	AttachmentAbandoned
)

// String returns the string representation of AttachmentState
func (s AttachmentState) String() string {
	switch s {
	case AttachmentLinked:
		return "linked"
	case AttachmentAbandoned:
		return "abandoned"
	default:
		return "pending"
	}
}

// SourceAttachment records one attach operation. It is created when the
// source begins attachment and resolved when negotiation completes; it is
// not persisted.
type SourceAttachment struct {
	ID    string
	URI   string
	Node  string
	Port  string
	State AttachmentState
}

// SourceManager attaches sources identified by URIs to an inference
// graph. A source's internal topology (demuxer, decoder) is discovered
// asynchronously by the framework, so linking happens inside structural
// callbacks that may arrive from arbitrary threads.
type SourceManager struct {
	framework media.Framework
	container media.Composite
	inference *InferenceGraph
	logger    *slog.Logger

	// surfaceFeature is required in negotiated source formats; empty
	// disables the check.
	surfaceFeature string

	// decoderProps are applied to the leaf hardware decoder once its
	// creation is reported through the child-added callback.
	decoderProps map[string]any

	counter atomic.Int64 // source node naming, only increases

	mu          sync.Mutex
	attachments map[string]*SourceAttachment
}

// SourceManagerConfig configures a SourceManager.
type SourceManagerConfig struct {
	// SurfaceFeature overrides the hardware-surface capability marker.
	// Empty selects the default; "-" disables the check entirely.
	SurfaceFeature string

	// DecoderProperties overrides the leaf decoder tuning property set.
	DecoderProperties map[string]any
}

// defaultDecoderProps tunes the leaf hardware decoder for throughput.
func defaultDecoderProps() map[string]any {
	return map[string]any{
		"enable-max-performance": true,
		"bufapi-version":         true,
		"drop-frame-interval":    0,
		"num-extra-surfaces":     0,
	}
}

// NewSourceManager creates a SourceManager that adds source nodes to
// container and links them into inference.
func NewSourceManager(f media.Framework, container media.Composite,
	inference *InferenceGraph, cfg SourceManagerConfig, logger *slog.Logger) *SourceManager {

	feature := cfg.SurfaceFeature
	switch feature {
	case "":
		feature = defaultSurfaceFeature
	case "-":
		feature = ""
	}
	props := cfg.DecoderProperties
	if props == nil {
		props = defaultDecoderProps()
	}

	return &SourceManager{
		framework:      f,
		container:      container,
		inference:      inference,
		logger:         logger,
		surfaceFeature: feature,
		decoderProps:   props,
		attachments:    make(map[string]*SourceAttachment),
	}
}

// NormalizeURI converts local file paths to file:// URIs and leaves
// anything that already parses with a scheme untouched.
func NormalizeURI(uri string) string {
	if _, err := os.Stat(uri); err == nil {
		if abs, err := filepath.Abs(uri); err == nil {
			return "file://" + abs
		}
	}
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" {
		return uri
	}
	return uri
}

// AddSource creates a source-decode node for uri, restricts it to a
// single video elementary stream, registers the structural callbacks that
// complete the attachment once negotiation finishes, and adds it to the
// container. The returned attachment is resolved asynchronously.
//
// Errors from one source are isolated: the caller is expected to continue
// attaching the remaining sources.
func (m *SourceManager) AddSource(uri string) (*SourceAttachment, error) {
	uri = NormalizeURI(uri)
	name := fmt.Sprintf("source_%d", m.counter.Load())

	node, err := m.framework.NewNode(sourceType, name)
	if err != nil {
		return nil, &errors.NodeCreationError{Type: sourceType, Name: name, Err: err}
	}

	props := map[string]any{
		"uri":                uri,
		"caps":               videoCapsPrefix + "(ANY)",
		"expose-all-streams": false,
		"async-handling":     true,
	}
	for k, v := range props {
		if err := node.SetProperty(k, v); err != nil {
			return nil, errors.WrapInvalid(err, "SourceManager", "AddSource",
				"set property "+k+" on "+name)
		}
	}

	att := &SourceAttachment{
		ID:    uuid.NewString(),
		URI:   uri,
		Node:  name,
		State: AttachmentPending,
	}
	m.mu.Lock()
	m.attachments[att.ID] = att
	m.mu.Unlock()

	node.OnPortAdded(func(owner media.Node, port media.Port) {
		m.onPortAdded(att, owner, port)
	})
	node.OnChildAdded(m.onChildAdded)

	if err := m.container.Add(node); err != nil {
		m.resolve(att, AttachmentAbandoned, "")
		return nil, errors.WrapInvalid(err, "SourceManager", "AddSource",
			fmt.Sprintf("add %s to %s", name, m.container.Name()))
	}
	m.counter.Add(1)

	m.logger.Info("source added, awaiting negotiation", "name", name, "uri", uri)
	return att, nil
}

// Attachments returns a snapshot of all attachment records.
func (m *SourceManager) Attachments() []SourceAttachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SourceAttachment, 0, len(m.attachments))
	for _, att := range m.attachments {
		out = append(out, *att)
	}
	return out
}

func (m *SourceManager) resolve(att *SourceAttachment, state AttachmentState, port string) {
	m.mu.Lock()
	att.State = state
	att.Port = port
	m.mu.Unlock()
}

// onPortAdded fires at most once per source, when decoding has determined
// the media type. It filters for hardware-surface video and hands the
// port to the inference graph. A format mismatch leaves the source
// permanently unlinked; there is no retry.
func (m *SourceManager) onPortAdded(att *SourceAttachment, owner media.Node, port media.Port) {
	if port.Direction() != media.DirectionSource {
		return
	}

	caps := port.Caps()
	if m.surfaceFeature != "" && !strings.Contains(caps, m.surfaceFeature) {
		m.logger.Warn("source negotiated without hardware surfaces, leaving unlinked",
			"source", owner.Name(), "caps", caps)
		m.resolve(att, AttachmentAbandoned, "")
		return
	}

	if err := m.inference.LinkSource(owner, port); err != nil {
		m.logger.Error("source attachment failed", "source", owner.Name(),
			"uri", att.URI, "error", err)
		m.resolve(att, AttachmentAbandoned, "")
		return
	}

	m.resolve(att, AttachmentLinked, port.Name())
	m.logger.Info("source linked", "source", owner.Name(), "port", port.Name())
}

// onChildAdded fires when the source creates an internal element. Nested
// decode bins get the callback re-registered so it reaches the true leaf
// decoder, whose existence and name are unknown until this fires.
func (m *SourceManager) onChildAdded(parent, child media.Node) {
	m.logger.Debug("source child added", "parent", parent.Name(), "child", child.Name())

	switch {
	case strings.HasPrefix(child.Name(), decodeBinName):
		child.OnChildAdded(m.onChildAdded)
	case strings.HasPrefix(child.Name(), hwDecoderName):
		m.logger.Debug("tuning leaf decoder", "decoder", child.Name())
		for k, v := range m.decoderProps {
			if err := child.SetProperty(k, v); err != nil {
				m.logger.Warn("failed to tune decoder property",
					"decoder", child.Name(), "property", k, "error", err)
			}
		}
	}
}
