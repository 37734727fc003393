// Package gstreamer adapts GStreamer, through the go-gst bindings, to the
// media framework contract. It is the only package that imports go-gst;
// everything above it works against the media interfaces and can run on
// the in-memory test framework instead.
package gstreamer

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

var initOnce sync.Once

// Framework implements media.Framework on GStreamer.
type Framework struct {
	// snapshotDir is where pipeline graph dot files are written. Empty
	// disables snapshots.
	snapshotDir string

	// extract pulls structured detection metadata out of buffers for
	// probes. The default extractor reports no frames.
	extract MetaExtractor
}

// Option configures a Framework.
type Option func(*Framework)

// WithSnapshotDir enables graph snapshots under dir.
func WithSnapshotDir(dir string) Option {
	return func(f *Framework) { f.snapshotDir = dir }
}

// WithMetaExtractor installs the buffer metadata extractor used by
// probes.
func WithMetaExtractor(fn MetaExtractor) Option {
	return func(f *Framework) { f.extract = fn }
}

// New initializes GStreamer (once per process) and returns a Framework.
func New(opts ...Option) *Framework {
	initOnce.Do(func() {
		gst.Init(nil)
	})
	f := &Framework{extract: emptyExtractor}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewNode implements media.Framework.
func (f *Framework) NewNode(typeName, name string) (media.Node, error) {
	el, err := gst.NewElement(typeName)
	if err != nil {
		return nil, errors.WrapFatal(err, "Framework", "NewNode",
			"create element of type "+typeName)
	}
	if err := el.SetProperty("name", name); err != nil {
		return nil, errors.WrapInvalid(err, "Framework", "NewNode",
			"name element "+name)
	}
	return &node{el: el, framework: f}, nil
}

// NewComposite implements media.Framework.
func (f *Framework) NewComposite(name string) (media.Composite, error) {
	bin := gst.NewBin(name)
	return &composite{node: node{el: bin.Element, framework: f}, bin: bin}, nil
}

// NewPipeline implements media.Framework.
func (f *Framework) NewPipeline(name string) (media.Pipeline, error) {
	p, err := gst.NewPipeline(name)
	if err != nil {
		return nil, errors.WrapFatal(err, "Framework", "NewPipeline",
			"create pipeline "+name)
	}
	return &pipeline{
		composite: composite{node: node{el: p.Element, framework: f}, bin: p.Bin},
		pipe:      p,
	}, nil
}

// NewLoop implements media.Framework.
func (f *Framework) NewLoop(p media.Pipeline) media.Loop {
	gp, _ := p.(*pipeline)
	return newLoop(gp)
}

// Snapshot implements media.Framework by writing a GraphViz dot file for
// the composite under the snapshot directory.
func (f *Framework) Snapshot(c media.Composite, stem string) error {
	if f.snapshotDir == "" {
		return nil
	}

	var bin *gst.Bin
	switch gc := c.(type) {
	case *composite:
		bin = gc.bin
	case *pipeline:
		bin = gc.bin
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Framework", "Snapshot",
			"composite is not a gstreamer composite")
	}

	data := bin.DebugBinToDotData(gst.DebugGraphShowAll)
	path := filepath.Join(f.snapshotDir, stem+".dot")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return errors.WrapTransient(err, "Framework", "Snapshot", "write "+path)
	}
	return nil
}
