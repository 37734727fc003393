package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/testutil"
)

func sourceManagerFixture(t *testing.T) (*testutil.Framework, media.Pipeline, *SourceManager) {
	t.Helper()
	f := testutil.New()
	g := newTestGraph(t, f, 2)

	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(g.Bin()))

	m := NewSourceManager(f, pipe, g, SourceManagerConfig{}, testLogger())
	return f, pipe, m
}

func TestNormalizeURI(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sample.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	assert.Equal(t, "file://"+file, NormalizeURI(file))
	assert.Equal(t, "rtsp://camera.local/stream", NormalizeURI("rtsp://camera.local/stream"))
	assert.Equal(t, "file:///already/a/uri", NormalizeURI("file:///already/a/uri"))
}

func TestAddSourceConfiguresDecodeNode(t *testing.T) {
	_, pipe, m := sourceManagerFixture(t)

	att, err := m.AddSource("rtsp://camera.local/stream")
	require.NoError(t, err)
	assert.Equal(t, AttachmentPending, att.State)
	assert.NotEmpty(t, att.ID)

	node, ok := pipe.ByName("source_0")
	require.True(t, ok)

	tn := node.(*testutil.Node)
	uri, _ := tn.Property("uri")
	assert.Equal(t, "rtsp://camera.local/stream", uri)
	caps, _ := tn.Property("caps")
	assert.Equal(t, "video/x-raw(ANY)", caps)
	expose, _ := tn.Property("expose-all-streams")
	assert.Equal(t, false, expose)
}

func TestAddSourceNamesAreSequential(t *testing.T) {
	_, pipe, m := sourceManagerFixture(t)

	_, err := m.AddSource("rtsp://a/1")
	require.NoError(t, err)
	_, err = m.AddSource("rtsp://a/2")
	require.NoError(t, err)

	_, ok := pipe.ByName("source_0")
	assert.True(t, ok)
	_, ok = pipe.ByName("source_1")
	assert.True(t, ok)
}

func TestSourceLinksOnVideoNegotiation(t *testing.T) {
	_, pipe, m := sourceManagerFixture(t)

	att, err := m.AddSource("rtsp://camera.local/stream")
	require.NoError(t, err)

	node, _ := pipe.ByName("source_0")
	port := node.(*testutil.Node).EmitPort("src_0", "video/x-raw(memory:NVMM), width=1280")
	assert.True(t, port.IsLinked())

	resolved := m.Attachments()
	require.Len(t, resolved, 1)
	assert.Equal(t, AttachmentLinked, resolved[0].State)
	assert.Equal(t, att.ID, resolved[0].ID)
	assert.Equal(t, "src_0", resolved[0].Port)
}

func TestSourceWithoutHardwareSurfacesIsAbandoned(t *testing.T) {
	_, pipe, m := sourceManagerFixture(t)

	_, err := m.AddSource("rtsp://camera.local/stream")
	require.NoError(t, err)

	node, _ := pipe.ByName("source_0")
	port := node.(*testutil.Node).EmitPort("src_0", "video/x-raw, width=1280")

	assert.False(t, port.IsLinked(), "software-surface source must stay unlinked")
	resolved := m.Attachments()
	require.Len(t, resolved, 1)
	assert.Equal(t, AttachmentAbandoned, resolved[0].State)
}

func TestSurfaceCheckCanBeDisabled(t *testing.T) {
	f := testutil.New()
	g := newTestGraph(t, f, 1)
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(g.Bin()))

	m := NewSourceManager(f, pipe, g, SourceManagerConfig{SurfaceFeature: "-"}, testLogger())
	_, err = m.AddSource("rtsp://camera.local/stream")
	require.NoError(t, err)

	node, _ := pipe.ByName("source_0")
	port := node.(*testutil.Node).EmitPort("src_0", "video/x-raw, width=1280")
	assert.True(t, port.IsLinked())
}

func TestLeafDecoderTuning(t *testing.T) {
	_, pipe, m := sourceManagerFixture(t)

	_, err := m.AddSource("rtsp://camera.local/stream")
	require.NoError(t, err)

	node, _ := pipe.ByName("source_0")
	src := node.(*testutil.Node)

	// the decoder appears under a nested decode bin, not the source itself
	decodeBin := src.EmitChild("decodebin", "decodebin0")
	decoder := decodeBin.EmitChild("nvv4l2decoder", "nvv4l2decoder0")

	perf, ok := decoder.Property("enable-max-performance")
	require.True(t, ok)
	assert.Equal(t, true, perf)

	// unrelated children are left alone
	parser := decodeBin.EmitChild("h264parse", "h264parse0")
	_, ok = parser.Property("enable-max-performance")
	assert.False(t, ok)
}
