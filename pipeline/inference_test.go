package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mceerrors "github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/testutil"
)

func TestTileGeometry(t *testing.T) {
	tests := []struct {
		n       int
		rows    int
		columns int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 2},
		{6, 3, 2},
		{7, 3, 3},
		{9, 3, 3},
		{10, 4, 3},
		{12, 4, 3},
		{16, 4, 4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			rows, columns := TileGeometry(tt.n)
			assert.Equal(t, tt.rows, rows, "rows")
			assert.Equal(t, tt.columns, columns, "columns")
			if tt.n > 0 {
				assert.GreaterOrEqual(t, rows*columns, tt.n, "grid must fit all sources")
				// no fully empty row
				assert.Greater(t, tt.n, (rows-1)*columns, "last row must not be empty")
			}
		})
	}
}

func TestInferenceDescriptionTransformConditional(t *testing.T) {
	base := InferenceConfig{ConfigPath: "pie.txt", NumSources: 2}

	withTransform := base
	withTransform.Platform.Constrained = true
	names := InferenceDescription(withTransform).Names()
	assert.Contains(t, names, transformName)

	noTransform := base
	names = InferenceDescription(noTransform).Names()
	assert.NotContains(t, names, transformName)

	// a non-default sink never needs the transform
	customSink := base
	customSink.Platform.Constrained = true
	customSink.Sink = "fakesink"
	names = InferenceDescription(customSink).Names()
	assert.NotContains(t, names, transformName)
}

func TestInferenceDescriptionBatchSizing(t *testing.T) {
	desc := InferenceDescription(InferenceConfig{ConfigPath: "pie.txt", NumSources: 5})

	var muxer, infer NodeDescription
	for _, d := range desc {
		switch d.Name {
		case muxerName:
			muxer = d
		case inferenceName:
			infer = d
		}
	}

	assert.Equal(t, 5, muxer.Properties["batch-size"])
	assert.Equal(t, 5, infer.Properties["batch-size"])

	// 5 sources tile as 3 rows x 2 columns; muxer resolution divides the
	// 1920x1080 default output by the grid
	assert.Equal(t, 1920/2, muxer.Properties["width"])
	assert.Equal(t, 1080/3, muxer.Properties["height"])
}

func TestInferenceDescriptionModelTemplate(t *testing.T) {
	cfg := InferenceConfig{
		ConfigPath:    "pie.txt",
		ModelTemplate: "model_b%d_%s.engine",
		NumSources:    4,
		Platform:      Platform{Int8: true},
	}
	desc := InferenceDescription(cfg)

	for _, d := range desc {
		if d.Name == inferenceName {
			assert.Equal(t, "model_b4_int8.engine", d.Properties["model-engine-file"])
			return
		}
	}
	t.Fatal("inference node not found")
}

func newTestGraph(t *testing.T, f *testutil.Framework, numSources int) *InferenceGraph {
	t.Helper()
	g, err := NewInferenceGraph(f, "inference", InferenceConfig{
		ConfigPath: "pie.txt",
		NumSources: numSources,
	}, nil, testLogger(), nil)
	require.NoError(t, err)
	return g
}

// sourceFixture adds the inference bin and a decode source to a shared
// pipeline so their ports can legally link.
func sourceFixture(t *testing.T, f *testutil.Framework, g *InferenceGraph) *testutil.Node {
	t.Helper()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(g.Bin()))

	source, err := f.NewNode("uridecodebin", "source_0")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(source))
	return source.(*testutil.Node)
}

func TestSinkPortRequestsFromMuxer(t *testing.T) {
	f := testutil.New()
	g := newTestGraph(t, f, 2)
	sourceFixture(t, f, g)

	first, err := g.SinkPort()
	require.NoError(t, err)
	assert.Equal(t, "sink_0", first.Name())
	assert.Equal(t, media.DirectionSink, first.Direction())

	// the first ghost proxies an unlinked request pad; a second call must
	// get a fresh index for both the request pad and the ghost
	second, err := g.SinkPort()
	require.NoError(t, err)
	assert.Equal(t, "sink_1", second.Name())
}

func TestLinkSourceIgnoresNonVideo(t *testing.T) {
	f := testutil.New()
	g := newTestGraph(t, f, 1)
	source := sourceFixture(t, f, g)

	audio := source.EmitPort("src_audio", "audio/x-raw, rate=48000")
	require.NoError(t, g.LinkSource(source, audio))
	assert.Equal(t, 0, g.SourceCount())
	assert.False(t, audio.IsLinked())
}

func TestLinkSourceCountsOnlyDurableLinks(t *testing.T) {
	f := testutil.New()
	g := newTestGraph(t, f, 2)
	source := sourceFixture(t, f, g)

	video := source.EmitPort("src_0", "video/x-raw(memory:NVMM), width=1920")
	require.NoError(t, g.LinkSource(source, video))
	assert.Equal(t, 1, g.SourceCount())
	assert.True(t, video.IsLinked())
}

func TestLinkSourceRollsBackOnFailure(t *testing.T) {
	f := testutil.New()
	// muxer without request pads: SinkPort cannot acquire a port
	f.Layouts = map[string]testutil.PortLayout{
		"nvstreammux": {Sources: []string{"src"}},
	}
	g := newTestGraph(t, f, 1)
	source := sourceFixture(t, f, g)

	video := source.EmitPort("src_0", "video/x-raw(memory:NVMM)")
	err := g.LinkSource(source, video)
	require.Error(t, err)

	var pae *mceerrors.PortAcquisitionError
	require.ErrorAs(t, err, &pae)
	assert.Equal(t, 0, g.SourceCount(), "failed attach must not count")
}

func TestIsVideoPort(t *testing.T) {
	f := testutil.New()
	node, err := f.NewNode("uridecodebin", "s")
	require.NoError(t, err)

	video := node.(*testutil.Node).EmitPort("src_0", "video/x-raw(memory:NVMM)")
	audio := node.(*testutil.Node).EmitPort("src_1", "audio/x-raw")
	assert.True(t, IsVideoPort(video))
	assert.False(t, IsVideoPort(audio))
}
