package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mceerrors "github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/testutil"
)

func TestBuildNodesNilFramework(t *testing.T) {
	_, err := BuildNodes(nil, GraphDescription{{Type: "identity", Name: "x"}}, testLogger())
	assert.ErrorIs(t, err, mceerrors.ErrNoFramework)
}

func TestBuildNodesSkipsAbsent(t *testing.T) {
	f := testutil.New()
	desc := GraphDescription{
		{Type: "videotestsrc", Name: "src"},
		{}, // absent slot
		{Type: "fakesink", Name: "out"},
	}

	nodes, err := BuildNodes(f, desc, testLogger())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "src", nodes[0].Name())
	assert.Equal(t, "out", nodes[1].Name())
}

func TestBuildNodesCreationFailure(t *testing.T) {
	f := testutil.New()
	f.FailTypes = map[string]error{"nvinfer": errors.New("plugin not found")}

	_, err := BuildNodes(f, GraphDescription{{Type: "nvinfer", Name: "pie"}}, testLogger())
	require.Error(t, err)

	var nce *mceerrors.NodeCreationError
	require.ErrorAs(t, err, &nce)
	assert.Equal(t, "nvinfer", nce.Type)
	assert.Equal(t, "pie", nce.Name)
	assert.True(t, mceerrors.IsFatal(err))
}

func TestBuildNodesAppliesProperties(t *testing.T) {
	f := testutil.New()
	desc := GraphDescription{
		{
			Type: "videotestsrc", Name: "src",
			Properties: map[string]any{"is-live": true, "pattern": 2},
		},
	}

	nodes, err := BuildNodes(f, desc, testLogger())
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	node := nodes[0].(*testutil.Node)
	live, ok := node.Property("is-live")
	require.True(t, ok)
	assert.Equal(t, true, live)
	pattern, ok := node.Property("pattern")
	require.True(t, ok)
	assert.Equal(t, 2, pattern)
}
