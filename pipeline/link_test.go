package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mceerrors "github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
	"github.com/mdegans/mce/testutil"
)

// chain builds src -> sink inside one pipeline and returns the pieces.
func chainFixture(t *testing.T) (*testutil.Framework, media.Pipeline, media.Node, media.Node) {
	t.Helper()
	f := testutil.New()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)

	src, err := f.NewNode("videotestsrc", "src")
	require.NoError(t, err)
	sink, err := f.NewNode("fakesink", "out")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(src))
	require.NoError(t, pipe.Add(sink))
	return f, pipe, src, sink
}

func TestLinkerLink(t *testing.T) {
	_, _, src, sink := chainFixture(t)
	l := NewLinker(testLogger(), nil)

	require.NoError(t, l.Link(src, sink))

	srcPort, ok := src.StaticPort("src")
	require.True(t, ok)
	assert.True(t, srcPort.IsLinked())
}

func TestLinkPortsAlreadyLinked(t *testing.T) {
	f, pipe, src, sink := chainFixture(t)
	l := NewLinker(testLogger(), nil)
	require.NoError(t, l.Link(src, sink))

	other, err := f.NewNode("fakesink", "other")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(other))

	srcPort, _ := src.StaticPort("src")
	otherSink, _ := other.StaticPort("sink")

	err = l.LinkPorts(srcPort, otherSink)
	require.Error(t, err)

	var le *mceerrors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, mceerrors.LinkAlreadyLinked, le.Reason)
	assert.Equal(t, "out:sink", le.SrcPeer)
	assert.True(t, mceerrors.IsInvalid(err))
}

func TestLinkPortsHierarchyMismatch(t *testing.T) {
	f := testutil.New()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)

	src, err := f.NewNode("videotestsrc", "src")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(src))

	bin, err := f.NewComposite("inner")
	require.NoError(t, err)
	require.NoError(t, pipe.Add(bin))
	sink, err := f.NewNode("fakesink", "out")
	require.NoError(t, err)
	require.NoError(t, bin.Add(sink))

	srcPort, _ := src.StaticPort("src")
	sinkPort, _ := sink.StaticPort("sink")

	l := NewLinker(testLogger(), nil)
	err = l.LinkPorts(srcPort, sinkPort)
	require.Error(t, err)

	var le *mceerrors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, mceerrors.LinkHierarchy, le.Reason)
}

func TestLinkPortsFormatIncompatible(t *testing.T) {
	_, _, src, sink := chainFixture(t)

	srcPort, _ := src.StaticPort("src")
	sinkPort, _ := sink.StaticPort("sink")
	srcPort.(*testutil.Port).SetCaps("audio/x-raw")
	sinkPort.(*testutil.Port).SetCaps("video/x-raw")

	l := NewLinker(testLogger(), nil)
	err := l.LinkPorts(srcPort, sinkPort)
	require.Error(t, err)

	var le *mceerrors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, mceerrors.LinkNoFormat, le.Reason)
	assert.Equal(t, "audio/x-raw", le.SrcCaps)
	assert.Equal(t, "video/x-raw", le.SinkCaps)
}

func TestLinkPortsNilSide(t *testing.T) {
	_, _, src, _ := chainFixture(t)
	srcPort, _ := src.StaticPort("src")

	l := NewLinker(testLogger(), nil)
	err := l.LinkPorts(srcPort, nil)
	require.Error(t, err)

	var le *mceerrors.LinkError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, mceerrors.LinkGeneric, le.Reason)
}

func TestAutoLinkStopsAtFirstFailure(t *testing.T) {
	f := testutil.New()
	pipe, err := f.NewPipeline("p")
	require.NoError(t, err)

	// src -> middle -> out, where middle's source port cannot negotiate
	// with out's sink port.
	src, _ := f.NewNode("videotestsrc", "src")
	middle, _ := f.NewNode("nvvideoconvert", "middle")
	out, _ := f.NewNode("fakesink", "out")
	for _, n := range []media.Node{src, middle, out} {
		require.NoError(t, pipe.Add(n))
	}
	middleSrc, _ := middle.StaticPort("src")
	middleSrc.(*testutil.Port).SetCaps("video/x-raw")
	outSink, _ := out.StaticPort("sink")
	outSink.(*testutil.Port).SetCaps("audio/x-raw")

	l := NewLinker(testLogger(), nil)
	err = l.AutoLink([]media.Node{src, middle, out})
	require.Error(t, err)

	// the first pair stays linked
	srcPort, _ := src.StaticPort("src")
	assert.True(t, srcPort.IsLinked())
	assert.False(t, outSink.IsLinked())
}
