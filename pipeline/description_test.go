package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeDescriptionAbsent(t *testing.T) {
	assert.True(t, NodeDescription{}.Absent())
	assert.True(t, NodeDescription{Name: "transform"}.Absent())
	assert.False(t, NodeDescription{Type: "identity"}.Absent())
}

func TestGraphDescriptionNames(t *testing.T) {
	desc := GraphDescription{
		{Type: "videotestsrc", Name: "src"},
		{}, // conditional slot, absent this time
		{Type: "fakesink", Name: "out"},
	}
	assert.Equal(t, []string{"src", "out"}, desc.Names())
}
