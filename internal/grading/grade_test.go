package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGradeLetter(t *testing.T) {
	g := ParseGrade("A")
	require.False(t, g.IsZero())
	letter, ok := g.Letter()
	require.True(t, ok)
	assert.Equal(t, LetterA, letter)
	assert.False(t, g.IsLegacy())
	assert.Equal(t, "A", g.String())
	assert.Equal(t, "A - Outstanding", g.Display())
}

func TestParseGradeLegacyNumeric(t *testing.T) {
	g := ParseGrade("85")
	letter, ok := g.Letter()
	require.True(t, ok)
	assert.Equal(t, LetterB, letter)
	assert.True(t, g.IsLegacy())
	score, ok := g.Score()
	require.True(t, ok)
	assert.Equal(t, 85.0, score)
	assert.Equal(t, "B - Very Good", g.Display())
}

func TestParseGradeRaw(t *testing.T) {
	g := ParseGrade("pass")
	_, ok := g.Letter()
	assert.False(t, ok)
	assert.False(t, g.IsLegacy())
	// raw values remain visible rather than being hidden
	assert.Equal(t, "pass", g.Display())
}

func TestParseGradeEmpty(t *testing.T) {
	g := ParseGrade("")
	assert.True(t, g.IsZero())
	assert.Equal(t, "", g.Display())
}
