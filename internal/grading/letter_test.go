package grading

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  Letter
		ok    bool
	}{
		{"A", LetterA, true},
		{" a ", LetterA, true},
		{"e", LetterE, true},
		{"\tB\n", LetterB, true},
		{"F", "", false},
		{"", "", false},
		{"AB", "", false},
		{"A+", "", false},
		{"85", "", false},
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestFromScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Letter
		ok    bool
	}{
		{95, LetterA, true},
		{90, LetterA, true},
		{89.999, LetterB, true},
		{85, LetterB, true},
		{80, LetterB, true},
		{72, LetterC, true},
		{70, LetterC, true},
		{65, LetterD, true},
		{60, LetterD, true},
		{59.999, LetterE, true},
		{40, LetterE, true},
		{0, LetterE, true},
		// scores outside [0,100] are deliberately not clamped
		{-10, LetterE, true},
		{1000, LetterA, true},
		{math.NaN(), "", false},
		{math.Inf(1), "", false},
		{math.Inf(-1), "", false},
	}
	for _, tt := range tests {
		got, ok := FromScore(tt.score)
		assert.Equal(t, tt.ok, ok, "score %v", tt.score)
		assert.Equal(t, tt.want, got, "score %v", tt.score)
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		input string
		want  Letter
		ok    bool
	}{
		{"B", LetterB, true},
		{" c ", LetterC, true},
		{"85", LetterB, true},
		{"90", LetterA, true},
		{"59.5", LetterE, true},
		{"not-a-grade", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Coerce(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "A - Outstanding", Format("A"))
	assert.Equal(t, "B - Very Good", Format("85"))
	assert.Equal(t, "E - Emerging", Format("12"))
	// unresolvable values pass through untouched
	assert.Equal(t, "zzz", Format("zzz"))
	assert.Equal(t, "", Format(""))
}

func TestFormatWith(t *testing.T) {
	assert.Equal(t, "A", FormatWith("A", FormatOptions{IncludeDescription: false}))
	assert.Equal(t, "C / Satisfactory", FormatWith("c", FormatOptions{IncludeDescription: true, Separator: " / "}))
	assert.Equal(t, "D - Developing", FormatWith("60", FormatOptions{IncludeDescription: true}))
}

func TestChipColor(t *testing.T) {
	assert.Equal(t, "success", ChipColor("A"))
	assert.Equal(t, "info", ChipColor("80"))
	assert.Equal(t, "error", ChipColor("e"))
	assert.Equal(t, "default", ChipColor("garbage"))
	assert.Equal(t, "default", ChipColor(""))
}

func TestFormatIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, "B - Very Good", Format("85"))
	}
}
