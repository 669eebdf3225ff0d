package grading

import (
	"math"
	"strconv"
	"strings"
)

// Letter is the canonical five-point grading scale used across assignments.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterE Letter = "E"
)

var descriptions = map[Letter]string{
	LetterA: "Outstanding",
	LetterB: "Very Good",
	LetterC: "Satisfactory",
	LetterD: "Developing",
	LetterE: "Emerging",
}

var chipColors = map[Letter]string{
	LetterA: "success",
	LetterB: "info",
	LetterC: "primary",
	LetterD: "warning",
	LetterE: "error",
}

// Description returns the fixed human-readable band label for the letter.
func (l Letter) Description() string {
	return descriptions[l]
}

// Valid reports whether the letter is part of the canonical scale.
func (l Letter) Valid() bool {
	_, ok := descriptions[l]
	return ok
}

// Normalize returns the canonical letter for the input, accepting only exact
// members of the scale after trimming and uppercasing. "F", partial matches
// and anything else are rejected.
func Normalize(value string) (Letter, bool) {
	letter := Letter(strings.ToUpper(strings.TrimSpace(value)))
	if !letter.Valid() {
		return "", false
	}
	return letter, true
}

// FromScore maps a numeric score onto the letter scale using fixed descending
// thresholds. Inputs are not clamped to [0,100]: negative scores resolve to E
// and scores above 100 resolve to A, matching how legacy point-based grades
// were recorded. Only non-finite values are rejected.
func FromScore(score float64) (Letter, bool) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return "", false
	}
	switch {
	case score >= 90:
		return LetterA, true
	case score >= 80:
		return LetterB, true
	case score >= 70:
		return LetterC, true
	case score >= 60:
		return LetterD, true
	default:
		return LetterE, true
	}
}

// Coerce resolves an arbitrary stored grade value into a letter, trying the
// string path first and falling back to a numeric parse.
func Coerce(value string) (Letter, bool) {
	if letter, ok := Normalize(value); ok {
		return letter, true
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return "", false
	}
	return FromScore(score)
}

// FormatOptions controls display formatting of a grade value.
type FormatOptions struct {
	IncludeDescription bool
	Separator          string
}

// Format renders a grade value with its description using the default
// separator, e.g. "A - Outstanding". Unresolvable values pass through
// verbatim so legacy data stays visible instead of being hidden.
func Format(value string) string {
	return FormatWith(value, FormatOptions{IncludeDescription: true, Separator: " - "})
}

// FormatWith renders a grade value using explicit options.
func FormatWith(value string, opts FormatOptions) string {
	letter, ok := Coerce(value)
	if !ok {
		return value
	}
	if !opts.IncludeDescription {
		return string(letter)
	}
	separator := opts.Separator
	if separator == "" {
		separator = " - "
	}
	return string(letter) + separator + letter.Description()
}

// ChipColor returns the fixed UI color token for the grade value, or a
// neutral token when the value does not resolve to a letter.
func ChipColor(value string) string {
	letter, ok := Coerce(value)
	if !ok {
		return "default"
	}
	return chipColors[letter]
}
