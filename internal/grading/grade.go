package grading

import "strconv"

type gradeKind int

const (
	gradeEmpty gradeKind = iota
	gradeLetter
	gradeLegacy
	gradeRaw
)

// Grade is the parsed representation of a stored grade value: either a
// canonical letter, a legacy numeric score coerced at ingestion, or an
// unresolvable raw string carried through for display.
type Grade struct {
	kind   gradeKind
	letter Letter
	score  float64
	raw    string
}

// ParseGrade classifies a stored grade value once, at ingestion, so callers
// do not re-coerce on every render.
func ParseGrade(raw string) Grade {
	if raw == "" {
		return Grade{}
	}
	if letter, ok := Normalize(raw); ok {
		return Grade{kind: gradeLetter, letter: letter, raw: raw}
	}
	if score, err := strconv.ParseFloat(raw, 64); err == nil {
		if letter, ok := FromScore(score); ok {
			return Grade{kind: gradeLegacy, letter: letter, score: score, raw: raw}
		}
	}
	return Grade{kind: gradeRaw, raw: raw}
}

// IsZero reports whether no grade value was present.
func (g Grade) IsZero() bool {
	return g.kind == gradeEmpty
}

// Letter returns the resolved canonical letter when one exists.
func (g Grade) Letter() (Letter, bool) {
	if g.kind == gradeLetter || g.kind == gradeLegacy {
		return g.letter, true
	}
	return "", false
}

// IsLegacy reports whether the grade was stored as a numeric score.
func (g Grade) IsLegacy() bool {
	return g.kind == gradeLegacy
}

// Score returns the original numeric score for legacy grades.
func (g Grade) Score() (float64, bool) {
	if g.kind == gradeLegacy {
		return g.score, true
	}
	return 0, false
}

// String returns the original stored value.
func (g Grade) String() string {
	return g.raw
}

// Display renders the grade for UI consumption, falling back to the raw
// stored value when it cannot be resolved.
func (g Grade) Display() string {
	if g.kind == gradeEmpty {
		return ""
	}
	return Format(g.raw)
}
