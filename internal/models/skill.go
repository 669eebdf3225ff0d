package models

import "time"

// Skill is the top-level subject grouping lessons and assignments,
// analogous to a course.
type Skill struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	AgeBand     *string   `db:"age_band" json:"age_band,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// SkillFilter captures filtering criteria for listing skills.
type SkillFilter struct {
	Search   string
	AgeBand  string
	Page     int
	PageSize int
}

// Lesson is an ordered learning module under a skill.
type Lesson struct {
	ID        string    `db:"id" json:"id"`
	SkillID   string    `db:"skill_id" json:"skill_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Position  int       `db:"position" json:"position"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
