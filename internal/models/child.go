package models

import "time"

// Child represents an enrolled child. The submission API refers to children
// as students, matching the wire contract consumed by the dashboards.
type Child struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	BirthDate time.Time `db:"birth_date" json:"birth_date"`
	ParentID  string    `db:"parent_id" json:"parent_id"`
	GroupID   *string   `db:"group_id" json:"group_id,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChildFilter captures filtering criteria for listing children.
type ChildFilter struct {
	ParentID string
	GroupID  string
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Group represents a classroom group of children assigned to a teacher.
type Group struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	TeacherID *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
