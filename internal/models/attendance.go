package models

import "time"

// AttendanceStatus represents the status for daily attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusSick    AttendanceStatus = "SICK"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusSick, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// AttendanceRecord represents one child's attendance for one day. There is a
// single row per (child, date); re-marking overwrites it.
type AttendanceRecord struct {
	ID         string           `db:"id" json:"id"`
	ChildID    string           `db:"child_id" json:"child_id"`
	Date       time.Time        `db:"date" json:"date"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Note       string           `db:"note" json:"note"`
	RecordedBy string           `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	ChildID  string
	GroupID  string
	DateFrom *time.Time
	DateTo   *time.Time
	Status   AttendanceStatus
	Page     int
	PageSize int
}

// AttendanceSummary aggregates counts per status over a date range.
type AttendanceSummary struct {
	ChildID string `json:"child_id,omitempty"`
	Present int    `db:"present" json:"present"`
	Absent  int    `db:"absent" json:"absent"`
	Sick    int    `db:"sick" json:"sick"`
	Excused int    `db:"excused" json:"excused"`
	Total   int    `db:"total" json:"total"`
}
