package models

import "time"

// ScheduleSlot is one recurring weekly activity for a group.
type ScheduleSlot struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Activity  string    `db:"activity" json:"activity"`
	Location  string    `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter scopes schedule listings.
type ScheduleFilter struct {
	GroupID   string
	DayOfWeek *int
}
