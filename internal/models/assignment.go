package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Attachment describes a stored file linked to an assignment or submission.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// AttachmentList persists attachments as a JSONB column.
type AttachmentList []Attachment

// Value marshals the attachment list to JSON for persistence.
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		l = AttachmentList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal attachments: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the attachment list.
func (l *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*l = AttachmentList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for AttachmentList", value)
	}
	if len(data) == 0 {
		*l = AttachmentList{}
		return nil
	}
	if err := json.Unmarshal(data, l); err != nil {
		return fmt.Errorf("unmarshal attachments: %w", err)
	}
	return nil
}

// Assignment represents a task published under a skill. Metadata stays
// editable after publication; submissions reference it by ID.
type Assignment struct {
	ID           string         `db:"id" json:"id"`
	SkillID      string         `db:"skill_id" json:"skill_id"`
	Title        string         `db:"title" json:"title"`
	Description  string         `db:"description" json:"description"`
	Instructions string         `db:"instructions" json:"instructions"`
	DueDate      time.Time      `db:"due_date" json:"due_date"`
	Attachments  AttachmentList `db:"attachments" json:"attachments"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
