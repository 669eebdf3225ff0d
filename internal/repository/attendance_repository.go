package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seedlinghq/seedling-api/internal/models"
)

const attendanceColumns = `id, child_id, date, status, note, recorded_by, created_at, updated_at`

// AttendanceRepository handles daily attendance persistence.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert writes a child's attendance for one day. There is one row per
// (child, date); re-marking overwrites status, note and recorder.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, child_id, date, status, note, recorded_by, created_at, updated_at)
        VALUES (:id, :child_id, :date, :status, :note, :recorded_by, :created_at, :updated_at)
        ON CONFLICT (child_id, date)
        DO UPDATE SET status = EXCLUDED.status,
            note = EXCLUDED.note,
            recorded_by = EXCLUDED.recorded_by,
            updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// List returns attendance records matching the filter, newest date first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE 1=1`, attendanceColumns)
	var args []interface{}
	if filter.ChildID != "" {
		query += fmt.Sprintf(" AND child_id = $%d", len(args)+1)
		args = append(args, filter.ChildID)
	}
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND child_id IN (SELECT id FROM children WHERE group_id = $%d)", len(args)+1)
		args = append(args, filter.GroupID)
	}
	if filter.DateFrom != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *filter.DateTo)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY date DESC, child_id ASC"

	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// SummaryForChild aggregates a child's attendance over a date range.
func (r *AttendanceRepository) SummaryForChild(ctx context.Context, childID string, from, to time.Time) (*models.AttendanceSummary, error) {
	const query = `SELECT
            COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
            COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
            COUNT(*) FILTER (WHERE status = 'SICK') AS sick,
            COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused,
            COUNT(*) AS total
        FROM attendance_records
        WHERE child_id = $1 AND date >= $2 AND date <= $3`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, childID, from, to); err != nil {
		return nil, fmt.Errorf("attendance summary for child: %w", err)
	}
	summary.ChildID = childID
	return &summary, nil
}

// SummaryForDate aggregates all attendance marked on a single day.
func (r *AttendanceRepository) SummaryForDate(ctx context.Context, date time.Time) (*models.AttendanceSummary, error) {
	const query = `SELECT
            COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
            COUNT(*) FILTER (WHERE status = 'ABSENT') AS absent,
            COUNT(*) FILTER (WHERE status = 'SICK') AS sick,
            COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused,
            COUNT(*) AS total
        FROM attendance_records
        WHERE date = $1`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, date); err != nil {
		return nil, fmt.Errorf("attendance summary for date: %w", err)
	}
	return &summary, nil
}

// Delete removes an attendance record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attendance_records WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
