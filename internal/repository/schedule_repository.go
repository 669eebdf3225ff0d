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

const scheduleColumns = `id, group_id, day_of_week, start_time, end_time, activity, location, created_at, updated_at`

// ScheduleRepository handles weekly schedule persistence.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID returns a schedule slot by identifier.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE id = $1 LIMIT 1`, scheduleColumns)
	var slot models.ScheduleSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find schedule slot by id: %w", err)
	}
	return &slot, nil
}

// List returns schedule slots for the filter ordered by day then start time.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots WHERE 1=1`, scheduleColumns)
	var args []interface{}
	if filter.GroupID != "" {
		query += fmt.Sprintf(" AND group_id = $%d", len(args)+1)
		args = append(args, filter.GroupID)
	}
	if filter.DayOfWeek != nil {
		query += fmt.Sprintf(" AND day_of_week = $%d", len(args)+1)
		args = append(args, *filter.DayOfWeek)
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"

	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}
	return slots, nil
}

// ListOverlapping returns slots for a group and day that overlap the window.
// Times are HH:MM strings so lexicographic comparison matches chronology.
func (r *ScheduleRepository) ListOverlapping(ctx context.Context, groupID string, dayOfWeek int, startTime, endTime string) ([]models.ScheduleSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_slots
        WHERE group_id = $1 AND day_of_week = $2 AND start_time < $4 AND end_time > $3`, scheduleColumns)
	var slots []models.ScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, groupID, dayOfWeek, startTime, endTime); err != nil {
		return nil, fmt.Errorf("list overlapping slots: %w", err)
	}
	return slots, nil
}

// Create inserts a new schedule slot.
func (r *ScheduleRepository) Create(ctx context.Context, slot *models.ScheduleSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	const query = `INSERT INTO schedule_slots (id, group_id, day_of_week, start_time, end_time, activity, location, created_at, updated_at)
        VALUES (:id, :group_id, :day_of_week, :start_time, :end_time, :activity, :location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create schedule slot: %w", err)
	}
	return nil
}

// Update rewrites a schedule slot.
func (r *ScheduleRepository) Update(ctx context.Context, slot *models.ScheduleSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_slots
        SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, activity = :activity, location = :location, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, slot)
	if err != nil {
		return fmt.Errorf("update schedule slot: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a schedule slot.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM schedule_slots WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule slot: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
