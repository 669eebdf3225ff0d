package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/seedlinghq/seedling-api/internal/models"
)

const announcementColumns = `id, title, content, audience, target_group_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at`

// AnnouncementRepository handles announcement persistence.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates a new announcement repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// FindByID returns an announcement by identifier.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE id = $1 LIMIT 1`, announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find announcement by id: %w", err)
	}
	return &announcement, nil
}

// ListVisible returns live announcements visible to the given roles and
// groups. Pinned items sort first, then priority, then recency. Expired
// announcements are excluded.
func (r *AnnouncementRepository) ListVisible(ctx context.Context, filter models.AnnouncementFilter, now time.Time) ([]models.Announcement, int, error) {
	baseQuery := `FROM announcements WHERE published_at <= $1 AND (expires_at IS NULL OR expires_at > $1)`
	args := []interface{}{now}

	var audienceConds []string
	audienceConds = append(audienceConds, "audience = 'ALL'")
	for _, role := range filter.AudienceRoles {
		audienceConds = append(audienceConds, fmt.Sprintf("audience = $%d", len(args)+1))
		args = append(args, string(role))
	}
	if len(filter.GroupIDs) > 0 {
		placeholders := make([]string, len(filter.GroupIDs))
		for i, id := range filter.GroupIDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		audienceConds = append(audienceConds, fmt.Sprintf("(audience = 'GROUP' AND target_group_id IN (%s))", strings.Join(placeholders, ",")))
	}
	baseQuery += " AND (" + strings.Join(audienceConds, " OR ") + ")"

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT %s %s
        ORDER BY is_pinned DESC,
            CASE priority WHEN 'HIGH' THEN 0 WHEN 'NORMAL' THEN 1 ELSE 2 END,
            published_at DESC
        LIMIT %d OFFSET %d`, announcementColumns, baseQuery, pageSize, offset)

	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// CountLive returns active and pinned announcement counts.
func (r *AnnouncementRepository) CountLive(ctx context.Context, now time.Time) (active, pinned int, err error) {
	const query = `SELECT COUNT(*) AS active, COUNT(*) FILTER (WHERE is_pinned) AS pinned
        FROM announcements
        WHERE published_at <= $1 AND (expires_at IS NULL OR expires_at > $1)`
	row := r.db.QueryRowxContext(ctx, query, now)
	if err := row.Scan(&active, &pinned); err != nil {
		return 0, 0, fmt.Errorf("count live announcements: %w", err)
	}
	return active, pinned, nil
}

// Create inserts a new announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	if announcement.PublishedAt.IsZero() {
		announcement.PublishedAt = now
	}
	const query = `INSERT INTO announcements (id, title, content, audience, target_group_id, priority, is_pinned, published_at, expires_at, created_by, created_at, updated_at)
        VALUES (:id, :title, :content, :audience, :target_group_id, :priority, :is_pinned, :published_at, :expires_at, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update rewrites announcement content and targeting.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements
        SET title = :title, content = :content, audience = :audience, target_group_id = :target_group_id, priority = :priority, is_pinned = :is_pinned, published_at = :published_at, expires_at = :expires_at, updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, announcement)
	if err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an announcement.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM announcements WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
