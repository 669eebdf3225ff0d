package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/seedlinghq/seedling-api/internal/grading"
	"github.com/seedlinghq/seedling-api/internal/models"
	appErrors "github.com/seedlinghq/seedling-api/pkg/errors"
	"github.com/seedlinghq/seedling-api/pkg/export"
	"github.com/seedlinghq/seedling-api/pkg/jobs"
	"github.com/seedlinghq/seedling-api/pkg/storage"
)

type reportRepo interface {
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	ListByCreator(ctx context.Context, createdBy string, limit int) ([]models.ReportJob, error)
	Create(ctx context.Context, job *models.ReportJob) error
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
}

type reportAttendanceRepo interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type reportSubmissionRepo interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

type reportChildRepo interface {
	FindByID(ctx context.Context, id string) (*models.Child, error)
	ListIDsByGroup(ctx context.Context, groupID string) ([]string, error)
}

// CreateReportRequest queues an asynchronous export.
type CreateReportRequest struct {
	Type     string  `json:"type" validate:"required,oneof=attendance progress"`
	Format   string  `json:"format" validate:"required,oneof=csv xlsx pdf"`
	GroupID  *string `json:"group_id"`
	ChildID  *string `json:"child_id"`
	DateFrom string  `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string  `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
}

// ReportService runs attendance and progress exports on the background
// queue, writes the files to local storage and hands out signed URLs.
type ReportService struct {
	reports     reportRepo
	attendance  reportAttendanceRepo
	submissions reportSubmissionRepo
	children    reportChildRepo

	queue   *jobs.Queue
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	xlsx    *export.XLSXExporter
	pdf     *export.PDFExporter
	baseURL string
	metrics *MetricsService

	validator *validator.Validate
	logger    *zap.Logger
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Reports     reportRepo
	Attendance  reportAttendanceRepo
	Submissions reportSubmissionRepo
	Children    reportChildRepo
	Store       *storage.LocalStorage
	Signer      *storage.SignedURLSigner
	QueueConfig jobs.QueueConfig
	BaseURL     string
	Metrics     *MetricsService
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewReportService constructs a ReportService and its worker queue. Call
// Start before enqueueing and Stop on shutdown.
func NewReportService(params ReportServiceParams) *ReportService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReportService{
		reports:     params.Reports,
		attendance:  params.Attendance,
		submissions: params.Submissions,
		children:    params.Children,
		store:       params.Store,
		signer:      params.Signer,
		csv:         export.NewCSVExporter(),
		xlsx:        export.NewXLSXExporter(),
		pdf:         export.NewPDFExporter(),
		baseURL:     params.BaseURL,
		metrics:     params.Metrics,
		validator:   validate,
		logger:      logger,
	}
	s.queue = jobs.NewQueue("reports", s.process, params.QueueConfig)
	return s
}

// Start launches the report workers.
func (s *ReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the report workers.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Create validates the request, persists a queued job row and enqueues it.
func (s *ReportService) Create(ctx context.Context, createdBy string, req CreateReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	reportType := models.ReportType(req.Type)
	format := models.ReportFormat(req.Format)
	if reportType == models.ReportTypeAttendance && req.GroupID == nil && req.ChildID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance reports need a group_id or child_id")
	}
	if reportType == models.ReportTypeProgress {
		if req.ChildID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "progress reports need a child_id")
		}
		if format != models.ReportFormatPDF {
			return nil, appErrors.Clone(appErrors.ErrValidation, "progress reports are PDF only")
		}
	}
	if reportType == models.ReportTypeAttendance && format == models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance reports are CSV or XLSX")
	}

	job := &models.ReportJob{
		Type: reportType,
		Params: models.ReportJobParams{
			GroupID:  req.GroupID,
			ChildID:  req.ChildID,
			DateFrom: req.DateFrom,
			DateTo:   req.DateTo,
			Format:   format,
		},
		Status:    models.ReportStatusQueued,
		CreatedBy: createdBy,
	}
	if err := s.reports.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type)}); err != nil {
		now := time.Now().UTC()
		if markErr := s.reports.MarkFailed(ctx, job.ID, "queue unavailable", now); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// GetByID returns a job's status. Non-admins only see their own jobs.
func (s *ReportService) GetByID(ctx context.Context, actorID string, actorRole models.UserRole, id string) (*models.ReportJob, error) {
	job, err := s.reports.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	if actorRole != models.RoleAdmin && job.CreatedBy != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot view another user's report")
	}
	return job, nil
}

// List returns the actor's recent report jobs.
func (s *ReportService) List(ctx context.Context, actorID string, limit int) ([]models.ReportJob, error) {
	jobsList, err := s.reports.ListByCreator(ctx, actorID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report jobs")
	}
	return jobsList, nil
}

// ResolveDownload parses a signed token and returns the stored file path.
func (s *ReportService) ResolveDownload(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}

// process is the queue handler: it renders the export, stores the file and
// finalises the job row. Returning an error lets the queue retry.
func (s *ReportService) process(ctx context.Context, queued jobs.Job) error {
	job, err := s.reports.FindByID(ctx, queued.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", queued.ID, err)
	}
	if job.Status == models.ReportStatusFinished {
		return nil
	}
	if err := s.reports.UpdateStatus(ctx, job.ID, models.ReportStatusProcessing); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}

	var payload []byte
	var ext string
	switch job.Type {
	case models.ReportTypeAttendance:
		payload, ext, err = s.renderAttendance(ctx, job)
	case models.ReportTypeProgress:
		payload, ext, err = s.renderProgress(ctx, job)
	default:
		err = fmt.Errorf("unknown report type %q", job.Type)
	}
	now := time.Now().UTC()
	if err != nil {
		if markErr := s.reports.MarkFailed(ctx, job.ID, err.Error(), now); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return err
	}

	filename := fmt.Sprintf("%s-%s.%s", job.Type, job.ID, ext)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		if markErr := s.reports.MarkFailed(ctx, job.ID, "storage write failed", now); markErr != nil {
			s.logger.Error("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store report file: %w", err)
	}
	token, _, err := s.signer.Generate(job.CreatedBy, relPath)
	if err != nil {
		return fmt.Errorf("sign report url: %w", err)
	}
	resultURL := fmt.Sprintf("%s/reports/download?token=%s", s.baseURL, token)
	if err := s.reports.MarkFinished(ctx, job.ID, resultURL, now); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	s.metrics.RecordReportFinished()
	s.logger.Info("report finished", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

func (s *ReportService) renderAttendance(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	filter := models.AttendanceFilter{}
	if job.Params.ChildID != nil {
		filter.ChildID = *job.Params.ChildID
	}
	if job.Params.GroupID != nil {
		filter.GroupID = *job.Params.GroupID
	}
	if from, err := time.Parse("2006-01-02", job.Params.DateFrom); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", job.Params.DateTo); err == nil {
		filter.DateTo = &to
	}

	records, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("load attendance: %w", err)
	}

	data := export.Dataset{Headers: []string{"Date", "Child", "Status", "Note", "Recorded By"}}
	for _, r := range records {
		data.Rows = append(data.Rows, map[string]string{
			"Date":        r.Date.Format("2006-01-02"),
			"Child":       r.ChildID,
			"Status":      string(r.Status),
			"Note":        r.Note,
			"Recorded By": r.RecordedBy,
		})
	}

	if job.Params.Format == models.ReportFormatXLSX {
		payload, err := s.xlsx.Render(data, "Attendance")
		return payload, "xlsx", err
	}
	payload, err := s.csv.Render(data)
	return payload, "csv", err
}

func (s *ReportService) renderProgress(ctx context.Context, job *models.ReportJob) ([]byte, string, error) {
	child, err := s.children.FindByID(ctx, *job.Params.ChildID)
	if err != nil {
		return nil, "", fmt.Errorf("load child: %w", err)
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{StudentID: child.ID})
	if err != nil {
		return nil, "", fmt.Errorf("load submissions: %w", err)
	}

	data := export.Dataset{Headers: []string{"Assignment", "Submitted", "Status", "Grade", "Feedback"}}
	for _, sub := range submissions {
		row := map[string]string{
			"Assignment": sub.AssignmentID,
			"Submitted":  sub.SubmittedAt.Format("2006-01-02"),
			"Status":     string(sub.Status),
		}
		if sub.Grade != nil {
			row["Grade"] = grading.Format(*sub.Grade)
		}
		if sub.Feedback != nil {
			row["Feedback"] = *sub.Feedback
		}
		data.Rows = append(data.Rows, row)
	}

	title := fmt.Sprintf("Progress report - %s", child.FullName)
	payload, err := s.pdf.Render(data, title)
	return payload, "pdf", err
}
