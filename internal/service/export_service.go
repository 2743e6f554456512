package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/repository"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/export"
	"github.com/noah-isme/medrotation-api/pkg/jobs"
	"github.com/noah-isme/medrotation-api/pkg/storage"
)

const maxExportRows = 5000

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type applicationSource interface {
	ListAll(ctx context.Context, filter models.ApplicationFilter, max int) ([]models.ApplicationDetail, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportDownload is a resolved, opened export file.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService manages the application export job lifecycle.
type ExportService struct {
	repo      exportJobStore
	apps      applicationSource
	queue     jobDispatcher
	storage   fileStorage
	signer    *storage.SignedURLSigner
	perms     *authz.Table
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. queue may be attached later
// with SetQueue since the worker queue needs the service's worker.
func NewExportService(repo exportJobStore, apps applicationSource, files fileStorage, signer *storage.SignedURLSigner, perms *authz.Table, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perms == nil {
		perms = authz.DefaultTable()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &ExportService{
		repo:      repo,
		apps:      apps,
		storage:   files,
		signer:    signer,
		perms:     perms,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// SetQueue attaches the dispatcher used by Create and RecoverPendingJobs.
func (s *ExportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// Create validates the request, persists a queued job and enqueues it.
func (s *ExportService) Create(ctx context.Context, actor *models.User, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if !s.perms.HasPermission(actor, authz.ExportData) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "missing capability export_data")
	}
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export request")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "exports are disabled")
	}

	params := models.ExportParams{ProgramID: req.ProgramID}
	if req.Status != nil {
		status := models.NormalizeApplicationStatus(*req.Status)
		params.Status = &status
	}
	job := &models.ExportJob{
		Format:    req.Format,
		Params:    datatypes.NewJSONType(params),
		Status:    models.ExportQueued,
		CreatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, internalErr(err, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Format}); err != nil {
		status := models.ExportFailed
		msg := "failed to enqueue job"
		progress := 100
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, internalErr(err, "failed to enqueue export job")
	}
	s.logger.Info("export queued", zap.String("export_id", job.ID), zap.String("format", job.Format), zap.String("actor_id", actor.ID))
	return job, nil
}

// Get returns a job's status; finished jobs carry a fresh signed download URL.
func (s *ExportService) Get(ctx context.Context, actor *models.User, id string) (*models.ExportJob, error) {
	if !s.perms.HasPermission(actor, authz.ExportData) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "missing capability export_data")
	}
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "export not found", "failed to load export job")
	}
	if job.Status == models.ExportFinished && job.ResultPath != nil {
		token, _, err := s.signer.Sign(job.ID, *job.ResultPath)
		if err != nil {
			return nil, internalErr(err, "failed to sign download url")
		}
		job.DownloadURL = strings.TrimRight(s.cfg.APIPrefix, "/") + "/exports/download/" + token
	}
	return job, nil
}

// Download verifies token and opens the stored file. The caller closes File.
func (s *ExportService) Download(ctx context.Context, token string) (*ExportDownload, error) {
	tok, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, tok.ExportID)
	if err != nil {
		return nil, notFoundOr(err, "export not found", "failed to load export job")
	}
	if job.Status != models.ExportFinished || job.ResultPath == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	if *job.ResultPath != tok.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	renderer, err := export.RendererFor(export.Format(job.Format))
	if err != nil {
		return nil, internalErr(err, "unsupported export format")
	}
	file, err := s.storage.Open(tok.Path)
	if err != nil {
		return nil, notFoundOr(err, "export file expired", "failed to open export file")
	}
	return &ExportDownload{
		File:        file,
		Filename:    path.Base(tok.Path),
		ContentType: renderer.ContentType(),
		ExpiresAt:   tok.ExpiresAt,
	}, nil
}

// Generate renders the applications selected by job and stores the file,
// returning its storage path.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (string, error) {
	renderer, err := export.RendererFor(export.Format(job.Format))
	if err != nil {
		return "", err
	}
	params := job.Params.Data()
	apps, err := s.apps.ListAll(ctx, models.ApplicationFilter{Status: params.Status, ProgramID: params.ProgramID}, maxExportRows)
	if err != nil {
		return "", err
	}
	data, err := renderer.Render(applicationDataset(apps))
	if err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	name := fmt.Sprintf("%s/applications-%s.%s", time.Now().UTC().Format("2006/01/02"), job.ID, renderer.Extension())
	return s.storage.Save(name, data)
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) {
	if s.queue == nil {
		return
	}
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued export jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Format}); err != nil {
			s.logger.Warn("failed to requeue pending export", zap.String("export_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup purges expired export files on every CleanupInterval tick
// until ctx is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	removed := 0
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Warn("export cleanup list failed", zap.Error(err))
			return
		}
		for _, job := range finished {
			if job.ResultPath == nil || *job.ResultPath == "" {
				continue
			}
			if err := s.storage.Delete(*job.ResultPath); err != nil {
				s.logger.Warn("export cleanup delete failed", zap.String("export_id", job.ID), zap.Error(err))
				continue
			}
			removed++
		}
		if len(finished) < 100 {
			break
		}
	}
	stale, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export filesystem cleanup failed", zap.Error(err))
	}
	if removed+len(stale) > 0 {
		s.logger.Info("expired exports removed", zap.Int("jobs", removed), zap.Int("files", len(stale)))
	}
}

var exportColumns = []export.Column{
	{Key: "applicant", Header: "Applicant", Width: 1.4},
	{Key: "email", Header: "Email", Width: 1.8},
	{Key: "program", Header: "Program", Width: 1.8},
	{Key: "hospital", Header: "Hospital", Width: 1.5},
	{Key: "status", Header: "Status", Width: 1},
	{Key: "submitted", Header: "Submitted", Width: 1},
	{Key: "reviewed", Header: "Reviewed", Width: 1},
}

func applicationDataset(apps []models.ApplicationDetail) export.Dataset {
	rows := make([]map[string]string, 0, len(apps))
	for _, app := range apps {
		reviewed := ""
		if app.ReviewedAt != nil {
			reviewed = app.ReviewedAt.Format("2006-01-02")
		}
		rows = append(rows, map[string]string{
			"applicant": app.ApplicantName,
			"email":     app.ApplicantEmail,
			"program":   app.ProgramTitle,
			"hospital":  app.HospitalName,
			"status":    string(app.Status),
			"submitted": app.CreatedAt.Format("2006-01-02"),
			"reviewed":  reviewed,
		})
	}
	return export.Dataset{Title: "Applications", Columns: exportColumns, Rows: rows}
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ExportJob) (string, error)
}

// ExportWorker bridges queue jobs to ExportService.Generate.
type ExportWorker struct {
	repo       exportJobStore
	exporter   exportGenerator
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, exporter exportGenerator, metrics *MetricsService, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger, maxRetries: maxRetries}
}

// Handle processes one queued export. A returned error makes the queue retry.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ExportProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	resultPath, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.ExportFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Warn("failed to mark export failed", zap.String("export_id", job.ID), zap.Error(updateErr))
			}
			w.metrics.RecordExport(record.Format, models.ExportFailed)
		} else {
			queued := models.ExportQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Warn("failed to requeue export", zap.String("export_id", job.ID), zap.Error(updateErr))
			}
		}
		return err
	}

	finished := models.ExportFinished
	progress = 100
	now := time.Now().UTC()
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultPath:   &resultPath,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark export finished", zap.String("export_id", job.ID), zap.Error(err))
		return err
	}
	w.metrics.RecordExport(record.Format, models.ExportFinished)
	w.logger.Info("export finished", zap.String("export_id", job.ID), zap.String("path", resultPath))
	return nil
}
