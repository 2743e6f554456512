package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/dto"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/internal/repository"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
	"github.com/noah-isme/medrotation-api/pkg/jobs"
	"github.com/noah-isme/medrotation-api/pkg/storage"
)

type exportRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportRepoStub() *exportRepoStub {
	return &exportRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *job
	return &copied, nil
}

func (r *exportRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		job.ResultPath = params.ResultPath
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type applicationSourceStub struct {
	apps   []models.ApplicationDetail
	filter models.ApplicationFilter
}

func (a *applicationSourceStub) ListAll(ctx context.Context, filter models.ApplicationFilter, max int) ([]models.ApplicationDetail, error) {
	a.filter = filter
	return a.apps, nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (string, error) {
	return "", errors.New("database unavailable")
}

type exportFixture struct {
	svc     *ExportService
	repo    *exportRepoStub
	apps    *applicationSourceStub
	queue   *dispatcherStub
	store   *storage.LocalStorage
	worker  *ExportWorker
	actor   *models.User
	metrics *MetricsService
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &exportFixture{
		repo: newExportRepoStub(),
		apps: &applicationSourceStub{apps: []models.ApplicationDetail{{
			Application: models.Application{
				ID:        "app-1",
				Status:    models.ApplicationAccepted,
				CreatedAt: now,
			},
			ProgramTitle:   "Cardiology Elective",
			HospitalName:   "Mass General",
			ApplicantName:  "Sam Lee",
			ApplicantEmail: "sam@example.com",
		}}},
		queue:   &dispatcherStub{},
		store:   store,
		actor:   superAdmin(),
		metrics: NewMetricsService(),
	}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	f.svc = NewExportService(f.repo, f.apps, store, signer, nil, f.metrics, nil, zap.NewNop(), ExportConfig{APIPrefix: "/api", MaxRetries: 2})
	f.svc.SetQueue(f.queue)
	f.worker = NewExportWorker(f.repo, f.svc, f.metrics, 2, zap.NewNop())
	return f
}

func TestExportServiceCreateRequiresCapability(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.svc.Create(context.Background(), student("stu-1"), dto.CreateExportRequest{Format: "csv"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, f.queue.jobs)
}

func TestExportServiceCreateQueuesJob(t *testing.T) {
	f := newExportFixture(t)
	status := "approved"
	programID := "prog-1"

	job, err := f.svc.Create(context.Background(), f.actor, dto.CreateExportRequest{Format: "CSV", Status: &status, ProgramID: &programID})
	require.NoError(t, err)
	assert.Equal(t, models.ExportQueued, job.Status)
	assert.Equal(t, "csv", job.Format)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, job.ID, f.queue.jobs[0].ID)

	params := job.Params.Data()
	require.NotNil(t, params.Status)
	assert.Equal(t, models.ApplicationAccepted, *params.Status)
	assert.Equal(t, "prog-1", *params.ProgramID)
}

func TestExportServiceCreateRejectsUnknownFormat(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.svc.Create(context.Background(), f.actor, dto.CreateExportRequest{Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestExportServiceEnqueueFailureMarksJobFailed(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = jobs.ErrNotRunning

	_, err := f.svc.Create(context.Background(), f.actor, dto.CreateExportRequest{Format: "pdf"})
	require.Error(t, err)
	require.Len(t, f.repo.jobs, 1)
	for _, job := range f.repo.jobs {
		assert.Equal(t, models.ExportFailed, job.Status)
		assert.Equal(t, 100, job.Progress)
		assert.NotNil(t, job.FinishedAt)
	}
}

func TestExportWorkerProducesDownloadableFile(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	job, err := f.svc.Create(ctx, f.actor, dto.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 1}))

	status, err := f.svc.Get(ctx, f.actor, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.True(t, strings.HasPrefix(status.DownloadURL, "/api/exports/download/"))

	token := strings.TrimPrefix(status.DownloadURL, "/api/exports/download/")
	download, err := f.svc.Download(ctx, token)
	require.NoError(t, err)
	defer download.File.Close()

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
	assert.Contains(t, string(body), "Sam Lee")
	assert.Contains(t, string(body), "Cardiology Elective")
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	worker := NewExportWorker(f.repo, failingGenerator{}, f.metrics, 2, zap.NewNop())

	job, err := f.svc.Create(ctx, f.actor, dto.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)

	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 1}))
	assert.Equal(t, models.ExportQueued, f.repo.jobs[job.ID].Status)
	assert.Equal(t, 0, f.repo.jobs[job.ID].Progress)
	require.NotNil(t, f.repo.jobs[job.ID].ErrorMessage)

	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 2}))
	assert.Equal(t, models.ExportFailed, f.repo.jobs[job.ID].Status)
	assert.Equal(t, 100, f.repo.jobs[job.ID].Progress)
	assert.NotNil(t, f.repo.jobs[job.ID].FinishedAt)
}

func TestExportServiceDownloadRejectsBadTokens(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.svc.Download(ctx, "not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	job, err := f.svc.Create(ctx, f.actor, dto.CreateExportRequest{Format: "csv"})
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	token, _, err := signer.Sign(job.ID, "2026/03/01/applications-"+job.ID+".csv")
	require.NoError(t, err)

	_, err = f.svc.Download(ctx, token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceRecoverPendingJobs(t *testing.T) {
	f := newExportFixture(t)
	f.repo.jobs["queued"] = &models.ExportJob{ID: "queued", Format: "pdf", Status: models.ExportQueued}
	f.repo.jobs["done"] = &models.ExportJob{ID: "done", Format: "csv", Status: models.ExportFinished}

	f.svc.RecoverPendingJobs(context.Background())
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "queued", f.queue.jobs[0].ID)
	assert.Equal(t, "pdf", f.queue.jobs[0].Type)
}

func TestExportServiceCleanupRemovesExpiredFiles(t *testing.T) {
	f := newExportFixture(t)
	name, err := f.store.Save("old/applications-1.csv", []byte("a,b\n"))
	require.NoError(t, err)
	finished := time.Now().Add(-48 * time.Hour)
	f.repo.jobs["old"] = &models.ExportJob{ID: "old", Format: "csv", Status: models.ExportFinished, ResultPath: &name, FinishedAt: &finished}

	f.svc.cleanupExpired(context.Background())

	_, err = f.store.Open(name)
	assert.Error(t, err)
}
