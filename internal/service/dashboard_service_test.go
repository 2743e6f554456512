package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

type fakeStats struct {
	lastFilter models.ApplicationFilter
	counts     []models.StatusCount
}

func (f *fakeStats) CountByStatus(ctx context.Context, filter models.ApplicationFilter) ([]models.StatusCount, error) {
	f.lastFilter = filter
	return f.counts, nil
}

func (f *fakeStats) CountByUser(context.Context, string) (int, error) { return 3, nil }

func (f *fakeStats) ListByUser(context.Context, string) ([]models.WaitlistDetail, error) {
	return nil, nil
}

func (f *fakeStats) SeatUsageByPreceptor(ctx context.Context, preceptorID string) ([]models.ProgramSeatUsage, error) {
	return []models.ProgramSeatUsage{{ProgramID: "prog-1", TotalSeats: 4, AvailableSeats: 1, Pending: 2}}, nil
}

func (f *fakeStats) Count(ctx context.Context, activeOnly bool) (int, error) {
	if activeOnly {
		return 7, nil
	}
	return 9, nil
}

func (f *fakeStats) CountByType(context.Context) (map[models.UserType]int, error) {
	return map[models.UserType]int{models.UserTypeStudent: 40, models.UserTypePreceptor: 5}, nil
}

func (f *fakeStats) CountPending(context.Context) (int, error) { return 2, nil }

func (f *fakeStats) CountActiveSubscribers(context.Context) (int, error) { return 11, nil }

func (f *fakeStats) CountOpen(context.Context) (int, error) { return 1, nil }

func newDashboardFixture() (*DashboardService, *fakeStats) {
	stats := &fakeStats{counts: []models.StatusCount{
		{Status: models.ApplicationPending, Count: 2},
		{Status: models.ApplicationAccepted, Count: 1},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Applications: stats,
		Favorites:    stats,
		Waitlist:     stats,
		Programs:     stats,
		Users:        stats,
		Reviews:      stats,
		Newsletter:   stats,
		Contact:      stats,
		Metrics:      NewMetricsService(),
		Logger:       zap.NewNop(),
	})
	return svc, stats
}

func TestDashboardStudent(t *testing.T) {
	svc, stats := newDashboardFixture()

	dash, err := svc.Student(context.Background(), student("stu-1"))
	require.NoError(t, err)
	assert.Equal(t, 3, dash.TotalApplications)
	assert.Equal(t, 3, dash.Favorites)
	assert.NotNil(t, dash.Waitlist)
	require.NotNil(t, stats.lastFilter.UserID)
	assert.Equal(t, "stu-1", *stats.lastFilter.UserID)
}

func TestDashboardPreceptorRequiresPreceptor(t *testing.T) {
	svc, stats := newDashboardFixture()

	_, err := svc.Preceptor(context.Background(), student("stu-1"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	dash, err := svc.Preceptor(context.Background(), preceptor("prec-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, dash.PendingApplications)
	require.Len(t, dash.Programs, 1)
	assert.Equal(t, "prec-1", *stats.lastFilter.PreceptorID)
}

func TestDashboardAdminStats(t *testing.T) {
	svc, _ := newDashboardFixture()

	_, _, err := svc.Admin(context.Background(), student("stu-1"))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	stats, cached, err := svc.Admin(context.Background(), superAdmin())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 9, stats.Programs)
	assert.Equal(t, 7, stats.ActivePrograms)
	assert.Equal(t, 40, stats.Users[models.UserTypeStudent])
	assert.Equal(t, 11, stats.NewsletterActive)
	assert.Equal(t, 1, stats.OpenContactQueries)
	assert.False(t, stats.System.GeneratedAt.IsZero())
}
