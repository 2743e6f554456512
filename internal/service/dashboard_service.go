package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

const adminStatsCacheKey = "dash:admin:stats"

type applicationCounter interface {
	CountByStatus(ctx context.Context, filter models.ApplicationFilter) ([]models.StatusCount, error)
}

type favoriteCounter interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

type waitlistLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.WaitlistDetail, error)
}

type programStats interface {
	SeatUsageByPreceptor(ctx context.Context, preceptorID string) ([]models.ProgramSeatUsage, error)
	Count(ctx context.Context, activeOnly bool) (int, error)
}

type userCounter interface {
	CountByType(ctx context.Context) (map[models.UserType]int, error)
}

type pendingReviewCounter interface {
	CountPending(ctx context.Context) (int, error)
}

type subscriberCounter interface {
	CountActiveSubscribers(ctx context.Context) (int, error)
}

type openContactCounter interface {
	CountOpen(ctx context.Context) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the student, preceptor and admin dashboards.
type DashboardService struct {
	applications applicationCounter
	favorites    favoriteCounter
	waitlist     waitlistLister
	programs     programStats
	users        userCounter
	reviews      pendingReviewCounter
	newsletter   subscriberCounter
	contact      openContactCounter
	metrics      *MetricsService
	cache        *CacheService
	perms        *authz.Table
	logger       *zap.Logger
	cfg          DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Applications applicationCounter
	Favorites    favoriteCounter
	Waitlist     waitlistLister
	Programs     programStats
	Users        userCounter
	Reviews      pendingReviewCounter
	Newsletter   subscriberCounter
	Contact      openContactCounter
	Metrics      *MetricsService
	Cache        *CacheService
	Permissions  *authz.Table
	Logger       *zap.Logger
	Config       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	perms := params.Permissions
	if perms == nil {
		perms = authz.DefaultTable()
	}
	return &DashboardService{
		applications: params.Applications,
		favorites:    params.Favorites,
		waitlist:     params.Waitlist,
		programs:     params.Programs,
		users:        params.Users,
		reviews:      params.Reviews,
		newsletter:   params.Newsletter,
		contact:      params.Contact,
		metrics:      params.Metrics,
		cache:        params.Cache,
		perms:        perms,
		logger:       logger,
		cfg:          cfg,
	}
}

// Student summarises the actor's applications, favorites and waitlist entries.
func (s *DashboardService) Student(ctx context.Context, actor *models.User) (*models.StudentDashboard, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{UserID: &actor.ID})
	if err != nil {
		return nil, internalErr(err, "failed to count applications")
	}
	favorites, err := s.favorites.CountByUser(ctx, actor.ID)
	if err != nil {
		return nil, internalErr(err, "failed to count favorites")
	}
	waitlist, err := s.waitlist.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, internalErr(err, "failed to list waitlist")
	}
	if waitlist == nil {
		waitlist = []models.WaitlistDetail{}
	}
	return &models.StudentDashboard{
		Applications:      nonNilCounts(counts),
		TotalApplications: sumCounts(counts),
		Favorites:         favorites,
		Waitlist:          waitlist,
	}, nil
}

// Preceptor summarises the programs the actor owns.
func (s *DashboardService) Preceptor(ctx context.Context, actor *models.User) (*models.PreceptorDashboard, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsPreceptor() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "preceptor dashboard is only available to preceptors")
	}
	usage, err := s.programs.SeatUsageByPreceptor(ctx, actor.ID)
	if err != nil {
		return nil, internalErr(err, "failed to load seat usage")
	}
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{PreceptorID: &actor.ID})
	if err != nil {
		return nil, internalErr(err, "failed to count applications")
	}
	pending := 0
	for _, c := range counts {
		if c.Status == models.ApplicationPending {
			pending = c.Count
		}
	}
	if usage == nil {
		usage = []models.ProgramSeatUsage{}
	}
	return &models.PreceptorDashboard{Programs: usage, Applications: nonNilCounts(counts), PendingApplications: pending}, nil
}

// Admin returns platform totals and reports whether they came from cache.
// System metrics are always taken live.
func (s *DashboardService) Admin(ctx context.Context, actor *models.User) (*models.AdminStats, bool, error) {
	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	if !s.perms.HasPermission(actor, authz.ViewAnalytics) {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "missing capability view_analytics")
	}
	var cached models.AdminStats
	if s.cache.Get(ctx, adminStatsCacheKey, &cached) {
		cached.System = s.metrics.Snapshot()
		return &cached, true, nil
	}

	stats, err := s.composeAdminStats(ctx)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, adminStatsCacheKey, stats, s.cfg.CacheTTL)
	stats.System = s.metrics.Snapshot()
	return stats, false, nil
}

func (s *DashboardService) composeAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var (
		stats models.AdminStats
		err   error
	)
	if stats.Programs, err = s.programs.Count(ctx, false); err != nil {
		return nil, internalErr(err, "failed to count programs")
	}
	if stats.ActivePrograms, err = s.programs.Count(ctx, true); err != nil {
		return nil, internalErr(err, "failed to count programs")
	}
	counts, err := s.applications.CountByStatus(ctx, models.ApplicationFilter{})
	if err != nil {
		return nil, internalErr(err, "failed to count applications")
	}
	stats.Applications = nonNilCounts(counts)
	if stats.Users, err = s.users.CountByType(ctx); err != nil {
		return nil, internalErr(err, "failed to count users")
	}
	if stats.PendingReviews, err = s.reviews.CountPending(ctx); err != nil {
		return nil, internalErr(err, "failed to count reviews")
	}
	if stats.NewsletterActive, err = s.newsletter.CountActiveSubscribers(ctx); err != nil {
		return nil, internalErr(err, "failed to count subscribers")
	}
	if stats.OpenContactQueries, err = s.contact.CountOpen(ctx); err != nil {
		return nil, internalErr(err, "failed to count contact queries")
	}
	return &stats, nil
}

func nonNilCounts(counts []models.StatusCount) []models.StatusCount {
	if counts == nil {
		return []models.StatusCount{}
	}
	return counts
}

func sumCounts(counts []models.StatusCount) int {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	return total
}
