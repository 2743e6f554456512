// Package server assembles the gin engine: global middleware, capability
// gates and the route table.
package server

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/medrotation-api/internal/authz"
	"github.com/noah-isme/medrotation-api/internal/handler"
	"github.com/noah-isme/medrotation-api/internal/middleware"
	"github.com/noah-isme/medrotation-api/internal/models"
	"github.com/noah-isme/medrotation-api/pkg/config"
	"github.com/noah-isme/medrotation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/medrotation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/medrotation-api/pkg/middleware/requestid"
	"github.com/noah-isme/medrotation-api/pkg/ratelimit"
)

// RouterDependencies carries everything the route table needs.
type RouterDependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Identity    middleware.IdentityResolver
	Permissions *authz.Table
	Limiter     ratelimit.Limiter
	Audit       middleware.AuditRecorder
	Observer    middleware.HTTPObserver

	Programs     *handler.ProgramHandler
	Applications *handler.ApplicationHandler
	Favorites    *handler.FavoriteHandler
	Reviews      *handler.ReviewHandler
	Waitlist     *handler.WaitlistHandler
	Specialties  *handler.SpecialtyHandler
	Inquiries    *handler.InquiryHandler
	CMS          *handler.CMSHandler
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Dashboard    *handler.DashboardHandler
	Exports      *handler.ExportHandler
	Metrics      *handler.MetricsHandler
}

// NewRouter builds the HTTP engine.
func NewRouter(deps RouterDependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Observer))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.WithPermissions(deps.Permissions))

	r.GET("/health", deps.Metrics.Health)
	r.GET("/ready", deps.Metrics.Ready)
	r.GET("/metrics", deps.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	registerPublicRoutes(api.Group("", middleware.OptionalJWT(deps.Identity)), deps)

	protected := api.Group("", middleware.JWT(deps.Identity))
	registerMemberRoutes(protected, deps)
	registerContentRoutes(protected, deps, log)
	registerAdminRoutes(protected.Group("/admin"), deps, log)

	return r
}

func registerPublicRoutes(rg *gin.RouterGroup, deps RouterDependencies) {
	limits := deps.Config.RateLimit
	requests, window := 0, limits.Window
	if limits.Enabled {
		requests = limits.Requests
	}

	rg.GET("/programs", deps.Programs.List)
	rg.GET("/programs/featured", deps.Programs.Featured)
	rg.GET("/programs/:id", deps.Programs.Get)
	rg.GET("/programs/:id/reviews", deps.Reviews.ListForProgram)
	rg.GET("/programs/:id/rating", deps.Reviews.Rating)

	rg.GET("/specialties", deps.Specialties.List)

	rg.POST("/newsletter", middleware.RateLimit(deps.Limiter, "newsletter", requests, window), deps.Inquiries.Subscribe)
	rg.DELETE("/newsletter/:email", deps.Inquiries.Unsubscribe)
	rg.POST("/contact", middleware.RateLimit(deps.Limiter, "contact", requests, window), deps.Inquiries.Contact)

	cms := rg.Group("/cms")
	cms.GET("/pages", deps.CMS.ListPages)
	cms.GET("/pages/:slug", deps.CMS.GetPage)
	cms.GET("/pages/:slug/sections", deps.CMS.Sections)
	cms.GET("/blog", deps.CMS.ListBlogPosts)
	cms.GET("/blog/:slug", deps.CMS.GetBlogPost)
	cms.GET("/courses", deps.CMS.ListCourses)
	cms.GET("/courses/:slug", deps.CMS.GetCourse)

	rg.GET("/exports/download/:token", deps.Exports.Download)
}

func registerMemberRoutes(rg *gin.RouterGroup, deps RouterDependencies) {
	rg.GET("/auth/me", deps.Auth.Me)

	// Ownership and preceptor rules are enforced by the services.
	rg.POST("/programs", deps.Programs.Create)
	rg.PUT("/programs/:id", deps.Programs.Update)
	rg.DELETE("/programs/:id", middleware.RequireCapability(authz.DeletePrograms), deps.Programs.Delete)
	rg.GET("/programs/:id/waitlist", deps.Waitlist.ListForProgram)

	rg.GET("/applications", deps.Applications.List)
	rg.POST("/applications", deps.Applications.Apply)
	rg.GET("/applications/:id", deps.Applications.Get)
	rg.PUT("/applications/:id", deps.Applications.Update)

	rg.GET("/favorites", deps.Favorites.List)
	rg.POST("/favorites/:programId", deps.Favorites.Add)
	rg.DELETE("/favorites/:programId", deps.Favorites.Remove)
	rg.GET("/favorites/:programId/status", deps.Favorites.Status)

	rg.POST("/reviews", deps.Reviews.Create)

	rg.GET("/waitlist", deps.Waitlist.ListOwn)
	rg.POST("/waitlist", deps.Waitlist.Join)
	rg.DELETE("/waitlist/:programId", deps.Waitlist.Leave)

	rg.GET("/dashboard/student", middleware.RequireUserType(models.UserTypeStudent), deps.Dashboard.Student)
	rg.GET("/dashboard/preceptor", middleware.RequireUserType(models.UserTypePreceptor), deps.Dashboard.Preceptor)
}

func registerContentRoutes(rg *gin.RouterGroup, deps RouterDependencies, log *zap.Logger) {
	specialties := rg.Group("/specialties",
		middleware.RequireCapability(authz.ManageSpecialties),
		middleware.Audit(deps.Audit, log, models.AuditActionSpecialtyChange, "specialty"),
	)
	specialties.POST("", deps.Specialties.Create)
	specialties.PUT("/:id", deps.Specialties.Update)
	specialties.DELETE("/:id", deps.Specialties.Delete)

	cms := rg.Group("/cms", middleware.RequireCapability(authz.ManageContent))
	cms.GET("/media", deps.CMS.ListMedia)

	changes := cms.Group("", middleware.Audit(deps.Audit, log, models.AuditActionContentChange, "content"))
	changes.POST("/pages", deps.CMS.CreatePage)
	changes.PUT("/pages/:slug", deps.CMS.UpdatePage)
	changes.DELETE("/pages/:slug", deps.CMS.DeletePage)
	changes.PUT("/pages/:slug/sections/:key", deps.CMS.UpsertSection)
	changes.POST("/pages/:slug/sections/reorder", deps.CMS.ReorderSections)
	changes.DELETE("/pages/:slug/sections/:key", deps.CMS.DeleteSection)
	changes.POST("/media", deps.CMS.RegisterMedia)
	changes.DELETE("/media/:id", deps.CMS.DeleteMedia)
	changes.POST("/blog", deps.CMS.CreateBlogPost)
	changes.PUT("/blog/:id", deps.CMS.UpdateBlogPost)
	changes.DELETE("/blog/:id", deps.CMS.DeleteBlogPost)
	changes.POST("/courses", deps.CMS.CreateCourse)
	changes.PUT("/courses/:id", deps.CMS.UpdateCourse)
	changes.DELETE("/courses/:id", deps.CMS.DeleteCourse)
}

func registerAdminRoutes(rg *gin.RouterGroup, deps RouterDependencies, log *zap.Logger) {
	reviews := rg.Group("/reviews", middleware.RequireCapability(authz.ModerateReviews))
	reviews.GET("", deps.Reviews.Queue)
	reviews.PUT("/:id/moderate", deps.Reviews.Moderate)

	users := rg.Group("/users", middleware.RequireCapability(authz.ManageUsers))
	users.GET("", deps.Users.List)
	users.GET("/:id", deps.Users.Get)
	users.PUT("/:id/role", deps.Users.UpdateRole)

	analytics := rg.Group("", middleware.RequireCapability(authz.ViewAnalytics))
	analytics.GET("/stats", deps.Dashboard.Admin)
	analytics.GET("/newsletter", deps.Inquiries.Subscribers)
	analytics.GET("/contact", deps.Inquiries.ContactQueries)
	analytics.PUT("/contact/:id",
		middleware.Audit(deps.Audit, log, models.AuditActionInquiryUpdate, "contact_query"),
		deps.Inquiries.UpdateContactStatus,
	)

	exports := rg.Group("/exports", middleware.RequireCapability(authz.ExportData))
	exports.POST("", middleware.Audit(deps.Audit, log, models.AuditActionExportCreate, "export"), deps.Exports.Create)
	exports.GET("/:id", deps.Exports.Status)
}
