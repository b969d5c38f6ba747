package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/school-backend/internal/http/handlers"
	httpMW "github.com/yungbote/school-backend/internal/http/middleware"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	CORSOrigins    []string
	// Tracing wraps every request in an otelgin span.
	Tracing     bool
	ServiceName string

	HealthHandler     *httpH.HealthHandler
	CatalogHandler    *httpH.CatalogHandler
	CourseHandler     *httpH.CourseHandler
	LessonHandler     *httpH.LessonHandler
	ActivityHandler   *httpH.ActivityHandler
	AssessmentHandler *httpH.AssessmentHandler
	JobHandler        *httpH.JobHandler
	ProfileHandler    *httpH.ProfileHandler
	RealtimeHandler   *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Catalog
	if cfg.CatalogHandler != nil {
		api.GET("/catalog", cfg.CatalogHandler.ListCatalog)
		api.GET("/catalog/:id", cfg.CatalogHandler.GetCatalogCourse)
		api.POST("/catalog/:id/start", cfg.CatalogHandler.StartCourse)
	}

	// Courses
	if cfg.CourseHandler != nil {
		api.POST("/courses", cfg.CourseHandler.CreateCourse)
		api.GET("/courses", cfg.CourseHandler.ListCourses)
		api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
		api.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
		api.PATCH("/courses/:id/state", cfg.CourseHandler.TransitionCourse)
		api.POST("/courses/:id/generate", cfg.CourseHandler.GenerateCourse)
		api.POST("/courses/:id/lessons/next", cfg.CourseHandler.NextLesson)
		api.PATCH("/courses/:id/navigation", cfg.CourseHandler.Navigate)
		api.GET("/courses/:id/logs", cfg.CourseHandler.ListLogs)
		api.DELETE("/courses/:id/logs", cfg.CourseHandler.ResetLogs)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/courses/:id/events", cfg.RealtimeHandler.CourseEvents)
		api.GET("/events", cfg.RealtimeHandler.UserEvents)
	}

	// Lessons and activities
	if cfg.LessonHandler != nil {
		api.GET("/lessons/:id", cfg.LessonHandler.GetLesson)
		api.POST("/lessons/:id/complete", cfg.LessonHandler.CompleteLesson)
		api.POST("/lessons/:id/retry", cfg.LessonHandler.RetryLesson)
	}
	if cfg.ActivityHandler != nil {
		api.GET("/activities/:lessonId", cfg.ActivityHandler.GetActivity)
		api.POST("/activities/:lessonId/submit", cfg.ActivityHandler.SubmitActivity)
	}

	// Assessments
	if cfg.AssessmentHandler != nil {
		api.GET("/courses/:id/assessments", cfg.AssessmentHandler.ListAssessments)
		api.POST("/assessments/:id/generate", cfg.AssessmentHandler.GenerateAssessment)
		api.GET("/assessments/:id", cfg.AssessmentHandler.GetAssessment)
		api.POST("/assessments/:id/submit", cfg.AssessmentHandler.SubmitAssessment)
	}

	// Jobs
	if cfg.JobHandler != nil {
		api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
	}

	// Profile and settings
	if cfg.ProfileHandler != nil {
		api.GET("/profile", cfg.ProfileHandler.GetProfile)
		api.PUT("/profile", cfg.ProfileHandler.UpdateProfile)
		api.GET("/settings", cfg.ProfileHandler.GetSettings)
		api.PUT("/settings", cfg.ProfileHandler.UpdateSettings)
	}

	return r
}
