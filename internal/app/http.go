package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/http"
	httpH "github.com/yungbote/school-backend/internal/http/handlers"
	httpMW "github.com/yungbote/school-backend/internal/http/middleware"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health     *httpH.HealthHandler
	Catalog    *httpH.CatalogHandler
	Course     *httpH.CourseHandler
	Lesson     *httpH.LessonHandler
	Activity   *httpH.ActivityHandler
	Assessment *httpH.AssessmentHandler
	Job        *httpH.JobHandler
	Profile    *httpH.ProfileHandler
	Realtime   *httpH.RealtimeHandler
}

func wireMiddleware(log *logger.Logger, cfg Config, repos Repos) Middleware {
	log.Info("Wiring middleware...")
	if cfg.JWTSecretKey == "" {
		log.Warn("AUTH_JWT_SECRET unset, requests run as the default user")
	}
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, cfg.JWTSecretKey, repos.User),
	}
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(db),
		Catalog:    httpH.NewCatalogHandler(svc.Catalog),
		Course:     httpH.NewCourseHandler(svc.Course, svc.Orchestrator, svc.Jobs),
		Lesson:     httpH.NewLessonHandler(svc.Orchestrator, svc.Jobs),
		Activity:   httpH.NewActivityHandler(svc.Activity),
		Assessment: httpH.NewAssessmentHandler(svc.Assessment, svc.Orchestrator, svc.Jobs),
		Job:        httpH.NewJobHandler(svc.Jobs),
		Profile:    httpH.NewProfileHandler(svc.Profile),
		Realtime:   httpH.NewRealtimeHandler(log, hub, svc.Orchestrator),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, mw Middleware) *http.Server {
	return http.NewServer(cfg.Addr, http.RouterConfig{
		Log:               log,
		AuthMiddleware:    mw.Auth,
		CORSOrigins:       cfg.CORSOrigins,
		Tracing:           cfg.Otel.Enabled,
		ServiceName:       cfg.Otel.ServiceName,
		HealthHandler:     h.Health,
		CatalogHandler:    h.Catalog,
		CourseHandler:     h.Course,
		LessonHandler:     h.Lesson,
		ActivityHandler:   h.Activity,
		AssessmentHandler: h.Assessment,
		JobHandler:        h.Job,
		ProfileHandler:    h.Profile,
		RealtimeHandler:   h.Realtime,
	})
}
