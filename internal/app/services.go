package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/activity_regenerate"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/assessment_generate"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/course_cover"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/course_generate"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/lesson_generate"
	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/jobs/sweeper"
	"github.com/yungbote/school-backend/internal/jobs/worker"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
	"github.com/yungbote/school-backend/internal/realtime/bus"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/activity"
	"github.com/yungbote/school-backend/internal/services/assessment"
	"github.com/yungbote/school-backend/internal/services/catalog"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/profile"
)

type Services struct {
	// Emitter fans events out; with Redis configured it publishes to the bus
	// and Bus feeds the local hub.
	Emitter services.SSEEmitter
	Bus     bus.Bus

	LLM          *llm.Router
	Agents       *agents.Service
	Jobs         services.JobService
	GenNotify    services.GenerationNotifier
	Cover        services.CoverService
	Store        *orchestrator.Store
	Orchestrator *orchestrator.Service
	Course       services.CourseService
	Activity     *activity.Service
	Assessment   *assessment.Service
	Profile      *profile.Service
	Catalog      *catalog.Catalog

	JobWorker *worker.Worker
	Sweeper   *sweeper.Sweeper
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, hub *realtime.SSEHub) (Services, error) {
	log.Info("Wiring services...")
	var out Services

	out.Emitter = &services.HubEmitter{Hub: hub}
	if cfg.RedisEnabled {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
		out.Bus = b
		out.Emitter = &services.RedisEmitter{Bus: b}
	}
	out.GenNotify = services.NewGenerationNotifier(out.Emitter)
	jobNotify := services.NewJobNotifier(out.Emitter)

	out.Store = orchestrator.NewStore(repos.Course, log)
	router, err := llm.NewRouter(ctx, cfg.LLM, orchestrator.NewLogRecorder(out.Store, repos.AgentLog), log)
	if err != nil {
		return Services{}, fmt.Errorf("init llm: %w", err)
	}
	out.LLM = router
	out.Agents = agents.New(router, agents.DefaultConfig(), log)
	out.Profile = profile.New(log, repos.Profile, repos.Settings, router.ModelID())
	out.Jobs = services.NewJobService(db, log, repos.JobRun, jobNotify)

	cover, err := wireCover(log, cfg)
	if err != nil {
		return Services{}, err
	}
	out.Cover = cover

	out.Orchestrator = orchestrator.New(orchestrator.Deps{
		Log:         log,
		Store:       out.Store,
		Agents:      out.Agents,
		Learners:    out.Profile,
		Lessons:     repos.Lesson,
		Assessments: repos.Assessment,
		AgentLogs:   repos.AgentLog,
		Notify:      out.GenNotify,
		Cover:       cover,
		Enqueue:     out.Jobs,
		Policy:      cfg.Policy,
	})
	out.Activity = activity.New(log, out.Orchestrator, out.Agents)
	out.Assessment = assessment.New(log, out.Orchestrator, out.Agents, repos.Assessment, out.GenNotify)
	out.Course = services.NewCourseService(log, repos.Course, out.Jobs, out.Store, out.GenNotify)

	out.Catalog = catalog.New(log, out.Course)
	if cfg.CatalogDir != "" {
		if err := out.Catalog.Load(cfg.CatalogDir); err != nil {
			return Services{}, fmt.Errorf("load catalog: %w", err)
		}
	}

	reg := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		course_generate.New(log, out.Orchestrator),
		lesson_generate.New(log, out.Orchestrator),
		activity_regenerate.New(log, out.Orchestrator),
		assessment_generate.New(log, out.Assessment),
		course_cover.New(log, out.Orchestrator),
	} {
		if err := reg.Register(h); err != nil {
			return Services{}, fmt.Errorf("register pipeline: %w", err)
		}
	}
	out.JobWorker = worker.NewWorker(log, repos.JobRun, reg, jobNotify, cfg.Worker)
	out.Sweeper = sweeper.New(log, repos.Course, repos.JobRun, out.Orchestrator, cfg.Sweeper)
	return out, nil
}

// wireCover falls back to placeholder art without an image key and to
// inline data URLs without a bucket.
func wireCover(log *logger.Logger, cfg Config) (services.CoverService, error) {
	var generator services.ImageGenerator
	if cfg.ImagesEnabled {
		g, err := llm.NewImageGenerator(cfg.Images)
		switch {
		case errors.Is(err, llm.ErrImagesDisabled):
			log.Warn("Cover images disabled, no OpenAI key")
		case err != nil:
			return nil, fmt.Errorf("init image generator: %w", err)
		default:
			generator = g
		}
	}
	bucket, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Bucket unavailable, covers stored inline", "error", err)
		bucket = services.NewDataURLBucket()
	}
	cover, err := services.NewCoverService(log, generator, bucket)
	if err != nil {
		return nil, fmt.Errorf("init cover service: %w", err)
	}
	return cover, nil
}
