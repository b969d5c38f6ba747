package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Abandoner interface {
	Abandon(ctx context.Context, courseID uuid.UUID, reason string) (bool, error)
}

type Config struct {
	// Schedule is a standard five-field cron spec.
	Schedule string
	// Deadline is how long a course may sit in a generating status without
	// being written before it counts as stalled.
	Deadline time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		Schedule: envutil.String("SWEEP_SCHEDULE", "*/5 * * * *", log),
		Deadline: envutil.Duration("SWEEP_DEADLINE", 15*time.Minute, log),
	}
}

var stalledStatuses = []learning.CourseStatus{
	learning.StatusGenerating,
	learning.StatusGeneratingAssessment,
}

// Sweeper moves courses out of generating statuses when no worker is
// making progress on them.
type Sweeper struct {
	log     *logger.Logger
	courses learningrepo.CourseRepo
	jobs    jobrepo.JobRunRepo
	abandon Abandoner
	cfg     Config
	now     func() time.Time
}

func New(baseLog *logger.Logger, courses learningrepo.CourseRepo, jobRuns jobrepo.JobRunRepo, abandon Abandoner, cfg Config) *Sweeper {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 15 * time.Minute
	}
	return &Sweeper{
		log:     baseLog.With("component", "Sweeper"),
		courses: courses,
		jobs:    jobRuns,
		abandon: abandon,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start schedules the sweep and returns a stop function that waits for a
// running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.log.Warn("Sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.log.Info("Sweeper started", "schedule", s.cfg.Schedule, "deadline", s.cfg.Deadline)
	return func() { <-c.Stop().Done() }, nil
}

// Sweep abandons every stalled course without a runnable job and returns
// how many it released.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if ctx.Err() != nil {
		return 0, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	stuck, err := s.courses.ListStuck(dbc, stalledStatuses, s.now().Add(-s.cfg.Deadline))
	if err != nil {
		return 0, fmt.Errorf("list stalled courses: %w", err)
	}

	released := 0
	for _, c := range stuck {
		busy, err := s.jobs.HasRunnableForEntity(dbc, jobs.EntityCourse, c.ID,
			jobs.TypeCourseGenerate, jobs.TypeLessonGenerate, jobs.TypeAssessmentGenerate)
		if err != nil {
			s.log.Warn("Checking course jobs failed", "course_id", c.ID, "error", err)
			continue
		}
		if busy {
			continue
		}
		reason := fmt.Sprintf("generation stalled in %s for over %s", c.Status, s.cfg.Deadline)
		ok, err := s.abandon.Abandon(ctx, c.ID, reason)
		if err != nil {
			s.log.Warn("Abandoning course failed", "course_id", c.ID, "error", err)
			continue
		}
		if ok {
			released++
		}
	}
	if released > 0 {
		s.log.Info("Sweep released courses", "count", released)
	}
	return released, nil
}
