package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/platform/ctxutil"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrNotAuthenticated = errors.New("not authenticated")
)

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*jobs.JobRun, error)
	// EnqueueIfIdle skips the insert when a queued or running job of the same
	// type exists for the entity and returns that job with created=false.
	EnqueueIfIdle(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID uuid.UUID, payload map[string]any) (*jobs.JobRun, bool, error)
	GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error)
	GetLatestForEntityForRequestUser(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*jobs.JobRun, error)
	CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error)

	EnqueueCourseGeneration(ctx context.Context, userID string, courseID uuid.UUID) (*jobs.JobRun, bool, error)
	EnqueueNextLesson(ctx context.Context, userID string, courseID uuid.UUID, score int) error
	EnqueueActivityRegeneration(ctx context.Context, userID string, lessonID uuid.UUID, previousScore int) (*jobs.JobRun, bool, error)
	EnqueueAssessment(ctx context.Context, userID string, courseID uuid.UUID) (*jobs.JobRun, bool, error)
	EnqueueCover(ctx context.Context, userID string, courseID uuid.UUID) error
	CancelForCourse(ctx context.Context, courseID uuid.UUID) error
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   jobrepo.JobRunRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo jobrepo.JobRunRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		repo:   repo,
		notify: notify,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*jobs.JobRun, error) {
	if ownerUserID == "" {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now()
	job := &jobs.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      jobs.StatusQueued,
		Stage:       "queued",
		Message:     "Queued",
		Payload:     datatypes.JSON(b),
		Result:      datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.repo.Create(s.dbc(dbc), []*jobs.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Debug("Job enqueued", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	if s.notify != nil {
		s.notify.JobCreated(ownerUserID, job)
	}
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID uuid.UUID, payload map[string]any) (*jobs.JobRun, bool, error) {
	if entityID == uuid.Nil {
		return nil, false, fmt.Errorf("missing entity id")
	}
	inner := s.dbc(dbc)
	busy, err := s.repo.HasRunnableForEntity(inner, entityType, entityID, jobType)
	if err != nil {
		return nil, false, err
	}
	if busy {
		existing, err := s.repo.GetLatestByEntity(inner, ownerUserID, entityType, entityID, jobType)
		return existing, false, err
	}
	id := entityID
	job, err := s.Enqueue(inner, ownerUserID, jobType, entityType, &id, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByIDForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	if jobID == uuid.Nil {
		return nil, ErrJobNotFound
	}
	job, err := s.repo.GetByID(s.dbc(dbc), jobID)
	if err != nil {
		return nil, err
	}
	// Someone else's job reads as missing.
	if job == nil || job.OwnerUserID != rd.UserID {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *jobService) GetLatestForEntityForRequestUser(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*jobs.JobRun, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	return s.repo.GetLatestByEntity(s.dbc(dbc), rd.UserID, entityType, entityID, jobType)
}

// CancelForRequestUser marks a queued or running job canceled. A running
// handler finishes its current step, but its later updates are dropped.
func (s *jobService) CancelForRequestUser(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error) {
	job, err := s.GetByIDForRequestUser(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Runnable() {
		return job, nil
	}
	now := time.Now()
	if err := s.repo.UpdateFields(s.dbc(dbc), jobID, map[string]interface{}{
		"status":       jobs.StatusCanceled,
		"message":      "Canceled",
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}); err != nil {
		return nil, err
	}
	job.Status = jobs.StatusCanceled
	job.Message = "Canceled"
	job.LockedAt = nil
	job.HeartbeatAt = &now
	job.UpdatedAt = now
	if s.notify != nil {
		s.notify.JobCanceled(job.OwnerUserID, job)
	}
	return job, nil
}

// =========================
// Course work
// =========================

func (s *jobService) EnqueueCourseGeneration(ctx context.Context, userID string, courseID uuid.UUID) (*jobs.JobRun, bool, error) {
	return s.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeCourseGenerate, jobs.EntityCourse, courseID, map[string]any{
		"course_id": courseID.String(),
	})
}

func (s *jobService) EnqueueNextLesson(ctx context.Context, userID string, courseID uuid.UUID, score int) error {
	_, _, err := s.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeLessonGenerate, jobs.EntityCourse, courseID, map[string]any{
		"course_id":           courseID.String(),
		"comprehension_score": score,
	})
	return err
}

func (s *jobService) EnqueueActivityRegeneration(ctx context.Context, userID string, lessonID uuid.UUID, previousScore int) (*jobs.JobRun, bool, error) {
	return s.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeActivityRegenerate, jobs.EntityLesson, lessonID, map[string]any{
		"lesson_id":      lessonID.String(),
		"previous_score": previousScore,
	})
}

func (s *jobService) EnqueueAssessment(ctx context.Context, userID string, courseID uuid.UUID) (*jobs.JobRun, bool, error) {
	return s.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeAssessmentGenerate, jobs.EntityCourse, courseID, map[string]any{
		"course_id": courseID.String(),
	})
}

func (s *jobService) EnqueueCover(ctx context.Context, userID string, courseID uuid.UUID) error {
	_, _, err := s.EnqueueIfIdle(dbctx.Context{Ctx: ctx}, userID, jobs.TypeCourseCover, jobs.EntityCourse, courseID, map[string]any{
		"course_id": courseID.String(),
	})
	return err
}

// CancelForCourse cancels every pending job of a course being deleted.
func (s *jobService) CancelForCourse(ctx context.Context, courseID uuid.UUID) error {
	n, err := s.repo.CancelForEntity(dbctx.Context{Ctx: ctx}, jobs.EntityCourse, courseID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("Canceled course jobs", "course_id", courseID, "count", n)
	}
	return nil
}

func (s *jobService) dbc(dbc dbctx.Context) dbctx.Context {
	if dbc.Tx == nil {
		dbc.Tx = s.db
	}
	return dbc
}
