package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/realtime"
)

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(userID string, job *jobs.JobRun)
	JobProgress(userID string, job *jobs.JobRun, stage string, progress int, message string)
	JobFailed(userID string, job *jobs.JobRun, stage string, errorMessage string)
	JobDone(userID string, job *jobs.JobRun)
	JobCanceled(userID string, job *jobs.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(userID string, job *jobs.JobRun) {
	if n == nil || n.emit == nil || userID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventJobCreated,
		Data:    map[string]any{"job": job},
	})
}

func (n *jobNotifier) JobProgress(userID string, job *jobs.JobRun, stage string, progress int, message string) {
	if n == nil || n.emit == nil || userID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventJobProgress,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"progress": progress,
			"message":  message,
		},
	})
}

func (n *jobNotifier) JobFailed(userID string, job *jobs.JobRun, stage string, errorMessage string) {
	if n == nil || n.emit == nil || userID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"error":    errorMessage,
		},
	})
}

func (n *jobNotifier) JobDone(userID string, job *jobs.JobRun) {
	if n == nil || n.emit == nil || userID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventJobDone,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"job":      job,
		},
	})
}

func (n *jobNotifier) JobCanceled(userID string, job *jobs.JobRun) {
	if n == nil || n.emit == nil || userID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventJobCanceled,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
		},
	})
}

// =========================
// Generation notifier
// =========================

// GenerationNotifier publishes the per-course generation feed. Every event
// names the objective it concerns so clients never infer the active one.
type GenerationNotifier interface {
	CourseOutlined(course *learning.Course)
	LessonPlanned(courseID uuid.UUID, objectiveIndex int, planTitle string)
	LessonWritten(courseID uuid.UUID, objectiveIndex int)
	ActivityCreated(courseID uuid.UUID, objectiveIndex int, activityID uuid.UUID)
	GenerationError(courseID uuid.UUID, objectiveIndex int, errorMessage string)
	GenerationComplete(courseID uuid.UUID, status learning.CourseStatus)
	CourseUpdated(course *learning.Course)
}

type generationNotifier struct {
	emit SSEEmitter
}

func NewGenerationNotifier(emit SSEEmitter) GenerationNotifier {
	return &generationNotifier{emit: emit}
}

func (n *generationNotifier) send(courseID uuid.UUID, event realtime.SSEEvent, data realtime.GenerationEvent) {
	if n == nil || n.emit == nil || courseID == uuid.Nil {
		return
	}
	data.CourseID = courseID
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.CourseChannel(courseID),
		Event:   event,
		Data:    data,
	})
}

func (n *generationNotifier) CourseOutlined(course *learning.Course) {
	if course == nil {
		return
	}
	n.send(course.ID, realtime.SSEEventCourseOutlined, realtime.GenerationEvent{
		ObjectiveIndex: -1,
		Status:         string(course.Status),
	})
}

func (n *generationNotifier) LessonPlanned(courseID uuid.UUID, objectiveIndex int, planTitle string) {
	n.send(courseID, realtime.SSEEventLessonPlanned, realtime.GenerationEvent{ObjectiveIndex: objectiveIndex, PlanTitle: planTitle})
}

func (n *generationNotifier) LessonWritten(courseID uuid.UUID, objectiveIndex int) {
	n.send(courseID, realtime.SSEEventLessonWritten, realtime.GenerationEvent{ObjectiveIndex: objectiveIndex})
}

func (n *generationNotifier) ActivityCreated(courseID uuid.UUID, objectiveIndex int, activityID uuid.UUID) {
	id := activityID
	n.send(courseID, realtime.SSEEventActivityCreated, realtime.GenerationEvent{ObjectiveIndex: objectiveIndex, ActivityID: &id})
}

func (n *generationNotifier) GenerationError(courseID uuid.UUID, objectiveIndex int, errorMessage string) {
	n.send(courseID, realtime.SSEEventGenerationError, realtime.GenerationEvent{ObjectiveIndex: objectiveIndex, Error: errorMessage})
}

func (n *generationNotifier) GenerationComplete(courseID uuid.UUID, status learning.CourseStatus) {
	n.send(courseID, realtime.SSEEventGenerationComplete, realtime.GenerationEvent{ObjectiveIndex: -1, Status: string(status)})
}

// CourseUpdated goes to the owner's channel so course lists refresh.
func (n *generationNotifier) CourseUpdated(course *learning.Course) {
	if n == nil || n.emit == nil || course == nil || course.UserID == "" {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.UserChannel(course.UserID),
		Event:   realtime.SSEEventCourseUpdated,
		Data: map[string]any{
			"course_id": course.ID,
			"status":    course.Status,
			"progress":  course.Progress,
		},
	})
}

// =========================
// helpers
// =========================

func safeJobID(job *jobs.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *jobs.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
