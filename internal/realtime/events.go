package realtime

import "github.com/google/uuid"

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "job_created"
	SSEEventJobProgress SSEEvent = "job_progress"
	SSEEventJobFailed   SSEEvent = "job_failed"
	SSEEventJobDone     SSEEvent = "job_done"
	SSEEventJobCanceled SSEEvent = "job_canceled"

	SSEEventCourseUpdated SSEEvent = "course_updated"
)

// Generation feed events, published on the course channel.
const (
	SSEEventCourseOutlined     SSEEvent = "course_outlined"
	SSEEventLessonPlanned      SSEEvent = "lesson_planned"
	SSEEventLessonWritten      SSEEvent = "lesson_written"
	SSEEventActivityCreated    SSEEvent = "activity_created"
	SSEEventGenerationError    SSEEvent = "generation_error"
	SSEEventGenerationComplete SSEEvent = "generation_complete"
)

// GenerationEvent is the payload of every generation feed event.
// ObjectiveIndex is the roadmap entry being worked on, or -1 for events that
// concern the course as a whole.
type GenerationEvent struct {
	CourseID       uuid.UUID  `json:"course_id"`
	ObjectiveIndex int        `json:"objective_index"`
	PlanTitle      string     `json:"plan_title,omitempty"`
	ActivityID     *uuid.UUID `json:"activity_id,omitempty"`
	Error          string     `json:"error,omitempty"`
	Status         string     `json:"status,omitempty"`
}

func CourseChannel(courseID uuid.UUID) string {
	return "course:" + courseID.String()
}

func UserChannel(userID string) string {
	return "user:" + userID
}
