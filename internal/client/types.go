package client

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/realtime"
)

// Snapshot mirrors GET /api/courses/:id. Generation is nil when the server
// does not send it.
type Snapshot struct {
	Course     learning.Course `json:"course"`
	Generation *GenerationView `json:"generation,omitempty"`
	Submitting bool            `json:"submitting"`
}

type GenerationView struct {
	Running               bool `json:"running"`
	CurrentObjectiveIndex *int `json:"current_objective_index"`
}

type CourseSummary struct {
	ID               uuid.UUID             `json:"id"`
	SourceType       string                `json:"source_type"`
	SourceCourseID   string                `json:"source_course_id,omitempty"`
	Title            string                `json:"title"`
	InputDescription string                `json:"input_description"`
	Status           learning.CourseStatus `json:"status"`
	Progress         int                   `json:"progress"`
	LessonCount      int                   `json:"lesson_count"`
	LessonsCompleted int                   `json:"lessons_completed"`
}

type createCourseRequest struct {
	Description string   `json:"description"`
	Objectives  []string `json:"objectives"`
}

type courseEnvelope struct {
	Course learning.Course `json:"course"`
}

type coursesEnvelope struct {
	Courses []CourseSummary `json:"courses"`
}

type transitionRequest struct {
	TargetState learning.CourseStatus `json:"target_state"`
}

type jobAccepted struct {
	JobID uuid.UUID `json:"job_id"`
}

// message is one frame of the event stream.
type message struct {
	Channel string            `json:"channel"`
	Event   realtime.SSEEvent `json:"event"`
	Data    json.RawMessage   `json:"data"`
}
