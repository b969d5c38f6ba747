package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Course struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string    `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	SourceType     string    `gorm:"column:source_type;size:20;not null" json:"source_type"`
	SourceCourseID string    `gorm:"column:source_course_id;size:100" json:"source_course_id,omitempty"`

	Title            string                            `gorm:"column:title" json:"title"`
	Description      string                            `gorm:"column:description;type:text" json:"description"`
	InputDescription string                            `gorm:"column:input_description;type:text" json:"input_description"`
	InputObjectives  datatypes.JSONSlice[string]       `gorm:"column:input_objectives" json:"input_objectives"`
	Roadmap          datatypes.JSONSlice[RoadmapEntry] `gorm:"column:roadmap" json:"roadmap"`
	Status           CourseStatus                      `gorm:"column:status;size:30;not null;index" json:"status"`
	GenerationError  string                            `gorm:"column:generation_error;type:text" json:"generation_error,omitempty"`
	// ActiveObjectiveIndex is set while a generation session runs and names
	// the roadmap entry it is working on.
	ActiveObjectiveIndex *int   `gorm:"column:active_objective_index" json:"active_objective_index,omitempty"`
	CoverURL             string `gorm:"column:cover_url;type:text" json:"cover_url,omitempty"`

	CurrentLessonIndex int `gorm:"column:current_lesson_index;not null;default:0" json:"current_lesson_index"`
	CurrentPageIndex   int `gorm:"column:current_page_index;not null;default:0" json:"current_page_index"`
	CompletedLessons   int `gorm:"column:completed_lessons;not null;default:0" json:"completed_lessons"`
	Progress           int `gorm:"column:progress;not null;default:0" json:"progress"`

	Lessons []Lesson `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons"`

	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Course) TableName() string { return "course" }

// RoadmapEntry is a planned lesson stub. The whole roadmap is written when the
// course skeleton is generated and never changes afterwards.
type RoadmapEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	Objective   string `json:"objective"`
}

// NextLessonIndex is the roadmap position of the lesson that would be
// generated next.
func (c *Course) NextLessonIndex() int {
	return len(c.Lessons)
}

// LessonAt returns the lesson for a roadmap position, or nil.
func (c *Course) LessonAt(index int) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].ObjectiveIndex == index {
			return &c.Lessons[i]
		}
	}
	return nil
}

// LessonByID returns the lesson with the given id, or nil.
func (c *Course) LessonByID(id uuid.UUID) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].ID == id {
			return &c.Lessons[i]
		}
	}
	return nil
}

// Objective returns the learning objective for a roadmap position, falling
// back to the raw input list when the roadmap has not been generated.
func (c *Course) Objective(index int) string {
	if index >= 0 && index < len(c.Roadmap) {
		if c.Roadmap[index].Objective != "" {
			return c.Roadmap[index].Objective
		}
		return c.Roadmap[index].Title
	}
	if index >= 0 && index < len(c.InputObjectives) {
		return c.InputObjectives[index]
	}
	return ""
}

// Clone returns a deep copy so reducers can work on snapshots without
// aliasing slices of the previous state.
func (c Course) Clone() Course {
	out := c
	out.InputObjectives = append(datatypes.JSONSlice[string](nil), c.InputObjectives...)
	out.Roadmap = append(datatypes.JSONSlice[RoadmapEntry](nil), c.Roadmap...)
	if c.ActiveObjectiveIndex != nil {
		v := *c.ActiveObjectiveIndex
		out.ActiveObjectiveIndex = &v
	}
	out.Lessons = make([]Lesson, len(c.Lessons))
	for i := range c.Lessons {
		out.Lessons[i] = c.Lessons[i].Clone()
	}
	return out
}
