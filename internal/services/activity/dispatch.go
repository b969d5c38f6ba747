// Package activity renders lesson activities and scores submissions to
// them. Multiple choice is scored locally; every other kind goes to the
// activity reviewer.
package activity

import (
	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

type Widget string

const (
	WidgetChoice      Widget = "choice"
	WidgetText        Widget = "text"
	WidgetCanvas      Widget = "canvas"
	WidgetSandbox     Widget = "sandbox"
	WidgetUpload      Widget = "upload"
	WidgetPlaceholder Widget = "placeholder"
)

// ChoiceQuestion is a question as the learner sees it, without the answer.
type ChoiceQuestion struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// View is the render model for exactly one widget.
type View struct {
	ActivityID    uuid.UUID             `json:"activity_id"`
	Widget        Widget                `json:"widget"`
	Kind          learning.ActivityKind `json:"kind"`
	Instructions  string                `json:"instructions,omitempty"`
	Prompt        string                `json:"prompt,omitempty"`
	Questions     []ChoiceQuestion      `json:"questions,omitempty"`
	Rubric        []string              `json:"rubric,omitempty"`
	Hints         []string              `json:"hints,omitempty"`
	CanvasWidth   int                   `json:"canvas_width,omitempty"`
	CanvasHeight  int                   `json:"canvas_height,omitempty"`
	HTML          string                `json:"html,omitempty"`
	AcceptedTypes []string              `json:"accepted_types,omitempty"`
	PassingScore  int                   `json:"passing_score"`
	// Message explains a placeholder.
	Message string `json:"message,omitempty"`
	// Regenerate is set when the activity cannot be completed as stored.
	Regenerate bool `json:"regenerate,omitempty"`
}

// Dispatch picks the widget for a. Kinds this build does not know render
// as a placeholder.
func Dispatch(a learning.Activity) View {
	switch v := a.(type) {
	case learning.MultipleChoice:
		out := View{
			Widget:       WidgetChoice,
			Kind:         v.Kind(),
			Instructions: v.Instructions,
			PassingScore: v.Passing(),
		}
		for _, q := range v.Questions {
			out.Questions = append(out.Questions, ChoiceQuestion{Prompt: q.Prompt, Options: append([]string(nil), q.Options...)})
		}
		if err := validateChoice(v); err != nil {
			out.Message = err.Error()
			out.Regenerate = true
		}
		return out
	case learning.ShortResponse:
		return View{
			Widget:       WidgetText,
			Kind:         v.Kind(),
			Instructions: v.Instructions,
			Prompt:       v.Prompt,
			Rubric:       v.Rubric,
			Hints:        v.Hints,
			PassingScore: v.Passing(),
		}
	case learning.Drawing:
		w, h := v.CanvasWidth, v.CanvasHeight
		if w <= 0 {
			w = 800
		}
		if h <= 0 {
			h = 500
		}
		return View{
			Widget:       WidgetCanvas,
			Kind:         v.Kind(),
			Instructions: v.Instructions,
			Prompt:       v.Prompt,
			Rubric:       v.Rubric,
			CanvasWidth:  w,
			CanvasHeight: h,
			PassingScore: v.Passing(),
		}
	case learning.EmbeddedInteractive:
		return View{
			Widget:       WidgetSandbox,
			Kind:         v.Kind(),
			Instructions: v.Instructions,
			HTML:         v.HTML,
			Rubric:       v.Rubric,
			PassingScore: v.Passing(),
		}
	case learning.FileUpload:
		types := v.AcceptedTypes
		if len(types) == 0 {
			types = []string{"image/png", "image/jpeg"}
		}
		return View{
			Widget:        WidgetUpload,
			Kind:          v.Kind(),
			Instructions:  v.Instructions,
			Prompt:        v.Prompt,
			Rubric:        v.Rubric,
			AcceptedTypes: types,
			PassingScore:  v.Passing(),
		}
	default:
		return placeholder(a)
	}
}

func placeholder(a learning.Activity) View {
	out := View{Widget: WidgetPlaceholder, PassingScore: learning.PassingScore, Regenerate: true}
	if a == nil {
		out.Message = "This lesson has no activity yet."
		return out
	}
	out.Kind = a.Kind()
	out.Message = "Activity type \"" + string(a.Kind()) + "\" is not supported."
	return out
}

// ForLesson decodes and dispatches the lesson's activity. A config that no
// longer decodes renders as a placeholder offering regeneration.
func ForLesson(l *learning.Lesson) View {
	a, err := l.Activity()
	if err != nil {
		v := placeholder(nil)
		v.Kind = l.ActivityKind
		v.Message = "This activity could not be loaded."
		v.ActivityID = l.ActivityID
		return v
	}
	v := Dispatch(a)
	v.ActivityID = l.ActivityID
	return v
}
