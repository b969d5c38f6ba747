package agents

import (
	"strconv"
	"strings"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

// Roadmap builds one entry per objective, in objective order, taking titles
// from the outline where the model kept the order and count.
func (o *CourseOutline) Roadmap(objectives []string) []learning.RoadmapEntry {
	out := make([]learning.RoadmapEntry, len(objectives))
	for i, obj := range objectives {
		entry := learning.RoadmapEntry{
			ID:        roadmapID(i),
			Title:     obj,
			Position:  i,
			Objective: obj,
		}
		if i < len(o.Lessons) {
			if t := strings.TrimSpace(o.Lessons[i].Title); t != "" {
				entry.Title = t
			}
			entry.Description = strings.TrimSpace(o.Lessons[i].Description)
		}
		out[i] = entry
	}
	return out
}

func roadmapID(i int) string {
	return "r" + strconv.Itoa(i)
}

// Pages splits the Markdown body on "## " headings. Text before the first
// heading becomes an untitled opening page.
func (c *LessonContent) Pages() []learning.Page {
	var (
		pages []learning.Page
		cur   *learning.Page
		body  strings.Builder
	)
	flush := func() {
		text := strings.TrimSpace(body.String())
		body.Reset()
		if cur == nil {
			if text != "" {
				pages = append(pages, learning.Page{Title: c.LessonTitle, Body: text})
			}
			return
		}
		cur.Body = text
		pages = append(pages, *cur)
	}
	for _, line := range strings.Split(c.LessonBody, "\n") {
		if strings.HasPrefix(line, "## ") {
			flush()
			cur = &learning.Page{Title: strings.TrimSpace(strings.TrimPrefix(line, "## "))}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	if len(pages) == 0 {
		pages = []learning.Page{{Title: c.LessonTitle, Body: strings.TrimSpace(c.LessonBody)}}
	}
	return pages
}

// ToActivity maps the designer's output onto its variant. A multiple-choice
// spec without questions stays empty so the renderer can offer a regenerate.
func (a *ActivitySpec) ToActivity() learning.Activity {
	switch learning.ActivityKind(a.ActivityType) {
	case learning.KindMultipleChoice:
		qs := make([]learning.Question, 0, len(a.Questions))
		for _, q := range a.Questions {
			qs = append(qs, learning.Question{
				Prompt:       q.Prompt,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
				Explanation:  q.Explanation,
			})
		}
		return learning.MultipleChoice{Instructions: a.Instructions, Questions: qs, PassingScore: a.PassingScore}
	case learning.KindDrawing:
		return learning.Drawing{
			Instructions: a.Instructions,
			Prompt:       a.Prompt,
			Rubric:       a.ScoringRubric,
			CanvasWidth:  800,
			CanvasHeight: 600,
			PassingScore: a.PassingScore,
		}
	case learning.KindEmbeddedInteractive:
		return learning.EmbeddedInteractive{
			Instructions: a.Instructions,
			HTML:         a.HTML,
			Rubric:       a.ScoringRubric,
			PassingScore: a.PassingScore,
		}
	case learning.KindFileUpload:
		types := a.AcceptedTypes
		if len(types) == 0 {
			types = []string{"image/png", "image/jpeg"}
		}
		return learning.FileUpload{
			Instructions:  a.Instructions,
			Prompt:        a.Prompt,
			AcceptedTypes: types,
			Rubric:        a.ScoringRubric,
			PassingScore:  a.PassingScore,
		}
	default:
		return learning.ShortResponse{
			Instructions: a.Instructions,
			Prompt:       a.Prompt,
			Rubric:       a.ScoringRubric,
			Hints:        a.Hints,
			PassingScore: a.PassingScore,
		}
	}
}

// keepPriorMaterial keeps the prior task when fresh material was not asked
// for, taking only the new instructions and hints.
func keepPriorMaterial(prior, next learning.Activity) learning.Activity {
	var instructions string
	var hints []string
	switch n := next.(type) {
	case learning.MultipleChoice:
		instructions = n.Instructions
	case learning.ShortResponse:
		instructions, hints = n.Instructions, n.Hints
	case learning.Drawing:
		instructions = n.Instructions
	case learning.EmbeddedInteractive:
		instructions = n.Instructions
	case learning.FileUpload:
		instructions = n.Instructions
	case learning.Unsupported:
		return prior
	}

	switch p := prior.(type) {
	case learning.MultipleChoice:
		if len(p.Questions) == 0 {
			return next
		}
		p.Instructions = instructions
		return p
	case learning.ShortResponse:
		p.Instructions = instructions
		if len(hints) > 0 {
			p.Hints = hints
		}
		return p
	case learning.Drawing:
		p.Instructions = instructions
		return p
	case learning.EmbeddedInteractive:
		p.Instructions = instructions
		return p
	case learning.FileUpload:
		p.Instructions = instructions
		return p
	default:
		return next
	}
}
