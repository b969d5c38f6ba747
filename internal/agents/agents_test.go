package agents_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/agents/agenttest"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

func newService(t *testing.T) (*agents.Service, *agenttest.Script, *llm.MockProvider) {
	t.Helper()
	script := agenttest.NewScript()
	mock := script.Provider()
	return agents.New(mock, agents.DefaultConfig(), logger.Nop()), script, mock
}

func TestOutlineRoadmapFollowsObjectives(t *testing.T) {
	svc, _, _ := newService(t)
	objectives := []string{"Define variables", "Use loops"}
	out, err := svc.OutlineCourse(context.Background(), agents.OutlineInput{Description: "Intro to code", Objectives: objectives})
	if err != nil {
		t.Fatalf("OutlineCourse: %v", err)
	}
	roadmap := out.Roadmap(objectives)
	if len(roadmap) != 2 {
		t.Fatalf("roadmap len = %d", len(roadmap))
	}
	for i, e := range roadmap {
		if e.Position != i || e.Objective != objectives[i] {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
	if roadmap[0].ID != "r0" || roadmap[1].ID != "r1" {
		t.Fatalf("ids = %s, %s", roadmap[0].ID, roadmap[1].ID)
	}
}

func TestOutlineRequiresObjectives(t *testing.T) {
	svc, _, mock := newService(t)
	if _, err := svc.OutlineCourse(context.Background(), agents.OutlineInput{}); err == nil {
		t.Fatalf("expected error")
	}
	if mock.CallCount() != 0 {
		t.Fatalf("provider was called")
	}
}

func TestPlannerPromptScopesToObjective(t *testing.T) {
	svc, _, mock := newService(t)
	prev := &learning.Lesson{Title: "Variables", KeyTakeaways: []string{"names hold values"}}
	profile := user.NewLearnerProfile("u1")
	profile.Interests = []string{"games"}

	_, err := svc.PlanLesson(context.Background(), agents.LessonInput{
		CourseDescription:  "Intro to code",
		Objective:          "Use loops",
		AllObjectives:      []string{"Define variables", "Use loops", "Write functions"},
		Previous:           prev,
		ComprehensionScore: 55,
		Profile:            profile,
	})
	if err != nil {
		t.Fatalf("PlanLesson: %v", err)
	}
	prompt := mock.Calls[0].Messages[0].Content
	for _, want := range []string{
		"Learning objective for THIS lesson: Use loops",
		"DO NOT teach these",
		"- Define variables",
		"- Write functions",
		"Previous lesson: Variables",
		"55/100",
		"reinforce",
		"interests: games",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "- Use loops") {
		t.Fatalf("own objective listed as other")
	}
}

func TestWriteLessonPages(t *testing.T) {
	svc, _, _ := newService(t)
	plan := &agents.LessonPlan{LessonTitle: "Loops"}
	content, err := svc.WriteLesson(context.Background(), agents.LessonInput{}, plan)
	if err != nil {
		t.Fatalf("WriteLesson: %v", err)
	}
	pages := content.Pages()
	if len(pages) != 4 {
		t.Fatalf("pages = %d: %+v", len(pages), pages)
	}
	if pages[1].Title != "Why it matters" || pages[3].Title != "Recap" {
		t.Fatalf("titles = %q, %q", pages[1].Title, pages[3].Title)
	}
}

func TestCreateActivityVariants(t *testing.T) {
	cases := map[string]learning.ActivityKind{
		"multiple_choice":      learning.KindMultipleChoice,
		"short_response":       learning.KindShortResponse,
		"drawing":              learning.KindDrawing,
		"embedded_interactive": learning.KindEmbeddedInteractive,
		"file_upload":          learning.KindFileUpload,
	}
	for kind, want := range cases {
		t.Run(kind, func(t *testing.T) {
			svc, script, _ := newService(t)
			script.ActivityType = kind
			a, err := svc.CreateActivity(context.Background(), agents.LessonInput{}, &agents.LessonPlan{})
			if err != nil {
				t.Fatalf("CreateActivity: %v", err)
			}
			if a.Kind() != want {
				t.Fatalf("kind = %s, want %s", a.Kind(), want)
			}
			if a.Passing() != 70 {
				t.Fatalf("passing = %d", a.Passing())
			}
		})
	}
}

func TestRemedialKeepsPriorTaskUnlessFresh(t *testing.T) {
	prior := learning.ShortResponse{
		Instructions: "old instructions",
		Prompt:       "Describe the water cycle in detail.",
		Rubric:       []string{"a", "b", "c"},
		Hints:        []string{"old hint"},
	}

	svc, _, mock := newService(t)
	a, err := svc.CreateRemedialActivity(context.Background(), agents.RemedialInput{Objective: "water", Prior: prior, PreviousScore: 40, Attempt: 2})
	if err != nil {
		t.Fatalf("CreateRemedialActivity: %v", err)
	}
	sr := a.(learning.ShortResponse)
	if sr.Prompt != prior.Prompt {
		t.Fatalf("prompt replaced: %q", sr.Prompt)
	}
	if sr.Instructions == prior.Instructions || sr.Hints[0] == "old hint" {
		t.Fatalf("scaffolding not refreshed: %+v", sr)
	}
	if !strings.Contains(mock.Calls[0].Messages[0].Content, "Keep the previous task") {
		t.Fatalf("prompt did not ask to keep the task")
	}

	svc, _, mock = newService(t)
	a, err = svc.CreateRemedialActivity(context.Background(), agents.RemedialInput{Objective: "water", Prior: prior, PreviousScore: 40, Attempt: 2, Fresh: true})
	if err != nil {
		t.Fatalf("CreateRemedialActivity fresh: %v", err)
	}
	if a.(learning.ShortResponse).Prompt == prior.Prompt {
		t.Fatalf("fresh retry reused the prompt")
	}
	if !strings.Contains(mock.Calls[0].Messages[0].Content, "NEW task") {
		t.Fatalf("prompt did not ask for new material")
	}
}

func TestReviewNormalizesMastery(t *testing.T) {
	svc, script, _ := newService(t)
	raw := agenttest.Review(95)
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	m["score"] = 65
	fixed, _ := json.Marshal(m)
	script.Override(agents.ActivityReviewSchema.Name, fixed)

	out, err := svc.ReviewActivity(context.Background(), agents.ReviewInput{Text: "answer"})
	if err != nil {
		t.Fatalf("ReviewActivity: %v", err)
	}
	if out.MasteryDecision != learning.MasteryNotYet {
		t.Fatalf("mastery = %s", out.MasteryDecision)
	}
}

func TestStructRulesRejectSchemaValidOutput(t *testing.T) {
	svc, script, _ := newService(t)
	// Blank strings pass the schema but not notblank.
	script.Override(agents.CourseOutlineSchema.Name, json.RawMessage(`{"title":"   ","description":"A description that is long enough.","lessons":[{"title":"x","description":"y","objective":"z"}]}`))
	_, err := svc.OutlineCourse(context.Background(), agents.OutlineInput{Objectives: []string{"z"}})
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("err = %v, want invalid response", err)
	}
}

func TestAssessmentReviewPassThreshold(t *testing.T) {
	svc, script, _ := newService(t)
	a := learning.Assessment{Title: "Final", Items: []learning.AssessmentItem{{Objective: "o"}}}

	script.Override(agents.AssessmentReviewSchema.Name, agenttest.AssessmentReview(69, "o"))
	out, err := svc.ReviewAssessment(context.Background(), a, nil)
	if err != nil {
		t.Fatalf("ReviewAssessment: %v", err)
	}
	if out.Passed() || out.PassDecision != "fail" {
		t.Fatalf("69 should fail: %+v", out)
	}

	script.Override(agents.AssessmentReviewSchema.Name, agenttest.AssessmentReview(70, "o"))
	out, err = svc.ReviewAssessment(context.Background(), a, nil)
	if err != nil {
		t.Fatalf("ReviewAssessment: %v", err)
	}
	if !out.Passed() || out.PassDecision != "pass" {
		t.Fatalf("70 should pass: %+v", out)
	}
}

func TestCallInfoCarriesAction(t *testing.T) {
	script := agenttest.NewScript()
	var actions []string
	rec := llm.RecorderFunc(func(ctx context.Context, r llm.CallRecord) error {
		actions = append(actions, r.Info.Action)
		return nil
	})
	p := llm.WithLogging(script.Provider(), rec, logger.Nop())
	svc := agents.New(p, agents.DefaultConfig(), logger.Nop())

	ctx := llm.WithCallInfo(context.Background(), llm.CallInfo{UserID: "u1"})
	if _, err := svc.PlanLesson(ctx, agents.LessonInput{Objective: "o"}); err != nil {
		t.Fatalf("PlanLesson: %v", err)
	}
	if len(actions) != 1 || actions[0] != agents.ActionLessonPlanner {
		t.Fatalf("actions = %v", actions)
	}
}
