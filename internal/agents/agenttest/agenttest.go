// Package agenttest scripts model responses for every agent schema so
// service and handler tests can run the pipeline without a provider.
package agenttest

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/platform/llm"
)

// Script answers each schema with a valid default unless a test overrides
// it. Fail makes a schema return an error instead.
type Script struct {
	mu sync.Mutex

	ReviewScore     int
	AssessmentScore int
	ActivityType    string

	fail      map[string]error
	overrides map[string]json.RawMessage
	// block, when set for a schema, is waited on before answering.
	block map[string]chan struct{}
}

func NewScript() *Script {
	return &Script{
		ReviewScore:     85,
		AssessmentScore: 80,
		ActivityType:    "short_response",
		fail:            map[string]error{},
		overrides:       map[string]json.RawMessage{},
		block:           map[string]chan struct{}{},
	}
}

func (s *Script) Fail(schema string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[schema] = err
}

func (s *Script) Clear(schema string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fail, schema)
	delete(s.overrides, schema)
}

func (s *Script) Override(schema string, raw json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[schema] = raw
}

// Block holds calls for schema until the returned release func runs.
func (s *Script) Block(schema string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.block[schema] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.block, schema)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Provider returns a mock provider driven by the script.
func (s *Script) Provider() *llm.MockProvider {
	m := llm.NewMockProvider()
	m.Handler = s.handle
	return m
}

func (s *Script) handle(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("agenttest: request without schema")
	}
	name := req.Schema.Name

	s.mu.Lock()
	wait := s.block[name]
	s.mu.Unlock()
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	failErr := s.fail[name]
	override := s.overrides[name]
	reviewScore, assessmentScore, kind := s.ReviewScore, s.AssessmentScore, s.ActivityType
	s.mu.Unlock()

	if failErr != nil {
		return nil, failErr
	}
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[len(req.Messages)-1].Content
	}

	var content json.RawMessage
	switch {
	case override != nil:
		content = override
	case name == agents.CourseOutlineSchema.Name:
		content = Outline(numberedObjectives(prompt)...)
	case name == agents.LessonPlanSchema.Name:
		content = Plan(objectiveFrom(prompt, "Learning objective for THIS lesson: "), kind)
	case name == agents.LessonContentSchema.Name:
		content = Content("Lesson")
	case name == agents.ActivitySpecSchema.Name:
		content = Activity(kind)
	case name == agents.ActivityReviewSchema.Name:
		content = Review(reviewScore)
	case name == agents.AssessmentSpecSchema.Name:
		content = AssessmentSpec(bulletList(prompt, "Learning objectives:\n")...)
	case name == agents.AssessmentReviewSchema.Name:
		content = AssessmentReview(assessmentScore, "objective")
	default:
		return nil, fmt.Errorf("agenttest: unknown schema %q", name)
	}
	if err := llm.ValidateJSON(req.Schema, content); err != nil {
		return nil, err
	}
	return &llm.Response{
		Content:    content,
		Usage:      llm.Usage{InputTokens: 100, OutputTokens: 50, TotalTokens: 150},
		Model:      "mock",
		StopReason: "end",
	}, nil
}

var numbered = regexp.MustCompile(`(?m)^\d+\. (.+)$`)

func numberedObjectives(prompt string) []string {
	var out []string
	for _, m := range numbered.FindAllStringSubmatch(prompt, -1) {
		out = append(out, m[1])
	}
	if len(out) == 0 {
		out = []string{"objective"}
	}
	return out
}

func objectiveFrom(prompt, prefix string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix)
		}
	}
	return "objective"
}

func bulletList(prompt, header string) []string {
	i := strings.Index(prompt, header)
	if i < 0 {
		return []string{"objective"}
	}
	var out []string
	for _, line := range strings.Split(prompt[i+len(header):], "\n") {
		if !strings.HasPrefix(line, "- ") {
			break
		}
		out = append(out, strings.TrimPrefix(line, "- "))
	}
	if len(out) == 0 {
		out = []string{"objective"}
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

func Outline(objectives ...string) json.RawMessage {
	lessons := make([]map[string]any, len(objectives))
	for i, o := range objectives {
		lessons[i] = map[string]any{
			"title":       fmt.Sprintf("Lesson %d: %s", i+1, o),
			"description": "Covers " + o,
			"objective":   o,
		}
	}
	return mustJSON(map[string]any{
		"title":       "Generated Course",
		"description": "A course generated for tests, covering every objective in order.",
		"lessons":     lessons,
		"reasoning":   "Objectives kept in the order given.",
	})
}

func Plan(objective, kind string) json.RawMessage {
	return mustJSON(map[string]any{
		"lesson_title":       "Plan for " + objective,
		"learning_objective": objective,
		"key_concepts":       []string{"concept one", "concept two"},
		"lesson_outline":     []string{"introduce", "explain", "practice"},
		"suggested_activity": map[string]any{
			"activity_type":     kind,
			"prompt":            "Explain the idea in your own words.",
			"expected_evidence": []string{"names the idea", "gives an example"},
		},
		"mastery_criteria": []string{"accurate definition", "relevant example"},
		"reasoning":        "Beginner friendly.",
	})
}

func Content(title string) json.RawMessage {
	body := "Intro text that sets up the objective for the learner.\n\n" +
		"## Why it matters\nThis topic shows up in everyday work and understanding it pays off quickly.\n\n" +
		"## Worked example\nStep one, step two, and step three walk through a concrete case from start to finish.\n\n" +
		"## Recap\nWe covered the objective, why it matters, and one worked example."
	return mustJSON(map[string]any{
		"lesson_title":  title,
		"lesson_body":   body,
		"key_takeaways": []string{"takeaway one", "takeaway two", "takeaway three"},
	})
}

func Activity(kind string) json.RawMessage {
	out := map[string]any{
		"activity_type":  kind,
		"instructions":   "Write three to five sentences that explain the concept and give one example.",
		"prompt":         "Explain the concept and give an example from your own experience.",
		"scoring_rubric": []string{"defines the concept", "gives a relevant example", "uses correct terms"},
		"hints":          []string{"start with a definition", "think of a daily situation"},
		"passing_score":  70,
	}
	switch kind {
	case "multiple_choice":
		out["questions"] = []map[string]any{
			{"prompt": "Q1", "options": []string{"a", "b"}, "correct_index": 0, "explanation": "a is right"},
			{"prompt": "Q2", "options": []string{"a", "b"}, "correct_index": 1, "explanation": "b is right"},
		}
	case "embedded_interactive":
		out["html"] = "<html><body><script>window.parent.postMessage({type:'activity_result',score:100},'*')</script></body></html>"
	case "file_upload":
		out["accepted_types"] = []string{"image/png"}
	}
	return mustJSON(out)
}

func Review(score int) json.RawMessage {
	mastery := "not_yet"
	switch {
	case score >= 90:
		mastery = "exceeds"
	case score >= 70:
		mastery = "meets"
	}
	return mustJSON(map[string]any{
		"score":            score,
		"mastery_decision": mastery,
		"rationale":        "The submission addresses the definition criterion and the example criterion with some detail.",
		"strengths":        []string{"clear definition", "relevant example"},
		"improvements":     []string{"use precise terms", "connect the example to the definition"},
		"tips":             []string{"reread the worked example", "add one more sentence linking ideas"},
	})
}

func AssessmentSpec(objectives ...string) json.RawMessage {
	items := make([]map[string]any, 0, len(objectives))
	for _, o := range objectives {
		items = append(items, map[string]any{
			"objective": o,
			"prompt":    "Demonstrate mastery of: " + o,
			"rubric":    []string{"accurate", "complete", "uses an example"},
		})
	}
	if len(items) > 6 {
		items = items[:6]
	}
	return mustJSON(map[string]any{
		"assessment_title": "Final assessment",
		"items":            items,
	})
}

func AssessmentReview(score int, objectives ...string) json.RawMessage {
	decision := "fail"
	if score >= 70 {
		decision = "pass"
	}
	scores := make([]map[string]any, 0, len(objectives))
	for _, o := range objectives {
		scores = append(scores, map[string]any{"objective": o, "score": score, "feedback": "Meets most rubric items."})
	}
	return mustJSON(map[string]any{
		"overall_score":    score,
		"objective_scores": scores,
		"pass_decision":    decision,
		"next_steps":       []string{"review the weakest objective"},
	})
}
