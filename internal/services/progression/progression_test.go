package progression

import (
	"errors"
	"testing"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

func TestTransitionTable(t *testing.T) {
	ready := Facts{
		HasObjectives:    true,
		FirstLessonReady: true,
		CompletedLessons: 3,
		RoadmapLength:    3,
		HasAssessment:    true,
		LatestPassed:     true,
		OnFail:           RouteLoop,
		RegenerateItems:  true,
	}
	cases := []struct {
		from, to learning.CourseStatus
		facts    Facts
		want     error
	}{
		{learning.StatusDraft, learning.StatusGenerating, ready, nil},
		{learning.StatusDraft, learning.StatusGenerating, Facts{}, ErrGuardFailed},
		{learning.StatusGenerating, learning.StatusActive, Facts{}, ErrGuardFailed},
		{learning.StatusGenerating, learning.StatusActive, ready, nil},
		{learning.StatusGenerating, learning.StatusGenerationFailed, Facts{}, nil},
		{learning.StatusGenerationFailed, learning.StatusGenerating, ready, nil},
		{learning.StatusActive, learning.StatusInProgress, Facts{}, nil},
		{learning.StatusInProgress, learning.StatusAwaitingAssessment, Facts{CompletedLessons: 2, RoadmapLength: 3}, ErrGuardFailed},
		{learning.StatusInProgress, learning.StatusAwaitingAssessment, ready, nil},
		{learning.StatusAwaitingAssessment, learning.StatusGeneratingAssessment, Facts{}, nil},
		{learning.StatusGeneratingAssessment, learning.StatusAssessmentReady, Facts{}, ErrGuardFailed},
		{learning.StatusGeneratingAssessment, learning.StatusAwaitingAssessment, Facts{}, nil},
		{learning.StatusAssessmentReady, learning.StatusCompleted, Facts{}, ErrGuardFailed},
		{learning.StatusAssessmentReady, learning.StatusCompleted, ready, nil},
		{learning.StatusAssessmentReady, learning.StatusAssessmentReady, Facts{OnFail: RouteLoop}, nil},
		{learning.StatusAssessmentReady, learning.StatusAssessmentReady, Facts{OnFail: RouteReview}, ErrGuardFailed},
		{learning.StatusAssessmentReady, learning.StatusInProgress, Facts{OnFail: RouteReview}, nil},
		{learning.StatusAssessmentReady, learning.StatusGeneratingAssessment, Facts{}, ErrGuardFailed},
		{learning.StatusCompleted, learning.StatusInProgress, ready, ErrInvalidTransition},
		{learning.StatusDraft, learning.StatusCompleted, ready, ErrInvalidTransition},
	}
	for _, tc := range cases {
		err := Transition(tc.from, tc.to, tc.facts)
		if tc.want == nil && err != nil {
			t.Fatalf("%s -> %s: unexpected %v", tc.from, tc.to, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s -> %s: got %v, want %v", tc.from, tc.to, err, tc.want)
		}
	}
}

func TestFactsFor(t *testing.T) {
	c := &learning.Course{
		InputObjectives:  []string{"a", "b"},
		Roadmap:          []learning.RoadmapEntry{{ID: "r0"}, {ID: "r1"}},
		CompletedLessons: 1,
	}
	f := FactsFor(c)
	if !f.HasObjectives || f.FirstLessonReady || f.RoadmapLength != 2 || f.CompletedLessons != 1 {
		t.Fatalf("facts = %+v", f)
	}

	l := learning.Lesson{ObjectiveIndex: 0, Pages: []learning.Page{{Body: "text"}}}
	if err := l.SetActivity(learning.ShortResponse{Prompt: "p"}); err != nil {
		t.Fatal(err)
	}
	c.Lessons = []learning.Lesson{l}
	if !FactsFor(c).FirstLessonReady {
		t.Fatalf("first lesson should be ready")
	}
}

func TestParseFailRoute(t *testing.T) {
	if r, err := ParseFailRoute(""); err != nil || r != RouteLoop {
		t.Fatalf("default = %v, %v", r, err)
	}
	if r, err := ParseFailRoute("review"); err != nil || r != RouteReview {
		t.Fatalf("review = %v, %v", r, err)
	}
	if _, err := ParseFailRoute("skip"); err == nil {
		t.Fatalf("expected error")
	}
	if AfterFailedAssessment(RouteReview) != learning.StatusInProgress {
		t.Fatalf("review should route to in_progress")
	}
}
