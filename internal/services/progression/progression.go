// Package progression is the course lifecycle state machine. It only
// decides; callers apply the returned status and persist it.
package progression

import (
	"errors"
	"fmt"

	"github.com/yungbote/school-backend/internal/domain/learning"
)

var (
	ErrInvalidTransition = errors.New("invalid course transition")
	ErrGuardFailed       = errors.New("course transition guard failed")
)

// FailRoute is where a failed assessment sends the learner.
type FailRoute string

const (
	// RouteLoop keeps the course at assessment_ready for another attempt.
	RouteLoop FailRoute = "loop"
	// RouteReview sends the learner back to in_progress.
	RouteReview FailRoute = "review"
)

func ParseFailRoute(s string) (FailRoute, error) {
	switch FailRoute(s) {
	case RouteLoop, RouteReview:
		return FailRoute(s), nil
	case "":
		return RouteLoop, nil
	}
	return "", fmt.Errorf("unknown assessment fail route %q", s)
}

// RetryPolicy decides what a failed assessment leads to and whether retries
// get freshly generated material.
type RetryPolicy struct {
	OnFail          FailRoute
	RegenerateItems bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{OnFail: RouteLoop, RegenerateItems: true}
}

// Facts are the observations the guards read. Callers fill them from the
// aggregate and the latest assessment.
type Facts struct {
	HasObjectives    bool
	FirstLessonReady bool
	CompletedLessons int
	RoadmapLength    int
	HasAssessment    bool
	LatestPassed     bool
	OnFail           FailRoute
	RegenerateItems  bool
}

// WithPolicy copies the policy fields into f.
func (f Facts) WithPolicy(p RetryPolicy) Facts {
	f.OnFail = p.OnFail
	if f.OnFail == "" {
		f.OnFail = RouteLoop
	}
	f.RegenerateItems = p.RegenerateItems
	return f
}

// FactsFor derives the course-side facts. Assessment and policy facts are
// left for the caller.
func FactsFor(c *learning.Course) Facts {
	f := Facts{
		HasObjectives:    len(c.InputObjectives) > 0 || len(c.Roadmap) > 0,
		CompletedLessons: c.CompletedLessons,
		RoadmapLength:    len(c.Roadmap),
		OnFail:           RouteLoop,
	}
	if l := c.LessonAt(0); l != nil {
		f.FirstLessonReady = l.HasContent() && l.HasActivity()
	}
	return f
}

type guard struct {
	name  string
	check func(Facts) bool
}

func always() guard { return guard{"always", func(Facts) bool { return true }} }

type edge struct{ from, to learning.CourseStatus }

var transitions = map[edge]guard{
	{learning.StatusDraft, learning.StatusGenerating}: {"has objectives", func(f Facts) bool { return f.HasObjectives }},
	{learning.StatusGenerating, learning.StatusActive}: {"first lesson generated", func(f Facts) bool { return f.FirstLessonReady }},
	{learning.StatusGenerating, learning.StatusGenerationFailed}: always(),
	{learning.StatusGenerationFailed, learning.StatusGenerating}: {"has objectives", func(f Facts) bool { return f.HasObjectives }},
	{learning.StatusActive, learning.StatusInProgress}: always(),
	{learning.StatusInProgress, learning.StatusAwaitingAssessment}: {"all lessons completed", func(f Facts) bool {
		return f.RoadmapLength > 0 && f.CompletedLessons == f.RoadmapLength
	}},
	{learning.StatusAwaitingAssessment, learning.StatusGeneratingAssessment}: always(),
	{learning.StatusAssessmentReady, learning.StatusGeneratingAssessment}: {"retry regenerates items", func(f Facts) bool { return f.RegenerateItems }},
	{learning.StatusGeneratingAssessment, learning.StatusAssessmentReady}: {"assessment generated", func(f Facts) bool { return f.HasAssessment }},
	{learning.StatusGeneratingAssessment, learning.StatusAwaitingAssessment}: always(),
	{learning.StatusAssessmentReady, learning.StatusCompleted}: {"assessment passed", func(f Facts) bool { return f.LatestPassed }},
	{learning.StatusAssessmentReady, learning.StatusAssessmentReady}: {"fail route loop", func(f Facts) bool { return f.OnFail == RouteLoop }},
	{learning.StatusAssessmentReady, learning.StatusInProgress}: {"fail route review", func(f Facts) bool { return f.OnFail == RouteReview }},
}

// Transition checks whether from may move to target under facts.
func Transition(from, target learning.CourseStatus, facts Facts) error {
	g, ok := transitions[edge{from, target}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}
	if !g.check(facts) {
		return fmt.Errorf("%w: %s (%s -> %s)", ErrGuardFailed, g.name, from, target)
	}
	return nil
}

// Allowed lists every status reachable from from, guards ignored.
func Allowed(from learning.CourseStatus) []learning.CourseStatus {
	var out []learning.CourseStatus
	for e := range transitions {
		if e.from == from {
			out = append(out, e.to)
		}
	}
	return out
}

// AfterFailedAssessment is the status a failed attempt leads to.
func AfterFailedAssessment(route FailRoute) learning.CourseStatus {
	if route == RouteReview {
		return learning.StatusInProgress
	}
	return learning.StatusAssessmentReady
}
