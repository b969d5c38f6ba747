package orchestrator

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/domain/learning"
)

// State is everything the orchestrator tracks for one course. Course is the
// persisted aggregate; the flags and logs live only in this process.
type State struct {
	Course     learning.Course
	Generating bool
	Submitting bool
	Logs       []agentlog.AgentLog

	// LogsResetAt marks a cleared log; Logs then holds only later entries.
	LogsResetAt *time.Time
}

func (s State) clone() State {
	out := s
	out.Course = s.Course.Clone()
	out.Logs = append([]agentlog.AgentLog(nil), s.Logs...)
	if s.LogsResetAt != nil {
		at := *s.LogsResetAt
		out.LogsResetAt = &at
	}
	return out
}

// CurrentObjectiveIndex is the roadmap entry the running generation is on,
// or nil when nothing runs. -1 means the course skeleton.
func (s State) CurrentObjectiveIndex() *int {
	if s.Course.ActiveObjectiveIndex == nil {
		return nil
	}
	v := *s.Course.ActiveObjectiveIndex
	return &v
}

// Running reports an in-flight generation, either in this process or one
// recorded on the aggregate by a worker.
func (s State) Running() bool {
	return s.Generating || s.Course.ActiveObjectiveIndex != nil
}

// ---------------------------------------------------------------------------
// Reducers. Each takes a state by value, works on a deep copy and returns
// the copy; the argument is never modified.
// ---------------------------------------------------------------------------

func reduceGenerationStarted(s State, objectiveIndex int) State {
	next := s.clone()
	next.Generating = true
	idx := objectiveIndex
	next.Course.ActiveObjectiveIndex = &idx
	return next
}

func reduceGenerationFinished(s State) State {
	next := s.clone()
	next.Generating = false
	next.Course.ActiveObjectiveIndex = nil
	return next
}

// reduceActiveCleared drops the active objective but keeps the guard, so the
// final status and the cleared index land in one write.
func reduceActiveCleared(s State) State {
	next := s.clone()
	next.Course.ActiveObjectiveIndex = nil
	return next
}

func reduceStatus(s State, status learning.CourseStatus, errMsg string) State {
	next := s.clone()
	next.Course.Status = status
	next.Course.GenerationError = errMsg
	return next
}

func reduceOutlined(s State, title, description string, roadmap []learning.RoadmapEntry) State {
	next := s.clone()
	if title != "" {
		next.Course.Title = title
	}
	if description != "" {
		next.Course.Description = description
	}
	next.Course.Roadmap = append(datatypes.JSONSlice[learning.RoadmapEntry](nil), roadmap...)
	return next
}

// reduceLessonAppended adds the lesson for the next roadmap position. A
// lesson for any other position is dropped so lessons stay in order.
func reduceLessonAppended(s State, lesson learning.Lesson) State {
	if lesson.ObjectiveIndex != len(s.Course.Lessons) || lesson.ObjectiveIndex >= len(s.Course.Roadmap) {
		return s
	}
	next := s.clone()
	l := lesson.Clone()
	l.CourseID = next.Course.ID
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	next.Course.Lessons = append(next.Course.Lessons, l)
	next.Course.CurrentPageIndex = 0
	return next
}

// reduceLessonCompleted marks a lesson done and recomputes the derived
// counters. Calling it again for the same lesson only refreshes the score.
func reduceLessonCompleted(s State, lessonID uuid.UUID, score int) State {
	if s.Course.LessonByID(lessonID) == nil {
		return s
	}
	next := s.clone()
	c := &next.Course
	l := c.LessonByID(lessonID)
	v := learning.ClampScore(score)
	l.Completed = true
	l.ComprehensionScore = &v

	done := 0
	for i := range c.Lessons {
		if c.Lessons[i].Completed {
			done++
		}
	}
	total := len(c.Roadmap)
	if done > total {
		done = total
	}
	c.CompletedLessons = done
	c.Progress = progressFor(done, total)

	if total > 0 {
		target := l.ObjectiveIndex + 1
		if target > total-1 {
			target = total - 1
		}
		if target > c.CurrentLessonIndex {
			c.CurrentLessonIndex = target
			c.CurrentPageIndex = 0
		}
	}
	return next
}

func progressFor(done, total int) int {
	if total <= 0 {
		return 0
	}
	p := (done*100 + total/2) / total
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// reduceActivityReplaced swaps in a regenerated activity and counts the
// attempt. The previous review no longer applies.
func reduceActivityReplaced(s State, lessonID uuid.UUID, activity learning.Activity) State {
	if s.Course.LessonByID(lessonID) == nil || activity == nil {
		return s
	}
	next := s.clone()
	l := next.Course.LessonByID(lessonID)
	if err := l.SetActivity(activity); err != nil {
		return s
	}
	l.AttemptCount++
	l.Review = datatypes.NewJSONType(learning.ActivityReview{})
	return next
}

func reduceLessonIndex(s State, index int) State {
	next := s.clone()
	c := &next.Course
	idx := clamp(index, 0, len(c.Lessons)-1)
	if idx != c.CurrentLessonIndex {
		c.CurrentPageIndex = 0
	}
	c.CurrentLessonIndex = idx
	return next
}

func reducePageIndex(s State, page int) State {
	next := s.clone()
	c := &next.Course
	pages := 0
	if l := c.LessonAt(c.CurrentLessonIndex); l != nil {
		pages = len(l.Pages)
	}
	c.CurrentPageIndex = clamp(page, 0, pages-1)
	return next
}

func reducePageActivityComplete(s State, page int) State {
	l := s.Course.LessonAt(s.Course.CurrentLessonIndex)
	if l == nil || page < 0 || page >= len(l.Pages) {
		return s
	}
	for _, p := range l.PageActivityComplete {
		if p == page {
			return s
		}
	}
	next := s.clone()
	nl := next.Course.LessonAt(next.Course.CurrentLessonIndex)
	nl.PageActivityComplete = append(nl.PageActivityComplete, page)
	sort.Ints(nl.PageActivityComplete)
	return next
}

func reduceReviewRecorded(s State, lessonID uuid.UUID, review learning.ActivityReview, sub learning.Submission) State {
	if s.Course.LessonByID(lessonID) == nil {
		return s
	}
	next := s.clone()
	l := next.Course.LessonByID(lessonID)
	review.Reviewed = true
	l.Review = datatypes.NewJSONType(review)
	l.Submissions = append(l.Submissions, sub)
	return next
}

func reduceSubmitting(s State, on bool) State {
	next := s.clone()
	next.Submitting = on
	return next
}

func reduceCover(s State, url string) State {
	next := s.clone()
	next.Course.CoverURL = url
	return next
}

func reduceLogAppended(s State, entry agentlog.AgentLog) State {
	next := s.clone()
	next.Logs = append(next.Logs, entry)
	return next
}

func reduceLogsCleared(s State, at time.Time) State {
	next := s.clone()
	next.Logs = nil
	next.LogsResetAt = &at
	return next
}

// clamp bounds v to [lo,hi]; an empty range collapses to lo.
func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
