package reconciler

import (
	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/realtime"
)

type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseStreaming     Phase = "streaming"
	PhaseComplete      Phase = "complete"
)

// Snapshot is a point-in-time read of a course. Generation is nil when the
// backend does not report generation state, in which case the active
// objective is inferred from lesson content.
type Snapshot struct {
	Course     learning.Course
	Generation *Generation
}

type Generation struct {
	Running               bool
	CurrentObjectiveIndex *int
}

// Event is one message from the course event feed.
type Event struct {
	Name realtime.SSEEvent
	Data realtime.GenerationEvent
}

// ObjectiveProgress tracks one roadmap entry through generation.
type ObjectiveProgress struct {
	Title           string
	PlanTitle       string
	Planned         bool
	Written         bool
	ActivityCreated bool
	ActivityID      *uuid.UUID
	Error           string
}

func (o ObjectiveProgress) Done() bool {
	return o.Planned && o.Written && o.ActivityCreated
}

// View is the reconciled generation progress of one course.
type View struct {
	CourseID   uuid.UUID
	Phase      Phase
	Status     learning.CourseStatus
	Objectives []ObjectiveProgress
	// Reported is set when Current comes from the backend.
	Reported bool
	Current  *int
	Err      string
}

// Active returns the objective being generated. A backend-reported index
// wins; without one the first objective after the last finished one is
// assumed, and only while the feed is live.
func (v View) Active() (int, bool) {
	if v.Reported {
		if v.Current == nil {
			return -1, false
		}
		return *v.Current, true
	}
	if v.Phase != PhaseStreaming {
		return -1, false
	}
	i := inferActive(v.Objectives)
	return i, i >= 0
}

func (v View) clone() View {
	out := v
	out.Objectives = append([]ObjectiveProgress(nil), v.Objectives...)
	if v.Current != nil {
		cur := *v.Current
		out.Current = &cur
	}
	return out
}

func inferActive(objs []ObjectiveProgress) int {
	lastDone := -1
	for i, o := range objs {
		if o.Done() {
			lastDone = i
		}
	}
	if next := lastDone + 1; next < len(objs) {
		return next
	}
	return -1
}

func objectivesFrom(c *learning.Course) []ObjectiveProgress {
	out := make([]ObjectiveProgress, len(c.Roadmap))
	for i, r := range c.Roadmap {
		out[i].Title = r.Title
	}
	for i := range c.Lessons {
		l := &c.Lessons[i]
		if l.ObjectiveIndex < 0 {
			continue
		}
		out = grow(out, l.ObjectiveIndex)
		o := &out[l.ObjectiveIndex]
		o.Planned = true
		o.PlanTitle = l.Title
		o.Written = len(l.Pages) > 0
		if l.HasActivity() {
			id := l.ActivityID
			o.ActivityCreated = true
			o.ActivityID = &id
		}
	}
	return out
}

func grow(objs []ObjectiveProgress, idx int) []ObjectiveProgress {
	for len(objs) <= idx {
		objs = append(objs, ObjectiveProgress{})
	}
	return objs
}

// applySnapshot merges the snapshot into v. Within a session progress only
// moves forward: flags, plan titles and activity ids already seen stay even
// when the snapshot lacks them, since a lesson is only persisted once fully
// built. Feed errors survive for objectives the snapshot has not finished.
func applySnapshot(v *View, snap Snapshot) {
	prev := v.Objectives
	next := objectivesFrom(&snap.Course)
	if len(prev) > 0 {
		next = grow(next, len(prev)-1)
	}
	for i := range prev {
		mergeObjective(&next[i], prev[i])
	}
	v.Objectives = next
	v.Status = snap.Course.Status
	v.Reported = snap.Generation != nil
	v.Current = nil
	if snap.Generation != nil && snap.Generation.CurrentObjectiveIndex != nil {
		cur := *snap.Generation.CurrentObjectiveIndex
		v.Current = &cur
	}
}

func mergeObjective(o *ObjectiveProgress, prev ObjectiveProgress) {
	if !o.Done() {
		o.Error = prev.Error
	}
	o.Planned = o.Planned || prev.Planned
	o.Written = o.Written || prev.Written
	o.ActivityCreated = o.ActivityCreated || prev.ActivityCreated
	if o.Title == "" {
		o.Title = prev.Title
	}
	if o.PlanTitle == "" {
		o.PlanTitle = prev.PlanTitle
	}
	if o.ActivityID == nil && prev.ActivityID != nil {
		id := *prev.ActivityID
		o.ActivityID = &id
	}
}

// applyEvent folds one feed event into v. Flags are overwritten, so
// duplicate or late events are harmless.
func applyEvent(v *View, ev Event) {
	idx := ev.Data.ObjectiveIndex
	if idx < 0 {
		if ev.Name == realtime.SSEEventGenerationError {
			v.Err = ev.Data.Error
		}
		return
	}
	v.Objectives = grow(v.Objectives, idx)
	o := &v.Objectives[idx]
	switch ev.Name {
	case realtime.SSEEventLessonPlanned:
		o.Planned = true
		o.PlanTitle = ev.Data.PlanTitle
		o.Error = ""
		v.setCurrent(idx)
	case realtime.SSEEventLessonWritten:
		o.Planned = true
		o.Written = true
		v.setCurrent(idx)
	case realtime.SSEEventActivityCreated:
		o.ActivityCreated = true
		if ev.Data.ActivityID != nil {
			id := *ev.Data.ActivityID
			o.ActivityID = &id
		}
		if v.Current != nil && *v.Current == idx {
			v.Current = nil
		}
	case realtime.SSEEventGenerationError:
		o.Error = ev.Data.Error
		if v.Current != nil && *v.Current == idx {
			v.Current = nil
		}
	}
}

func (v *View) setCurrent(idx int) {
	if !v.Reported {
		return
	}
	v.Current = &idx
}

// shouldStream reports whether a live feed is worth opening for snap.
func shouldStream(snap Snapshot) bool {
	status := snap.Course.Status
	if status.Terminal() {
		return false
	}
	if status == learning.StatusGenerating {
		return true
	}
	return snap.Generation != nil && snap.Generation.Running
}
