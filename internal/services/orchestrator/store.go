package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var (
	ErrGenerationInFlight = errors.New("generation already running for course")
	ErrSubmissionInFlight = errors.New("submission already being reviewed")
	ErrCourseNotFound     = errors.New("course not found")
)

type entry struct {
	// mu serializes every mutation of one course.
	mu    sync.Mutex
	state State
}

// Store holds one State per course. States load lazily from the database and
// every persisted mutation writes the whole aggregate back.
type Store struct {
	courses learningrepo.CourseRepo
	log     *logger.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	loads   singleflight.Group
}

func NewStore(courses learningrepo.CourseRepo, baseLog *logger.Logger) *Store {
	return &Store{
		courses: courses,
		log:     baseLog.With("component", "CourseStore"),
		entries: map[uuid.UUID]*entry{},
	}
}

func (s *Store) entry(ctx context.Context, courseID uuid.UUID) (*entry, error) {
	s.mu.Lock()
	e := s.entries[courseID]
	s.mu.Unlock()
	if e != nil {
		return e, nil
	}
	v, err, _ := s.loads.Do(courseID.String(), func() (interface{}, error) {
		s.mu.Lock()
		if e := s.entries[courseID]; e != nil {
			s.mu.Unlock()
			return e, nil
		}
		s.mu.Unlock()

		c, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
		if errors.Is(err, learningrepo.ErrCourseNotFound) {
			return nil, ErrCourseNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load course: %w", err)
		}
		e := &entry{state: State{Course: *c}}
		s.mu.Lock()
		if existing := s.entries[courseID]; existing != nil {
			e = existing
		} else {
			s.entries[courseID] = e
		}
		s.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// Get returns a copy of the course state.
func (s *Store) Get(ctx context.Context, courseID uuid.UUID) (State, error) {
	e, err := s.entry(ctx, courseID)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone(), nil
}

// Apply runs fn on the current state and persists the result. When fn or the
// write fails the in-memory state is left as it was.
func (s *Store) Apply(ctx context.Context, courseID uuid.UUID, fn func(State) (State, error)) (State, error) {
	e, err := s.entry(ctx, courseID)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	next, err := fn(e.state)
	if err != nil {
		return e.state.clone(), err
	}
	course := next.Course.Clone()
	if err := s.courses.SaveAggregate(dbctx.Context{Ctx: ctx}, &course); err != nil {
		return e.state.clone(), fmt.Errorf("save course: %w", err)
	}
	next.Course = course
	e.state = next
	return next.clone(), nil
}

// ApplyMemory is Apply without the write, for process-local fields.
func (s *Store) ApplyMemory(ctx context.Context, courseID uuid.UUID, fn func(State) State) (State, error) {
	e, err := s.entry(ctx, courseID)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = fn(e.state)
	return e.state.clone(), nil
}

// TryBegin claims the course's generation guard, persisting objectiveIndex
// as the active objective. prepare, when set, runs under the same lock and
// can veto the claim. A second claim fails with ErrGenerationInFlight and
// changes nothing.
func (s *Store) TryBegin(ctx context.Context, courseID uuid.UUID, objectiveIndex int, prepare func(State) (State, error)) (State, error) {
	return s.Apply(ctx, courseID, func(st State) (State, error) {
		if st.Generating {
			return st, ErrGenerationInFlight
		}
		if prepare != nil {
			var err error
			if st, err = prepare(st); err != nil {
				return st, err
			}
		}
		return reduceGenerationStarted(st, objectiveIndex), nil
	})
}

// Finish releases the generation guard. The write ignores cancellation so a
// stopped worker still clears the active objective.
func (s *Store) Finish(ctx context.Context, courseID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.Apply(ctx, courseID, func(st State) (State, error) {
		return reduceGenerationFinished(st), nil
	}); err != nil {
		s.log.Warn("Clearing generation guard failed", "course_id", courseID, "error", err)
		// Never leave the guard held in memory.
		_, _ = s.ApplyMemory(ctx, courseID, func(st State) State {
			st.Generating = false
			return st
		})
	}
}

// TryBeginSubmit claims the course's review guard.
func (s *Store) TryBeginSubmit(ctx context.Context, courseID uuid.UUID) error {
	var busy bool
	_, err := s.ApplyMemory(ctx, courseID, func(st State) State {
		if st.Submitting {
			busy = true
			return st
		}
		return reduceSubmitting(st, true)
	})
	if err != nil {
		return err
	}
	if busy {
		return ErrSubmissionInFlight
	}
	return nil
}

func (s *Store) FinishSubmit(ctx context.Context, courseID uuid.UUID) {
	_, _ = s.ApplyMemory(context.WithoutCancel(ctx), courseID, func(st State) State {
		return reduceSubmitting(st, false)
	})
}

// Evict drops the cached state; the next read reloads it.
func (s *Store) Evict(courseID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, courseID)
}

// Cached returns the state only when it is already loaded.
func (s *Store) Cached(courseID uuid.UUID) (State, bool) {
	s.mu.Lock()
	e := s.entries[courseID]
	s.mu.Unlock()
	if e == nil {
		return State{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone(), true
}
