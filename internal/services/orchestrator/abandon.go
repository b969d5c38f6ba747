package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/services/progression"
)

// Abandon releases a course whose generation stopped without finishing, for
// example after the process running it died. Courses this process is still
// generating are left alone. It reports whether the course changed.
func (s *Service) Abandon(ctx context.Context, courseID uuid.UUID, reason string) (bool, error) {
	var target learning.CourseStatus
	st, err := s.store.Apply(ctx, courseID, func(cur State) (State, error) {
		if cur.Generating {
			return cur, ErrGenerationInFlight
		}
		switch cur.Course.Status {
		case learning.StatusGenerating:
			target = learning.StatusGenerationFailed
		case learning.StatusGeneratingAssessment:
			target = learning.StatusAwaitingAssessment
		default:
			return cur, errNothingToAbandon
		}
		if err := progression.Transition(cur.Course.Status, target, progression.FactsFor(&cur.Course)); err != nil {
			return cur, err
		}
		msg := ""
		if target == learning.StatusGenerationFailed {
			msg = reason
		}
		return reduceActiveCleared(reduceStatus(cur, target, msg)), nil
	})
	if errors.Is(err, errNothingToAbandon) || errors.Is(err, ErrGenerationInFlight) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.log.Warn("Abandoned stalled generation", "course_id", courseID, "status", target, "reason", reason)
	ctx = llm.WithCallInfo(ctx, llm.CallInfo{Action: "sweep", UserID: st.Course.UserID, CourseID: courseID})
	s.recordFailure(ctx, courseID, "sweep", errors.New(reason))
	if target == learning.StatusGenerationFailed {
		s.notify.GenerationError(courseID, -1, reason)
	}
	s.notify.GenerationComplete(courseID, target)
	s.notify.CourseUpdated(&st.Course)
	return true, nil
}

var errNothingToAbandon = errors.New("nothing to abandon")
