package activity_regenerate

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Retrier interface {
	RetryLesson(ctx context.Context, userID string, lessonID uuid.UUID, previousScore int) (*learning.Lesson, error)
}

// Pipeline replaces a lesson's activity with a remedial one in the
// background.
type Pipeline struct {
	log   *logger.Logger
	retry Retrier
}

func New(baseLog *logger.Logger, retry Retrier) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", jobs.TypeActivityRegenerate),
		retry: retry,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeActivityRegenerate }
