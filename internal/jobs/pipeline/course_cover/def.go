package course_cover

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Illustrator interface {
	CreateCover(ctx context.Context, userID string, courseID uuid.UUID) (string, error)
}

type Pipeline struct {
	log   *logger.Logger
	cover Illustrator
}

func New(baseLog *logger.Logger, cover Illustrator) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", jobs.TypeCourseCover),
		cover: cover,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeCourseCover }
