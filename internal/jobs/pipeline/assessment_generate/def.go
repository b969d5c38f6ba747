package assessment_generate

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Generator interface {
	Generate(ctx context.Context, userID string, courseID uuid.UUID) (*learning.Assessment, error)
}

type Pipeline struct {
	log *logger.Logger
	gen Generator
}

func New(baseLog *logger.Logger, gen Generator) *Pipeline {
	return &Pipeline{
		log: baseLog.With("job", jobs.TypeAssessmentGenerate),
		gen: gen,
	}
}

func (p *Pipeline) Type() string { return jobs.TypeAssessmentGenerate }
