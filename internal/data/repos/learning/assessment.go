package learning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var ErrAssessmentNotFound = errors.New("assessment not found")

type AssessmentRepo interface {
	Create(dbc dbctx.Context, a *learning.Assessment) error
	Save(dbc dbctx.Context, a *learning.Assessment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Assessment, error)
	Latest(dbc dbctx.Context, courseID uuid.UUID) (*learning.Assessment, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*learning.Assessment, error)
}

type assessmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentRepo {
	return &assessmentRepo{db: db, log: baseLog.With("repo", "AssessmentRepo")}
}

func (r *assessmentRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *assessmentRepo) Create(dbc dbctx.Context, a *learning.Assessment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.tx(dbc).Create(a).Error
}

func (r *assessmentRepo) Save(dbc dbctx.Context, a *learning.Assessment) error {
	return r.tx(dbc).Save(a).Error
}

func (r *assessmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Assessment, error) {
	var a learning.Assessment
	err := r.tx(dbc).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Latest returns the highest attempt for the course, or nil when none exists.
func (r *assessmentRepo) Latest(dbc dbctx.Context, courseID uuid.UUID) (*learning.Assessment, error) {
	var out []*learning.Assessment
	if err := r.tx(dbc).
		Where("course_id = ?", courseID).
		Order("attempt DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *assessmentRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*learning.Assessment, error) {
	var out []*learning.Assessment
	if err := r.tx(dbc).Where("course_id = ?", courseID).Order("attempt ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
