package learning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var ErrLessonNotFound = errors.New("lesson not found")

// LessonRepo is read-only; lessons are written through CourseRepo.SaveAggregate.
type LessonRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Lesson, error)
	GetByActivityID(dbc dbctx.Context, activityID uuid.UUID) (*learning.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Lesson, error) {
	return r.first(dbc, "id = ?", id)
}

func (r *lessonRepo) GetByActivityID(dbc dbctx.Context, activityID uuid.UUID) (*learning.Lesson, error) {
	return r.first(dbc, "activity_id = ?", activityID)
}

func (r *lessonRepo) first(dbc dbctx.Context, where string, arg interface{}) (*learning.Lesson, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var l learning.Lesson
	err := transaction.WithContext(dbc.Ctx).Where(where, arg).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}
