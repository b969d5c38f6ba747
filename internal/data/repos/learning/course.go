package learning

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var ErrCourseNotFound = errors.New("course not found")

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*learning.Course) ([]*learning.Course, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Course, error)
	GetOwned(dbc dbctx.Context, userID string, id uuid.UUID) (*learning.Course, error)
	ListByUser(dbc dbctx.Context, userID string, status learning.CourseStatus) ([]*learning.Course, error)
	SaveAggregate(dbc dbctx.Context, course *learning.Course) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListStuck(dbc dbctx.Context, statuses []learning.CourseStatus, updatedBefore time.Time) ([]*learning.Course, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*learning.Course) ([]*learning.Course, error) {
	if len(courses) == 0 {
		return []*learning.Course{}, nil
	}
	for _, c := range courses {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Omit(clause.Associations).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func withLessons(db *gorm.DB) *gorm.DB {
	return db.Preload("Lessons", func(q *gorm.DB) *gorm.DB {
		return q.Order("objective_index ASC")
	})
}

func (r *courseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*learning.Course, error) {
	var c learning.Course
	err := withLessons(r.tx(dbc)).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetOwned is GetByID scoped to a user; another user's course reads as missing.
func (r *courseRepo) GetOwned(dbc dbctx.Context, userID string, id uuid.UUID) (*learning.Course, error) {
	var c learning.Course
	err := withLessons(r.tx(dbc)).Where("id = ? AND user_id = ?", id, userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) ListByUser(dbc dbctx.Context, userID string, status learning.CourseStatus) ([]*learning.Course, error) {
	q := withLessons(r.tx(dbc)).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*learning.Course
	if err := q.Order("updated_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAggregate writes the course row and every lesson it holds in one
// transaction. Whatever is in memory wins; there is no merge.
func (r *courseRepo) SaveAggregate(dbc dbctx.Context, course *learning.Course) error {
	if course == nil || course.ID == uuid.Nil {
		return errors.New("save aggregate: missing course id")
	}
	return r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		if err := txx.Omit(clause.Associations).Save(course).Error; err != nil {
			return err
		}
		if len(course.Lessons) == 0 {
			return nil
		}
		for i := range course.Lessons {
			course.Lessons[i].CourseID = course.ID
			if course.Lessons[i].ID == uuid.Nil {
				course.Lessons[i].ID = uuid.New()
			}
		}
		return txx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&course.Lessons).Error
	})
}

func (r *courseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).Model(&learning.Course{}).Where("id = ?", id).Updates(updates).Error
}

func (r *courseRepo) ListStuck(dbc dbctx.Context, statuses []learning.CourseStatus, updatedBefore time.Time) ([]*learning.Course, error) {
	var out []*learning.Course
	if len(statuses) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).
		Where("status IN ? AND updated_at < ?", statuses, updatedBefore).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	res := r.tx(dbc).Where("id = ?", id).Delete(&learning.Course{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCourseNotFound
	}
	return nil
}
