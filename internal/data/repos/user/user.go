package user

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type UserRepo interface {
	// Ensure inserts the user when missing and returns the stored row.
	Ensure(dbc dbctx.Context, u *user.User) (*user.User, error)
	GetByID(dbc dbctx.Context, id string) (*user.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) Ensure(dbc dbctx.Context, u *user.User) (*user.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if u == nil || u.ID == "" {
		return nil, errors.New("ensure user: missing id")
	}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(u).Error; err != nil {
		return nil, err
	}
	return r.GetByID(dbc, u.ID)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id string) (*user.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out user.User
	if err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
