package user

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type ProfileRepo interface {
	// Get returns nil, nil when the user has no profile yet.
	Get(dbc dbctx.Context, userID string) (*user.LearnerProfile, error)
	Save(dbc dbctx.Context, p *user.LearnerProfile) error
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Get(dbc dbctx.Context, userID string) (*user.LearnerProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p user.LearnerProfile
	err := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Save(dbc dbctx.Context, p *user.LearnerProfile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(p).Error
}

type SettingsRepo interface {
	Get(dbc dbctx.Context, userID string) (*user.Settings, error)
	Save(dbc dbctx.Context, s *user.Settings) error
}

type settingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, baseLog *logger.Logger) SettingsRepo {
	return &settingsRepo{db: db, log: baseLog.With("repo", "SettingsRepo")}
}

func (r *settingsRepo) Get(dbc dbctx.Context, userID string) (*user.Settings, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s user.Settings
	err := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Save(dbc dbctx.Context, s *user.Settings) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(s).Error
}
