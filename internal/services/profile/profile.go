// Package profile owns the learner profile and the per-user settings that
// every generation prompt reads.
package profile

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

// ProfilePatch carries only the fields a client sent.
type ProfilePatch struct {
	DisplayName     *string  `json:"display_name" validate:"omitempty,max=120"`
	ExperienceLevel *string  `json:"experience_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	LearningGoals   []string `json:"learning_goals" validate:"omitempty,max=20,dive,notblank"`
	Interests       []string `json:"interests" validate:"omitempty,max=20,dive,notblank"`
	LearningStyle   *string  `json:"learning_style" validate:"omitempty,max=30"`
	TonePreference  *string  `json:"tone_preference" validate:"omitempty,max=30"`
}

type SettingsPatch struct {
	Model          *string `json:"model" validate:"omitempty,max=100"`
	VisualsEnabled *bool   `json:"visuals_enabled"`
	AspectRatio    *string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1 4:3"`
	AutoAdvance    *bool   `json:"auto_advance"`
}

type Service struct {
	log          *logger.Logger
	profiles     userrepo.ProfileRepo
	settings     userrepo.SettingsRepo
	defaultModel string
}

// New builds the service. defaultModel fills Settings.Model for users who
// never picked one.
func New(baseLog *logger.Logger, profiles userrepo.ProfileRepo, settings userrepo.SettingsRepo, defaultModel string) *Service {
	return &Service{
		log:          baseLog.With("service", "ProfileService"),
		profiles:     profiles,
		settings:     settings,
		defaultModel: strings.TrimSpace(defaultModel),
	}
}

// Profile returns the learner profile, creating it on first read.
func (s *Service) Profile(ctx context.Context, userID string) (*user.LearnerProfile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	p, err := s.profiles.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if p != nil {
		return p, nil
	}
	p = user.NewLearnerProfile(userID)
	if err := s.profiles.Save(dbc, p); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	s.log.Debug("Created learner profile", "user_id", userID)
	return p, nil
}

// UpdateProfile applies the fields present in patch and bumps the version.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*user.LearnerProfile, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.ExperienceLevel != nil {
		p.ExperienceLevel = *patch.ExperienceLevel
	}
	if patch.LearningGoals != nil {
		p.LearningGoals = datatypes.JSONSlice[string](patch.LearningGoals)
	}
	if patch.Interests != nil {
		p.Interests = datatypes.JSONSlice[string](patch.Interests)
	}
	if patch.LearningStyle != nil {
		p.LearningStyle = *patch.LearningStyle
	}
	if patch.TonePreference != nil {
		p.TonePreference = *patch.TonePreference
	}
	p.Version++
	if err := s.profiles.Save(dbctx.Context{Ctx: ctx}, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// Settings returns the user's settings, or the defaults when none are saved.
func (s *Service) Settings(ctx context.Context, userID string) (*user.Settings, error) {
	st, err := s.settings.Get(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if st == nil {
		st = user.DefaultSettings(userID)
	}
	if st.Model == "" {
		st.Model = s.defaultModel
	}
	return st, nil
}

func (s *Service) UpdateSettings(ctx context.Context, userID string, patch SettingsPatch) (*user.Settings, error) {
	st, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.Model != nil {
		st.Model = strings.TrimSpace(*patch.Model)
	}
	if patch.VisualsEnabled != nil {
		st.VisualsEnabled = *patch.VisualsEnabled
	}
	if patch.AspectRatio != nil {
		st.AspectRatio = *patch.AspectRatio
	}
	if patch.AutoAdvance != nil {
		st.AutoAdvance = *patch.AutoAdvance
	}
	if err := s.settings.Save(dbctx.Context{Ctx: ctx}, st); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return st, nil
}
