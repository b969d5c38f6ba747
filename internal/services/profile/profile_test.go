package profile

import (
	"context"
	"testing"

	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return New(log, userrepo.NewProfileRepo(db, log), userrepo.NewSettingsRepo(db, log), "claude-sonnet")
}

func TestProfileCreatedOnFirstRead(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	p, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Version != 1 || p.ExperienceLevel != "beginner" {
		t.Fatalf("unexpected new profile: %+v", p)
	}
	again, err := s.Profile(ctx, "u1")
	if err != nil {
		t.Fatalf("Profile again: %v", err)
	}
	if again.Version != 1 {
		t.Fatalf("reading must not bump version, got %d", again.Version)
	}
}

func TestUpdateProfileAppliesOnlyProvidedFields(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	name := "Ada"
	if _, err := s.UpdateProfile(ctx, "u1", ProfilePatch{DisplayName: &name, Interests: []string{"math"}}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	level := "advanced"
	p, err := s.UpdateProfile(ctx, "u1", ProfilePatch{ExperienceLevel: &level})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.DisplayName != "Ada" || p.ExperienceLevel != "advanced" {
		t.Fatalf("fields not merged: %+v", p)
	}
	if len(p.Interests) != 1 || p.Interests[0] != "math" {
		t.Fatalf("interests lost: %v", p.Interests)
	}
	if p.Version != 3 {
		t.Fatalf("version = %d, want 3", p.Version)
	}
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	st, err := s.Settings(ctx, "u1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if st.Model != "claude-sonnet" || !st.VisualsEnabled || !st.AutoAdvance || st.AspectRatio != "16:9" {
		t.Fatalf("unexpected defaults: %+v", st)
	}

	off := false
	ratio := "1:1"
	if _, err := s.UpdateSettings(ctx, "u1", SettingsPatch{AutoAdvance: &off, AspectRatio: &ratio}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	st, err = s.Settings(ctx, "u1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if st.AutoAdvance || st.AspectRatio != "1:1" || !st.VisualsEnabled {
		t.Fatalf("settings not persisted: %+v", st)
	}
}
