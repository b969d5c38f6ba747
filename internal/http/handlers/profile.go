package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/services/profile"
)

type ProfileHandler struct {
	profiles *profile.Service
	validate *validator.Validate
}

func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, validate: newValidator()}
}

// GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	p, err := h.profiles.Profile(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err, "get_profile_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var patch profile.ProfilePatch
	if !bindJSON(c, h.validate, &patch, false) {
		return
	}
	p, err := h.profiles.UpdateProfile(c.Request.Context(), userID, patch)
	if err != nil {
		respondErr(c, err, "update_profile_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// GET /api/settings
func (h *ProfileHandler) GetSettings(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	s, err := h.profiles.Settings(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err, "get_settings_failed")
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}

// PUT /api/settings
func (h *ProfileHandler) UpdateSettings(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var patch profile.SettingsPatch
	if !bindJSON(c, h.validate, &patch, false) {
		return
	}
	s, err := h.profiles.UpdateSettings(c.Request.Context(), userID, patch)
	if err != nil {
		respondErr(c, err, "update_settings_failed")
		return
	}
	response.RespondOK(c, gin.H{"settings": s})
}
