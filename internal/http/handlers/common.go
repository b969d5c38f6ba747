package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/http/response"
	"github.com/yungbote/school-backend/internal/platform/ctxutil"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
)

var (
	errMissingUser     = errors.New("not authenticated")
	errEmptyNavigation = errors.New("nothing to update")
	errInvalidLimit    = errors.New("limit must be a positive integer")
)

// requestUser returns the caller set by the auth middleware, writing a 401
// when there is none.
func requestUser(c *gin.Context) (string, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingUser)
		return "", false
	}
	return rd.UserID, true
}

func paramID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		badRequest(c, code, errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// bindJSON decodes the body into dst and runs its validate tags. An empty
// body is accepted when allowEmpty is set.
func bindJSON(c *gin.Context, v *validator.Validate, dst any, allowEmpty bool) bool {
	if c.Request.ContentLength == 0 && allowEmpty {
		return validate(c, v, dst)
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "invalid_request", err)
		return false
	}
	return validate(c, v, dst)
}

func validate(c *gin.Context, v *validator.Validate, dst any) bool {
	if v == nil {
		return true
	}
	if err := v.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return true
		}
		badRequest(c, "invalid_request", err)
		return false
	}
	return true
}

// GenerationView is the generation half of a course snapshot.
type GenerationView struct {
	Running               bool `json:"running"`
	CurrentObjectiveIndex *int `json:"current_objective_index"`
}

// SnapshotView is what GET /api/courses/:id returns.
type SnapshotView struct {
	Course     learning.Course `json:"course"`
	Generation GenerationView  `json:"generation"`
	Submitting bool            `json:"submitting"`
}

func snapshotView(st orchestrator.State) SnapshotView {
	return SnapshotView{
		Course: st.Course,
		Generation: GenerationView{
			Running:               st.Running(),
			CurrentObjectiveIndex: st.CurrentObjectiveIndex(),
		},
		Submitting: st.Submitting,
	}
}
