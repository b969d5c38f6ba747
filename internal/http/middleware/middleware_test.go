package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/ctxutil"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
)

func TestCORSAllowsDevAndConfiguredOrigins(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	cases := []struct {
		origin string
		allow  bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://school.example.com", true},
		{"https://evil.example.com", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.origin, func(t *testing.T) {
			t.Parallel()
			r := gin.New()
			r.Use(CORS("https://school.example.com/", " "))
			r.POST("/api/courses", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/api/courses", nil)
			req.Header.Set("Origin", tc.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tc.allow && got != tc.origin {
				t.Fatalf("allow-origin = %q, want %q (status %d)", got, tc.origin, rec.Code)
			}
			if !tc.allow && got != "" {
				t.Fatalf("unexpected allow-origin %q", got)
			}
		})
	}
}

func authRouter(t *testing.T, secret string) (*gin.Engine, userrepo.UserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	users := userrepo.NewUserRepo(db, testutil.Logger(t))
	am := NewAuthMiddleware(testutil.Logger(t), secret, users)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/whoami", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		td := ctxutil.GetTraceData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": rd.UserID, "request_id": td.RequestID})
	})
	return r, users
}

func TestAuthFallsBackToDevUser(t *testing.T) {
	r, users := authRouter(t, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	u, err := users.GetByID(dbctx.Context{Ctx: t.Context()}, user.DevUserID)
	if err != nil || u == nil {
		t.Fatalf("dev user not created: %v", err)
	}
	if rec.Header().Get(HeaderRequestID) == "" || rec.Header().Get(HeaderTraceID) == "" {
		t.Fatalf("trace headers missing: %v", rec.Header())
	}
}

func TestAuthChecksBearerTokens(t *testing.T) {
	const secret = "test-secret"
	r, users := authRouter(t, secret)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}

	bad, _ := IssueToken("other-secret", "u9", Claims{})
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong signature status = %d", rec.Code)
	}

	expired, _ := IssueToken(secret, "u9", Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expired token status = %d", rec.Code)
	}

	good, err := IssueToken(secret, "u9", Claims{Email: "u9@example.com"})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/whoami?token="+good, nil)
	req.Header.Set(HeaderRequestID, "req-1")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token status = %d body=%s", rec.Code, rec.Body)
	}
	if rec.Header().Get(HeaderRequestID) != "req-1" {
		t.Fatalf("request id not propagated: %q", rec.Header().Get(HeaderRequestID))
	}
	u, err := users.GetByID(dbctx.Context{Ctx: t.Context()}, "u9")
	if err != nil || u == nil || u.Email != "u9@example.com" {
		t.Fatalf("user = %+v, %v", u, err)
	}
}
