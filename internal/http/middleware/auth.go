package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/domain/user"
	"github.com/yungbote/school-backend/internal/platform/ctxutil"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var errInvalidToken = errors.New("invalid or expired token")

// Claims is the bearer token payload. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the caller. With no secret configured every
// request runs as the dev user.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
	users  userrepo.UserRepo

	mu    sync.Mutex
	known map[string]bool
}

func NewAuthMiddleware(log *logger.Logger, secret string, users userrepo.UserRepo) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(strings.TrimSpace(secret)),
		users:  users,
		known:  map[string]bool{},
	}
}

// Enabled reports whether bearer tokens are checked.
func (am *AuthMiddleware) Enabled() bool { return len(am.secret) > 0 }

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := &user.User{ID: user.DevUserID, DisplayName: "Developer"}
		if am.Enabled() {
			tokenString := extractTokenFromAll(c)
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
				})
				return
			}
			claims, err := am.parse(tokenString)
			if err != nil {
				am.log.Debug("Rejected token", "error", err)
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{"message": err.Error(), "code": "unauthorized"},
				})
				return
			}
			u = &user.User{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}
		}
		if err := am.ensure(c, u); err != nil {
			am.log.Error("Ensuring user failed", "error", err, "user_id", u.ID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{"message": "could not load user", "code": "user_unavailable"},
			})
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: u.ID})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", u.ID)
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// ensure creates the user row the first time an id is seen by this process.
func (am *AuthMiddleware) ensure(c *gin.Context, u *user.User) error {
	if am.users == nil {
		return nil
	}
	am.mu.Lock()
	seen := am.known[u.ID]
	am.mu.Unlock()
	if seen {
		return nil
	}
	if _, err := am.users.Ensure(dbctx.Context{Ctx: c.Request.Context()}, u); err != nil {
		return err
	}
	am.mu.Lock()
	am.known[u.ID] = true
	am.mu.Unlock()
	return nil
}

// IssueToken signs a token for userID. Used by the CLI and tests.
func IssueToken(secret, userID string, claims Claims) (string, error) {
	claims.Subject = userID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
