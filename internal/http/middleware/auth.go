package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/clubops-backend/internal/platform/ctxutil"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

// Claims is the bearer token payload: sub is the actor id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies HS256 bearer tokens. Without a secret it rejects
// every request; only NewDisabledAuthMiddleware lets requests through unchecked.
type AuthMiddleware struct {
	log      *logger.Logger
	secret   []byte
	disabled bool
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	if strings.TrimSpace(secret) == "" {
		middlewareLogger.Warn("JWT secret not set; rejecting all requests")
	}
	return &AuthMiddleware{log: middlewareLogger, secret: []byte(strings.TrimSpace(secret))}
}

// NewDisabledAuthMiddleware runs every request as an anonymous admin.
// Local development only.
func NewDisabledAuthMiddleware(log *logger.Logger) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	middlewareLogger.Warn("authentication disabled; every request runs as admin")
	return &AuthMiddleware{log: middlewareLogger, disabled: true}
}

func (am *AuthMiddleware) Enabled() bool { return !am.disabled }

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.disabled {
			ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{Role: ctxutil.RoleAdmin})
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}
		if len(am.secret) == 0 {
			abort(c, http.StatusUnauthorized, "unauthorized", "authentication is not configured")
			return
		}
		tokenString := extractBearer(c)
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abort(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ctxutil.GetRequestData(c.Request.Context()).IsAdmin() {
			abort(c, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next()
	}
}

// IssueToken signs a token for the given actor; used by tooling and tests.
func (am *AuthMiddleware) IssueToken(actorID uuid.UUID, role string, ttl time.Duration) (string, error) {
	if len(am.secret) == 0 {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(am.secret)
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	actorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject is not a uuid: %w", err)
	}
	role := ctxutil.RoleMember
	if claims.Role == ctxutil.RoleAdmin {
		role = ctxutil.RoleAdmin
	}
	return &ctxutil.RequestData{ActorID: actorID, Role: role}, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": msg, "code": code},
	})
}
