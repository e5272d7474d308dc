package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	ContextUserID = "userId"
	ContextRole   = "userRole"
	ContextUser   = "currentUser"
	ContextLogger = "logger"
)

// SessionResolver turns a bearer token into the user it belongs to.
type SessionResolver interface {
	UserFromToken(ctx context.Context, token string) (*user.User, bool)
}

// BearerToken extracts the token from an "Authorization: Bearer <t>" header.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return tok, tok != ""
}

// AuthMiddleware rejects requests without a valid bearer token. rdb may be
// nil, in which case presence is not recorded.
func AuthMiddleware(sessions SessionResolver, rdb *redis.Client, onlineWindow time.Duration, requireAdmin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Missing or invalid Authorization header"}})
			return
		}
		u, ok := sessions.UserFromToken(c.Request.Context(), tokenStr)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Invalid or expired token"}})
			return
		}
		if rdb != nil {
			if err := MarkOnline(c.Request.Context(), rdb, u.ID, onlineWindow); err != nil {
				LoggerFrom(c).Warn("mark online", "userId", u.ID, "error", err)
			}
		}

		c.Set(ContextUserID, u.ID)
		c.Set(ContextRole, string(u.Role))
		c.Set(ContextUser, u)

		if requireAdmin && u.Role != user.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Admin only"}})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user attached by AuthMiddleware.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

// IsSelfOrAdmin reports whether the authenticated caller may act on id.
func IsSelfOrAdmin(c *gin.Context, id string) bool {
	u, ok := CurrentUser(c)
	if !ok {
		return false
	}
	return u.ID == id || u.Role == user.RoleAdmin
}

// LoggerFrom returns the request logger set under ContextLogger, or the
// default logger.
func LoggerFrom(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(ContextLogger); ok {
		if l, ok := v.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
