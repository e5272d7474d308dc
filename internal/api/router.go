package api

import (
	"log/slog"
	"net/http"
	"time"

	"agriapp/internal/auth"
	"agriapp/internal/comment"
	"agriapp/internal/config"
	"agriapp/internal/logging"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps is everything the HTTP layer needs. Redis and Logger may be nil.
type Deps struct {
	Config   *config.Config
	Users    *user.Service
	Comments *comment.Service
	Redis    *redis.Client
	Logger   *slog.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	subpath := d.Config.Server.Subpath // "" or "/api", never a trailing slash
	online := time.Duration(d.Config.Redis.OnlineMinutes) * time.Minute

	bearer := auth.AuthMiddleware(d.Users, d.Redis, online, false)
	admin := auth.AuthMiddleware(d.Users, d.Redis, online, true)

	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)

		// First-run setup: only while no users exist
		group.GET("/setup", SetupStatusHandler(d.Users))
		group.POST("/setup", SetupHandler(d.Users))

		// Session
		group.POST("/users/register", RegisterHandler(d.Users))
		group.POST("/users/login", LoginHandler(d.Users, d.Redis, online))
		group.GET("/users/me", bearer, MeHandler())
		group.GET("/users/online", OnlineUserCountHandler(d.Redis))

		// Users
		group.POST("/users", admin, CreateUserHandler(d.Users))
		group.GET("/users", ListUsersHandler(d.Users))
		group.GET("/users/username/:username", GetUserByUsernameHandler(d.Users))
		group.GET("/users/email/:email", GetUserByEmailHandler(d.Users))
		group.GET("/users/:id", GetUserByIdHandler(d.Users))
		group.PUT("/users/:id", bearer, UpdateUserByIdHandler(d.Users))
		group.DELETE("/users/:id", bearer, DeleteUserByIdHandler(d.Users, d.Redis))

		// Badges
		group.PUT("/users/:id/badges/:badge", admin, AddBadgeHandler(d.Users))
		group.DELETE("/users/:id/badges/:badge", admin, RemoveBadgeHandler(d.Users))

		// Follow graph
		group.PUT("/users/:id/follow/:targetId", bearer, FollowHandler(d.Users))
		group.PUT("/users/:id/unfollow/:targetId", bearer, UnfollowHandler(d.Users))
		group.GET("/users/:id/followers", FollowersHandler(d.Users))
		group.GET("/users/:id/following", FollowingHandler(d.Users))

		// Comments
		group.POST("/comments", bearer, CreateCommentHandler(d.Comments))
		group.GET("/comments", ListCommentsHandler(d.Comments))
		group.GET("/comments/user/:userId", ListCommentsByUserHandler(d.Comments))
		group.GET("/comments/reference/:type/:refId", ListCommentsByReferenceHandler(d.Comments))
		group.GET("/comments/reference/:type/:refId/top-level", ListTopLevelCommentsHandler(d.Comments))
		group.GET("/comments/:id", GetCommentHandler(d.Comments))
		group.GET("/comments/:id/replies", ListRepliesHandler(d.Comments))
		group.PUT("/comments/:id", bearer, UpdateCommentHandler(d.Comments))
		group.PUT("/comments/:id/like", bearer, LikeCommentHandler(d.Comments))
		group.DELETE("/comments/:id", bearer, DeleteCommentHandler(d.Comments))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "Not found"}})
	})
	return r
}
