package api

import (
	"net/http"

	"agriapp/internal/auth"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type CreateUserRequest struct {
	RegisterRequest
	Role   string   `json:"role"`
	Badges []string `json:"badges"`
}

type UpdateUserRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
	profileFields
}

type pageQuery struct {
	Offset int `form:"offset" binding:"min=0"`
	Limit  int `form:"limit" binding:"min=0"`
}

// POST /users  [admin only]
func CreateUserHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		u, err := users.CreateUser(c.Request.Context(), user.CreateInput{
			RegisterInput: user.RegisterInput{
				Username: req.Username,
				Email:    req.Email,
				Password: req.Password,
				Profile:  req.toProfile(),
			},
			Role:   user.Role(req.Role),
			Badges: req.Badges,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, u)
	}
}

// GET /users?offset=&limit=
func ListUsersHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q pageQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			badRequest(c, "offset and limit must be non-negative integers")
			return
		}
		list, err := users.ListUsers(c.Request.Context(), user.Page{Offset: q.Offset, Limit: q.Limit})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func lookupHandler(find func(*gin.Context) (*user.User, bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, found, err := find(c)
		if err != nil {
			respondError(c, err)
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "User not found"}})
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// GET /users/:id
func GetUserByIdHandler(users *user.Service) gin.HandlerFunc {
	return lookupHandler(func(c *gin.Context) (*user.User, bool, error) {
		return users.GetUserByID(c.Request.Context(), c.Param("id"))
	})
}

// GET /users/username/:username
func GetUserByUsernameHandler(users *user.Service) gin.HandlerFunc {
	return lookupHandler(func(c *gin.Context) (*user.User, bool, error) {
		return users.GetUserByUsername(c.Request.Context(), c.Param("username"))
	})
}

// GET /users/email/:email
func GetUserByEmailHandler(users *user.Service) gin.HandlerFunc {
	return lookupHandler(func(c *gin.Context) (*user.User, bool, error) {
		return users.GetUserByEmail(c.Request.Context(), c.Param("email"))
	})
}

// PUT /users/:id  [self or admin; role changes admin only]
func UpdateUserByIdHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !auth.IsSelfOrAdmin(c, id) {
			forbidden(c)
			return
		}
		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		in := user.UpdateInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Profile:  req.toProfile(),
		}
		if req.Role != nil {
			if me, _ := auth.CurrentUser(c); me.Role != user.RoleAdmin {
				forbidden(c)
				return
			}
			role := user.Role(*req.Role)
			in.Role = &role
		}
		u, err := users.UpdateUser(c.Request.Context(), id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// DELETE /users/:id  [self or admin]
func DeleteUserByIdHandler(users *user.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !auth.IsSelfOrAdmin(c, id) {
			forbidden(c)
			return
		}
		if err := users.DeleteUser(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		if rdb != nil {
			_ = auth.MarkOffline(c.Request.Context(), rdb, id)
		}
		c.Status(http.StatusNoContent)
	}
}

// PUT /users/:id/badges/:badge  [admin only]
func AddBadgeHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.AddBadge(c.Request.Context(), c.Param("id"), c.Param("badge"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// DELETE /users/:id/badges/:badge  [admin only]
func RemoveBadgeHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.RemoveBadge(c.Request.Context(), c.Param("id"), c.Param("badge"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

func edgeHandler(apply func(c *gin.Context, followerID, targetID string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !auth.IsSelfOrAdmin(c, id) {
			forbidden(c)
			return
		}
		if err := apply(c, id, c.Param("targetId")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	}
}

// PUT /users/:id/follow/:targetId  [self or admin]
func FollowHandler(users *user.Service) gin.HandlerFunc {
	return edgeHandler(func(c *gin.Context, followerID, targetID string) error {
		return users.FollowUser(c.Request.Context(), followerID, targetID)
	})
}

// PUT /users/:id/unfollow/:targetId  [self or admin]
func UnfollowHandler(users *user.Service) gin.HandlerFunc {
	return edgeHandler(func(c *gin.Context, followerID, targetID string) error {
		return users.UnfollowUser(c.Request.Context(), followerID, targetID)
	})
}

// GET /users/:id/followers
func FollowersHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := users.Followers(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GET /users/:id/following
func FollowingHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := users.Following(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
