package api

import (
	"net/http"
	"time"

	"agriapp/internal/auth"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type profileFields struct {
	FullName       string `json:"fullName"`
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profilePicture"`
	Location       string `json:"location"`
}

func (p profileFields) toProfile() user.Profile {
	return user.Profile{
		FullName:       p.FullName,
		Bio:            p.Bio,
		ProfilePicture: p.ProfilePicture,
		Location:       p.Location,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	profileFields
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /users/register
func RegisterHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		res, err := users.Register(c.Request.Context(), user.RegisterInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Profile:  req.toProfile(),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// POST /users/login
func LoginHandler(users *user.Service, rdb *redis.Client, online time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		res, err := users.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		if rdb != nil {
			if err := auth.MarkOnline(c.Request.Context(), rdb, res.User.ID, online); err != nil {
				loggerFrom(c).Warn("mark online", "userId", res.User.ID, "error", err)
			}
		}
		c.JSON(http.StatusOK, res)
	}
}

// GET /users/me
func MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "Not authenticated"}})
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// OnlineUserCountHandler returns the number of users seen within the
// presence window. Without Redis nobody is reported online.
func OnlineUserCountHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusOK, gin.H{"online": 0})
			return
		}
		count, err := auth.OnlineUserCount(c.Request.Context(), rdb)
		if err != nil {
			loggerFrom(c).Error("count online users", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Failed to count online users"}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": count})
	}
}
