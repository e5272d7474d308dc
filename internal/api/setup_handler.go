package api

import (
	"net/http"

	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
)

// GET /setup
func SetupStatusHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		need, err := users.NeedsSetup(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"need_setup": need})
	}
}

// POST /setup  [only while no users exist]
func SetupHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		res, err := users.Setup(c.Request.Context(), user.RegisterInput{
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
