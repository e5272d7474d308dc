package api

import (
	"errors"
	"net/http"

	"agriapp/internal/apperr"
	"agriapp/internal/auth"
	"agriapp/internal/comment"
	"agriapp/internal/user"

	"github.com/gin-gonic/gin"
)

type CreateCommentRequest struct {
	ReferenceType   string `json:"referenceType" binding:"required"`
	ReferenceID     string `json:"referenceId" binding:"required"`
	ParentCommentID string `json:"parentCommentId"`
	Content         string `json:"content" binding:"required"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func writeComments(c *gin.Context, list []comment.Comment, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// POST /comments  [author is the caller]
func CreateCommentHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "referenceType, referenceId and content are required")
			return
		}
		me, _ := auth.CurrentUser(c)
		cm, err := comments.Create(c.Request.Context(), comment.CreateInput{
			UserID:          me.ID,
			ReferenceType:   req.ReferenceType,
			ReferenceID:     req.ReferenceID,
			ParentCommentID: req.ParentCommentID,
			Content:         req.Content,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, cm)
	}
}

// GET /comments
func ListCommentsHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := comments.List(c.Request.Context())
		writeComments(c, list, err)
	}
}

// GET /comments/:id
func GetCommentHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cm, err := comments.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cm)
	}
}

// GET /comments/user/:userId
func ListCommentsByUserHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := comments.ListByUser(c.Request.Context(), c.Param("userId"))
		writeComments(c, list, err)
	}
}

// GET /comments/reference/:type/:refId
func ListCommentsByReferenceHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := comments.ListByReference(c.Request.Context(), c.Param("type"), c.Param("refId"))
		writeComments(c, list, err)
	}
}

// GET /comments/reference/:type/:refId/top-level
func ListTopLevelCommentsHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := comments.ListTopLevel(c.Request.Context(), c.Param("type"), c.Param("refId"))
		writeComments(c, list, err)
	}
}

// GET /comments/:id/replies
func ListRepliesHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := comments.ListReplies(c.Request.Context(), c.Param("id"))
		writeComments(c, list, err)
	}
}

// mayModify reports whether the caller is the comment's author or an admin,
// answering 403 itself when not.
func mayModify(c *gin.Context, cm *comment.Comment) bool {
	me, ok := auth.CurrentUser(c)
	if !ok || (me.ID != cm.UserID && me.Role != user.RoleAdmin) {
		forbidden(c)
		return false
	}
	return true
}

// PUT /comments/:id  [author or admin]
func UpdateCommentHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "content is required")
			return
		}
		cm, err := comments.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if !mayModify(c, cm) {
			return
		}
		cm, err = comments.Update(c.Request.Context(), cm.ID, req.Content)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cm)
	}
}

// DELETE /comments/:id  [author or admin]
func DeleteCommentHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cm, err := comments.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, apperr.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		if !mayModify(c, cm) {
			return
		}
		if err := comments.Delete(c.Request.Context(), cm.ID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// PUT /comments/:id/like
func LikeCommentHandler(comments *comment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cm, err := comments.Like(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cm)
	}
}
