package handler

import (
	"net/http"

	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles moderation and user management endpoints.
// Все маршруты защищены серверной проверкой роли администратора.
type AdminHandler struct {
	storyService service.StoryService
	authService  service.AuthService
	auth         *AuthHandler
}

func NewAdminHandler(storyService service.StoryService, authService service.AuthService, auth *AuthHandler) *AdminHandler {
	return &AdminHandler{
		storyService: storyService,
		authService:  authService,
		auth:         auth,
	}
}

// RegisterRoutes вешает админские маршруты.
func (h *AdminHandler) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/admin", h.auth.AuthMiddleware(), h.auth.AdminMiddleware())
	{
		admin.GET("/stories/pending", h.listPending)
		admin.POST("/stories/:story_id/approve", h.approve)
		admin.POST("/stories/:story_id/reject", h.reject)
		admin.POST("/stories/:story_id/feature", h.toggleFeatured)

		admin.GET("/users", h.listUsers)
		admin.GET("/users/:user_id", h.getUser)
		admin.POST("/users/:user_id/ban", h.banUser)
		admin.DELETE("/users/:user_id/ban", h.unbanUser)
		admin.PUT("/users/:user_id/roles", h.updateRoles)
		admin.DELETE("/users/:user_id", h.deleteUser)
	}
}

func userIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid user ID"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *AdminHandler) listPending(c *gin.Context) {
	stories, nextCursor, err := h.storyService.ListPending(c.Request.Context(), c.Query("cursor"), intQuery(c, "limit"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	// Модераторам нужен полный текст, очередь отдается с контентом
	out := make([]storyResponse, 0, len(stories))
	for _, s := range stories {
		out = append(out, toStoryResponse(s, true))
	}
	c.JSON(http.StatusOK, storyListResponse{Stories: out, NextCursor: nextCursor})
}

func (h *AdminHandler) approve(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	story, err := h.storyService.Approve(c.Request.Context(), storyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	moderationDecisionsTotal.WithLabelValues("approve").Inc()
	c.JSON(http.StatusOK, toStoryResponse(story, false))
}

func (h *AdminHandler) reject(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	if err := h.storyService.Reject(c.Request.Context(), storyID); err != nil {
		handleServiceError(c, err)
		return
	}

	moderationDecisionsTotal.WithLabelValues("reject").Inc()
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) toggleFeatured(c *gin.Context) {
	storyID, ok := storyIDParam(c)
	if !ok {
		return
	}

	story, err := h.storyService.ToggleFeatured(c.Request.Context(), storyID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toStoryResponse(story, false))
}

func (h *AdminHandler) listUsers(c *gin.Context) {
	users, nextCursor, err := h.authService.ListUsers(c.Request.Context(), c.Query("cursor"), intQuery(c, "limit"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, userListResponse{Users: out, NextCursor: nextCursor})
}

func (h *AdminHandler) getUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *AdminHandler) banUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.authService.BanUser(c.Request.Context(), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) unbanUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.authService.UnbanUser(c.Request.Context(), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) updateRoles(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req updateRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if err := h.authService.UpdateRoles(c.Request.Context(), userID, req.Roles); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) deleteUser(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.authService.DeleteUser(c.Request.Context(), userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
