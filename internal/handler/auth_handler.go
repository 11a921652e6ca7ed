package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"unicode"

	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Константы для валидации
const (
	minUsernameLength = 3
	maxUsernameLength = 30
	minPasswordLength = 8
	maxPasswordLength = 100
)

// Допустимые символы в имени пользователя
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// AuthHandler handles HTTP requests related to authentication and accounts.
type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes вешает маршруты аутентификации и пользовательского профиля.
func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.AuthMiddleware(), h.logout)
		authGroup.POST("/refresh", h.refresh)
	}

	protected := router.Group("/api")
	protected.Use(h.AuthMiddleware())
	{
		protected.GET("/me", h.getMe)
	}
}

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid request data: " + err.Error()})
		return
	}

	if len(req.Username) < minUsernameLength || len(req.Username) > maxUsernameLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: fmt.Sprintf("Username length must be between %d and %d characters", minUsernameLength, maxUsernameLength)})
		return
	}
	if !usernameRegex.MatchString(req.Username) {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "Username can only contain letters, numbers, underscores, and hyphens"})
		return
	}

	if len(req.Password) < minPasswordLength || len(req.Password) > maxPasswordLength {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: fmt.Sprintf("Password length must be between %d and %d characters", minPasswordLength, maxPasswordLength)})
		return
	}
	var hasLetter, hasDigit bool
	for _, char := range req.Password {
		if unicode.IsLetter(char) {
			hasLetter = true
		}
		if unicode.IsDigit(char) {
			hasDigit = true
		}
		if hasLetter && hasDigit {
			break
		}
	}
	if !hasLetter || !hasDigit {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    models.ErrCodeBadRequest,
			Message: "Password must contain at least one letter and one digit"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	registrationsTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID.String(),
		"username": user.Username,
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	td, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  td.AccessToken,
		RefreshToken: td.RefreshToken,
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)
	accessUUID := c.GetString(ctxKeyAccessUUID)

	if err := h.authService.Logout(c.Request.Context(), userID, accessUUID, req.RefreshToken); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
			Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	td, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  td.AccessToken,
		RefreshToken: td.RefreshToken,
	})
}

func (h *AuthHandler) getMe(c *gin.Context) {
	userID := c.MustGet(ctxKeyUserID).(uuid.UUID)

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{
		ID:         user.ID.String(),
		Username:   user.Username,
		Roles:      user.Roles,
		IsBanned:   user.IsBanned,
		Categories: user.Categories,
	})
}
