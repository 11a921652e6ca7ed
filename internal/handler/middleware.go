package handler

import (
	"strings"
	"time"

	"skazka-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Ключи контекста gin.
const (
	ctxKeyUserID     = "user_id"
	ctxKeyUsername   = "username"
	ctxKeyRoles      = "roles"
	ctxKeyAccessUUID = "access_uuid"
)

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware проверяет access-токен и кладет claims в контекст.
// Токен сверяется с хранилищем сессий и статусом пользователя на каждом запросе.
func (h *AuthHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			zap.L().Warn("Authorization header missing or malformed")
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		claims, err := h.authService.ValidateAndGetClaims(c.Request.Context(), tokenString)
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("failure").Inc()
			handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("success").Inc()
		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyUsername, claims.Username)
		c.Set(ctxKeyRoles, claims.Roles)
		c.Set(ctxKeyAccessUUID, claims.ID)
		c.Next()
	}
}

// OptionalAuthMiddleware как AuthMiddleware, но анонимный запрос проходит дальше.
// Используется на публичных выдачах, где залогиненный читатель видит свои лайки.
func (h *AuthHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := h.authService.ValidateAndGetClaims(c.Request.Context(), tokenString)
		if err != nil {
			// Невалидный токен на публичном маршруте игнорируем
			c.Next()
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyUsername, claims.Username)
		c.Set(ctxKeyRoles, claims.Roles)
		c.Set(ctxKeyAccessUUID, claims.ID)
		c.Next()
	}
}

// AdminMiddleware пропускает только пользователей с ролью администратора.
// Ставится после AuthMiddleware.
func (h *AuthHandler) AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, ok := c.Get(ctxKeyRoles)
		if !ok {
			handleServiceError(c, models.ErrUnauthorized)
			return
		}
		roleList, ok := roles.([]string)
		if !ok || !models.HasRole(roleList, models.RoleAdmin) {
			zap.L().Warn("Admin access denied", zap.Any("roles", roles))
			handleServiceError(c, models.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequestLoggerMiddleware пишет структурированный лог на каждый запрос.
func RequestLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("clientIP", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("Request completed", fields...)
		case c.Writer.Status() >= 400:
			log.Warn("Request completed", fields...)
		default:
			log.Info("Request completed", fields...)
		}
	}
}

