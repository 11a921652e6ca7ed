package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	"skazka-server/internal/config"
	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService управляет учетными записями и сессиями.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.TokenDetails, error)
	Logout(ctx context.Context, userID uuid.UUID, accessUUID, refreshTokenString string) error
	Refresh(ctx context.Context, refreshTokenString string) (*models.TokenDetails, error)
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)
	ValidateAndGetClaims(ctx context.Context, tokenString string) (*models.Claims, error)

	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, cursor string, limit int) ([]*models.User, string, error)
	BanUser(ctx context.Context, userID uuid.UUID) error
	UnbanUser(ctx context.Context, userID uuid.UUID) error
	UpdateRoles(ctx context.Context, userID uuid.UUID, roles []string) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Compile-time check
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	db        *pgxpool.Pool
	userRepo  interfaces.UserRepository
	tokenRepo interfaces.TokenRepository
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(
	db *pgxpool.Pool,
	userRepo interfaces.UserRepository,
	tokenRepo interfaces.TokenRepository,
	cfg *config.Config,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		db:        db,
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		logger:    logger.Named("AuthService"),
	}
}

// Register creates a new user.
// Уникальность имени обеспечивается ограничением БД, а не предварительной
// проверкой, поэтому параллельные регистрации не создадут дубликатов.
func (s *authServiceImpl) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	logFields := []zap.Field{zap.String("username", username)}
	s.logger.Info("Registering new user", logFields...)

	if username == "" || password == "" {
		s.logger.Warn("Registration attempt with empty username or password", logFields...)
		return nil, models.ErrInvalidCredentials
	}

	// Используем перец перед хешированием
	hashedPassword, err := hashPassword(password, s.cfg.PasswordPepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hashedPassword,
		Roles:        []string{models.RoleUser},
	}

	if err := s.userRepo.CreateUser(ctx, s.db, user); err != nil {
		if errors.Is(err, models.ErrUserAlreadyExists) {
			s.logger.Warn("Registration attempt for existing username", logFields...)
			return nil, models.ErrUserAlreadyExists
		}
		s.logger.Error("Failed to create user via repository", append(logFields, zap.Error(err))...)
		return nil, err
	}

	s.logger.Info("User registered successfully",
		zap.String("userID", user.ID.String()), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user and returns token details.
func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*models.TokenDetails, error) {
	s.logger.Info("Login attempt", zap.String("username", username))
	user, err := s.userRepo.GetUserByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			s.logger.Warn("Login failed: user not found", zap.String("username", username))
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("Login failed: error getting user from repository", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Используем перец при проверке
	if !checkPasswordHash(password, user.PasswordHash, s.cfg.PasswordPepper) {
		s.logger.Warn("Login failed: invalid password",
			zap.String("username", username), zap.String("userID", user.ID.String()))
		return nil, models.ErrInvalidCredentials
	}

	if user.IsBanned {
		s.logger.Warn("Login failed: user is banned",
			zap.String("username", username), zap.String("userID", user.ID.String()))
		// Возвращаем стандартную ошибку, чтобы не раскрывать причину
		return nil, models.ErrInvalidCredentials
	}

	td, err := s.createTokens(user)
	if err != nil {
		s.logger.Error("Failed to create tokens during login", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to create tokens: %w", err)
	}

	if err := s.tokenRepo.SetToken(ctx, user.ID, td); err != nil {
		s.logger.Error("Failed to save token details during login", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to save token details: %w", err)
	}

	s.logger.Info("User logged in successfully", zap.String("userID", user.ID.String()))
	return td, nil
}

// Logout removes the access and refresh tokens from the store.
// refreshTokenString может быть пустым или невалидным, тогда отзывается
// только access-токен.
func (s *authServiceImpl) Logout(ctx context.Context, userID uuid.UUID, accessUUID, refreshTokenString string) error {
	refreshUUID := ""
	if refreshTokenString != "" {
		if claims, err := s.parseClaims(refreshTokenString); err == nil && claims.UserID == userID {
			refreshUUID = claims.ID
		}
	}

	log := s.logger.With(
		zap.String("userID", userID.String()),
		zap.String("accessUUID", accessUUID),
		zap.String("refreshUUID", refreshUUID))
	log.Debug("Attempting to logout user by deleting tokens")

	deletedCount, err := s.tokenRepo.DeleteTokens(ctx, userID, accessUUID, refreshUUID)
	if err != nil {
		// Токены могли уже истечь, клиенту это не важно
		log.Error("Failed to delete tokens during logout", zap.Error(err))
	}

	if deletedCount > 0 {
		log.Info("Tokens deleted successfully during logout", zap.Int64("deletedCount", deletedCount))
	} else {
		log.Info("No tokens found to delete during logout (already expired or logged out)")
	}

	return nil // Успех, даже если токены уже были удалены
}

// Refresh issues new access and refresh tokens based on a valid refresh token.
// Старый refresh-токен отзывается (ротация).
func (s *authServiceImpl) Refresh(ctx context.Context, refreshTokenString string) (*models.TokenDetails, error) {
	s.logger.Info("Token refresh attempt") // Не логируем сам токен
	claims, err := s.parseClaims(refreshTokenString)
	if err != nil {
		return nil, err
	}

	refreshUUID := claims.ID
	s.logger.Debug("Refresh token parsed successfully",
		zap.String("userID", claims.UserID.String()), zap.String("refreshUUID", refreshUUID))

	userID, err := s.tokenRepo.GetUserIDByRefreshUUID(ctx, refreshUUID)
	if err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Warn("Refresh attempt with invalid/revoked token in store", zap.String("refreshUUID", refreshUUID))
			return nil, models.ErrTokenNotFound
		}
		s.logger.Error("Error checking refresh token existence", zap.Error(err), zap.String("refreshUUID", refreshUUID))
		return nil, fmt.Errorf("error checking refresh token existence: %w", err)
	}

	if userID != claims.UserID {
		s.logger.Error("Refresh token user ID mismatch",
			zap.String("tokenUserID", claims.UserID.String()),
			zap.String("repoUserID", userID.String()),
			zap.String("refreshUUID", refreshUUID))
		return nil, models.ErrTokenInvalid
	}

	user, err := s.userRepo.GetUserByID(ctx, s.db, userID)
	if err != nil {
		s.logger.Error("Failed to get user during token refresh", zap.Error(err), zap.String("userID", userID.String()))
		return nil, models.ErrTokenInvalid
	}
	if user.IsBanned {
		s.logger.Warn("Refresh denied: user is banned", zap.String("userID", userID.String()))
		return nil, models.ErrTokenInvalid
	}

	newTd, err := s.createTokens(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create new tokens during refresh: %w", err)
	}

	// Отзываем старый refresh-токен
	if _, delErr := s.tokenRepo.DeleteTokens(ctx, userID, "", refreshUUID); delErr != nil {
		s.logger.Error("Non-critical: Failed to delete old refresh token during refresh process",
			zap.Error(delErr), zap.String("refreshUUID", refreshUUID))
	}

	if err := s.tokenRepo.SetToken(ctx, userID, newTd); err != nil {
		s.logger.Error("Failed to save new token details during refresh", zap.Error(err), zap.String("userID", userID.String()))
		return nil, fmt.Errorf("failed to save new token details: %w", err)
	}

	s.logger.Info("Token refreshed successfully", zap.String("userID", userID.String()))
	return newTd, nil
}

// VerifyAccessToken parses and validates an access token string.
func (s *authServiceImpl) VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error) {
	s.logger.Debug("Verifying access token") // Не логируем сам токен
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	accessUUID := claims.ID
	if _, err := s.tokenRepo.GetUserIDByAccessUUID(ctx, accessUUID); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			s.logger.Debug("Access token not found in store (revoked/logged out)", zap.String("accessUUID", accessUUID))
			return nil, models.ErrTokenInvalid
		}
		s.logger.Error("Error checking access token existence", zap.Error(err), zap.String("accessUUID", accessUUID))
		return nil, fmt.Errorf("error checking access token existence: %w", err)
	}

	s.logger.Debug("Access token verified successfully against store",
		zap.String("userID", claims.UserID.String()), zap.String("accessUUID", accessUUID))
	return claims, nil
}

// ValidateAndGetClaims проверяет токен и статус пользователя.
// Используется middleware на каждой привилегированной операции.
func (s *authServiceImpl) ValidateAndGetClaims(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.VerifyAccessToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String("userID", claims.UserID.String()))
	user, err := s.userRepo.GetUserByID(ctx, s.db, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Пользователь из токена не найден в БД - токен невалиден
			log.Warn("User from valid token not found in DB")
			return nil, models.ErrTokenInvalid
		}
		log.Error("Failed to get user by ID during token validation", zap.Error(err))
		return nil, fmt.Errorf("failed to get user for validation: %w", err)
	}

	if user.IsBanned {
		log.Warn("Token validation failed: user is banned")
		return nil, models.ErrTokenInvalid
	}

	// Роли берем из БД, а не из токена: понижение прав действует сразу
	claims.Roles = user.Roles
	return claims, nil
}

// GetUser возвращает пользователя по ID.
func (s *authServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("Failed to get user", zap.String("userID", userID.String()), zap.Error(err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей для админки.
func (s *authServiceImpl) ListUsers(ctx context.Context, cursor string, limit int) ([]*models.User, string, error) {
	users, nextCursor, err := s.userRepo.ListUsers(ctx, s.db, cursor, limit)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, "", models.ErrInvalidCursor
		}
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, "", models.ErrInternalServer
	}
	return users, nextCursor, nil
}

// BanUser sets the user's status to banned and revokes every session.
func (s *authServiceImpl) BanUser(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Attempting to ban user")

	if err := s.userRepo.SetUserBanStatus(ctx, s.db, userID, true); err != nil {
		log.Error("Failed to set user ban status", zap.Error(err), zap.Bool("isBanned", true))
		return err
	}
	log.Info("User banned successfully")

	// Бан действует немедленно: все сессии пользователя отзываются
	deletedCount, delErr := s.tokenRepo.DeleteAllUserTokens(ctx, userID)
	if delErr != nil {
		log.Error("Failed to delete user tokens after ban", zap.Error(delErr))
	} else {
		log.Info("Deleted user tokens after ban", zap.Int64("deletedCount", deletedCount))
	}

	return nil
}

// UnbanUser sets the user's status to not banned.
func (s *authServiceImpl) UnbanUser(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Attempting to unban user")
	if err := s.userRepo.SetUserBanStatus(ctx, s.db, userID, false); err != nil {
		log.Error("Failed to set user ban status", zap.Error(err), zap.Bool("isBanned", false))
		return err
	}
	log.Info("User unbanned successfully")
	return nil
}

// UpdateRoles заменяет роли пользователя.
func (s *authServiceImpl) UpdateRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	log := s.logger.With(zap.String("userID", userID.String()), zap.Strings("roles", roles))

	for _, role := range roles {
		if !models.IsKnownRole(role) {
			log.Warn("Attempt to assign unknown role", zap.String("role", role))
			return models.ErrInvalidInput
		}
	}

	if err := s.userRepo.UpdateRoles(ctx, s.db, userID, roles); err != nil {
		log.Error("Failed to update user roles", zap.Error(err))
		return err
	}
	log.Info("User roles updated")
	return nil
}

// DeleteUser удаляет пользователя и отзывает его сессии.
// Истории и лайки удаляются каскадно на уровне БД.
func (s *authServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	log := s.logger.With(zap.String("userID", userID.String()))
	log.Info("Attempting to delete user")

	if err := s.userRepo.DeleteUser(ctx, s.db, userID); err != nil {
		log.Error("Failed to delete user", zap.Error(err))
		return err
	}

	if _, delErr := s.tokenRepo.DeleteAllUserTokens(ctx, userID); delErr != nil {
		log.Error("Failed to delete user tokens after account deletion", zap.Error(delErr))
	}

	log.Info("User deleted")
	return nil
}

// --- Helper Functions ---

// applyPepper applies HMAC-SHA256 using the pepper as the key.
func applyPepper(password, pepper string) []byte {
	h := hmac.New(sha256.New, []byte(pepper))
	h.Write([]byte(password))
	return h.Sum(nil)
}

// hashPassword generates a bcrypt hash of the password after applying the pepper.
func hashPassword(password, pepper string) (string, error) {
	pepperedPassword := applyPepper(password, pepper)
	// bcrypt сам добавит свою соль
	bytes, err := bcrypt.GenerateFromPassword(pepperedPassword, bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plain text password (after applying pepper) with a stored hash.
func checkPasswordHash(password, hash, pepper string) bool {
	pepperedPassword := applyPepper(password, pepper)
	err := bcrypt.CompareHashAndPassword([]byte(hash), pepperedPassword)
	return err == nil
}

// parseClaims разбирает и проверяет подпись и срок действия JWT.
func (s *authServiceImpl) parseClaims(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.logger.Debug("Token verification failed: expired")
			return nil, models.ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			s.logger.Warn("Token verification failed: malformed")
			return nil, models.ErrTokenMalformed
		}
		s.logger.Error("Failed to parse token", zap.Error(err))
		return nil, models.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		s.logger.Warn("Token verification failed (invalid claims type or signature)")
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// createTokens generates new access and refresh tokens for a user.
func (s *authServiceImpl) createTokens(user *models.User) (*models.TokenDetails, error) {
	s.logger.Debug("Creating new token pair", zap.String("userID", user.ID.String()))

	td := &models.TokenDetails{}
	td.AtExpires = time.Now().Add(s.cfg.AccessTokenTTL).Unix()
	td.AccessUUID = uuid.New().String()

	td.RtExpires = time.Now().Add(s.cfg.RefreshTokenTTL).Unix()
	td.RefreshUUID = uuid.New().String()

	signOne := func(tokenUUID string, expires int64) (string, error) {
		claims := &models.Claims{
			UserID:   user.ID,
			Username: user.Username,
			Roles:    user.Roles,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        tokenUUID,
				ExpiresAt: jwt.NewNumericDate(time.Unix(expires, 0)),
				Subject:   user.ID.String(),
				Issuer:    "skazka-server",
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		return token.SignedString([]byte(s.cfg.JWTSecret))
	}

	var err error
	if td.AccessToken, err = signOne(td.AccessUUID, td.AtExpires); err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	if td.RefreshToken, err = signOne(td.RefreshUUID, td.RtExpires); err != nil {
		s.logger.Error("Failed to sign refresh token", zap.Error(err), zap.String("userID", user.ID.String()))
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return td, nil
}
