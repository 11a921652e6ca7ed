package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

type redisTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisTokenRepository creates a new Redis-backed TokenRepository.
func NewRedisTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{
		client: client,
		logger: logger.Named("RedisTokenRepo"),
	}
}

// SetToken stores token details in Redis.
// Два key-value на каждую пару токенов:
// 1. access_uuid:{AccessUUID} -> UserID (TTL access-токена)
// 2. refresh_uuid:{RefreshUUID} -> UserID (TTL refresh-токена)
// Плюс идентификаторы в множестве пользователя:
// user_tokens:{UserID} -> { "access:{AccessUUID}", "refresh:{RefreshUUID}" }
func (r *redisTokenRepository) SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error {
	at := time.Unix(td.AtExpires, 0)
	rt := time.Unix(td.RtExpires, 0)
	now := time.Now()

	accessKey := fmt.Sprintf("access_uuid:%s", td.AccessUUID)
	refreshKey := fmt.Sprintf("refresh_uuid:%s", td.RefreshUUID)
	userIDStr := userID.String()
	userSetKey := fmt.Sprintf("user_tokens:%s", userIDStr)

	accessTTL := at.Sub(now)
	refreshTTL := rt.Sub(now)

	accessIdentifier := fmt.Sprintf("access:%s", td.AccessUUID)
	refreshIdentifier := fmt.Sprintf("refresh:%s", td.RefreshUUID)

	pipe := r.client.Pipeline()
	pipe.Set(ctx, accessKey, userIDStr, accessTTL)
	pipe.Set(ctx, refreshKey, userIDStr, refreshTTL)
	pipe.SAdd(ctx, userSetKey, accessIdentifier, refreshIdentifier)

	r.logger.Debug("Setting tokens in Redis and adding to user set",
		zap.String("userID", userIDStr),
		zap.String("accessUUID", td.AccessUUID),
		zap.String("refreshUUID", td.RefreshUUID),
		zap.Duration("accessTTL", accessTTL),
		zap.Duration("refreshTTL", refreshTTL),
	)

	_, err := pipe.Exec(ctx)
	if err != nil {
		r.logger.Error("Failed to set token details in redis", zap.Error(err), zap.String("userID", userIDStr))
		return fmt.Errorf("failed to set token details in redis: %w", err)
	}
	return nil
}

// DeleteTokens removes tokens from Redis by their UUIDs and drops them from the user's set.
func (r *redisTokenRepository) DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error) {
	keysToDelete := []string{}
	identifiersToRemove := []interface{}{}
	logFields := []zap.Field{zap.String("userID", userID.String())}
	userSetKey := fmt.Sprintf("user_tokens:%s", userID.String())

	if accessUUID != "" {
		keysToDelete = append(keysToDelete, fmt.Sprintf("access_uuid:%s", accessUUID))
		identifiersToRemove = append(identifiersToRemove, fmt.Sprintf("access:%s", accessUUID))
		logFields = append(logFields, zap.String("accessUUID", accessUUID))
	}
	if refreshUUID != "" {
		keysToDelete = append(keysToDelete, fmt.Sprintf("refresh_uuid:%s", refreshUUID))
		identifiersToRemove = append(identifiersToRemove, fmt.Sprintf("refresh:%s", refreshUUID))
		logFields = append(logFields, zap.String("refreshUUID", refreshUUID))
	}

	if len(keysToDelete) == 0 {
		r.logger.Warn("DeleteTokens called with no UUIDs")
		return 0, nil
	}

	r.logger.Debug("Deleting tokens from Redis and removing from set", logFields...)

	pipe := r.client.Pipeline()
	delCmd := pipe.Del(ctx, keysToDelete...)
	pipe.SRem(ctx, userSetKey, identifiersToRemove...)

	_, err := pipe.Exec(ctx)
	if err != nil {
		logFields = append(logFields, zap.Error(err))
		r.logger.Error("Failed to execute pipeline for deleting tokens", logFields...)
		return 0, fmt.Errorf("failed to delete tokens/remove from set: %w", err)
	}

	deletedCount, _ := delCmd.Result()

	logFields = append(logFields, zap.Int64("deletedCount", deletedCount))
	r.logger.Info("Tokens deleted from Redis and removed from set", logFields...)
	return deletedCount, nil
}

// GetUserIDByAccessUUID retrieves the UserID associated with an AccessUUID.
func (r *redisTokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error) {
	return r.getUserIDByKey(ctx, fmt.Sprintf("access_uuid:%s", accessUUID))
}

// GetUserIDByRefreshUUID retrieves the UserID associated with a RefreshUUID.
func (r *redisTokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error) {
	return r.getUserIDByKey(ctx, fmt.Sprintf("refresh_uuid:%s", refreshUUID))
}

func (r *redisTokenRepository) getUserIDByKey(ctx context.Context, key string) (uuid.UUID, error) {
	r.logger.Debug("Getting token from Redis", zap.String("key", key))
	userIDStr, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			r.logger.Debug("Token not found in Redis", zap.String("key", key))
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token from redis", zap.Error(err), zap.String("key", key))
		return uuid.Nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		// Данные в Redis повреждены
		r.logger.Error("Failed to parse userID (UUID) from redis data",
			zap.Error(err),
			zap.String("key", key),
			zap.String("value", userIDStr),
		)
		return uuid.Nil, fmt.Errorf("corrupted userID data in redis for key %s: %w", key, err)
	}
	return userID, nil
}

// DeleteAllUserTokens removes all tokens associated with a user ID using the user-specific set.
// Используется при бане и удалении пользователя.
func (r *redisTokenRepository) DeleteAllUserTokens(ctx context.Context, userID uuid.UUID) (int64, error) {
	log := r.logger.With(zap.String("userID", userID.String()))
	log.Info("Attempting to delete all tokens for user using Set")

	userIDStr := userID.String()
	userSetKey := fmt.Sprintf("user_tokens:%s", userIDStr)

	tokenIdentifiers, err := r.client.SMembers(ctx, userSetKey).Result()
	if err != nil {
		if err == redis.Nil {
			log.Info("No token set found for user, nothing to delete.")
			return 0, nil
		}
		log.Error("Failed to get token identifiers from user set", zap.Error(err))
		return 0, fmt.Errorf("failed to retrieve token identifiers for user %s: %w", userIDStr, err)
	}

	if len(tokenIdentifiers) == 0 {
		log.Info("Token set for user is empty, nothing to delete.")
		r.client.Del(ctx, userSetKey)
		return 0, nil
	}

	keysToDelete := make([]string, 0, len(tokenIdentifiers))
	for _, identifier := range tokenIdentifiers {
		parts := strings.SplitN(identifier, ":", 2)
		if len(parts) != 2 {
			log.Warn("Malformed token identifier found in user set", zap.String("identifier", identifier))
			continue
		}
		switch parts[0] {
		case "access":
			keysToDelete = append(keysToDelete, fmt.Sprintf("access_uuid:%s", parts[1]))
		case "refresh":
			keysToDelete = append(keysToDelete, fmt.Sprintf("refresh_uuid:%s", parts[1]))
		default:
			log.Warn("Unknown token type found in user set identifier", zap.String("identifier", identifier))
		}
	}

	pipe := r.client.Pipeline()
	var delCmd *redis.IntCmd
	if len(keysToDelete) > 0 {
		delCmd = pipe.Del(ctx, keysToDelete...)
	}
	pipe.Del(ctx, userSetKey)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("Failed to execute pipeline for deleting tokens and set", zap.Error(err))
		return 0, fmt.Errorf("failed to delete tokens and set for user %s: %w", userIDStr, err)
	}

	var totalDeleted int64
	if delCmd != nil {
		totalDeleted, _ = delCmd.Result()
	}

	log.Info("Deleted tokens for user using Set",
		zap.Int64("deletedTokenKeys", totalDeleted),
		zap.Int("tokenIdentifiersFound", len(tokenIdentifiers)))
	return totalDeleted, nil
}
