package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Config содержит настройки blob-хранилища.
type Config struct {
	Bucket          string
	CredentialsPath string
}

type firebaseBlobStore struct {
	bucket *gcs.BucketHandle
	name   string
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.BlobStore = (*firebaseBlobStore)(nil)

// NewFirebaseBlobStore создает хранилище поверх Firebase Storage.
// Требует путь к файлу ключа сервис-аккаунта. Если bucket не указан,
// хранилище не создается (сервис работает без вложений).
func NewFirebaseBlobStore(ctx context.Context, cfg Config, logger *zap.Logger) (interfaces.BlobStore, error) {
	if cfg.Bucket == "" {
		logger.Warn("Storage bucket не указан, загрузка вложений будет отключена.")
		return nil, nil
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: cfg.Bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Firebase App: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения Storage client: %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения bucket %q: %w", cfg.Bucket, err)
	}

	logger.Info("Firebase blob store инициализирован", zap.String("bucket", cfg.Bucket))
	return &firebaseBlobStore{
		bucket: bucket,
		name:   cfg.Bucket,
		logger: logger.Named("FirebaseBlobStore"),
	}, nil
}

// Upload записывает объект и возвращает публичный download-URL.
func (s *firebaseBlobStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	logFields := []zap.Field{zap.String("objectPath", objectPath)}
	s.logger.Debug("Uploading blob", logFields...)

	token := uuid.New().String()

	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	// Токен в метаданных делает объект доступным по download-URL
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		s.logger.Error("Failed to write blob", append(logFields, zap.Error(err))...)
		return "", fmt.Errorf("ошибка записи объекта %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error("Failed to finalize blob upload", append(logFields, zap.Error(err))...)
		return "", fmt.Errorf("ошибка завершения загрузки %s: %w", objectPath, err)
	}

	downloadURL := fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.name, url.PathEscape(objectPath), token,
	)
	s.logger.Info("Blob uploaded", append(logFields, zap.String("url", downloadURL))...)
	return downloadURL, nil
}

// DeleteByURL удаляет объект по его download-URL.
func (s *firebaseBlobStore) DeleteByURL(ctx context.Context, rawURL string) error {
	objectPath, err := ObjectPathFromURL(rawURL)
	if err != nil {
		s.logger.Warn("Cannot resolve object path from URL", zap.String("url", rawURL), zap.Error(err))
		return err
	}

	if err := s.bucket.Object(objectPath).Delete(ctx); err != nil {
		if err == gcs.ErrObjectNotExist {
			s.logger.Debug("Blob already absent", zap.String("objectPath", objectPath))
			return nil
		}
		s.logger.Error("Failed to delete blob", zap.String("objectPath", objectPath), zap.Error(err))
		return fmt.Errorf("ошибка удаления объекта %s: %w", objectPath, err)
	}

	s.logger.Info("Blob deleted", zap.String("objectPath", objectPath))
	return nil
}

// ObjectPathFromURL извлекает путь объекта из download-URL хранилища.
// Путь закодирован в сегменте после "/o/".
func ObjectPathFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("некорректный URL вложения: %w", err)
	}

	const marker = "/o/"
	idx := strings.Index(parsed.Path, marker)
	if idx < 0 {
		return "", models.ErrInvalidInput
	}
	encoded := parsed.Path[idx+len(marker):]
	if encoded == "" {
		return "", models.ErrInvalidInput
	}

	objectPath, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fmt.Errorf("некорректный путь объекта в URL: %w", err)
	}
	return objectPath, nil
}
