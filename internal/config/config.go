package config

import (
	"fmt"
	"log"
	"time"

	"skazka-server/internal/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервера историй.
type Config struct {
	// Настройки сервера
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	GinMode         string        `envconfig:"GIN_MODE" default:"release"`
	AllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки Redis
	RedisAddr     string        `envconfig:"REDIS_ADDR" required:"true"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	FeedCacheTTL  time.Duration `envconfig:"FEED_CACHE_TTL" default:"1m"`

	// Настройки RabbitMQ (опционально: пустой URL отключает публикацию событий модерации)
	RabbitMQURL          string `envconfig:"RABBITMQ_URL"`
	ModerationEventQueue string `envconfig:"MODERATION_EVENT_QUEUE" default:"moderation_events"`

	// Настройки JWT
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	// Секретные поля БЕЗ envconfig тега
	JWTSecret      string
	PasswordPepper string

	// Настройки Firebase Storage (опционально: пустой bucket отключает медиа-вложения)
	StorageBucket          string        `envconfig:"STORAGE_BUCKET"`
	StorageCredentialsPath string        `envconfig:"STORAGE_CREDENTIALS_PATH"`
	UploadTimeout          time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"30s"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.PasswordPepper, loadErr = utils.ReadSecret("password_pepper")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("Конфигурация загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	if cfg.RabbitMQURL != "" {
		log.Printf("  RabbitMQ queue: %s", cfg.ModerationEventQueue)
	} else {
		log.Printf("  RabbitMQ: отключен")
	}
	if cfg.StorageBucket != "" {
		log.Printf("  Storage bucket: %s", cfg.StorageBucket)
	} else {
		log.Printf("  Storage: отключен (медиа-вложения недоступны)")
	}
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
