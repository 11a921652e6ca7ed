package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"
)

// rabbitMQModerationPublisher публикует события модерации в очередь RabbitMQ.
type rabbitMQModerationPublisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// Compile-time check
var _ interfaces.ModerationPublisher = (*rabbitMQModerationPublisher)(nil)

// NewRabbitMQModerationPublisher создает новый экземпляр паблишера.
func NewRabbitMQModerationPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*rabbitMQModerationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("moderation publisher: не удалось открыть канал: %w", err)
	}

	// Объявляем очередь здесь, чтобы убедиться, что она существует.
	// Параметры должны совпадать с консьюмером (durable=true).
	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("moderation publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}

	logger.Info("RabbitMQModerationPublisher инициализирован", zap.String("queue", queueName))
	return &rabbitMQModerationPublisher{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("moderation_publisher"),
	}, nil
}

// PublishModerationEvent отправляет событие в очередь.
func (p *rabbitMQModerationPublisher) PublishModerationEvent(ctx context.Context, event models.ModerationEvent) error {
	if p.channel == nil {
		p.logger.Error("Канал RabbitMQ не инициализирован (nil)")
		return errors.New("канал RabbitMQ не инициализирован")
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Ошибка маршалинга ModerationEvent",
			zap.String("storyID", event.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("ошибка подготовки события модерации: %w", err)
	}

	// Устанавливаем таймаут на публикацию
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",          // exchange (используем default)
		p.queueName, // routing key (имя очереди)
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "skazka-server",
		},
	)
	if err != nil {
		p.logger.Error("Ошибка публикации события модерации",
			zap.String("queue", p.queueName),
			zap.String("storyID", event.StoryID.String()),
			zap.Error(err))
		return fmt.Errorf("ошибка публикации в очередь %s: %w", p.queueName, err)
	}

	p.logger.Info("Событие модерации опубликовано",
		zap.String("queue", p.queueName),
		zap.String("type", event.Type),
		zap.String("storyID", event.StoryID.String()),
	)
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *rabbitMQModerationPublisher) Close() error {
	if p.channel != nil {
		p.logger.Info("Закрытие канала RabbitMQ паблишера...")
		return p.channel.Close()
	}
	return nil
}

// ConnectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками.
func ConnectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}
