package interfaces

import (
	"context"

	"skazka-server/internal/models"
)

// ModerationPublisher отправляет события модерации во внешнюю очередь.
// Реализация должна быть безопасной к отсутствию брокера: ошибки публикации
// логируются, но не прерывают основную операцию.
type ModerationPublisher interface {
	PublishModerationEvent(ctx context.Context, event models.ModerationEvent) error
}
