package interfaces

import (
	"context"
	"io"
)

// BlobStore абстрагирует внешнее хранилище файлов (изображения, аудио).
// Реализация — Firebase/GCS бакет; в тестах подменяется моком.
type BlobStore interface {
	// Upload загружает содержимое r по пути objectPath и возвращает публичный URL.
	// Вызывающий код ограничивает операцию таймаутом через ctx.
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)

	// DeleteByURL удаляет объект, на который указывает ранее выданный URL.
	// URL, не соответствующий форме хранилища, приводит к ошибке.
	DeleteByURL(ctx context.Context, url string) error
}
