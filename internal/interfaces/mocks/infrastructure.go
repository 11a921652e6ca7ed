package mocks

import (
	"context"
	"io"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock BlobStore
type BlobStore struct {
	mock.Mock
}

func (m *BlobStore) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, objectPath, contentType, r)
	return args.String(0), args.Error(1)
}

func (m *BlobStore) DeleteByURL(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// Mock ModerationPublisher
type ModerationPublisher struct {
	mock.Mock
}

func (m *ModerationPublisher) PublishModerationEvent(ctx context.Context, event models.ModerationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// FakeTxManager выполняет переданную функцию без реальной транзакции.
// Tx подставляется как querier внутри колбэка (обычно nil, моки репозиториев
// его не используют).
type FakeTxManager struct {
	Tx interfaces.DBTX
}

func (f *FakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	return fn(ctx, f.Tx)
}
