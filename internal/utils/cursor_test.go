package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)

	cursor := EncodeCursor(ts, id)
	require.NotEmpty(t, cursor)

	decodedTime, decodedID, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, id, decodedID)
	// Наносекундная точность сохраняется
	assert.True(t, ts.Equal(decodedTime), "expected %v, got %v", ts, decodedTime)
}

func TestEncodeCursorNilUUID(t *testing.T) {
	assert.Empty(t, EncodeCursor(time.Now(), uuid.Nil), "nil UUID should produce an empty cursor")
}

func TestDecodeCursorEmpty(t *testing.T) {
	// Пустой курсор означает "с начала" и не является ошибкой
	ts, id, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
	assert.Equal(t, uuid.Nil, id)
}

func TestDecodeCursorInvalid(t *testing.T) {
	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"no separator", base64.URLEncoding.EncodeToString([]byte("nonsense"))},
		{"bad timestamp", base64.URLEncoding.EncodeToString([]byte("abc_" + uuid.New().String()))},
		{"bad uuid", base64.URLEncoding.EncodeToString([]byte("123456789_not-a-uuid"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCursor(tt.cursor)
			assert.Error(t, err)
		})
	}
}
