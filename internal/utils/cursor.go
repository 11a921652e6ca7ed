package utils

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timeCursorSeparator = "_"

// EncodeCursor creates a base64 encoded cursor string from time and UUID.
func EncodeCursor(t time.Time, id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	// Use nanoseconds for precision
	valueStr := strconv.FormatInt(t.UnixNano(), 10)
	cursorData := fmt.Sprintf("%s%s%s", valueStr, timeCursorSeparator, id.String())
	return base64.URLEncoding.EncodeToString([]byte(cursorData))
}

// DecodeCursor parses a base64 encoded time-based cursor string into time and UUID.
// Пустой курсор валиден и означает "с начала".
func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	if cursor == "" {
		return time.Time{}, uuid.Nil, nil
	}

	decodedBytes, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor base64 format: %w", err)
	}

	parts := strings.SplitN(string(decodedBytes), timeCursorSeparator, 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor format, expected 2 parts, got %d", len(parts))
	}

	timestampNano, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor timestamp format: %w", err)
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("invalid cursor uuid format: %w", err)
	}

	return time.Unix(0, timestampNano).UTC(), id, nil
}
