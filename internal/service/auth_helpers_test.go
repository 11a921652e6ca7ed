package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты для hashPassword и checkPasswordHash с перцем

func TestHashAndCheckPassword(t *testing.T) {
	password := "мой-секретный-пароль"
	pepper := "test-pepper-for-unit-tests"

	hashedPassword, err := hashPassword(password, pepper)
	require.NoError(t, err, "hashPassword should not return an error")
	require.NotEmpty(t, hashedPassword, "hashPassword should return a non-empty string")
	assert.NotEqual(t, password, hashedPassword, "Hashed password should not be equal to the original password")

	// Корректная пара пароль+перец
	assert.True(t, checkPasswordHash(password, hashedPassword, pepper),
		"checkPasswordHash should return true for correct password and pepper")

	// Неверный пароль
	assert.False(t, checkPasswordHash("wrongpassword", hashedPassword, pepper),
		"checkPasswordHash should return false for incorrect password")

	// Неверный перец: HMAC дает другой вход для bcrypt, проверка не проходит
	assert.False(t, checkPasswordHash(password, hashedPassword, "another-pepper"),
		"checkPasswordHash should return false for incorrect pepper")

	// Невалидный формат хеша
	assert.False(t, checkPasswordHash(password, "not-a-bcrypt-hash", pepper),
		"checkPasswordHash should return false for invalid hash format")

	// Два хеша одного пароля различаются (bcrypt добавляет свою соль)
	secondHash, err := hashPassword(password, pepper)
	require.NoError(t, err)
	assert.NotEqual(t, hashedPassword, secondHash, "bcrypt salt should make hashes unique")
	assert.True(t, checkPasswordHash(password, secondHash, pepper))
}

func TestApplyPepperDeterministic(t *testing.T) {
	first := applyPepper("password", "pepper")
	second := applyPepper("password", "pepper")
	assert.Equal(t, first, second, "HMAC output must be deterministic for the same input")

	other := applyPepper("password", "other-pepper")
	assert.NotEqual(t, first, other, "different pepper must change the HMAC output")
}
