package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims представляет стандартные поля JWT и пользовательские данные,
// которые мы включаем в токен. Поле ID (jti) несет UUID токена,
// по которому токен проверяется в Redis-хранилище.
type Claims struct {
	UserID               uuid.UUID `json:"user_id"`
	Username             string    `json:"username"`
	Roles                []string  `json:"roles"`
	jwt.RegisteredClaims           // Встраиваем стандартные поля: Issuer, Subject, ExpiresAt, IssuedAt, ID (JTI)
}

// TokenDetails holds the details of a freshly issued JWT pair.
type TokenDetails struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessUUID   string `json:"-"` // Usually not exposed
	RefreshUUID  string `json:"-"` // Usually not exposed
	AtExpires    int64  `json:"at_expires"`
	RtExpires    int64  `json:"rt_expires"`
}
