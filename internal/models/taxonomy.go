package models

import "time"

// TaxonomyEntry — запись в денормализованном реестре тегов или категорий.
// Реестры чисто информационные, ссылочной целостности с историями нет.
type TaxonomyEntry struct {
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // Когда тег/категория впервые встретились
	LastUsed  time.Time `json:"last_used" db:"last_used"`   // Последнее использование при отправке истории
}
