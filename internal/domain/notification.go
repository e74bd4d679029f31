package domain

import "time"

// PushSubscription is one browser/device push endpoint for a user.
type PushSubscription struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Endpoint  string    `json:"endpoint" db:"endpoint"`
	P256dhKey string    `json:"p256dh_key" db:"p256dh_key"`
	AuthKey   string    `json:"auth_key" db:"auth_key"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NotificationLog is an append-only record of one notification send attempt
// (one row per attempt, not per endpoint).
type NotificationLog struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Category  Category  `json:"category" db:"category"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Status    string    `json:"status" db:"status"` // sent | failed
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ContentRef is the minimal view of a lesson the engine needs when a payload
// or call script wants human-readable text. Content data is owned elsewhere.
type ContentRef struct {
	ID          string `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`
	AudioURL    string `json:"audio_url" db:"audio_url"`
}
