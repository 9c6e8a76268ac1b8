package models

import "time"

// SavedResponse is a user-owned snapshot of one formatted answer. It is independent of chat history.
type SavedResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Feature   Feature   `json:"feature_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
