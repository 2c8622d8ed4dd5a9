package post

import "time"

// Post is an immutable content record authored by a token holder. Only
// TipAmount changes after creation, and it never decreases.
type Post struct {
	ID          uint64    `json:"id" db:"id"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	TipAmount   int64     `json:"tip_amount" db:"tip_amount"`
	Author      string    `json:"author" db:"author"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
