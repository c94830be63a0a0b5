package model

import "time"

// Comment はWebページ上の要素に紐付いたコメントを表す。
type Comment struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Selector  string    `json:"selector"`
	Origin    *string   `json:"origin"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
