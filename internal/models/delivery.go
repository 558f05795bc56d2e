package models

import "time"

// Delivery records a report posted as a comment on a remote repository.
type Delivery struct {
	ID         string    `json:"id" db:"id"`
	Repository string    `json:"repository" db:"repository"`
	KeyValue   string    `json:"key_value" db:"key_value"`
	Digest     string    `json:"digest" db:"digest"`
	CommentURL string    `json:"comment_url,omitempty" db:"comment_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
