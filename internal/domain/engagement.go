package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is one entry in the per-application conversation.
type Message struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id"`
	Content       string    `json:"content"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// Rating is post-completion feedback, unique per (application, rater).
type Rating struct {
	ID            uuid.UUID `json:"id"`
	ApplicationID uuid.UUID `json:"application_id"`
	RaterID       uuid.UUID `json:"rater_id"`
	RatedUserID   uuid.UUID `json:"rated_user_id"`
	Score         int       `json:"score"`
	Comment       *string   `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RatingSummary aggregates the ratings a user has received.
type RatingSummary struct {
	UserID  uuid.UUID `json:"user_id"`
	Count   int64     `json:"count"`
	Average float64   `json:"average"`
}

// InAppNotification is an inbox entry produced from domain events.
type InAppNotification struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Type              string     `json:"type"`
	Title             string     `json:"title"`
	Body              *string    `json:"body,omitempty"`
	Status            string     `json:"status"`
	RelatedEntityType *string    `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID `json:"related_entity_id,omitempty"`
	DedupeKey         *string    `json:"-"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type NotificationListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}
