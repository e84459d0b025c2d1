package domain

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys published on the events exchange.
const (
	RoutingKeyApplicationSubmitted = "application.submitted"
	RoutingKeyMessageSent          = "message.sent"
	RoutingKeyRatingSubmitted      = "rating.submitted"
	RoutingKeyDonationReceived     = "donation.received"
)

// ApplicationStatusRoutingKey returns e.g. "application.status.accepted".
func ApplicationStatusRoutingKey(status ApplicationStatus) string {
	return "application.status." + string(status)
}

// ApplicationEvent is published after an application is created or changes status.
// Cascade is set when the change was a system-triggered sibling rejection.
type ApplicationEvent struct {
	ApplicationID uuid.UUID         `json:"application_id"`
	ListingID     uuid.UUID         `json:"listing_id"`
	OwnerID       uuid.UUID         `json:"owner_id"`
	AdopterID     uuid.UUID         `json:"adopter_id"`
	ActorID       uuid.UUID         `json:"actor_id"`
	Status        ApplicationStatus `json:"status"`
	Cascade       bool              `json:"cascade,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// MessageEvent is published after a message is stored.
type MessageEvent struct {
	MessageID     uuid.UUID `json:"message_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	SenderID      uuid.UUID `json:"sender_id"`
	ReceiverID    uuid.UUID `json:"receiver_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// RatingEvent is published after a rating is created or updated.
type RatingEvent struct {
	RatingID      uuid.UUID `json:"rating_id"`
	ApplicationID uuid.UUID `json:"application_id"`
	RaterID       uuid.UUID `json:"rater_id"`
	RatedUserID   uuid.UUID `json:"rated_user_id"`
	Score         int       `json:"score"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DonationEvent is published after a donation is recorded. DonorID is omitted for
// anonymous donations so downstream consumers never learn it.
type DonationEvent struct {
	DonationID     uuid.UUID  `json:"donation_id"`
	ListingID      *uuid.UUID `json:"listing_id,omitempty"`
	ListingOwnerID *uuid.UUID `json:"listing_owner_id,omitempty"`
	DonorID        *uuid.UUID `json:"donor_id,omitempty"`
	Amount         int64      `json:"amount"`
	IsAnonymous    bool       `json:"is_anonymous"`
	OccurredAt     time.Time  `json:"occurred_at"`
}
