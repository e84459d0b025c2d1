package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is a state of the adoption application lifecycle.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationCompleted   ApplicationStatus = "completed"
	ApplicationRejected    ApplicationStatus = "rejected"
	ApplicationCancelled   ApplicationStatus = "cancelled"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:     {ApplicationUnderReview, ApplicationAccepted, ApplicationRejected, ApplicationCancelled},
	ApplicationUnderReview: {ApplicationAccepted, ApplicationRejected, ApplicationCancelled},
	ApplicationAccepted:    {ApplicationCompleted, ApplicationRejected},
}

// OpenApplicationStatuses are the non-terminal statuses; at most one application per
// (listing, adopter) may hold one of them.
var OpenApplicationStatuses = []ApplicationStatus{
	ApplicationPending,
	ApplicationUnderReview,
	ApplicationAccepted,
}

// CanTransition reports whether from -> to appears in the lifecycle table.
func (s ApplicationStatus) CanTransition(to ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// IsOpen reports whether s counts against the one-open-application-per-pair rule.
func (s ApplicationStatus) IsOpen() bool {
	for _, open := range OpenApplicationStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// IsCancelable reports whether the adopter may withdraw an application in status s.
func (s ApplicationStatus) IsCancelable() bool {
	return s == ApplicationPending || s == ApplicationUnderReview
}

// ParseApplicationStatus accepts the wire form ("under_review") and the legacy
// camel-case form ("UnderReview").
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if normalized == "underreview" {
		normalized = string(ApplicationUnderReview)
	}
	status := ApplicationStatus(normalized)
	switch status {
	case ApplicationPending, ApplicationUnderReview, ApplicationAccepted,
		ApplicationCompleted, ApplicationRejected, ApplicationCancelled:
		return status, true
	default:
		return "", false
	}
}

// Application maps to the `applications` table.
type Application struct {
	ID         uuid.UUID         `json:"id"`
	ListingID  uuid.UUID         `json:"listing_id"`
	AdopterID  uuid.UUID         `json:"adopter_id"`
	Status     ApplicationStatus `json:"status"`
	Message    string            `json:"message"`
	AdminNotes *string           `json:"admin_notes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Participants are the two parties entitled to message and rate within an application.
type Participants struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	AdopterID uuid.UUID `json:"adopter_id"`
}

// Has reports whether userID is one of the two parties.
func (p Participants) Has(userID uuid.UUID) bool {
	return userID != uuid.Nil && (userID == p.OwnerID || userID == p.AdopterID)
}

// Other returns the counterpart of userID, or false if userID is not a party.
func (p Participants) Other(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case !p.Has(userID):
		return uuid.Nil, false
	case userID == p.OwnerID:
		return p.AdopterID, true
	default:
		return p.OwnerID, true
	}
}
