/**
 * @description
 * Listing and user models as seen by the adoption core. Listings are created and
 * moderated elsewhere; the core only reads their flags and writes `is_paused` and
 * `collected_amount`.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (cents).
 */

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ListingType is the closed set of listing variants.
type ListingType string

const (
	ListingTypeAdoption    ListingType = "adoption"
	ListingTypeLost        ListingType = "lost"
	ListingTypeHelpRequest ListingType = "help_request"
)

// ListingTypePolicy holds the per-type rules applied by intake and the donation ledger.
type ListingTypePolicy struct {
	RequiresEligibilityForm bool
	CreditsLedger           bool
}

var listingTypePolicies = map[ListingType]ListingTypePolicy{
	ListingTypeAdoption:    {RequiresEligibilityForm: true},
	ListingTypeLost:        {},
	ListingTypeHelpRequest: {CreditsLedger: true},
}

// PolicyFor returns the rules for a listing type. Unknown types get the zero policy.
func PolicyFor(t ListingType) ListingTypePolicy {
	return listingTypePolicies[t]
}

// ParseListingType normalizes user or database input into a known ListingType.
func ParseListingType(raw string) (ListingType, bool) {
	t := ListingType(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := listingTypePolicies[t]
	return t, ok
}

// Listing maps to the `listings` table.
type Listing struct {
	ID              uuid.UUID   `json:"id"`
	OwnerID         uuid.UUID   `json:"owner_id"`
	Type            ListingType `json:"type"`
	Title           string      `json:"title"`
	IsApproved      bool        `json:"is_approved"`
	IsActive        bool        `json:"is_active"`
	IsPaused        bool        `json:"is_paused"`
	IsDeleted       bool        `json:"-"`
	RequiredAmount  *int64      `json:"required_amount,omitempty"`
	CollectedAmount int64       `json:"collected_amount"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// User is the read-only identity view the core needs.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
}

const RoleAdmin = "admin"

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && strings.EqualFold(strings.TrimSpace(u.Role), RoleAdmin)
}

// EligibilityForm is the per-user adoption questionnaire. The core only checks that
// one exists; Answers is stored opaquely.
type EligibilityForm struct {
	UserID    uuid.UUID              `json:"user_id"`
	Answers   map[string]interface{} `json:"answers"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
