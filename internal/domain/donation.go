package domain

import (
	"time"

	"github.com/google/uuid"
)

// Donation is an immutable ledger entry written after a successful payment.
type Donation struct {
	ID                   uuid.UUID  `json:"id"`
	DonorID              uuid.UUID  `json:"-"`
	ListingID            *uuid.UUID `json:"listing_id,omitempty"`
	Amount               int64      `json:"amount"` // in cents
	Message              *string    `json:"message,omitempty"`
	IsAnonymous          bool       `json:"is_anonymous"`
	PaymentTransactionID string     `json:"payment_transaction_id"`
	PaymentStatus        string     `json:"payment_status"`
	CreatedAt            time.Time  `json:"created_at"`
}

// CreateDonationRequest is the input of the donation ledger.
type CreateDonationRequest struct {
	Amount      int64      `json:"amount"`
	ListingID   *uuid.UUID `json:"listing_id,omitempty"`
	Message     *string    `json:"message,omitempty"`
	IsAnonymous bool       `json:"is_anonymous"`
}

// DonationView is the public projection of a donation. Anonymous donations carry
// neither donor id nor donor name.
type DonationView struct {
	Donation
	DonorID   *uuid.UUID `json:"donor_id,omitempty"`
	DonorName *string    `json:"donor_name,omitempty"`
}

// NewDonationView projects a donation for display, honouring IsAnonymous.
func NewDonationView(d Donation, donorName string) DonationView {
	view := DonationView{Donation: d}
	if d.IsAnonymous {
		return view
	}
	donorID := d.DonorID
	view.DonorID = &donorID
	if donorName != "" {
		view.DonorName = &donorName
	}
	return view
}

// DonationWithDonor pairs a stored donation with the donor's display name.
type DonationWithDonor struct {
	Donation  Donation
	DonorName string
}

// LedgerDrift is a help-request listing whose running total disagrees with its donations.
type LedgerDrift struct {
	ListingID       uuid.UUID `json:"listing_id"`
	CollectedAmount int64     `json:"collected_amount"`
	DonationsTotal  int64     `json:"donations_total"`
}

// Difference is collected minus donated.
func (d LedgerDrift) Difference() int64 {
	return d.CollectedAmount - d.DonationsTotal
}
