package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
	"github.com/pawhaven/adoption-service/internal/metrics"
	"github.com/pawhaven/adoption-service/internal/store"
)

const donationPersistTimeout = 10 * time.Second

// ErrPaymentDeclined marks a donation refused by the payment gateway.
var ErrPaymentDeclined = errors.New("payment declined")

// PaymentFailedError carries the gateway's reason for a failed donation. It matches
// both ErrPaymentDeclined and domain.ErrFailedPrecondition.
type PaymentFailedError struct {
	Reason string
}

func (e *PaymentFailedError) Error() string {
	return e.Reason
}

func (e *PaymentFailedError) Is(target error) bool {
	return target == ErrPaymentDeclined || target == domain.ErrFailedPrecondition
}

// CreateDonation charges the donor through the payment gateway and, on success, records
// the donation. Donations against a listing whose type credits a ledger increment the
// listing's collected amount in the same transaction as the insert.
func (s *Service) CreateDonation(ctx context.Context, donorID uuid.UUID, req domain.CreateDonationRequest) (*domain.Donation, error) {
	if req.Amount <= 0 {
		metrics.RecordDonation("rejected", 0)
		return nil, domain.FailedPrecondition("donation amount must be greater than zero")
	}

	donor, err := s.repo.FindUserByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domain.Unauthorized("donor account not found")
		}
		return nil, fmt.Errorf("load donor: %w", err)
	}
	if !donor.IsActive {
		return nil, domain.Unauthorized("donor account is not active")
	}

	var listing *domain.Listing
	creditListing := false
	if req.ListingID != nil {
		listing, err = s.repo.FindListingByID(ctx, *req.ListingID)
		if err != nil {
			return nil, err
		}
		creditListing = domain.PolicyFor(listing.Type).CreditsLedger
		if !creditListing && s.donationPolicy == DonationPolicyReject {
			metrics.RecordDonation("rejected", 0)
			return nil, domain.FailedPrecondition("listing does not accept donations")
		}
	}

	result, err := s.chargeDonation(ctx, req.Amount, donationDescription(listing))
	if err != nil {
		metrics.RecordDonation("declined", 0)
		log.Printf("level=warn component=payment msg=\"donation payment failed\" donor_id=%s amount=%d err=%q", donorID, req.Amount, err.Error())
		return nil, err
	}

	donation := &domain.Donation{
		ID:                   uuid.New(),
		DonorID:              donorID,
		ListingID:            req.ListingID,
		Amount:               req.Amount,
		Message:              normalizeOptionalText(req.Message),
		IsAnonymous:          req.IsAnonymous,
		PaymentTransactionID: result.TransactionID,
		PaymentStatus:        result.Status,
	}

	// The charge has already been captured; a client disconnect must not drop the record.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), donationPersistTimeout)
	defer cancel()
	if err := s.repo.CreateDonation(persistCtx, donation, creditListing); err != nil {
		metrics.RecordDonation("failed", 0)
		log.Printf("level=error component=ledger msg=\"payment captured but donation not recorded\" donor_id=%s amount=%d transaction_id=%s err=%v", donorID, req.Amount, result.TransactionID, err)
		// Storage error kinds are dropped: the charge is already captured.
		return nil, fmt.Errorf("record donation for captured payment %s: %v", result.TransactionID, err)
	}

	metrics.RecordDonation("recorded", donation.Amount)
	log.Printf("level=info component=ledger msg=\"donation recorded\" donation_id=%s amount=%d credited=%t transaction_id=%s", donation.ID, donation.Amount, creditListing, donation.PaymentTransactionID)

	event := domain.DonationEvent{
		DonationID:  donation.ID,
		ListingID:   donation.ListingID,
		Amount:      donation.Amount,
		IsAnonymous: donation.IsAnonymous,
		OccurredAt:  donation.CreatedAt,
	}
	if listing != nil {
		ownerID := listing.OwnerID
		event.ListingOwnerID = &ownerID
	}
	if !donation.IsAnonymous {
		event.DonorID = &donorID
	}
	s.publishEvent(domain.RoutingKeyDonationReceived, event)
	return donation, nil
}

// chargeDonation calls the gateway under the configured timeout. Any failure, including
// a timeout, is returned as a *PaymentFailedError and never retried here.
func (s *Service) chargeDonation(ctx context.Context, amount int64, description string) (*paymentResult, error) {
	if s.payments == nil {
		return nil, &PaymentFailedError{Reason: "payment gateway unavailable"}
	}

	payCtx, cancel := context.WithTimeout(ctx, s.paymentTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.payments.ProcessPayment(payCtx, amount, description)
	elapsed := time.Since(start)
	switch {
	case err != nil:
		metrics.RecordPaymentCall("error", elapsed)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &PaymentFailedError{Reason: "payment gateway timed out"}
		}
		return nil, &PaymentFailedError{Reason: err.Error()}
	case result == nil || !result.Success:
		metrics.RecordPaymentCall("declined", elapsed)
		reason := "payment declined"
		if result != nil && strings.TrimSpace(result.ErrorMessage) != "" {
			reason = result.ErrorMessage
		}
		return nil, &PaymentFailedError{Reason: reason}
	}
	metrics.RecordPaymentCall("success", elapsed)
	return &paymentResult{TransactionID: result.TransactionID, Status: result.Status}, nil
}

type paymentResult struct {
	TransactionID string
	Status        string
}

func donationDescription(listing *domain.Listing) string {
	if listing == nil {
		return "General donation"
	}
	return fmt.Sprintf("Donation for listing %s", listing.ID)
}

func normalizeOptionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ListDonationsForListing returns the public projection of a listing's donations.
func (s *Service) ListDonationsForListing(ctx context.Context, listingID uuid.UUID) ([]domain.DonationView, error) {
	if _, err := s.repo.FindListingByID(ctx, listingID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListDonationsByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.DonationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.NewDonationView(row.Donation, row.DonorName))
	}
	return views, nil
}

// ListMyDonations returns the donor's own donations, anonymous ones included.
func (s *Service) ListMyDonations(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	return s.repo.ListDonationsByDonor(ctx, donorID)
}
