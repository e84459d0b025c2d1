/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access the
 * adoption core needs. Business rules live in internal/app; the repository offers plain
 * reads and writes plus one unit of work, `WithListingLock`, that serialises every
 * application mutation on a listing.
 *
 * @dependencies
 * - github.com/google/uuid: For entity identifiers.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
)

var (
	ErrUserNotFound         = domain.NotFound("user not found")
	ErrListingNotFound      = domain.NotFound("listing not found")
	ErrApplicationNotFound  = domain.NotFound("application not found")
	ErrEligibilityNotFound  = domain.NotFound("eligibility form not found")
	ErrNotificationNotFound = domain.NotFound("notification not found")
	ErrDuplicateApplication = domain.FailedPrecondition("duplicate application")
	ErrListingHasAccepted   = domain.FailedPrecondition("listing already has an accepted application")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Identity and listing reads
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindListingByID(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error)

	// Eligibility forms
	UpsertEligibilityForm(ctx context.Context, form *domain.EligibilityForm) error
	FindEligibilityForm(ctx context.Context, userID uuid.UUID) (*domain.EligibilityForm, error)

	// Applications
	FindApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error)
	ListApplicationsByAdopter(ctx context.Context, adopterID uuid.UUID) ([]domain.Application, error)
	ListApplicationsByOwner(ctx context.Context, ownerID uuid.UUID, status *domain.ApplicationStatus) ([]domain.Application, error)

	// WithListingLock runs fn inside one transaction holding the listing row lock.
	// fn's writes commit only if it returns nil.
	WithListingLock(ctx context.Context, listingID uuid.UUID, fn func(tx ListingTx, listing *domain.Listing) error) error

	// Messages
	CreateMessage(ctx context.Context, msg *domain.Message) error
	MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (int64, error)
	ListMessagesByApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Message, error)
	CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int64, error)

	// Ratings
	UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error)
	ListRatingsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Rating, error)
	GetRatingSummary(ctx context.Context, userID uuid.UUID) (*domain.RatingSummary, error)

	// Donations
	// CreateDonation inserts the donation and, when creditListing is set, increments the
	// listing's collected amount in the same transaction.
	CreateDonation(ctx context.Context, donation *domain.Donation, creditListing bool) error
	ListDonationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.DonationWithDonor, error)
	ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error)
	FindLedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error)

	// In-app notifications
	CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error
	ListInAppNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) ([]domain.InAppNotification, error)
	MarkInAppNotificationRead(ctx context.Context, userID uuid.UUID, notificationID uuid.UUID) (bool, error)
	CountUnreadInAppNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ListingTx is the view of the database inside WithListingLock.
type ListingTx interface {
	EligibilityFormExists(ctx context.Context, userID uuid.UUID) (bool, error)
	HasOpenApplication(ctx context.Context, listingID uuid.UUID, adopterID uuid.UUID) (bool, error)
	InsertApplication(ctx context.Context, application *domain.Application) error
	FindApplicationForUpdate(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error)
	UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status domain.ApplicationStatus, adminNotes *string) (*domain.Application, error)
	// RejectOpenSiblings moves every pending/under-review application on the listing,
	// other than exceptID, to rejected and returns the affected rows.
	RejectOpenSiblings(ctx context.Context, listingID uuid.UUID, exceptID uuid.UUID) ([]domain.Application, error)
	SetListingPaused(ctx context.Context, listingID uuid.UUID, paused bool) error
}
