package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
	"github.com/pawhaven/adoption-service/internal/metrics"
	"github.com/pawhaven/adoption-service/internal/store"
)

// CreateApplication runs the eligibility gate and inserts a pending application. All
// checks read inside the listing lock, so two concurrent requests for the same
// (listing, adopter) pair cannot both pass the duplicate check.
func (s *Service) CreateApplication(ctx context.Context, listingID, adopterID uuid.UUID, message string) (*domain.Application, error) {
	var created *domain.Application
	var ownerID uuid.UUID

	err := s.repo.WithListingLock(ctx, listingID, func(tx store.ListingTx, listing *domain.Listing) error {
		if err := checkListingAcceptsApplications(listing); err != nil {
			return err
		}
		if listing.OwnerID == adopterID {
			return domain.FailedPrecondition("cannot apply to own listing")
		}

		if domain.PolicyFor(listing.Type).RequiresEligibilityForm {
			exists, err := tx.EligibilityFormExists(ctx, adopterID)
			if err != nil {
				return fmt.Errorf("check eligibility form: %w", err)
			}
			if !exists {
				return domain.FailedPrecondition("eligibility form required")
			}
		}

		open, err := tx.HasOpenApplication(ctx, listingID, adopterID)
		if err != nil {
			return fmt.Errorf("check open application: %w", err)
		}
		if open {
			return store.ErrDuplicateApplication
		}

		application := &domain.Application{
			ID:        uuid.New(),
			ListingID: listingID,
			AdopterID: adopterID,
			Status:    domain.ApplicationPending,
			Message:   strings.TrimSpace(message),
		}
		if err := tx.InsertApplication(ctx, application); err != nil {
			return err
		}
		created = application
		ownerID = listing.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"application created\" application_id=%s listing_id=%s adopter_id=%s", created.ID, listingID, adopterID)
	metrics.RecordApplicationTransition(string(created.Status), false)
	s.publishEvent(domain.RoutingKeyApplicationSubmitted, domain.ApplicationEvent{
		ApplicationID: created.ID,
		ListingID:     listingID,
		OwnerID:       ownerID,
		AdopterID:     adopterID,
		ActorID:       adopterID,
		Status:        created.Status,
		OccurredAt:    s.now().UTC(),
	})
	return created, nil
}

// checkListingAcceptsApplications applies the listing flag checks in gate order.
func checkListingAcceptsApplications(listing *domain.Listing) error {
	switch {
	case !listing.IsApproved:
		return domain.FailedPrecondition("listing is not approved")
	case !listing.IsActive:
		return domain.FailedPrecondition("listing is not active")
	case listing.IsPaused:
		return domain.FailedPrecondition("listing is paused")
	case listing.IsDeleted:
		return domain.FailedPrecondition("listing is deleted")
	}
	return nil
}

// UpdateApplicationStatus moves an application through the lifecycle on behalf of the
// listing owner or an administrator. Accepting an application rejects every open
// sibling and pauses the listing in the same transaction.
func (s *Service) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, newStatus domain.ApplicationStatus, actorID uuid.UUID, adminNotes *string) (*domain.Application, error) {
	current, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	actorIsAdmin, err := s.isAdmin(ctx, actorID)
	if err != nil {
		return nil, err
	}

	var (
		updated  *domain.Application
		rejected []domain.Application
		ownerID  uuid.UUID
	)
	err = s.repo.WithListingLock(ctx, current.ListingID, func(tx store.ListingTx, listing *domain.Listing) error {
		if listing.OwnerID != actorID && !actorIsAdmin {
			return domain.Unauthorized("only the listing owner or an administrator can update this application")
		}

		locked, err := tx.FindApplicationForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if !locked.Status.CanTransition(newStatus) {
			return domain.FailedPrecondition("invalid transition")
		}

		updated, err = tx.UpdateApplicationStatus(ctx, applicationID, newStatus, adminNotes)
		if err != nil {
			return err
		}

		if newStatus == domain.ApplicationAccepted {
			rejected, err = tx.RejectOpenSiblings(ctx, listing.ID, applicationID)
			if err != nil {
				return fmt.Errorf("reject sibling applications: %w", err)
			}
			if err := tx.SetListingPaused(ctx, listing.ID, true); err != nil {
				return fmt.Errorf("pause listing: %w", err)
			}
		}
		ownerID = listing.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"application status updated\" application_id=%s status=%s actor_id=%s cascade_rejected=%d", applicationID, newStatus, actorID, len(rejected))
	metrics.RecordApplicationTransition(string(updated.Status), false)
	s.publishApplicationEvent(updated, ownerID, actorID, false)
	for i := range rejected {
		metrics.RecordApplicationTransition(string(rejected[i].Status), true)
		s.publishApplicationEvent(&rejected[i], ownerID, actorID, true)
	}
	return updated, nil
}

// CancelApplication withdraws an application on behalf of its adopter.
func (s *Service) CancelApplication(ctx context.Context, applicationID, adopterID uuid.UUID) (*domain.Application, error) {
	current, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if current.AdopterID != adopterID {
		return nil, domain.Unauthorized("only the adopter can cancel this application")
	}

	var (
		cancelled *domain.Application
		ownerID   uuid.UUID
	)
	err = s.repo.WithListingLock(ctx, current.ListingID, func(tx store.ListingTx, listing *domain.Listing) error {
		locked, err := tx.FindApplicationForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if !locked.Status.IsCancelable() {
			return domain.FailedPrecondition("not cancelable")
		}
		cancelled, err = tx.UpdateApplicationStatus(ctx, applicationID, domain.ApplicationCancelled, nil)
		if err != nil {
			return err
		}
		ownerID = listing.OwnerID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"application cancelled\" application_id=%s adopter_id=%s", applicationID, adopterID)
	metrics.RecordApplicationTransition(string(cancelled.Status), false)
	s.publishApplicationEvent(cancelled, ownerID, adopterID, false)
	return cancelled, nil
}

// GetApplication returns an application to one of its participants or an administrator.
func (s *Service) GetApplication(ctx context.Context, applicationID, requesterID uuid.UUID) (*domain.Application, error) {
	application, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	participant, err := s.IsParticipant(ctx, application, requesterID)
	if err != nil {
		return nil, err
	}
	if participant {
		return application, nil
	}
	admin, err := s.isAdmin(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, domain.Unauthorized("user is not a participant of this application")
	}
	return application, nil
}

// ListMyApplications returns the applications submitted by adopterID, newest first.
func (s *Service) ListMyApplications(ctx context.Context, adopterID uuid.UUID) ([]domain.Application, error) {
	return s.repo.ListApplicationsByAdopter(ctx, adopterID)
}

// ListReceivedApplications returns applications on listings owned by ownerID, optionally
// filtered by status.
func (s *Service) ListReceivedApplications(ctx context.Context, ownerID uuid.UUID, status *domain.ApplicationStatus) ([]domain.Application, error) {
	return s.repo.ListApplicationsByOwner(ctx, ownerID, status)
}

// isAdmin treats an unknown user as a non-admin rather than an error.
func (s *Service) isAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load actor: %w", err)
	}
	return user.IsActive && user.IsAdmin(), nil
}

func (s *Service) publishApplicationEvent(application *domain.Application, ownerID, actorID uuid.UUID, cascade bool) {
	s.publishEvent(domain.ApplicationStatusRoutingKey(application.Status), domain.ApplicationEvent{
		ApplicationID: application.ID,
		ListingID:     application.ListingID,
		OwnerID:       ownerID,
		AdopterID:     application.AdopterID,
		ActorID:       actorID,
		Status:        application.Status,
		Cascade:       cascade,
		OccurredAt:    s.now().UTC(),
	})
}
