package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
)

// Participants resolves the owner/adopter pair of an application. It is the only place
// the owner of an application's listing is looked up for messaging and rating.
func (s *Service) Participants(ctx context.Context, application *domain.Application) (domain.Participants, error) {
	listing, err := s.repo.FindListingByID(ctx, application.ListingID)
	if err != nil {
		return domain.Participants{}, fmt.Errorf("load listing for participants: %w", err)
	}
	return domain.Participants{OwnerID: listing.OwnerID, AdopterID: application.AdopterID}, nil
}

func (s *Service) IsParticipant(ctx context.Context, application *domain.Application, userID uuid.UUID) (bool, error) {
	participants, err := s.Participants(ctx, application)
	if err != nil {
		return false, err
	}
	return participants.Has(userID), nil
}

// OtherParticipant returns the counterpart of userID, or Unauthorized when userID is not
// a participant.
func (s *Service) OtherParticipant(ctx context.Context, application *domain.Application, userID uuid.UUID) (uuid.UUID, error) {
	participants, err := s.Participants(ctx, application)
	if err != nil {
		return uuid.Nil, err
	}
	other, ok := participants.Other(userID)
	if !ok {
		return uuid.Nil, domain.Unauthorized("user is not a participant of this application")
	}
	return other, nil
}
