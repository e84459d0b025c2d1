package app

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
)

// RateApplication creates or overwrites the rater's rating of the other participant of
// a completed application. An existing rating keeps its id.
func (s *Service) RateApplication(ctx context.Context, applicationID, raterID uuid.UUID, score int, comment *string) (*domain.Rating, error) {
	application, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if application.Status != domain.ApplicationCompleted {
		return nil, domain.FailedPrecondition("application must be completed before rating")
	}
	ratedUserID, err := s.OtherParticipant(ctx, application, raterID)
	if err != nil {
		return nil, err
	}
	if score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return nil, domain.FailedPrecondition("score must be between %d and %d", domain.MinRatingScore, domain.MaxRatingScore)
	}

	rating, err := s.repo.UpsertRating(ctx, &domain.Rating{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		RaterID:       raterID,
		RatedUserID:   ratedUserID,
		Score:         score,
		Comment:       normalizeOptionalText(comment),
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app msg=\"rating saved\" rating_id=%s application_id=%s rater_id=%s score=%d", rating.ID, applicationID, raterID, score)
	s.publishEvent(domain.RoutingKeyRatingSubmitted, domain.RatingEvent{
		RatingID:      rating.ID,
		ApplicationID: applicationID,
		RaterID:       raterID,
		RatedUserID:   ratedUserID,
		Score:         rating.Score,
		OccurredAt:    s.now().UTC(),
	})
	return rating, nil
}

func (s *Service) ListRatingsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Rating, error) {
	return s.repo.ListRatingsForUser(ctx, userID)
}

func (s *Service) RatingSummary(ctx context.Context, userID uuid.UUID) (*domain.RatingSummary, error) {
	return s.repo.GetRatingSummary(ctx, userID)
}
