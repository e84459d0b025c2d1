package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
)

// SaveEligibilityForm stores the user's questionnaire. Answers are kept as given.
func (s *Service) SaveEligibilityForm(ctx context.Context, userID uuid.UUID, answers map[string]interface{}) (*domain.EligibilityForm, error) {
	if len(answers) == 0 {
		return nil, domain.FailedPrecondition("eligibility form answers are required")
	}
	form := &domain.EligibilityForm{UserID: userID, Answers: answers}
	if err := s.repo.UpsertEligibilityForm(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *Service) GetEligibilityForm(ctx context.Context, userID uuid.UUID) (*domain.EligibilityForm, error) {
	return s.repo.FindEligibilityForm(ctx, userID)
}
