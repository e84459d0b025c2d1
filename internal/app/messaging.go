package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
)

// SendMessage stores a message from one participant of an application to the other.
func (s *Service) SendMessage(ctx context.Context, applicationID, senderID uuid.UUID, content string) (*domain.Message, error) {
	application, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	receiverID, err := s.OtherParticipant(ctx, application, senderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Content:       content,
		IsRead:        false,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	s.publishEvent(domain.RoutingKeyMessageSent, domain.MessageEvent{
		MessageID:     msg.ID,
		ApplicationID: applicationID,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		OccurredAt:    msg.CreatedAt,
	})
	return msg, nil
}

// MarkMessagesRead flips is_read on the given messages addressed to readerID. Ids of
// messages addressed to someone else are ignored.
func (s *Service) MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	return s.repo.MarkMessagesRead(ctx, messageIDs, readerID)
}

// Conversation returns an application's messages oldest first.
func (s *Service) Conversation(ctx context.Context, applicationID, requesterID uuid.UUID) ([]domain.Message, error) {
	application, err := s.repo.FindApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	participant, err := s.IsParticipant(ctx, application, requesterID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, domain.Unauthorized("user is not a participant of this application")
	}
	return s.repo.ListMessagesByApplication(ctx, applicationID)
}

func (s *Service) UnreadMessageCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnreadMessages(ctx, userID)
}
