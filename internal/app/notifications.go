package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
	"github.com/pawhaven/adoption-service/internal/metrics"
	"github.com/pawhaven/adoption-service/internal/store"
	"github.com/pawhaven/adoption-service/pkg/rabbitmq"
)

const (
	notificationTypeApplicationSubmitted = "application_submitted"
	notificationTypeApplicationStatus    = "application_status"
	notificationTypeApplicationWithdrawn = "application_withdrawn"
	notificationTypeMessageReceived      = "message_received"
	notificationTypeRatingReceived       = "rating_received"
	notificationTypeDonationReceived     = "donation_received"

	relatedEntityApplication = "application"
	relatedEntityRating      = "rating"
	relatedEntityDonation    = "donation"
)

func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) ([]domain.InAppNotification, error) {
	return s.repo.ListInAppNotifications(ctx, userID, opts)
}

func (s *Service) UnreadNotificationCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnreadInAppNotifications(ctx, userID)
}

// MarkNotificationRead marks one of the user's notifications read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	found, err := s.repo.MarkInAppNotificationRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !found {
		return store.ErrNotificationNotFound
	}
	return nil
}

// NotificationConsumer turns domain events into in-app notification rows.
type NotificationConsumer struct {
	repo store.Repository
}

func NewNotificationConsumer(repo store.Repository) *NotificationConsumer {
	return &NotificationConsumer{repo: repo}
}

// Bindings returns one handler per routing key the consumer understands.
func (c *NotificationConsumer) Bindings() map[string]rabbitmq.Handler {
	bindings := map[string]rabbitmq.Handler{
		domain.RoutingKeyApplicationSubmitted: c.handlerFor(domain.RoutingKeyApplicationSubmitted),
		domain.RoutingKeyMessageSent:          c.handlerFor(domain.RoutingKeyMessageSent),
		domain.RoutingKeyRatingSubmitted:      c.handlerFor(domain.RoutingKeyRatingSubmitted),
		domain.RoutingKeyDonationReceived:     c.handlerFor(domain.RoutingKeyDonationReceived),
	}
	for _, status := range []domain.ApplicationStatus{
		domain.ApplicationUnderReview,
		domain.ApplicationAccepted,
		domain.ApplicationCompleted,
		domain.ApplicationRejected,
		domain.ApplicationCancelled,
	} {
		key := domain.ApplicationStatusRoutingKey(status)
		bindings[key] = c.handlerFor(key)
	}
	return bindings
}

func (c *NotificationConsumer) handlerFor(routingKey string) rabbitmq.Handler {
	return func(body []byte) bool {
		return c.HandleMessage(routingKey, body)
	}
}

// HandleMessage processes one delivery. Malformed payloads are acknowledged and dropped;
// storage failures return false so the broker redelivers.
func (c *NotificationConsumer) HandleMessage(routingKey string, body []byte) bool {
	items, err := buildNotifications(routingKey, body)
	if err != nil {
		log.Printf("level=warn component=notification_consumer msg=\"dropping malformed event\" routing_key=%s err=%v", routingKey, err)
		metrics.RecordNotificationEvent(routingKey, "malformed")
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, item := range items {
		if err := c.repo.CreateInAppNotification(ctx, item); err != nil {
			log.Printf("level=error component=notification_consumer msg=\"store notification failed\" routing_key=%s user_id=%s err=%v", routingKey, item.UserID, err)
			metrics.RecordNotificationEvent(routingKey, "error")
			return false
		}
	}
	metrics.RecordNotificationEvent(routingKey, "processed")
	return true
}

// buildNotifications maps one event to zero or more notifications. Each carries a dedupe
// key so redelivered events do not notify twice.
func buildNotifications(routingKey string, body []byte) ([]domain.InAppNotification, error) {
	switch {
	case routingKey == domain.RoutingKeyApplicationSubmitted:
		var event domain.ApplicationEvent
		if err := decodeEvent(body, &event); err != nil {
			return nil, err
		}
		return []domain.InAppNotification{
			newNotification(event.OwnerID, notificationTypeApplicationSubmitted, "New adoption application", nil,
				relatedEntityApplication, event.ApplicationID, routingKey),
		}, nil

	case strings.HasPrefix(routingKey, "application.status."):
		var event domain.ApplicationEvent
		if err := decodeEvent(body, &event); err != nil {
			return nil, err
		}
		if event.Status == domain.ApplicationCancelled && event.ActorID == event.AdopterID {
			return []domain.InAppNotification{
				newNotification(event.OwnerID, notificationTypeApplicationWithdrawn, "An applicant withdrew their application", nil,
					relatedEntityApplication, event.ApplicationID, routingKey),
			}, nil
		}
		title := fmt.Sprintf("Your application is now %s", strings.ReplaceAll(string(event.Status), "_", " "))
		var detail *string
		if event.Cascade {
			text := "Another applicant was accepted for this listing."
			detail = &text
		}
		return []domain.InAppNotification{
			newNotification(event.AdopterID, notificationTypeApplicationStatus, title, detail,
				relatedEntityApplication, event.ApplicationID, routingKey),
		}, nil

	case routingKey == domain.RoutingKeyMessageSent:
		var event domain.MessageEvent
		if err := decodeEvent(body, &event); err != nil {
			return nil, err
		}
		item := newNotification(event.ReceiverID, notificationTypeMessageReceived, "New message", nil,
			relatedEntityApplication, event.ApplicationID, routingKey)
		dedupe := fmt.Sprintf("%s:%s", routingKey, event.MessageID)
		item.DedupeKey = &dedupe
		return []domain.InAppNotification{item}, nil

	case routingKey == domain.RoutingKeyRatingSubmitted:
		var event domain.RatingEvent
		if err := decodeEvent(body, &event); err != nil {
			return nil, err
		}
		item := newNotification(event.RatedUserID, notificationTypeRatingReceived,
			fmt.Sprintf("You received a %d-star rating", event.Score), nil,
			relatedEntityRating, event.RatingID, routingKey)
		// Updates to the same rating notify again.
		dedupe := fmt.Sprintf("%s:%s:%d", routingKey, event.RatingID, event.OccurredAt.UnixNano())
		item.DedupeKey = &dedupe
		return []domain.InAppNotification{item}, nil

	case routingKey == domain.RoutingKeyDonationReceived:
		var event domain.DonationEvent
		if err := decodeEvent(body, &event); err != nil {
			return nil, err
		}
		if event.ListingOwnerID == nil {
			return nil, nil
		}
		if event.DonorID != nil && *event.DonorID == *event.ListingOwnerID {
			return nil, nil
		}
		var text *string
		if event.IsAnonymous {
			anon := "From an anonymous donor."
			text = &anon
		}
		return []domain.InAppNotification{
			newNotification(*event.ListingOwnerID, notificationTypeDonationReceived,
				fmt.Sprintf("You received a donation of %s", formatCents(event.Amount)), text,
				relatedEntityDonation, event.DonationID, routingKey),
		}, nil
	}
	return nil, fmt.Errorf("unsupported routing key %q", routingKey)
}

func decodeEvent(body []byte, target interface{}) error {
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	return nil
}

func newNotification(userID uuid.UUID, notificationType, title string, body *string, entityType string, entityID uuid.UUID, routingKey string) domain.InAppNotification {
	relatedType := entityType
	relatedID := entityID
	dedupe := fmt.Sprintf("%s:%s:%s", routingKey, entityID, userID)
	return domain.InAppNotification{
		ID:                uuid.New(),
		UserID:            userID,
		Type:              notificationType,
		Title:             title,
		Body:              body,
		Status:            "unread",
		RelatedEntityType: &relatedType,
		RelatedEntityID:   &relatedID,
		DedupeKey:         &dedupe,
	}
}

func formatCents(amount int64) string {
	return fmt.Sprintf("$%d.%02d", amount/100, amount%100)
}
