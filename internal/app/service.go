/**
 * @description
 * This file contains the core business logic for the adoption service. The `Service`
 * struct orchestrates application intake and lifecycle, participant-scoped messaging and
 * rating, and the donation ledger, coordinating between the database repository, the
 * payment gateway, and the message broker.
 *
 * Key features:
 * - Every application mutation runs inside `Repository.WithListingLock`, so intake checks,
 *   transitions and the acceptance cascade commit or roll back as one unit per listing.
 * - Domain events are published to RabbitMQ only after the unit of work commits.
 *
 * @dependencies
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/paymentclient, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/pawhaven/adoption-service/internal/store"
	"github.com/pawhaven/adoption-service/pkg/paymentclient"
	"github.com/pawhaven/adoption-service/pkg/rabbitmq"
)

const (
	DefaultPaymentTimeout = 15 * time.Second
	eventPublishTimeout   = 5 * time.Second
)

// PaymentGateway charges a donor. A declined payment is a Result with Success=false,
// not an error.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, amount int64, description string) (*paymentclient.Result, error)
}

// NonHelpRequestDonationPolicy decides what happens to donations against listings that
// do not credit a ledger.
type NonHelpRequestDonationPolicy string

const (
	// DonationPolicyAccept records the donation without touching any listing total.
	DonationPolicyAccept NonHelpRequestDonationPolicy = "accept"
	// DonationPolicyReject refuses the donation before the gateway is called.
	DonationPolicyReject NonHelpRequestDonationPolicy = "reject"
)

// ParseNonHelpRequestDonationPolicy normalizes raw config input.
func ParseNonHelpRequestDonationPolicy(raw string) (NonHelpRequestDonationPolicy, bool) {
	switch NonHelpRequestDonationPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case DonationPolicyAccept:
		return DonationPolicyAccept, true
	case DonationPolicyReject:
		return DonationPolicyReject, true
	default:
		return "", false
	}
}

// Options tunes the Service. Zero values fall back to defaults.
type Options struct {
	PaymentTimeout          time.Duration
	NonHelpRequestDonations NonHelpRequestDonationPolicy
}

// Service provides the core business logic for adoption workflows.
type Service struct {
	repo           store.Repository
	payments       PaymentGateway
	eventProducer  rabbitmq.Publisher
	paymentTimeout time.Duration
	donationPolicy NonHelpRequestDonationPolicy
	now            func() time.Time
}

// NewService creates a new adoption service instance.
func NewService(repo store.Repository, payments PaymentGateway, producer rabbitmq.Publisher, opts Options) *Service {
	timeout := opts.PaymentTimeout
	if timeout <= 0 {
		timeout = DefaultPaymentTimeout
	}
	policy := opts.NonHelpRequestDonations
	if policy == "" {
		policy = DonationPolicyAccept
	}
	if producer == nil {
		producer = rabbitmq.FallbackProducer{}
	}
	return &Service{
		repo:           repo,
		payments:       payments,
		eventProducer:  producer,
		paymentTimeout: timeout,
		donationPolicy: policy,
		now:            time.Now,
	}
}

// publishEvent is best effort: the state change has already committed, so a broker
// failure is logged and never reported to the caller.
func (s *Service) publishEvent(routingKey string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if err := s.eventProducer.PublishEvent(ctx, routingKey, payload); err != nil {
		log.Printf("level=warn component=app msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
