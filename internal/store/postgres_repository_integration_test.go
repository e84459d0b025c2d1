package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pawhaven/adoption-service/internal/domain"
)

// newIntegrationRepository connects to TEST_DATABASE_URL with the same pool settings
// as cmd/main.go, including simple-protocol execution.
func newIntegrationRepository(t *testing.T) (*PostgresRepository, *pgxpool.Pool) {
	t.Helper()
	databaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := RunMigrations(databaseURL); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse database url: %v", err)
	}
	poolConfig.MaxConns = 20
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewPostgresRepository(pool), pool
}

func seedUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if _, err := pool.Exec(context.Background(), `INSERT INTO users (id, display_name) VALUES ($1, $2)`, id, "user-"+id.String()[:8]); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

func seedListing(t *testing.T, pool *pgxpool.Pool, ownerID uuid.UUID, listingType domain.ListingType) uuid.UUID {
	t.Helper()
	id := uuid.New()
	query := `INSERT INTO listings (id, owner_id, type, title, is_approved) VALUES ($1, $2, $3, 'Listing', TRUE)`
	if _, err := pool.Exec(context.Background(), query, id, ownerID, string(listingType)); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return id
}

func insertApplication(t *testing.T, repo *PostgresRepository, listingID, adopterID uuid.UUID) *domain.Application {
	t.Helper()
	application := &domain.Application{
		ID:        uuid.New(),
		ListingID: listingID,
		AdopterID: adopterID,
		Status:    domain.ApplicationPending,
		Message:   "hello",
	}
	err := repo.WithListingLock(context.Background(), listingID, func(tx ListingTx, listing *domain.Listing) error {
		return tx.InsertApplication(context.Background(), application)
	})
	if err != nil {
		t.Fatalf("insert application: %v", err)
	}
	return application
}

func TestPostgresEligibilityFormUpsert(t *testing.T) {
	repo, pool := newIntegrationRepository(t)
	ctx := context.Background()
	userID := seedUser(t, pool)

	first := &domain.EligibilityForm{UserID: userID, Answers: map[string]interface{}{"home": "apartment", "pets": float64(1)}}
	if err := repo.UpsertEligibilityForm(ctx, first); err != nil {
		t.Fatalf("insert form: %v", err)
	}
	second := &domain.EligibilityForm{UserID: userID, Answers: map[string]interface{}{"home": "house"}}
	if err := repo.UpsertEligibilityForm(ctx, second); err != nil {
		t.Fatalf("update form: %v", err)
	}

	stored, err := repo.FindEligibilityForm(ctx, userID)
	if err != nil {
		t.Fatalf("find form: %v", err)
	}
	if stored.Answers["home"] != "house" || len(stored.Answers) != 1 {
		t.Fatalf("expected replaced answers, got %+v", stored.Answers)
	}
	if !stored.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("expected creation time to survive the update")
	}

	err = repo.WithListingLock(ctx, seedListing(t, pool, seedUser(t, pool), domain.ListingTypeAdoption), func(tx ListingTx, listing *domain.Listing) error {
		exists, err := tx.EligibilityFormExists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected the saved form to satisfy the intake check")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with listing lock: %v", err)
	}
}

func TestPostgresDuplicateOpenApplication(t *testing.T) {
	repo, pool := newIntegrationRepository(t)
	listingID := seedListing(t, pool, seedUser(t, pool), domain.ListingTypeLost)
	adopterID := seedUser(t, pool)
	insertApplication(t, repo, listingID, adopterID)

	err := repo.WithListingLock(context.Background(), listingID, func(tx ListingTx, listing *domain.Listing) error {
		return tx.InsertApplication(context.Background(), &domain.Application{
			ID:        uuid.New(),
			ListingID: listingID,
			AdopterID: adopterID,
			Status:    domain.ApplicationUnderReview,
		})
	})
	if !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("expected duplicate application, got %v", err)
	}
}

func TestPostgresAcceptanceCascade(t *testing.T) {
	repo, pool := newIntegrationRepository(t)
	ctx := context.Background()
	listingID := seedListing(t, pool, seedUser(t, pool), domain.ListingTypeAdoption)
	accepted := insertApplication(t, repo, listingID, seedUser(t, pool))
	siblingA := insertApplication(t, repo, listingID, seedUser(t, pool))
	siblingB := insertApplication(t, repo, listingID, seedUser(t, pool))

	// A failing unit of work leaves every row untouched.
	boom := errors.New("boom")
	err := repo.WithListingLock(ctx, listingID, func(tx ListingTx, listing *domain.Listing) error {
		if _, err := tx.UpdateApplicationStatus(ctx, accepted.ID, domain.ApplicationAccepted, nil); err != nil {
			return err
		}
		if _, err := tx.RejectOpenSiblings(ctx, listingID, accepted.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected rollback error, got %v", err)
	}
	for _, id := range []uuid.UUID{accepted.ID, siblingA.ID, siblingB.ID} {
		application, err := repo.FindApplicationByID(ctx, id)
		if err != nil {
			t.Fatalf("find application: %v", err)
		}
		if application.Status != domain.ApplicationPending {
			t.Fatalf("expected rolled back application to stay pending, got %s", application.Status)
		}
	}

	notes := "good home"
	var rejected []domain.Application
	err = repo.WithListingLock(ctx, listingID, func(tx ListingTx, listing *domain.Listing) error {
		if _, err := tx.UpdateApplicationStatus(ctx, accepted.ID, domain.ApplicationAccepted, &notes); err != nil {
			return err
		}
		var err error
		rejected, err = tx.RejectOpenSiblings(ctx, listingID, accepted.ID)
		if err != nil {
			return err
		}
		return tx.SetListingPaused(ctx, listingID, true)
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected two rejected siblings, got %d", len(rejected))
	}

	stored, err := repo.FindApplicationByID(ctx, accepted.ID)
	if err != nil {
		t.Fatalf("find accepted: %v", err)
	}
	if stored.Status != domain.ApplicationAccepted || stored.AdminNotes == nil || *stored.AdminNotes != notes {
		t.Fatalf("unexpected accepted application %+v", stored)
	}
	for _, id := range []uuid.UUID{siblingA.ID, siblingB.ID} {
		sibling, err := repo.FindApplicationByID(ctx, id)
		if err != nil {
			t.Fatalf("find sibling: %v", err)
		}
		if sibling.Status != domain.ApplicationRejected {
			t.Fatalf("expected sibling rejected, got %s", sibling.Status)
		}
	}
	listing, err := repo.FindListingByID(ctx, listingID)
	if err != nil {
		t.Fatalf("find listing: %v", err)
	}
	if !listing.IsPaused {
		t.Fatal("expected listing to be paused after acceptance")
	}
}

func TestPostgresConcurrentDonationsCreditLedger(t *testing.T) {
	repo, pool := newIntegrationRepository(t)
	ctx := context.Background()
	listingID := seedListing(t, pool, seedUser(t, pool), domain.ListingTypeHelpRequest)
	donorID := seedUser(t, pool)

	const donations = 25
	var wg sync.WaitGroup
	errs := make(chan error, donations)
	for i := 0; i < donations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.CreateDonation(ctx, &domain.Donation{
				ID:                   uuid.New(),
				DonorID:              donorID,
				ListingID:            &listingID,
				Amount:               150,
				PaymentTransactionID: "txn_" + uuid.NewString(),
				PaymentStatus:        "completed",
			}, true)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create donation: %v", err)
		}
	}

	listing, err := repo.FindListingByID(ctx, listingID)
	if err != nil {
		t.Fatalf("find listing: %v", err)
	}
	if listing.CollectedAmount != donations*150 {
		t.Fatalf("expected collected amount %d, got %d", donations*150, listing.CollectedAmount)
	}

	drifts, err := repo.FindLedgerDrift(ctx)
	if err != nil {
		t.Fatalf("find drift: %v", err)
	}
	for _, drift := range drifts {
		if drift.ListingID == listingID {
			t.Fatalf("unexpected drift for consistent listing: %+v", drift)
		}
	}
}

func TestPostgresMessagesAndRatings(t *testing.T) {
	repo, pool := newIntegrationRepository(t)
	ctx := context.Background()
	ownerID := seedUser(t, pool)
	adopterID := seedUser(t, pool)
	listingID := seedListing(t, pool, ownerID, domain.ListingTypeLost)
	application := insertApplication(t, repo, listingID, adopterID)

	toOwner := &domain.Message{ID: uuid.New(), ApplicationID: application.ID, SenderID: adopterID, ReceiverID: ownerID, Content: "hi"}
	toAdopter := &domain.Message{ID: uuid.New(), ApplicationID: application.ID, SenderID: ownerID, ReceiverID: adopterID, Content: "hello"}
	for _, msg := range []*domain.Message{toOwner, toAdopter} {
		if err := repo.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	updated, err := repo.MarkMessagesRead(ctx, []uuid.UUID{toOwner.ID, toAdopter.ID}, ownerID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected only the owner's message to flip, got %d", updated)
	}
	if unread, err := repo.CountUnreadMessages(ctx, adopterID); err != nil || unread != 1 {
		t.Fatalf("expected adopter to keep one unread message, got %d (%v)", unread, err)
	}
	conversation, err := repo.ListMessagesByApplication(ctx, application.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(conversation) != 2 || conversation[0].ID != toOwner.ID {
		t.Fatalf("expected creation order, got %+v", conversation)
	}

	first, err := repo.UpsertRating(ctx, &domain.Rating{ID: uuid.New(), ApplicationID: application.ID, RaterID: adopterID, RatedUserID: ownerID, Score: 3})
	if err != nil {
		t.Fatalf("insert rating: %v", err)
	}
	comment := "changed my mind"
	second, err := repo.UpsertRating(ctx, &domain.Rating{ID: uuid.New(), ApplicationID: application.ID, RaterID: adopterID, RatedUserID: ownerID, Score: 5, Comment: &comment})
	if err != nil {
		t.Fatalf("update rating: %v", err)
	}
	if second.ID != first.ID || second.Score != 5 {
		t.Fatalf("expected upsert to keep id %s, got %+v", first.ID, second)
	}
	summary, err := repo.GetRatingSummary(ctx, ownerID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 1 || summary.Average != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
