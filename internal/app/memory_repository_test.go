package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawhaven/adoption-service/internal/domain"
	"github.com/pawhaven/adoption-service/internal/store"
)

// memoryRepository is an in-memory store.Repository. WithListingLock is serialised by
// lockMu and restores applications and the listing pause flag when fn fails.
type memoryRepository struct {
	lockMu sync.Mutex
	mu     sync.Mutex

	users         map[uuid.UUID]*domain.User
	listings      map[uuid.UUID]*domain.Listing
	forms         map[uuid.UUID]*domain.EligibilityForm
	applications  map[uuid.UUID]*domain.Application
	messages      []domain.Message
	ratings       map[ratingKey]*domain.Rating
	donations     []domain.Donation
	notifications []domain.InAppNotification

	setPausedErr      error
	createDonationErr error
	clock             time.Time
}

type ratingKey struct {
	applicationID uuid.UUID
	raterID       uuid.UUID
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		users:        make(map[uuid.UUID]*domain.User),
		listings:     make(map[uuid.UUID]*domain.Listing),
		forms:        make(map[uuid.UUID]*domain.EligibilityForm),
		applications: make(map[uuid.UUID]*domain.Application),
		ratings:      make(map[ratingKey]*domain.Rating),
		clock:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns strictly increasing timestamps so ordering is deterministic. Caller holds mu.
func (r *memoryRepository) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *memoryRepository) addUser(displayName string, role string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := &domain.User{ID: uuid.New(), DisplayName: displayName, Role: role, IsActive: true}
	r.users[user.ID] = user
	return user
}

func (r *memoryRepository) addListing(ownerID uuid.UUID, listingType domain.ListingType) *domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing := &domain.Listing{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Type:       listingType,
		Title:      "Listing",
		IsApproved: true,
		IsActive:   true,
		CreatedAt:  r.tick(),
	}
	r.listings[listing.ID] = listing
	return listing
}

func (r *memoryRepository) addForm(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forms[userID] = &domain.EligibilityForm{UserID: userID, Answers: map[string]interface{}{"home": "house"}}
}

func (r *memoryRepository) listing(id uuid.UUID) domain.Listing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.listings[id]
}

func (r *memoryRepository) application(id uuid.UUID) domain.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.applications[id]
}

func (r *memoryRepository) putApplication(listingID, adopterID uuid.UUID, status domain.ApplicationStatus) *domain.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	application := &domain.Application{ID: uuid.New(), ListingID: listingID, AdopterID: adopterID, Status: status, CreatedAt: now, UpdatedAt: now}
	r.applications[application.ID] = application
	return application
}

func (r *memoryRepository) donationCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.donations)
}

func (r *memoryRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryRepository) FindListingByID(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.listings[listingID]
	if !ok {
		return nil, store.ErrListingNotFound
	}
	copied := *listing
	return &copied, nil
}

func (r *memoryRepository) UpsertEligibilityForm(ctx context.Context, form *domain.EligibilityForm) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.tick()
	if existing, ok := r.forms[form.UserID]; ok {
		form.CreatedAt = existing.CreatedAt
	} else {
		form.CreatedAt = now
	}
	form.UpdatedAt = now
	copied := *form
	r.forms[form.UserID] = &copied
	return nil
}

func (r *memoryRepository) FindEligibilityForm(ctx context.Context, userID uuid.UUID) (*domain.EligibilityForm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form, ok := r.forms[userID]
	if !ok {
		return nil, store.ErrEligibilityNotFound
	}
	copied := *form
	return &copied, nil
}

func (r *memoryRepository) FindApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	application, ok := r.applications[applicationID]
	if !ok {
		return nil, store.ErrApplicationNotFound
	}
	copied := *application
	return &copied, nil
}

func (r *memoryRepository) ListApplicationsByAdopter(ctx context.Context, adopterID uuid.UUID) ([]domain.Application, error) {
	return r.filterApplications(func(a *domain.Application) bool { return a.AdopterID == adopterID }), nil
}

func (r *memoryRepository) ListApplicationsByOwner(ctx context.Context, ownerID uuid.UUID, status *domain.ApplicationStatus) ([]domain.Application, error) {
	r.mu.Lock()
	owned := make(map[uuid.UUID]bool)
	for id, listing := range r.listings {
		if listing.OwnerID == ownerID {
			owned[id] = true
		}
	}
	r.mu.Unlock()
	return r.filterApplications(func(a *domain.Application) bool {
		return owned[a.ListingID] && (status == nil || a.Status == *status)
	}), nil
}

func (r *memoryRepository) filterApplications(keep func(*domain.Application) bool) []domain.Application {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Application
	for _, application := range r.applications {
		if keep(application) {
			out = append(out, *application)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memoryRepository) WithListingLock(ctx context.Context, listingID uuid.UUID, fn func(tx store.ListingTx, listing *domain.Listing) error) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	listing, ok := r.listings[listingID]
	if !ok {
		r.mu.Unlock()
		return store.ErrListingNotFound
	}
	locked := *listing
	pausedBefore := listing.IsPaused
	snapshot := make(map[uuid.UUID]domain.Application, len(r.applications))
	for id, application := range r.applications {
		snapshot[id] = *application
	}
	r.mu.Unlock()

	if err := fn(&memoryListingTx{repo: r}, &locked); err != nil {
		r.mu.Lock()
		r.applications = make(map[uuid.UUID]*domain.Application, len(snapshot))
		for id := range snapshot {
			application := snapshot[id]
			r.applications[id] = &application
		}
		r.listings[listingID].IsPaused = pausedBefore
		r.mu.Unlock()
		return err
	}
	return nil
}

type memoryListingTx struct {
	repo *memoryRepository
}

func (t *memoryListingTx) EligibilityFormExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	_, ok := t.repo.forms[userID]
	return ok, nil
}

func (t *memoryListingTx) HasOpenApplication(ctx context.Context, listingID, adopterID uuid.UUID) (bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for _, application := range t.repo.applications {
		if application.ListingID == listingID && application.AdopterID == adopterID && application.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryListingTx) InsertApplication(ctx context.Context, application *domain.Application) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	now := t.repo.tick()
	application.CreatedAt = now
	application.UpdatedAt = now
	copied := *application
	t.repo.applications[application.ID] = &copied
	return nil
}

func (t *memoryListingTx) FindApplicationForUpdate(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	return t.repo.FindApplicationByID(ctx, applicationID)
}

func (t *memoryListingTx) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status domain.ApplicationStatus, adminNotes *string) (*domain.Application, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	application, ok := t.repo.applications[applicationID]
	if !ok {
		return nil, store.ErrApplicationNotFound
	}
	application.Status = status
	if adminNotes != nil {
		notes := *adminNotes
		application.AdminNotes = &notes
	}
	application.UpdatedAt = t.repo.tick()
	copied := *application
	return &copied, nil
}

func (t *memoryListingTx) RejectOpenSiblings(ctx context.Context, listingID, exceptID uuid.UUID) ([]domain.Application, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	var rejected []domain.Application
	for id, application := range t.repo.applications {
		if id == exceptID || application.ListingID != listingID {
			continue
		}
		if application.Status == domain.ApplicationPending || application.Status == domain.ApplicationUnderReview {
			application.Status = domain.ApplicationRejected
			application.UpdatedAt = t.repo.tick()
			rejected = append(rejected, *application)
		}
	}
	return rejected, nil
}

func (t *memoryListingTx) SetListingPaused(ctx context.Context, listingID uuid.UUID, paused bool) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	if t.repo.setPausedErr != nil {
		return t.repo.setPausedErr
	}
	t.repo.listings[listingID].IsPaused = paused
	return nil
}

func (r *memoryRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = r.tick()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *memoryRepository) MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}
	var updated int64
	for i := range r.messages {
		msg := &r.messages[i]
		if wanted[msg.ID] && msg.ReceiverID == readerID && !msg.IsRead {
			msg.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (r *memoryRepository) ListMessagesByApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.ApplicationID == applicationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *memoryRepository) CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, msg := range r.messages {
		if msg.ReceiverID == userID && !msg.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ratingKey{applicationID: rating.ApplicationID, raterID: rating.RaterID}
	now := r.tick()
	if existing, ok := r.ratings[key]; ok {
		existing.Score = rating.Score
		existing.Comment = rating.Comment
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}
	stored := *rating
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.ratings[key] = &stored
	copied := stored
	return &copied, nil
}

func (r *memoryRepository) ListRatingsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Rating, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Rating
	for _, rating := range r.ratings {
		if rating.RatedUserID == userID {
			out = append(out, *rating)
		}
	}
	return out, nil
}

func (r *memoryRepository) GetRatingSummary(ctx context.Context, userID uuid.UUID) (*domain.RatingSummary, error) {
	ratings, _ := r.ListRatingsForUser(ctx, userID)
	summary := &domain.RatingSummary{UserID: userID, Count: int64(len(ratings))}
	if len(ratings) == 0 {
		return summary, nil
	}
	total := 0
	for _, rating := range ratings {
		total += rating.Score
	}
	summary.Average = float64(total) / float64(len(ratings))
	return summary, nil
}

func (r *memoryRepository) CreateDonation(ctx context.Context, donation *domain.Donation, creditListing bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createDonationErr != nil {
		return r.createDonationErr
	}
	if creditListing {
		listing, ok := r.listings[*donation.ListingID]
		if !ok {
			return store.ErrListingNotFound
		}
		listing.CollectedAmount += donation.Amount
	}
	donation.CreatedAt = r.tick()
	r.donations = append(r.donations, *donation)
	return nil
}

func (r *memoryRepository) ListDonationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.DonationWithDonor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.DonationWithDonor
	for _, donation := range r.donations {
		if donation.ListingID != nil && *donation.ListingID == listingID {
			name := ""
			if user, ok := r.users[donation.DonorID]; ok {
				name = user.DisplayName
			}
			out = append(out, domain.DonationWithDonor{Donation: donation, DonorName: name})
		}
	}
	return out, nil
}

func (r *memoryRepository) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Donation
	for _, donation := range r.donations {
		if donation.DonorID == donorID {
			out = append(out, donation)
		}
	}
	return out, nil
}

func (r *memoryRepository) FindLedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := make(map[uuid.UUID]int64)
	for _, donation := range r.donations {
		if donation.ListingID != nil {
			totals[*donation.ListingID] += donation.Amount
		}
	}
	var drifts []domain.LedgerDrift
	for id, listing := range r.listings {
		if !domain.PolicyFor(listing.Type).CreditsLedger {
			continue
		}
		if listing.CollectedAmount != totals[id] {
			drifts = append(drifts, domain.LedgerDrift{ListingID: id, CollectedAmount: listing.CollectedAmount, DonationsTotal: totals[id]})
		}
	}
	return drifts, nil
}

func (r *memoryRepository) CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item.DedupeKey != nil {
		for _, existing := range r.notifications {
			if existing.DedupeKey != nil && *existing.DedupeKey == *item.DedupeKey {
				return nil
			}
		}
	}
	item.Status = "unread"
	item.CreatedAt = r.tick()
	r.notifications = append(r.notifications, item)
	return nil
}

func (r *memoryRepository) ListInAppNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) ([]domain.InAppNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.InAppNotification
	for _, item := range r.notifications {
		if item.UserID == userID && (!opts.UnreadOnly || item.Status == "unread") {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memoryRepository) MarkInAppNotificationRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == notificationID && r.notifications[i].UserID == userID {
			r.notifications[i].Status = "read"
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) CountUnreadInAppNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	items, _ := r.ListInAppNotifications(ctx, userID, domain.NotificationListOptions{UnreadOnly: true})
	return int64(len(items)), nil
}
