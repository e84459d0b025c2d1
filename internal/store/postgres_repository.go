/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains the SQL for listings, applications, messages, ratings, donations and
 * in-app notifications.
 *
 * @notes
 * - Application mutations run inside `WithListingLock`, which holds the listing row
 *   lock (`SELECT ... FOR UPDATE`) for the whole unit of work.
 * - Partial unique indexes back the one-open-application-per-pair and
 *   one-accepted-application-per-listing invariants; violations map to domain errors.
 * - The donation ledger uses `collected_amount = collected_amount + $1` so concurrent
 *   donations never lose an update.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pawhaven/adoption-service/internal/domain"
)

const (
	uniqueViolationCode          = "23505"
	openPairConstraint           = "applications_open_pair_uniq"
	acceptedPerListingConstraint = "applications_accepted_listing_uniq"
)

const applicationColumns = `id, listing_id, adopter_id, status, message, admin_notes, created_at, updated_at`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, display_name, role, is_active FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&user.ID, &user.DisplayName, &user.Role, &user.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

const listingColumns = `id, owner_id, type, title, is_approved, is_active, is_paused, is_deleted,
	required_amount, collected_amount, created_at, updated_at`

func scanListing(row rowScanner) (*domain.Listing, error) {
	var listing domain.Listing
	var listingType string
	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listingType,
		&listing.Title,
		&listing.IsApproved,
		&listing.IsActive,
		&listing.IsPaused,
		&listing.IsDeleted,
		&listing.RequiredAmount,
		&listing.CollectedAmount,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	listing.Type = domain.ListingType(listingType)
	return &listing, nil
}

// FindListingByID retrieves a listing, including soft-deleted ones.
func (r *PostgresRepository) FindListingByID(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	listing, err := scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return listing, nil
}

// UpsertEligibilityForm creates or replaces the user's eligibility form.
func (r *PostgresRepository) UpsertEligibilityForm(ctx context.Context, form *domain.EligibilityForm) error {
	answers := form.Answers
	if answers == nil {
		answers = map[string]interface{}{}
	}
	payload, err := encodeAnswers(answers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO eligibility_forms (user_id, answers)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (user_id) DO UPDATE
		SET answers = EXCLUDED.answers, updated_at = NOW()
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query, form.UserID, payload).Scan(&form.CreatedAt, &form.UpdatedAt)
}

// encodeAnswers renders the answers as JSON text. The pool runs in simple-protocol mode,
// where a []byte argument is sent as a bytea literal, so jsonb columns get a string.
func encodeAnswers(answers map[string]interface{}) (string, error) {
	payload, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal eligibility answers: %w", err)
	}
	return string(payload), nil
}

// FindEligibilityForm returns the user's eligibility form.
func (r *PostgresRepository) FindEligibilityForm(ctx context.Context, userID uuid.UUID) (*domain.EligibilityForm, error) {
	var form domain.EligibilityForm
	var payload []byte
	query := `SELECT user_id, answers, created_at, updated_at FROM eligibility_forms WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&form.UserID, &payload, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEligibilityNotFound
		}
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &form.Answers); err != nil {
			return nil, fmt.Errorf("decode eligibility answers: %w", err)
		}
	}
	return &form, nil
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	var application domain.Application
	var status string
	err := row.Scan(
		&application.ID,
		&application.ListingID,
		&application.AdopterID,
		&status,
		&application.Message,
		&application.AdminNotes,
		&application.CreatedAt,
		&application.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	application.Status = domain.ApplicationStatus(status)
	return &application, nil
}

func collectApplications(rows pgx.Rows) ([]domain.Application, error) {
	defer rows.Close()

	var applications []domain.Application
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		applications = append(applications, *application)
	}
	return applications, rows.Err()
}

// FindApplicationByID retrieves an application without locking it.
func (r *PostgresRepository) FindApplicationByID(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	application, err := scanApplication(r.db.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, applicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return application, nil
}

// ListApplicationsByAdopter returns the adopter's applications, newest first.
func (r *PostgresRepository) ListApplicationsByAdopter(ctx context.Context, adopterID uuid.UUID) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE adopter_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, adopterID)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

// ListApplicationsByOwner returns applications received on the owner's listings.
func (r *PostgresRepository) ListApplicationsByOwner(ctx context.Context, ownerID uuid.UUID, status *domain.ApplicationStatus) ([]domain.Application, error) {
	query := `
		SELECT a.id, a.listing_id, a.adopter_id, a.status, a.message, a.admin_notes, a.created_at, a.updated_at
		FROM applications a
		JOIN listings l ON l.id = a.listing_id
		WHERE l.owner_id = $1
	`
	args := []interface{}{ownerID}
	if status != nil {
		query += " AND a.status = $2"
		args = append(args, string(*status))
	}
	query += " ORDER BY a.created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

// WithListingLock locks the listing row and runs fn inside the same transaction.
func (r *PostgresRepository) WithListingLock(ctx context.Context, listingID uuid.UUID, fn func(tx ListingTx, listing *domain.Listing) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Use FOR UPDATE so intake, transitions and the acceptance cascade on this
	// listing never interleave.
	listing, err := scanListing(tx.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, listingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to get and lock listing: %w", err)
	}

	if err := fn(&postgresListingTx{tx: tx}, listing); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapApplicationConstraintError(err)
	}
	return nil
}

type postgresListingTx struct {
	tx pgx.Tx
}

func (t *postgresListingTx) EligibilityFormExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM eligibility_forms WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (t *postgresListingTx) HasOpenApplication(ctx context.Context, listingID uuid.UUID, adopterID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE listing_id = $1 AND adopter_id = $2
			  AND status IN ('pending', 'under_review', 'accepted')
		)
	`
	err := t.tx.QueryRow(ctx, query, listingID, adopterID).Scan(&exists)
	return exists, err
}

func (t *postgresListingTx) InsertApplication(ctx context.Context, application *domain.Application) error {
	query := `
		INSERT INTO applications (id, listing_id, adopter_id, status, message, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := t.tx.QueryRow(ctx, query,
		application.ID,
		application.ListingID,
		application.AdopterID,
		string(application.Status),
		application.Message,
		application.AdminNotes,
	).Scan(&application.CreatedAt, &application.UpdatedAt)
	if err != nil {
		return mapApplicationConstraintError(err)
	}
	return nil
}

func (t *postgresListingTx) FindApplicationForUpdate(ctx context.Context, applicationID uuid.UUID) (*domain.Application, error) {
	application, err := scanApplication(t.tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, applicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return application, nil
}

func (t *postgresListingTx) UpdateApplicationStatus(ctx context.Context, applicationID uuid.UUID, status domain.ApplicationStatus, adminNotes *string) (*domain.Application, error) {
	query := `
		UPDATE applications
		SET status = $2,
		    admin_notes = COALESCE($3, admin_notes),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + applicationColumns
	application, err := scanApplication(t.tx.QueryRow(ctx, query, applicationID, string(status), adminNotes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, mapApplicationConstraintError(err)
	}
	return application, nil
}

func (t *postgresListingTx) RejectOpenSiblings(ctx context.Context, listingID uuid.UUID, exceptID uuid.UUID) ([]domain.Application, error) {
	query := `
		UPDATE applications
		SET status = 'rejected', updated_at = NOW()
		WHERE listing_id = $1
		  AND id <> $2
		  AND status IN ('pending', 'under_review')
		RETURNING ` + applicationColumns
	rows, err := t.tx.Query(ctx, query, listingID, exceptID)
	if err != nil {
		return nil, err
	}
	return collectApplications(rows)
}

func (t *postgresListingTx) SetListingPaused(ctx context.Context, listingID uuid.UUID, paused bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE listings SET is_paused = $2, updated_at = NOW() WHERE id = $1`, listingID, paused)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrListingNotFound
	}
	return nil
}

// mapApplicationConstraintError turns partial-unique-index violations into domain errors.
func mapApplicationConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case openPairConstraint:
		return ErrDuplicateApplication
	case acceptedPerListingConstraint:
		return ErrListingHasAccepted
	default:
		return err
	}
}

// CreateMessage stores a message with is_read = false.
func (r *PostgresRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, application_id, sender_id, receiver_id, content, is_read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING is_read, created_at
	`
	return r.db.QueryRow(ctx, query, msg.ID, msg.ApplicationID, msg.SenderID, msg.ReceiverID, msg.Content).
		Scan(&msg.IsRead, &msg.CreatedAt)
}

// MarkMessagesRead flips unread messages addressed to readerID; others are left untouched.
func (r *PostgresRepository) MarkMessagesRead(ctx context.Context, messageIDs []uuid.UUID, readerID uuid.UUID) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		ids = append(ids, id.String())
	}

	query := `
		UPDATE messages
		SET is_read = TRUE
		WHERE id = ANY($1::uuid[])
		  AND receiver_id = $2
		  AND is_read = FALSE
	`
	tag, err := r.db.Exec(ctx, query, ids, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListMessagesByApplication returns the conversation in creation order, oldest first.
func (r *PostgresRepository) ListMessagesByApplication(ctx context.Context, applicationID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, application_id, sender_id, receiver_id, content, is_read, created_at
		FROM messages
		WHERE application_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.db.Query(ctx, query, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.ApplicationID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountUnreadMessages counts unread messages addressed to the user across all applications.
func (r *PostgresRepository) CountUnreadMessages(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND is_read = FALSE`, userID).Scan(&count)
	return count, err
}

const ratingColumns = `id, application_id, rater_id, rated_user_id, score, comment, created_at, updated_at`

func scanRating(row rowScanner) (*domain.Rating, error) {
	var rating domain.Rating
	err := row.Scan(
		&rating.ID,
		&rating.ApplicationID,
		&rating.RaterID,
		&rating.RatedUserID,
		&rating.Score,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// UpsertRating inserts a rating or overwrites score/comment of the existing
// (application, rater) row, keeping its id.
func (r *PostgresRepository) UpsertRating(ctx context.Context, rating *domain.Rating) (*domain.Rating, error) {
	query := `
		INSERT INTO ratings (id, application_id, rater_id, rated_user_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id, rater_id) DO UPDATE
		SET score = EXCLUDED.score,
		    comment = EXCLUDED.comment,
		    rated_user_id = EXCLUDED.rated_user_id,
		    updated_at = NOW()
		RETURNING ` + ratingColumns
	return scanRating(r.db.QueryRow(ctx, query,
		rating.ID,
		rating.ApplicationID,
		rating.RaterID,
		rating.RatedUserID,
		rating.Score,
		rating.Comment,
	))
}

// ListRatingsForUser returns the ratings a user has received, newest first.
func (r *PostgresRepository) ListRatingsForUser(ctx context.Context, userID uuid.UUID) ([]domain.Rating, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ratingColumns+` FROM ratings WHERE rated_user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, *rating)
	}
	return ratings, rows.Err()
}

func (r *PostgresRepository) GetRatingSummary(ctx context.Context, userID uuid.UUID) (*domain.RatingSummary, error) {
	summary := domain.RatingSummary{UserID: userID}
	query := `SELECT COUNT(*), COALESCE(AVG(score), 0)::float8 FROM ratings WHERE rated_user_id = $1`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&summary.Count, &summary.Average); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateDonation inserts the donation and credits the listing ledger atomically.
func (r *PostgresRepository) CreateDonation(ctx context.Context, donation *domain.Donation, creditListing bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery := `
		INSERT INTO donations (
			id, donor_id, listing_id, amount, message, is_anonymous,
			payment_transaction_id, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		donation.ID,
		donation.DonorID,
		donation.ListingID,
		donation.Amount,
		donation.Message,
		donation.IsAnonymous,
		donation.PaymentTransactionID,
		donation.PaymentStatus,
	).Scan(&donation.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}

	if creditListing && donation.ListingID != nil {
		// Single atomic increment; never read-modify-write in Go.
		tag, err := tx.Exec(ctx,
			`UPDATE listings SET collected_amount = collected_amount + $1, updated_at = NOW() WHERE id = $2`,
			donation.Amount, *donation.ListingID,
		)
		if err != nil {
			return fmt.Errorf("failed to credit listing ledger: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// The payment is already captured; keep the donation and let reconciliation flag it.
			log.Printf("level=warn component=ledger msg=\"credit target listing missing; donation recorded without credit\" donation_id=%s listing_id=%s amount=%d", donation.ID, *donation.ListingID, donation.Amount)
		}
	}

	return tx.Commit(ctx)
}

const donationColumns = `d.id, d.donor_id, d.listing_id, d.amount, d.message, d.is_anonymous,
	d.payment_transaction_id, d.payment_status, d.created_at`

func scanDonation(row rowScanner, extra ...interface{}) (*domain.Donation, error) {
	var donation domain.Donation
	dest := []interface{}{
		&donation.ID,
		&donation.DonorID,
		&donation.ListingID,
		&donation.Amount,
		&donation.Message,
		&donation.IsAnonymous,
		&donation.PaymentTransactionID,
		&donation.PaymentStatus,
		&donation.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &donation, nil
}

// ListDonationsByListing returns the listing's donations with donor display names.
func (r *PostgresRepository) ListDonationsByListing(ctx context.Context, listingID uuid.UUID) ([]domain.DonationWithDonor, error) {
	query := `
		SELECT ` + donationColumns + `, COALESCE(u.display_name, '')
		FROM donations d
		LEFT JOIN users u ON u.id = d.donor_id
		WHERE d.listing_id = $1
		ORDER BY d.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.DonationWithDonor
	for rows.Next() {
		var donorName string
		donation, err := scanDonation(rows, &donorName)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.DonationWithDonor{Donation: *donation, DonorName: donorName})
	}
	return results, rows.Err()
}

// ListDonationsByDonor returns the donor's own donations, newest first.
func (r *PostgresRepository) ListDonationsByDonor(ctx context.Context, donorID uuid.UUID) ([]domain.Donation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+donationColumns+` FROM donations d WHERE d.donor_id = $1 ORDER BY d.created_at DESC`, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.Donation
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, *donation)
	}
	return donations, rows.Err()
}

// FindLedgerDrift lists help-request listings whose collected amount differs from the
// sum of their donations.
func (r *PostgresRepository) FindLedgerDrift(ctx context.Context) ([]domain.LedgerDrift, error) {
	query := `
		SELECT l.id, l.collected_amount, COALESCE(SUM(d.amount), 0)::bigint AS donations_total
		FROM listings l
		LEFT JOIN donations d ON d.listing_id = l.id
		WHERE l.type = 'help_request'
		GROUP BY l.id, l.collected_amount
		HAVING l.collected_amount <> COALESCE(SUM(d.amount), 0)
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []domain.LedgerDrift
	for rows.Next() {
		var drift domain.LedgerDrift
		if err := rows.Scan(&drift.ListingID, &drift.CollectedAmount, &drift.DonationsTotal); err != nil {
			return nil, err
		}
		drifts = append(drifts, drift)
	}
	return drifts, rows.Err()
}

// CreateInAppNotification inserts an inbox entry; a repeated dedupe key is ignored.
func (r *PostgresRepository) CreateInAppNotification(ctx context.Context, item domain.InAppNotification) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	query := `
		INSERT INTO in_app_notifications (
			id, user_id, type, title, body, status, related_entity_type, related_entity_id, dedupe_key
		)
		VALUES ($1, $2, $3, $4, $5, 'unread', $6, $7, $8)
		ON CONFLICT (dedupe_key) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.UserID,
		item.Type,
		item.Title,
		item.Body,
		item.RelatedEntityType,
		item.RelatedEntityID,
		item.DedupeKey,
	)
	return err
}

func (r *PostgresRepository) ListInAppNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) ([]domain.InAppNotification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, user_id, type, title, body, status, related_entity_type, related_entity_id, read_at, created_at
		FROM in_app_notifications
		WHERE user_id = $1
	`
	if opts.UnreadOnly {
		query += " AND status = 'unread'"
	}
	query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.InAppNotification
	for rows.Next() {
		var item domain.InAppNotification
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Type,
			&item.Title,
			&item.Body,
			&item.Status,
			&item.RelatedEntityType,
			&item.RelatedEntityID,
			&item.ReadAt,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (r *PostgresRepository) MarkInAppNotificationRead(ctx context.Context, userID uuid.UUID, notificationID uuid.UUID) (bool, error) {
	query := `
		UPDATE in_app_notifications
		SET status = 'read', read_at = COALESCE(read_at, NOW())
		WHERE id = $1
		  AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) CountUnreadInAppNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1 AND status = 'unread'`, userID).Scan(&count)
	return count, err
}
