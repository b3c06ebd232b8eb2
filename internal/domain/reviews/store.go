package reviews

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sponsorhub/internal/moderation"
)

type Store interface {
	Create(ctx context.Context, review *Review) error
	GetByID(ctx context.Context, reviewID int64) (*Review, error)
	GetByUserEvent(ctx context.Context, userID, eventID int64) (*Review, error)
	CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error)
	CountRejections(ctx context.Context, userID int64) (int, error)
	ListPublishedByEvent(ctx context.Context, eventID int64) ([]Review, error)
	ListForEvent(ctx context.Context, eventID int64, page, limit int) ([]Review, error)
	ListQueue(ctx context.Context, queue Queue, page, limit int) ([]Review, error)
	Transition(ctx context.Context, reviewID int64, action moderation.Action, from moderation.Status, patch TransitionPatch) (moderation.Status, error)
	UpdateContent(ctx context.Context, review *Review) error
	AddFlags(ctx context.Context, reviewID int64, flags []ModerationFlag) error
	GetFlags(ctx context.Context, reviewID int64) ([]ModerationFlag, error)
	MarkHelpful(ctx context.Context, reviewID, userID int64) (bool, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// Create inserts a draft review. The reviews table carries
// UNIQUE(event_id, user_id), so concurrent submissions for the same pair
// collapse to one winner here rather than in application code.
func (r *Repository) Create(ctx context.Context, review *Review) error {
	query := `
        INSERT INTO reviews (
            event_id, user_id, company_id, title, content, rating, roi,
            sponsorship_tier, sponsorship_cost, leads_generated, deals_closed,
            recommendation, status, is_verified
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at, updated_at
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, query,
		review.EventID,
		review.UserID,
		review.CompanyID,
		review.Title,
		review.Content,
		review.Rating,
		review.ROI,
		review.SponsorshipTier,
		review.SponsorshipCost,
		review.LeadsGenerated,
		review.DealsClosed,
		review.Recommendation,
		moderation.StatusDraft,
		false,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyReviewed
	}
	if err != nil {
		return err
	}

	review.Status = moderation.StatusDraft
	return nil
}

const reviewColumns = `
    r.id, r.event_id, r.user_id, r.company_id, r.title, r.content, r.rating,
    r.roi, r.sponsorship_tier, r.sponsorship_cost, r.leads_generated,
    r.deals_closed, r.recommendation, r.status, r.trust_score, r.is_verified,
    r.verification_method, r.helpful_count, r.moderator_id, r.moderation_reason,
    r.created_at, r.updated_at, r.published_at
`

func scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(
		&rv.ID, &rv.EventID, &rv.UserID, &rv.CompanyID, &rv.Title, &rv.Content,
		&rv.Rating, &rv.ROI, &rv.SponsorshipTier, &rv.SponsorshipCost,
		&rv.LeadsGenerated, &rv.DealsClosed, &rv.Recommendation, &rv.Status,
		&rv.TrustScore, &rv.IsVerified, &rv.VerificationMethod, &rv.HelpfulCount,
		&rv.ModeratorID, &rv.ModerationReason, &rv.CreatedAt, &rv.UpdatedAt,
		&rv.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

func (r *Repository) GetByID(ctx context.Context, reviewID int64) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanReview(r.db.QueryRow(ctx, query, reviewID))
}

func (r *Repository) GetByUserEvent(ctx context.Context, userID, eventID int64) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.user_id = $1 AND r.event_id = $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanReview(r.db.QueryRow(ctx, query, userID, eventID))
}

// CountCreatedSince counts reviews of any status the user created in the
// trailing quota window, as of read time.
func (r *Repository) CountCreatedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&count)
	return count, err
}

// CountRejections feeds the trust scorer's prior-violation signal.
func (r *Repository) CountRejections(ctx context.Context, userID int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND status = $2`,
		userID, moderation.StatusRejected).Scan(&count)
	return count, err
}

// ListPublishedByEvent returns the full published set for an event, the input
// to aggregate recomputation.
func (r *Repository) ListPublishedByEvent(ctx context.Context, eventID int64) ([]Review, error) {
	query := `
        SELECT ` + reviewColumns + `
        FROM reviews r
        WHERE r.event_id = $1 AND r.status = $2
        ORDER BY r.published_at DESC
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, eventID, moderation.StatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReviews(rows)
}

// ListForEvent returns published reviews with author details for the public
// event page.
func (r *Repository) ListForEvent(ctx context.Context, eventID int64, page, limit int) ([]Review, error) {
	query := `
        SELECT ` + reviewColumns + `, p.full_name, c.name
        FROM reviews r
        JOIN profiles p ON p.id = r.user_id
        LEFT JOIN companies c ON c.id = r.company_id
        WHERE r.event_id = $1 AND r.status = $2
        ORDER BY r.helpful_count DESC, r.published_at DESC
        LIMIT $3 OFFSET $4
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, eventID, moderation.StatusPublished, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rv Review
		err := rows.Scan(
			&rv.ID, &rv.EventID, &rv.UserID, &rv.CompanyID, &rv.Title, &rv.Content,
			&rv.Rating, &rv.ROI, &rv.SponsorshipTier, &rv.SponsorshipCost,
			&rv.LeadsGenerated, &rv.DealsClosed, &rv.Recommendation, &rv.Status,
			&rv.TrustScore, &rv.IsVerified, &rv.VerificationMethod, &rv.HelpfulCount,
			&rv.ModeratorID, &rv.ModerationReason, &rv.CreatedAt, &rv.UpdatedAt,
			&rv.PublishedAt, &rv.AuthorName, &rv.CompanyName,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// ListQueue lists a moderation queue. Flagged means pending with at least one
// moderation flag attached; pending means pending with none.
func (r *Repository) ListQueue(ctx context.Context, queue Queue, page, limit int) ([]Review, error) {
	var cond string
	status := moderation.StatusPending
	switch queue {
	case QueuePending:
		cond = `AND NOT EXISTS (SELECT 1 FROM moderation_flags f WHERE f.review_id = r.id)`
	case QueueFlagged:
		cond = `AND EXISTS (SELECT 1 FROM moderation_flags f WHERE f.review_id = r.id)`
	case QueuePublished:
		status = moderation.StatusPublished
	default:
		return nil, fmt.Errorf("unknown moderation queue %q", queue)
	}

	query := `
        SELECT ` + reviewColumns + `
        FROM reviews r
        WHERE r.status = $1 ` + cond + `
        ORDER BY r.created_at ASC
        LIMIT $2 OFFSET $3
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, status, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectReviews(rows)
}

func collectReviews(rows pgx.Rows) ([]Review, error) {
	var reviews []Review
	for rows.Next() {
		var rv Review
		err := rows.Scan(
			&rv.ID, &rv.EventID, &rv.UserID, &rv.CompanyID, &rv.Title, &rv.Content,
			&rv.Rating, &rv.ROI, &rv.SponsorshipTier, &rv.SponsorshipCost,
			&rv.LeadsGenerated, &rv.DealsClosed, &rv.Recommendation, &rv.Status,
			&rv.TrustScore, &rv.IsVerified, &rv.VerificationMethod, &rv.HelpfulCount,
			&rv.ModeratorID, &rv.ModerationReason, &rv.CreatedAt, &rv.UpdatedAt,
			&rv.PublishedAt,
		)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Transition applies a lifecycle action as a compare-and-swap on the review
// status. The target state comes from the moderation transition table, and the
// WHERE clause pins the expected current status, so two concurrent moderators
// get exactly one winner; the loser is told which state the review is really in.
func (r *Repository) Transition(ctx context.Context, reviewID int64, action moderation.Action, from moderation.Status, patch TransitionPatch) (moderation.Status, error) {
	to, err := moderation.Next(from, action)
	if err != nil {
		return "", err
	}

	query := `
        UPDATE reviews
        SET status = $1,
            trust_score = COALESCE($2, trust_score),
            published_at = COALESCE($3, published_at),
            is_verified = COALESCE($4, is_verified),
            verification_method = COALESCE($5, verification_method),
            moderator_id = COALESCE($6, moderator_id),
            moderation_reason = COALESCE($7, moderation_reason),
            updated_at = NOW()
        WHERE id = $8 AND status = $9
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, query,
		to,
		patch.TrustScore,
		patch.PublishedAt,
		patch.IsVerified,
		patch.VerificationMethod,
		patch.ModeratorID,
		patch.Reason,
		reviewID,
		from,
	)
	if err != nil {
		return "", err
	}
	if res.RowsAffected() > 0 {
		return to, nil
	}

	// Lost the race or the caller was stale; report the actual state.
	current, err := r.GetByID(ctx, reviewID)
	if err != nil {
		return "", err
	}
	return "", &moderation.InvalidTransitionError{From: current.Status, Action: action}
}

// UpdateContent lets the author revise a review that has not been rejected.
// Moderation-owned columns are untouched.
func (r *Repository) UpdateContent(ctx context.Context, review *Review) error {
	query := `
        UPDATE reviews
        SET title = $1, content = $2, rating = $3, roi = $4,
            sponsorship_tier = $5, sponsorship_cost = $6, leads_generated = $7,
            deals_closed = $8, recommendation = $9, updated_at = NOW()
        WHERE id = $10 AND user_id = $11 AND status != $12
        RETURNING updated_at
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := r.db.QueryRow(ctx, query,
		review.Title,
		review.Content,
		review.Rating,
		review.ROI,
		review.SponsorshipTier,
		review.SponsorshipCost,
		review.LeadsGenerated,
		review.DealsClosed,
		review.Recommendation,
		review.ID,
		review.UserID,
		moderation.StatusRejected,
	).Scan(&review.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) AddFlags(ctx context.Context, reviewID int64, flags []ModerationFlag) error {
	if len(flags) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	batch := &pgx.Batch{}
	for _, f := range flags {
		batch.Queue(`
            INSERT INTO moderation_flags (review_id, kind, note)
            VALUES ($1, $2, $3)
            ON CONFLICT (review_id, kind) DO NOTHING
        `, reviewID, f.Kind, f.Note)
	}

	return r.db.SendBatch(ctx, batch).Close()
}

func (r *Repository) GetFlags(ctx context.Context, reviewID int64) ([]ModerationFlag, error) {
	query := `
        SELECT id, review_id, kind, note, created_at
        FROM moderation_flags
        WHERE review_id = $1
        ORDER BY created_at ASC
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []ModerationFlag
	for rows.Next() {
		var f ModerationFlag
		if err := rows.Scan(&f.ID, &f.ReviewID, &f.Kind, &f.Note, &f.CreatedAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// MarkHelpful records a helpful vote, deduplicated per user, and bumps the
// counter only when the vote is new. Returns whether the vote counted.
func (r *Repository) MarkHelpful(ctx context.Context, reviewID, userID int64) (bool, error) {
	query := `
        WITH vote AS (
            INSERT INTO review_helpful_votes (review_id, user_id)
            VALUES ($1, $2)
            ON CONFLICT (review_id, user_id) DO NOTHING
            RETURNING review_id
        )
        UPDATE reviews SET helpful_count = helpful_count + 1
        WHERE id = (SELECT review_id FROM vote)
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, query, reviewID, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}
