package eventstatus

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sponsorhub/internal/domain/events"
)

type Store interface {
	Set(ctx context.Context, userID, eventID int64, status Status) error
	Clear(ctx context.Context, userID, eventID int64) error
	Get(ctx context.Context, userID, eventID int64) (Status, error)
	EventsAwaitingReview(ctx context.Context, userID int64, page, limit int) ([]events.Event, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

// Set upserts the single status row for the (user, event) pair. Upserts are
// idempotent, so concurrent sets need no guard beyond the conflict clause.
func (r *Repository) Set(ctx context.Context, userID, eventID int64, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}

	query := `
        INSERT INTO event_statuses (user_id, event_id, status)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, event_id)
        DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query, userID, eventID, status)
	return err
}

// Clear removes the status row; a null/none status means no relationship.
func (r *Repository) Clear(ctx context.Context, userID, eventID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`DELETE FROM event_statuses WHERE user_id = $1 AND event_id = $2`,
		userID, eventID)
	return err
}

// Get returns the current status, or "" when no row exists.
func (r *Repository) Get(ctx context.Context, userID, eventID int64) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var status Status
	err := r.db.QueryRow(ctx,
		`SELECT status FROM event_statuses WHERE user_id = $1 AND event_id = $2`,
		userID, eventID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return status, err
}

// EventsAwaitingReview lists events the user marked want_to_go or went but
// has not started reviewing. A draft already excludes the event: the user has
// begun writing. Paginated by event start date, so the sequence is finite and
// restartable.
func (r *Repository) EventsAwaitingReview(ctx context.Context, userID int64, page, limit int) ([]events.Event, error) {
	query := `
        SELECT e.id, e.name, e.slug, e.description, e.category, e.start_date,
               e.end_date, e.location, e.city, e.country, e.venue,
               e.organizer_name, e.website_url, e.thumbnail_url, e.is_featured,
               e.status, e.created_at, e.updated_at
        FROM events e
        JOIN event_statuses s
          ON s.event_id = e.id AND s.user_id = $1 AND s.status IN ($2, $3)
        LEFT JOIN reviews r
          ON r.event_id = e.id AND r.user_id = $1
        WHERE r.id IS NULL
        ORDER BY e.start_date ASC NULLS LAST
        LIMIT $4 OFFSET $5
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, userID, WantToGo, Went, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []events.Event
	for rows.Next() {
		var e events.Event
		err := rows.Scan(
			&e.ID, &e.Name, &e.Slug, &e.Description, &e.Category, &e.StartDate,
			&e.EndDate, &e.Location, &e.City, &e.Country, &e.Venue,
			&e.OrganizerName, &e.WebsiteURL, &e.ThumbnailURL, &e.IsFeatured,
			&e.Status, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
