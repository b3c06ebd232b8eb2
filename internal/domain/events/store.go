package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	GetByID(ctx context.Context, eventID int64) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	List(ctx context.Context, filter Filter) ([]Event, error)
	SetThumbnail(ctx context.Context, eventID int64, url string) error
	MarkPastEvents(ctx context.Context) (int64, error)
	GetAggregate(ctx context.Context, eventID int64) (*Aggregate, error)
	UpsertAggregate(ctx context.Context, agg *Aggregate) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Store {
	return &Repository{db: db}
}

const eventColumns = `
    id, name, slug, description, category, start_date, end_date, location,
    city, country, venue, organizer_name, website_url, thumbnail_url,
    is_featured, status, created_at, updated_at
`

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Name, &e.Slug, &e.Description, &e.Category, &e.StartDate,
		&e.EndDate, &e.Location, &e.City, &e.Country, &e.Venue,
		&e.OrganizerName, &e.WebsiteURL, &e.ThumbnailURL, &e.IsFeatured,
		&e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetByID(ctx context.Context, eventID int64) (*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Event, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
        SELECT ` + eventColumns + `
        FROM events
        WHERE ($1::text IS NULL OR category = $1)
          AND ($2::text IS NULL OR status = $2)
        ORDER BY is_featured DESC, start_date ASC NULLS LAST
        LIMIT $3 OFFSET $4
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, query, filter.Category, filter.Status, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Event
	for rows.Next() {
		var e Event
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

func (r *Repository) SetThumbnail(ctx context.Context, eventID int64, url string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx,
		`UPDATE events SET thumbnail_url = $1, updated_at = NOW() WHERE id = $2`,
		url, eventID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPastEvents flips upcoming events whose end (or start) date has passed.
// Run periodically by the API process.
func (r *Repository) MarkPastEvents(ctx context.Context) (int64, error) {
	query := `
        UPDATE events
        SET status = $1, updated_at = NOW()
        WHERE status = $2 AND COALESCE(end_date, start_date) < NOW()
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	res, err := r.db.Exec(ctx, query, StatusPast, StatusUpcoming)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (r *Repository) GetAggregate(ctx context.Context, eventID int64) (*Aggregate, error) {
	query := `
        SELECT event_id, review_count, average_rating, average_roi, updated_at
        FROM event_aggregates
        WHERE event_id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var agg Aggregate
	err := r.db.QueryRow(ctx, query, eventID).Scan(
		&agg.EventID, &agg.ReviewCount, &agg.AverageRating, &agg.AverageROI, &agg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &agg, nil
}

func (r *Repository) UpsertAggregate(ctx context.Context, agg *Aggregate) error {
	query := `
        INSERT INTO event_aggregates (event_id, review_count, average_rating, average_roi, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (event_id) DO UPDATE
            SET review_count = EXCLUDED.review_count,
                average_rating = EXCLUDED.average_rating,
                average_roi = EXCLUDED.average_roi,
                updated_at = EXCLUDED.updated_at
    `

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, query,
		agg.EventID, agg.ReviewCount, agg.AverageRating, agg.AverageROI, agg.UpdatedAt)
	return err
}
