package events

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("event not found")
	QueryTimeoutDuration = time.Second * 5
)

const (
	StatusUpcoming  = "upcoming"
	StatusPast      = "past"
	StatusCancelled = "cancelled"
)

type Event struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Description   *string    `json:"description,omitempty"`
	Category      *string    `json:"category,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Location      *string    `json:"location,omitempty"`
	City          *string    `json:"city,omitempty"`
	Country       *string    `json:"country,omitempty"`
	Venue         *string    `json:"venue,omitempty"`
	OrganizerName *string    `json:"organizer_name,omitempty"`
	WebsiteURL    *string    `json:"website_url,omitempty"`
	ThumbnailURL  *string    `json:"thumbnail_url,omitempty"`
	IsFeatured    bool       `json:"is_featured"`
	Status        string     `json:"status"` // upcoming|past|cancelled
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Aggregate is the cached per-event summary derived from published reviews.
// It is recomputed, never authored; AverageROI is absent (nil) when no
// published review carries an ROI value.
type Aggregate struct {
	EventID       int64     `json:"event_id"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	AverageROI    *float64  `json:"average_roi,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Filter struct {
	Category *string
	Status   *string
	Page     int
	Limit    int
}
