package reviews

import (
	"errors"
	"fmt"
	"time"

	"sponsorhub/internal/moderation"
	"sponsorhub/internal/trust"
)

var (
	ErrNotFound = errors.New("review not found")
	// ErrAlreadyReviewed is raised off the (event_id, user_id) unique
	// constraint; the caller should edit the existing review instead.
	ErrAlreadyReviewed = errors.New("a review for this event already exists; edit the existing review instead")

	QueryTimeoutDuration = time.Second * 5
)

// QuotaExceededError is returned when a free-tier sponsor has used up the
// trailing-window review allowance.
type QuotaExceededError struct {
	Limit  int
	Window time.Duration
	Tier   string
}

func (e *QuotaExceededError) Error() string {
	days := int(e.Window.Hours() / 24)
	return fmt.Sprintf("review limit reached (%d reviews per %d days on the %s tier)", e.Limit, days, e.Tier)
}

// UpgradeHint is surfaced to free-tier users alongside the error.
func (e *QuotaExceededError) UpgradeHint() string {
	if e.Tier == "free" {
		return "Upgrade to Pro for unlimited reviews."
	}
	return ""
}

type Recommendation string

const (
	Recommended Recommendation = "recommended"
	Neutral     Recommendation = "neutral"
	Avoid       Recommendation = "avoid"
)

type Review struct {
	ID                 int64             `json:"id"`
	EventID            int64             `json:"event_id"`
	UserID             int64             `json:"user_id"`
	CompanyID          *int64            `json:"company_id,omitempty"`
	Title              string            `json:"title"`
	Content            string            `json:"content"`
	Rating             int               `json:"rating"` // 1-5
	ROI                *float64          `json:"roi,omitempty"`
	SponsorshipTier    *string           `json:"sponsorship_tier,omitempty"`
	SponsorshipCost    *int64            `json:"sponsorship_cost,omitempty"`
	LeadsGenerated     *int              `json:"leads_generated,omitempty"`
	DealsClosed        *int              `json:"deals_closed,omitempty"`
	Recommendation     *Recommendation   `json:"recommendation,omitempty"`
	Status             moderation.Status `json:"status"`
	TrustScore         int               `json:"trust_score"`
	IsVerified         bool              `json:"is_verified"`
	VerificationMethod *string           `json:"verification_method,omitempty"` // linkedin|email|manual
	HelpfulCount       int               `json:"helpful_count"`
	ModeratorID        *int64            `json:"moderator_id,omitempty"`
	ModerationReason   *string           `json:"moderation_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`

	// Joined fields
	AuthorName  string  `json:"author_name,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`

	Flags []ModerationFlag `json:"flags,omitempty"`
}

// ModerationFlag explains why a pending review needs human scrutiny. One or
// more flags move a pending review into the flagged queue.
type ModerationFlag struct {
	ID        int64          `json:"id"`
	ReviewID  int64          `json:"review_id"`
	Kind      trust.FlagKind `json:"kind"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Queue selects a moderation listing.
type Queue string

const (
	QueuePending   Queue = "pending"   // pending without flags
	QueueFlagged   Queue = "flagged"   // pending with at least one flag
	QueuePublished Queue = "published" // already live
)

func (q Queue) Valid() bool {
	switch q {
	case QueuePending, QueueFlagged, QueuePublished:
		return true
	}
	return false
}

// TransitionPatch carries the columns a lifecycle transition may set besides
// status itself.
type TransitionPatch struct {
	TrustScore         *int
	PublishedAt        *time.Time
	IsVerified         *bool
	VerificationMethod *string
	ModeratorID        *int64
	Reason             *string
}
