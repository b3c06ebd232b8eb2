package eventstatus

import (
	"errors"
	"time"
)

var (
	ErrInvalidStatus     = errors.New("invalid event status")
	QueryTimeoutDuration = time.Second * 5
)

// Status is a user's declared relationship to an event. Statuses are set
// only by the user, never by the system; "rated" in particular is
// informational and does not imply a review exists.
type Status string

const (
	WantToGo      Status = "want_to_go"
	Going         Status = "going"
	Went          Status = "went"
	Rated         Status = "rated"
	NotInterested Status = "not_interested"
)

func (s Status) Valid() bool {
	switch s {
	case WantToGo, Going, Went, Rated, NotInterested:
		return true
	}
	return false
}

type EventStatus struct {
	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
