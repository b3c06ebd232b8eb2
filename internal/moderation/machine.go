package moderation

import "fmt"

// Status is the stored review lifecycle state. The "flagged" moderation queue
// is not a distinct stored state: a review is flagged when it is pending and
// carries at least one moderation flag.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Action is a lifecycle trigger. Submit is fired by the submission gate once
// scoring completes; Approve and Reject are moderator (or, for approve,
// fast-track) decisions.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// transitions is the full lifecycle table. Rejected is terminal and nothing
// ever returns to draft.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionSubmit: StatusPending,
	},
	StatusPending: {
		ActionApprove: StatusPublished,
		ActionReject:  StatusRejected,
	},
}

// InvalidTransitionError names the offending (state, action) pair. Callers
// receiving it are stale and should refetch the review.
type InvalidTransitionError struct {
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a review in %s state", e.Action, e.From)
}

// Next returns the state reached by applying action to from, or an
// InvalidTransitionError when the table does not permit it.
func Next(from Status, action Action) (Status, error) {
	if targets, ok := transitions[from]; ok {
		if to, ok := targets[action]; ok {
			return to, nil
		}
	}
	return "", &InvalidTransitionError{From: from, Action: action}
}
