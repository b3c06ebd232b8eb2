package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAllowedTransitions(t *testing.T) {
	tests := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusDraft, ActionSubmit, StatusPending},
		{StatusPending, ActionApprove, StatusPublished},
		{StatusPending, ActionReject, StatusRejected},
	}

	for _, tc := range tests {
		got, err := Next(tc.from, tc.action)
		require.NoError(t, err, "%s(%s)", tc.action, tc.from)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextRejectsEverythingElse(t *testing.T) {
	statuses := []Status{StatusDraft, StatusPending, StatusPublished, StatusRejected}
	actions := []Action{ActionSubmit, ActionApprove, ActionReject}

	allowed := map[Status]map[Action]bool{
		StatusDraft:   {ActionSubmit: true},
		StatusPending: {ActionApprove: true, ActionReject: true},
	}

	for _, from := range statuses {
		for _, action := range actions {
			if allowed[from][action] {
				continue
			}

			_, err := Next(from, action)
			require.Error(t, err, "%s(%s) must fail", action, from)

			var ite *InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, from, ite.From)
			assert.Equal(t, action, ite.Action)
		}
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	for _, action := range []Action{ActionSubmit, ActionApprove, ActionReject} {
		_, err := Next(StatusRejected, action)
		assert.Error(t, err)
	}
}

func TestPublishedCannotBeRejected(t *testing.T) {
	_, err := Next(StatusPublished, ActionReject)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "cannot reject a review in published state", ite.Error())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusDraft, StatusPending, StatusPublished, StatusRejected} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("flagged").Valid(), "flagged is a queue, not a stored status")
	assert.False(t, Status("").Valid())
}
