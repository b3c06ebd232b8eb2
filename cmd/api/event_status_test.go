package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sponsorhub/internal/domain/events"
	"sponsorhub/internal/domain/profiles"
)

func setEventStatus(env *testEnv, user *profiles.Profile, eventID int64, status string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"status": %q}`, status)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v1/events/%d/status", eventID), bytes.NewReader([]byte(body)))
	req = requestWith(req, user, map[string]string{"eventID": fmt.Sprintf("%d", eventID)})

	rr := httptest.NewRecorder()
	env.app.setEventStatusHandler(rr, req)
	return rr
}

func pendingReviews(t *testing.T, env *testEnv, user *profiles.Profile) []events.Event {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me/pending-reviews", nil)
	req = requestWith(req, user, nil)

	rr := httptest.NewRecorder()
	env.app.eventsAwaitingReviewHandler(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	return decodeData[[]events.Event](t, rr.Body.Bytes())
}

func TestSetEventStatusUpserts(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	user := sponsorProfile(10, profiles.TierFree)

	require.Equal(t, http.StatusOK, setEventStatus(env, user, 1, "want_to_go").Code)

	// Setting again replaces, it does not duplicate.
	require.Equal(t, http.StatusOK, setEventStatus(env, user, 1, "went").Code)

	status, err := env.statuses.Get(httptest.NewRequest(http.MethodGet, "/", nil).Context(), user.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "went", string(status))
}

func TestSetEventStatusInvalidValue(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")

	rr := setEventStatus(env, sponsorProfile(10, profiles.TierFree), 1, "maybe")

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSetEventStatusUnknownEvent(t *testing.T) {
	env := newTestEnv(t)

	rr := setEventStatus(env, sponsorProfile(10, profiles.TierFree), 42, "going")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClearEventStatus(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	user := sponsorProfile(10, profiles.TierFree)

	require.Equal(t, http.StatusOK, setEventStatus(env, user, 1, "going").Code)
	require.Equal(t, http.StatusOK, setEventStatus(env, user, 1, "").Code)

	status, err := env.statuses.Get(httptest.NewRequest(http.MethodGet, "/", nil).Context(), user.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, status)
}

func TestEventsAwaitingReviewTracksStatusAndDrafts(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	env.addEvent(2, "websummit", "conference")
	env.addEvent(3, "ces", "trade_show")
	user := sponsorProfile(10, profiles.TierFree)

	// want_to_go and went both queue the event; not_interested does not.
	require.Equal(t, http.StatusOK, setEventStatus(env, user, 1, "want_to_go").Code)
	require.Equal(t, http.StatusOK, setEventStatus(env, user, 2, "went").Code)
	require.Equal(t, http.StatusOK, setEventStatus(env, user, 3, "not_interested").Code)

	list := pendingReviews(t, env, user)
	require.Len(t, list, 2)

	// Starting a review removes the event, whatever the review's status.
	rr := submitReview(t, env, user, 1, strongReviewBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	list = pendingReviews(t, env, user)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)
}
