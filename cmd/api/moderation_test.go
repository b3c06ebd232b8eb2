package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sponsorhub/internal/domain/profiles"
	"sponsorhub/internal/domain/reviews"
	"sponsorhub/internal/moderation"
)

func submitPendingReview(t *testing.T, env *testEnv, userID int64) reviews.Review {
	t.Helper()

	user := sponsorProfile(userID, profiles.TierFree)
	user.IsActive = false
	user.LinkedInURL = nil

	rr := submitReview(t, env, user, 1, weakReviewBody)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	review := decodeData[reviews.Review](t, rr.Body.Bytes())
	require.Equal(t, moderation.StatusPending, review.Status)
	return review
}

func approveReview(env *testEnv, moderator *profiles.Profile, reviewID int64) *httptest.ResponseRecorder {
	body := `{"verification_method": "manual"}`
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/admin/reviews/%d/approve", reviewID), bytes.NewReader([]byte(body)))
	req = requestWith(req, moderator, map[string]string{"reviewID": fmt.Sprintf("%d", reviewID)})

	rr := httptest.NewRecorder()
	env.app.approveReviewHandler(rr, req)
	return rr
}

func rejectReview(env *testEnv, moderator *profiles.Profile, reviewID int64, reason string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"reason": %q}`, reason)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/admin/reviews/%d/reject", reviewID), bytes.NewReader([]byte(body)))
	req = requestWith(req, moderator, map[string]string{"reviewID": fmt.Sprintf("%d", reviewID)})

	rr := httptest.NewRecorder()
	env.app.rejectReviewHandler(rr, req)
	return rr
}

func TestApprovePublishesAndAggregates(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	pending := submitPendingReview(t, env, 10)

	moderator := moderatorProfile(1)
	rr := approveReview(env, moderator, pending.ID)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	review := decodeData[reviews.Review](t, rr.Body.Bytes())
	assert.Equal(t, moderation.StatusPublished, review.Status)
	assert.True(t, review.IsVerified)
	require.NotNil(t, review.VerificationMethod)
	assert.Equal(t, "manual", *review.VerificationMethod)
	require.NotNil(t, review.ModeratorID)
	assert.Equal(t, moderator.ID, *review.ModeratorID)
	assert.NotNil(t, review.PublishedAt)

	// The published review now counts toward the event aggregate.
	agg, err := env.events.GetAggregate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, agg.ReviewCount)
	assert.Equal(t, 5.0, agg.AverageRating)
	assert.Nil(t, agg.AverageROI, "no ROI supplied, mean stays absent")
}

func TestRejectIsTerminalWithReason(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	pending := submitPendingReview(t, env, 10)

	moderator := moderatorProfile(1)
	rr := rejectReview(env, moderator, pending.ID, "ROI claim could not be verified")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	review := decodeData[reviews.Review](t, rr.Body.Bytes())
	assert.Equal(t, moderation.StatusRejected, review.Status)
	require.NotNil(t, review.ModerationReason)
	assert.Equal(t, "ROI claim could not be verified", *review.ModerationReason)

	// Rejected reviews never reach the aggregate.
	_, err := env.events.GetAggregate(context.Background(), 1)
	assert.Error(t, err)
}

func TestConcurrentModeratorsGetOneWinner(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	pending := submitPendingReview(t, env, 10)

	approver := moderatorProfile(1)
	rejecter := moderatorProfile(2)

	first := approveReview(env, approver, pending.ID)
	require.Equal(t, http.StatusOK, first.Code)

	// The second decision arrives against a review that is no longer pending.
	second := rejectReview(env, rejecter, pending.ID, "duplicate of another submission")
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "cannot reject a review in published state")
}

func TestRejectIsTerminalAgainstRetries(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	pending := submitPendingReview(t, env, 10)

	moderator := moderatorProfile(1)
	require.Equal(t, http.StatusOK, rejectReview(env, moderator, pending.ID, "duplicate of another submission").Code)

	// A replayed rejection finds a terminal review and reports its state.
	second := rejectReview(env, moderator, pending.ID, "duplicate of another submission")
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "cannot reject a review in rejected state")

	// Approval cannot resurrect it either.
	third := approveReview(env, moderator, pending.ID)
	require.Equal(t, http.StatusConflict, third.Code)
	assert.Contains(t, third.Body.String(), "cannot approve a review in rejected state")
}

func TestRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")
	pending := submitPendingReview(t, env, 10)

	rr := rejectReview(env, moderatorProfile(1), pending.ID, "too short")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestApproveUnknownReview(t *testing.T) {
	env := newTestEnv(t)

	rr := approveReview(env, moderatorProfile(1), 404)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListQueueSeparatesFlaggedFromPending(t *testing.T) {
	env := newTestEnv(t)
	env.addEvent(1, "saastr", "conference")

	// Weak submission: pending with flags.
	flagged := submitPendingReview(t, env, 10)

	// Strong account, mid-strength content: pending without flags requires a
	// score under the auto-publish bar but above the flag floor, which the
	// default weights produce for a verified account writing a short factual
	// review.
	strongUser := sponsorProfile(11, profiles.TierFree)
	midBody := `{"title": "Useful regional event", "content": "We ran a small stand and captured several leads across the two days, which was in line with what we expected for the ticket price.", "rating": 4}`
	rr := submitReview(t, env, strongUser, 1, midBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	unflagged := decodeData[reviews.Review](t, rr.Body.Bytes())
	require.Equal(t, moderation.StatusPending, unflagged.Status, "score %d", unflagged.TrustScore)
	require.Empty(t, unflagged.Flags)

	listQueue := func(queue string) []reviews.Review {
		req := httptest.NewRequest(http.MethodGet, "/v1/admin/reviews?queue="+queue, nil)
		req = requestWith(req, moderatorProfile(1), nil)
		rec := httptest.NewRecorder()
		env.app.listModerationQueueHandler(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return decodeData[[]reviews.Review](t, rec.Body.Bytes())
	}

	pendingList := listQueue("pending")
	require.Len(t, pendingList, 1)
	assert.Equal(t, unflagged.ID, pendingList[0].ID)

	flaggedList := listQueue("flagged")
	require.Len(t, flaggedList, 1)
	assert.Equal(t, flagged.ID, flaggedList[0].ID)
	assert.NotEmpty(t, flaggedList[0].Flags)
}

func setUserTier(env *testEnv, moderator *profiles.Profile, userID int64, tier string) *httptest.ResponseRecorder {
	body := fmt.Sprintf(`{"tier": %q}`, tier)
	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/v1/admin/users/%d/tier", userID), bytes.NewReader([]byte(body)))
	req = requestWith(req, moderator, map[string]string{"userID": fmt.Sprintf("%d", userID)})

	rr := httptest.NewRecorder()
	env.app.updateUserTierHandler(rr, req)
	return rr
}

func TestUpdateUserTier(t *testing.T) {
	env := newTestEnv(t)
	env.profiles.add(sponsorProfile(10, profiles.TierFree))

	rr := setUserTier(env, moderatorProfile(1), 10, "pro")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated, err := env.profiles.GetByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, profiles.TierPro, updated.Tier)
}

func TestUpdateUserTierUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	rr := setUserTier(env, moderatorProfile(1), 404, "pro")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateUserTierRejectsUnknownTier(t *testing.T) {
	env := newTestEnv(t)
	env.profiles.add(sponsorProfile(10, profiles.TierFree))

	rr := setUserTier(env, moderatorProfile(1), 10, "platinum")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestListQueueRejectsUnknownQueue(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reviews?queue=archived", nil)
	req = requestWith(req, moderatorProfile(1), nil)

	rr := httptest.NewRecorder()
	env.app.listModerationQueueHandler(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
