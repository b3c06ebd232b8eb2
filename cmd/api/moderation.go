package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sponsorhub/internal/domain/events"
	"sponsorhub/internal/domain/profiles"
	"sponsorhub/internal/domain/reviews"
	"sponsorhub/internal/moderation"
	"sponsorhub/internal/notifications"
)

// listModerationQueueHandler godoc
//
//	@Summary		List a moderation queue
//	@Description	Lists reviews in the pending, flagged or published queue, oldest first. Flagged reviews are pending reviews that carry at least one trust flag.
//	@Tags			moderation
//	@Produce		json
//	@Param			queue	query		string	false	"Queue: pending, flagged or published (default pending)"
//	@Param			page	query		int		false	"Page number (default 1)"
//	@Param			limit	query		int		false	"Page size (default 20)"
//	@Success		200		{array}		reviews.Review
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		403		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews [get]
func (app *application) listModerationQueueHandler(w http.ResponseWriter, r *http.Request) {
	queue := reviews.Queue(r.URL.Query().Get("queue"))
	if queue == "" {
		queue = reviews.QueuePending
	}
	if !queue.Valid() {
		app.badRequestResponse(w, r, errors.New("queue must be pending, flagged or published"))
		return
	}

	page, limit := paginationParams(r, 1, 20)

	list, err := app.store.Reviews.ListQueue(r.Context(), queue, page, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Moderators see the flags inline so the queue explains itself.
	for i := range list {
		flags, err := app.store.Reviews.GetFlags(r.Context(), list[i].ID)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		list[i].Flags = flags
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ApproveReviewPayload struct {
	VerificationMethod string `json:"verification_method" validate:"required,oneof=linkedin email manual"`
}

// approveReviewHandler godoc
//
//	@Summary		Approve a pending review
//	@Description	Publishes a pending review. The status change is a compare-and-swap: if another moderator already decided, the request fails with the review's actual state.
//	@Tags			moderation
//	@Accept			json
//	@Produce		json
//	@Param			reviewID	path		int						true	"Review ID"
//	@Param			payload		body		ApproveReviewPayload	true	"Verification details"
//	@Success		200			{object}	reviews.Review
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Review is not pending"
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews/{reviewID}/approve [post]
func (app *application) approveReviewHandler(w http.ResponseWriter, r *http.Request) {
	moderator := getUserFromContext(r)

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	var payload ApproveReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	now := time.Now()
	verified := true
	_, err = app.store.Reviews.Transition(ctx, reviewID, moderation.ActionApprove,
		moderation.StatusPending,
		reviews.TransitionPatch{
			PublishedAt:        &now,
			IsVerified:         &verified,
			VerificationMethod: &payload.VerificationMethod,
			ModeratorID:        &moderator.ID,
		},
	)
	if err != nil {
		app.respondTransitionError(w, r, err)
		return
	}

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.recomputeEventStats(ctx, review.EventID)
	app.notifyReviewDecision(review, notifications.ReviewPublished)

	app.logger.Infow("review approved",
		"review_id", reviewID,
		"event_id", review.EventID,
		"moderator_id", moderator.ID,
	)

	if err := app.jsonResponse(w, http.StatusOK, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RejectReviewPayload struct {
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// rejectReviewHandler godoc
//
//	@Summary		Reject a pending review
//	@Description	Rejects a pending review with a reason the author can read. Rejection is terminal and counts against the author's trust score on future submissions.
//	@Tags			moderation
//	@Accept			json
//	@Produce		json
//	@Param			reviewID	path		int					true	"Review ID"
//	@Param			payload		body		RejectReviewPayload	true	"Rejection reason"
//	@Success		200			{object}	reviews.Review
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Review is not pending"
//	@Security		ApiKeyAuth
//	@Router			/admin/reviews/{reviewID}/reject [post]
func (app *application) rejectReviewHandler(w http.ResponseWriter, r *http.Request) {
	moderator := getUserFromContext(r)

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	var payload RejectReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	_, err = app.store.Reviews.Transition(ctx, reviewID, moderation.ActionReject,
		moderation.StatusPending,
		reviews.TransitionPatch{
			ModeratorID: &moderator.ID,
			Reason:      &payload.Reason,
		},
	)
	if err != nil {
		app.respondTransitionError(w, r, err)
		return
	}

	review, err := app.store.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.notifyReviewDecision(review, notifications.ReviewRejected)

	app.logger.Infow("review rejected",
		"review_id", reviewID,
		"event_id", review.EventID,
		"moderator_id", moderator.ID,
	)

	if err := app.jsonResponse(w, http.StatusOK, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateUserTierPayload struct {
	Tier string `json:"tier" validate:"required,oneof=free pro team enterprise"`
}

// updateUserTierHandler godoc
//
//	@Summary		Change a user's subscription tier
//	@Description	Sets the subscription tier for a user. The free tier is quota-limited; paid tiers submit without a review cap.
//	@Tags			moderation
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int						true	"User ID"
//	@Param			payload	body		UpdateUserTierPayload	true	"Target tier"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		422		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/tier [put]
func (app *application) updateUserTierHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid user ID"))
		return
	}

	var payload UpdateUserTierPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	if err := app.store.Profiles.SetTier(r.Context(), userID, profiles.Tier(payload.Tier)); err != nil {
		switch {
		case errors.Is(err, profiles.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.logger.Infow("subscription tier changed", "user_id", userID, "tier", payload.Tier)

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"tier": payload.Tier}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) respondTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	var ite *moderation.InvalidTransitionError
	switch {
	case errors.As(err, &ite):
		app.invalidTransitionResponse(w, r, ite)
	case errors.Is(err, reviews.ErrNotFound):
		app.notFoundResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

// recomputeEventStats rebuilds the event aggregate from the published set and
// refreshes both the table and the Redis copy. Failures are logged, never
// surfaced: a stale aggregate is acceptable, a blocked moderation flow is not.
func (app *application) recomputeEventStats(ctx context.Context, eventID int64) {
	published, err := app.store.Reviews.ListPublishedByEvent(ctx, eventID)
	if err != nil {
		app.logger.Errorw("aggregate recompute: listing published reviews failed", "event_id", eventID, "error", err)
		return
	}

	agg := events.ComputeAggregate(eventID, published)

	if err := app.store.Events.UpsertAggregate(ctx, &agg); err != nil {
		app.logger.Errorw("aggregate recompute: upsert failed", "event_id", eventID, "error", err)
		return
	}

	if err := app.cacheStorage.Aggregates.Set(ctx, &agg); err != nil {
		app.logger.Warnw("aggregate recompute: cache refresh failed", "event_id", eventID, "error", err)
	}
}

// notifyReviewDecision pushes the moderation outcome to the author's devices.
// Best effort; authors without push tokens simply miss the ping.
func (app *application) notifyReviewDecision(review *reviews.Review, outcome notifications.ReviewEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	eventName := ""
	if event, err := app.store.Events.GetByID(ctx, review.EventID); err == nil {
		eventName = event.Name
	}

	if err := notifications.SendReviewNotification(ctx, app.push, app.store, review.UserID, outcome, eventName); err != nil {
		app.logger.Warnw("review notification not delivered", "review_id", review.ID, "error", err)
	}
}
