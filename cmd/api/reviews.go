package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sponsorhub/internal/domain/reviews"
	"sponsorhub/internal/moderation"
	"sponsorhub/internal/trust"
)

type SubmitReviewPayload struct {
	Title           string   `json:"title" validate:"required,min=5,max=150"`
	Content         string   `json:"content" validate:"required,min=20,max=5000"`
	Rating          int      `json:"rating" validate:"required,gte=1,lte=5"`
	ROI             *float64 `json:"roi,omitempty" validate:"omitempty,gte=0"`
	SponsorshipTier *string  `json:"sponsorship_tier,omitempty" validate:"omitempty,max=50"`
	SponsorshipCost *int64   `json:"sponsorship_cost,omitempty" validate:"omitempty,gte=0"`
	LeadsGenerated  *int     `json:"leads_generated,omitempty" validate:"omitempty,gte=0"`
	DealsClosed     *int     `json:"deals_closed,omitempty" validate:"omitempty,gte=0"`
	Recommendation  *string  `json:"recommendation,omitempty" validate:"omitempty,oneof=recommended neutral avoid"`
}

// submitReviewHandler godoc
//
//	@Summary		Submit a review
//	@Description	Submits a sponsorship review for an event. The review is trust-scored synchronously: high-confidence unflagged reviews publish immediately, everything else waits for a moderator.
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			eventID	path		int							true	"Event ID"
//	@Param			payload	body		SubmitReviewPayload			true	"Review payload"
//	@Success		201		{object}	reviews.Review				"Review accepted"
//	@Failure		400		{object}	ErrorBadRequestResponse		"Bad request"
//	@Failure		409		{object}	error						"Already reviewed"
//	@Failure		422		{object}	error						"Validation failed"
//	@Failure		429		{object}	error						"Quota exceeded"
//	@Failure		500		{object}	ErrorInternalServerResponse	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/events/{eventID}/reviews [post]
func (app *application) submitReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	var payload SubmitReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	event, err := app.store.Events.GetByID(ctx, eventID)
	if err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	// Tier-gated quota. The count is read before the insert, so two requests
	// racing on the last slot can both pass; the window closes one review
	// later and the overshoot is bounded by the race width.
	if !user.Tier.Unlimited() {
		since := time.Now().Add(-app.config.moderation.quotaWindow)
		count, err := app.store.Reviews.CountCreatedSince(ctx, user.ID, since)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if count >= app.config.moderation.freeTierLimit {
			app.quotaExceededResponse(w, r, &reviews.QuotaExceededError{
				Limit:  app.config.moderation.freeTierLimit,
				Window: app.config.moderation.quotaWindow,
				Tier:   string(user.Tier),
			})
			return
		}
	}

	review := &reviews.Review{
		EventID:         eventID,
		UserID:          user.ID,
		CompanyID:       user.CompanyID,
		Title:           payload.Title,
		Content:         payload.Content,
		Rating:          payload.Rating,
		ROI:             payload.ROI,
		SponsorshipTier: payload.SponsorshipTier,
		SponsorshipCost: payload.SponsorshipCost,
		LeadsGenerated:  payload.LeadsGenerated,
		DealsClosed:     payload.DealsClosed,
	}
	if payload.Recommendation != nil {
		rec := reviews.Recommendation(*payload.Recommendation)
		review.Recommendation = &rec
	}

	// The UNIQUE(event_id, user_id) constraint is the dedupe: concurrent
	// submissions collapse to one draft here.
	if err := app.store.Reviews.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, reviews.ErrAlreadyReviewed):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// Score synchronously so the submitter learns the outcome in the response.
	priorRejections, err := app.store.Reviews.CountRejections(ctx, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	var category string
	if event.Category != nil {
		category = *event.Category
	}

	score, flagKinds := app.scorer.Score(
		trust.AccountSignals{
			AccountAge:      time.Since(user.CreatedAt),
			EmailVerified:   user.IsActive,
			LinkedInLinked:  user.LinkedInURL != nil,
			PriorRejections: priorRejections,
		},
		trust.ContentSignals{
			Title:         payload.Title,
			Content:       payload.Content,
			Rating:        payload.Rating,
			ROI:           payload.ROI,
			EventCategory: category,
		},
	)

	flags := make([]reviews.ModerationFlag, 0, len(flagKinds))
	for _, kind := range flagKinds {
		flags = append(flags, reviews.ModerationFlag{ReviewID: review.ID, Kind: kind})
	}
	if err := app.store.Reviews.AddFlags(ctx, review.ID, flags); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	status, err := app.store.Reviews.Transition(ctx, review.ID, moderation.ActionSubmit,
		moderation.StatusDraft,
		reviews.TransitionPatch{TrustScore: &score},
	)
	if err != nil {
		var ite *moderation.InvalidTransitionError
		if errors.As(err, &ite) {
			app.invalidTransitionResponse(w, r, ite)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	review.Status = status
	review.TrustScore = score
	review.Flags = flags

	// Fast track: a high-confidence, unflagged review goes live without a
	// moderator. Anything flagged always waits for human eyes. The email
	// counts as the verification: an unverified account always carries a
	// flag, so reaching this branch means the address checked out.
	if score >= app.config.moderation.autoPublishScore && len(flagKinds) == 0 {
		now := time.Now()
		verified := true
		method := "email"
		status, err := app.store.Reviews.Transition(ctx, review.ID, moderation.ActionApprove,
			moderation.StatusPending,
			reviews.TransitionPatch{
				PublishedAt:        &now,
				IsVerified:         &verified,
				VerificationMethod: &method,
			},
		)
		if err != nil {
			app.logger.Errorw("auto-publish failed, review left pending", "review_id", review.ID, "error", err)
		} else {
			review.Status = status
			review.PublishedAt = &now
			review.IsVerified = true
			review.VerificationMethod = &method

			app.recomputeEventStats(ctx, eventID)
		}
	}

	app.logger.Infow("review submitted",
		"review_id", review.ID,
		"event_id", eventID,
		"user_id", user.ID,
		"trust_score", score,
		"status", review.Status,
		"flags", len(flagKinds),
	)

	if err := app.jsonResponse(w, http.StatusCreated, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

type EditReviewPayload struct {
	Title           string   `json:"title" validate:"required,min=5,max=150"`
	Content         string   `json:"content" validate:"required,min=20,max=5000"`
	Rating          int      `json:"rating" validate:"required,gte=1,lte=5"`
	ROI             *float64 `json:"roi,omitempty" validate:"omitempty,gte=0"`
	SponsorshipTier *string  `json:"sponsorship_tier,omitempty" validate:"omitempty,max=50"`
	SponsorshipCost *int64   `json:"sponsorship_cost,omitempty" validate:"omitempty,gte=0"`
	LeadsGenerated  *int     `json:"leads_generated,omitempty" validate:"omitempty,gte=0"`
	DealsClosed     *int     `json:"deals_closed,omitempty" validate:"omitempty,gte=0"`
	Recommendation  *string  `json:"recommendation,omitempty" validate:"omitempty,oneof=recommended neutral avoid"`
}

// editReviewHandler godoc
//
//	@Summary		Edit own review
//	@Description	Updates the author's review for an event. Rejected reviews cannot be edited. Editing a published review keeps it live and recomputes the event aggregate.
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			eventID	path		int					true	"Event ID"
//	@Param			payload	body		EditReviewPayload	true	"Review payload"
//	@Success		200		{object}	reviews.Review
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Review was rejected"
//	@Failure		422		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/events/{eventID}/reviews [patch]
func (app *application) editReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	var payload EditReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	review, err := app.store.Reviews.GetByUserEvent(ctx, user.ID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if review.Status == moderation.StatusRejected {
		app.conflictResponse(w, r, errors.New("rejected reviews cannot be edited"))
		return
	}

	wasPublished := review.Status == moderation.StatusPublished

	review.Title = payload.Title
	review.Content = payload.Content
	review.Rating = payload.Rating
	review.ROI = payload.ROI
	review.SponsorshipTier = payload.SponsorshipTier
	review.SponsorshipCost = payload.SponsorshipCost
	review.LeadsGenerated = payload.LeadsGenerated
	review.DealsClosed = payload.DealsClosed
	review.Recommendation = nil
	if payload.Recommendation != nil {
		rec := reviews.Recommendation(*payload.Recommendation)
		review.Recommendation = &rec
	}

	if err := app.store.Reviews.UpdateContent(ctx, review); err != nil {
		switch {
		case errors.Is(err, reviews.ErrNotFound):
			// The review existed a moment ago, so a rejection raced the edit.
			app.conflictResponse(w, r, errors.New("review can no longer be edited"))
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	// A rating change on a live review shifts the event averages.
	if wasPublished {
		app.recomputeEventStats(ctx, eventID)
	}

	if err := app.jsonResponse(w, http.StatusOK, review); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getEventReviewsHandler godoc
//
//	@Summary		List event reviews
//	@Description	Lists published reviews for an event with author and company details, most helpful first
//	@Tags			reviews
//	@Produce		json
//	@Param			eventID	path		int	true	"Event ID"
//	@Param			page	query		int	false	"Page number (default 1)"
//	@Param			limit	query		int	false	"Page size (default 20)"
//	@Success		200		{array}		reviews.Review
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Router			/events/{eventID}/reviews [get]
func (app *application) getEventReviewsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	page, limit := paginationParams(r, 1, 20)

	list, err := app.store.Reviews.ListForEvent(r.Context(), eventID, page, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// markReviewHelpfulHandler godoc
//
//	@Summary		Mark review helpful
//	@Description	Records a helpful vote on a review, one per user
//	@Tags			reviews
//	@Produce		json
//	@Param			eventID		path		int	true	"Event ID"
//	@Param			reviewID	path		int	true	"Review ID"
//	@Success		200			{object}	map[string]bool
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Security		ApiKeyAuth
//	@Router			/events/{eventID}/reviews/{reviewID}/helpful [post]
func (app *application) markReviewHelpfulHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	reviewID, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid review ID"))
		return
	}

	counted, err := app.store.Reviews.MarkHelpful(r.Context(), reviewID, user.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]bool{"counted": counted}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func paginationParams(r *http.Request, defaultPage, defaultLimit int) (int, int) {
	page := defaultPage
	limit := defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}
