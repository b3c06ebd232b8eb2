package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sponsorhub/internal/domain/eventstatus"
)

type SetEventStatusPayload struct {
	Status string `json:"status" validate:"omitempty,oneof=want_to_go going went rated not_interested"`
}

// setEventStatusHandler godoc
//
//	@Summary		Set event status
//	@Description	Sets the caller's relationship to an event (want_to_go, going, went, rated, not_interested). An empty status clears the relationship. Statuses are purely user-declared; submitting a review does not set one.
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			eventID	path		int						true	"Event ID"
//	@Param			payload	body		SetEventStatusPayload	true	"Status"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		422		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/events/{eventID}/status [put]
func (app *application) setEventStatusHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	var payload SetEventStatusPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.unprocessableEntityResponse(w, r, err)
		return
	}

	ctx := r.Context()

	if _, err := app.store.Events.GetByID(ctx, eventID); err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	if payload.Status == "" {
		if err := app.store.EventStatuses.Clear(ctx, user.ID, eventID); err != nil {
			app.internalServerError(w, r, err)
			return
		}
		if err := app.jsonResponse(w, http.StatusOK, map[string]string{"status": ""}); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	status := eventstatus.Status(payload.Status)
	if err := app.store.EventStatuses.Set(ctx, user.ID, eventID, status); err != nil {
		switch {
		case errors.Is(err, eventstatus.ErrInvalidStatus):
			app.badRequestResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"status": payload.Status}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// eventsAwaitingReviewHandler godoc
//
//	@Summary		Events awaiting review
//	@Description	Lists events the caller marked want_to_go or went but has not started reviewing. A draft already removes the event from this list.
//	@Tags			users
//	@Produce		json
//	@Param			page	query		int	false	"Page number (default 1)"
//	@Param			limit	query		int	false	"Page size (default 20)"
//	@Success		200		{array}		events.Event
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/users/me/pending-reviews [get]
func (app *application) eventsAwaitingReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	page, limit := paginationParams(r, 1, 20)

	list, err := app.store.EventStatuses.EventsAwaitingReview(r.Context(), user.ID, page, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}
