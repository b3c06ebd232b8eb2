package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sponsorhub/internal/domain/events"
)

// listEventsHandler godoc
//
//	@Summary		List events
//	@Description	Lists events, featured first, optionally filtered by category and status
//	@Tags			events
//	@Produce		json
//	@Param			category	query		string	false	"Event category"
//	@Param			status		query		string	false	"Event status: upcoming, past or cancelled"
//	@Param			page		query		int		false	"Page number (default 1)"
//	@Param			limit		query		int		false	"Page size (default 20)"
//	@Success		200			{array}		events.Event
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Router			/events [get]
func (app *application) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit := paginationParams(r, 1, 20)

	filter := events.Filter{Page: page, Limit: limit}
	if v := r.URL.Query().Get("category"); v != "" {
		filter.Category = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		filter.Status = &v
	}

	list, err := app.store.Events.List(r.Context(), filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

type EventWithStats struct {
	*events.Event `json:"event"`
	Stats         *events.Aggregate `json:"stats,omitempty"`
}

// getEventHandler godoc
//
//	@Summary		Get event
//	@Description	Returns an event with its review aggregate (count, average rating, average ROI). The aggregate is served from Redis when warm, falling back to the table.
//	@Tags			events
//	@Produce		json
//	@Param			eventID	path		int	true	"Event ID"
//	@Success		200		{object}	EventWithStats
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Router			/events/{eventID} [get]
func (app *application) getEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	event, err := app.store.Events.GetByID(r.Context(), eventID)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.respondEventWithStats(w, r, event)
}

// getEventBySlugHandler godoc
//
//	@Summary		Get event by slug
//	@Description	Returns an event looked up by its URL slug, with the same review aggregate as the ID route
//	@Tags			events
//	@Produce		json
//	@Param			slug	path		string	true	"Event slug"
//	@Success		200		{object}	EventWithStats
//	@Failure		404		{object}	error
//	@Router			/events/by-slug/{slug} [get]
func (app *application) getEventBySlugHandler(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	event, err := app.store.Events.GetBySlug(r.Context(), slug)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	app.respondEventWithStats(w, r, event)
}

// respondEventWithStats attaches the review aggregate to the event, reading
// through the cache: Redis first, table second. An event with no published
// reviews has no aggregate row and stats stay null.
func (app *application) respondEventWithStats(w http.ResponseWriter, r *http.Request, event *events.Event) {
	ctx := r.Context()

	agg, err := app.cacheStorage.Aggregates.Get(ctx, event.ID)
	if err != nil {
		app.logger.Warnw("aggregate cache read failed", "event_id", event.ID, "error", err)
	}
	if agg == nil {
		agg, err = app.store.Events.GetAggregate(ctx, event.ID)
		switch {
		case err == nil:
			if cerr := app.cacheStorage.Aggregates.Set(ctx, agg); cerr != nil {
				app.logger.Warnw("aggregate cache fill failed", "event_id", event.ID, "error", cerr)
			}
		case errors.Is(err, events.ErrNotFound):
			agg = nil
		default:
			app.internalServerError(w, r, err)
			return
		}
	}

	resp := EventWithStats{Event: event, Stats: agg}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// uploadEventThumbnailHandler godoc
//
//	@Summary		Upload event thumbnail
//	@Description	Uploads a thumbnail image for an event to Cloudinary and stores the URL
//	@Tags			events
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			eventID		path		int		true	"Event ID"
//	@Param			thumbnail	formData	file	true	"Thumbnail image"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/events/{eventID}/thumbnail [post]
func (app *application) uploadEventThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("invalid event ID"))
		return
	}

	ctx := r.Context()

	event, err := app.store.Events.GetByID(ctx, eventID)
	if err != nil {
		app.notFoundResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10MB
		app.badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("thumbnail")
	if err != nil {
		app.badRequestResponse(w, r, errors.New("thumbnail file is required"))
		return
	}
	defer file.Close()

	url, err := app.uploadEventThumbnail(file, eventID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Events.SetThumbnail(ctx, eventID, url); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Replaced assets share a public ID, so only a differently named old
	// thumbnail needs an explicit delete.
	if event.ThumbnailURL != nil && *event.ThumbnailURL != url {
		if err := app.deletePhotoFromCloudinary(*event.ThumbnailURL); err != nil {
			app.logger.Warnw("old thumbnail not deleted", "event_id", eventID, "error", err)
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"thumbnail_url": url}); err != nil {
		app.internalServerError(w, r, err)
	}
}
