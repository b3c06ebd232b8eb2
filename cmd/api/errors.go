package main

import (
	"net/http"

	"sponsorhub/internal/domain/reviews"
	"sponsorhub/internal/moderation"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

// unprocessableEntityResponse reports every invalid field at once instead of
// failing on the first one.
func (app *application) unprocessableEntityResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("validation failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	type envelope struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Status  int               `json:"status"`
		Fields  map[string]string `json:"fields"`
	}

	writeJSON(w, http.StatusUnprocessableEntity, &envelope{
		Success: false,
		Message: "validation failed",
		Status:  http.StatusUnprocessableEntity,
		Fields:  validationFields(err),
	})
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

// quotaExceededResponse carries the upgrade hint for free-tier users.
func (app *application) quotaExceededResponse(w http.ResponseWriter, r *http.Request, qe *reviews.QuotaExceededError) {
	app.logger.Infow("review quota exceeded", "path", r.URL.Path, "tier", qe.Tier, "limit", qe.Limit)

	type envelope struct {
		Success     bool   `json:"success"`
		Message     string `json:"message"`
		Status      int    `json:"status"`
		UpgradeHint string `json:"upgrade_hint,omitempty"`
	}

	writeJSON(w, http.StatusTooManyRequests, &envelope{
		Success:     false,
		Message:     qe.Error(),
		Status:      http.StatusTooManyRequests,
		UpgradeHint: qe.UpgradeHint(),
	})
}

// invalidTransitionResponse tells a stale moderator which state the review is
// actually in.
func (app *application) invalidTransitionResponse(w http.ResponseWriter, r *http.Request, ite *moderation.InvalidTransitionError) {
	app.logger.Warnw("invalid lifecycle transition", "path", r.URL.Path, "from", ite.From, "action", ite.Action)

	writeJSONError(w, http.StatusConflict, ite.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, "not found")
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic auth", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.logger.Warnw("forbidden", "method", r.Method, "path", r.URL.Path)

	writeJSONError(w, http.StatusForbidden, "forbidden")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter string) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", retryAfter)
	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter)
}
