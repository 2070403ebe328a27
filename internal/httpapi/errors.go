package httpapi

import (
	"context"
	"errors"
	"net/http"

	"lifedrop.org/internal/donors"
	"lifedrop.org/internal/gateway"
	"lifedrop.org/internal/journal"
	"lifedrop.org/internal/registration"
	"lifedrop.org/internal/session"
)

const msgRequiredFields = "Please fill in all required fields"

// fieldError is a screen-level validation failure.
type fieldError struct {
	field, message string
}

func (e *fieldError) Error() string { return e.message }

func required(field string) error {
	return &fieldError{field: field, message: msgRequiredFields}
}

// respondError maps domain errors onto status codes and logs faults.
func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fe *fieldError
		ve *registration.ValidationError
		pe *session.PersistError
	)
	switch {
	case errors.As(err, &fe):
		writeError(w, r, http.StatusBadRequest, "validation_failed", fe.message, fe.field)
	case errors.As(err, &ve):
		writeError(w, r, http.StatusBadRequest, "validation_failed", ve.Message, ve.Field)
	case errors.Is(err, session.ErrInvalidProfile),
		errors.Is(err, journal.ErrInvalidInput),
		errors.Is(err, donors.ErrInvalidCriteria):
		writeError(w, r, http.StatusBadRequest, "invalid_input", err.Error(), "")
	case errors.Is(err, session.ErrNoSession):
		writeError(w, r, http.StatusConflict, "no_session", "not logged in", "")
	case errors.Is(err, registration.ErrSubmitInFlight):
		writeError(w, r, http.StatusConflict, "submit_in_flight", "registration is already being submitted", "")
	case errors.Is(err, registration.ErrWrongStep):
		writeError(w, r, http.StatusConflict, "wrong_step", "not available on this registration step", "")
	case errors.Is(err, journal.ErrNoDirectory):
		writeError(w, r, http.StatusServiceUnavailable, "no_directory", "donor search is not configured", "")
	case errors.Is(err, context.DeadlineExceeded):
		a.logger.WarnContext(r.Context(), "request_timed_out", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "operation timed out", "")
	case errors.As(err, &pe), errors.Is(err, gateway.ErrRead), errors.Is(err, gateway.ErrWrite):
		a.logger.ErrorContext(r.Context(), "persistence_failed", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, r, http.StatusServiceUnavailable, "persistence_failed", "could not save your data, please retry", "")
	default:
		a.logger.ErrorContext(r.Context(), "request_failed", "request_id", requestIDFrom(r.Context()), "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "internal error", "")
	}
}
