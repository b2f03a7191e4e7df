package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/jobs"
)

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	var fe *domain.FormatError
	switch {
	case errors.As(err, &fe), errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVocabularyUnavailable), errors.Is(err, jobs.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError writes err as JSON. Client errors carry the error text;
// server errors are logged and replaced by fallback.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg(fallback)
		middleware.WriteError(w, status, fallback)
		return
	}
	middleware.WriteError(w, status, clientMessage(err))
}

func clientMessage(err error) string {
	var fe *domain.FormatError
	switch {
	case errors.As(err, &fe):
		return fe.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return "Unauthorized"
	case errors.Is(err, domain.ErrNotFound):
		return "Not found"
	default:
		return err.Error()
	}
}

// requireUser returns the authenticated user or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}
