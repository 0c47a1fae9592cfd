package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"lexcrm/backend/internal/calendar"
	"lexcrm/backend/internal/service"
	"lexcrm/backend/internal/service/users"
	"lexcrm/backend/internal/store"
	"lexcrm/backend/internal/whatsapp"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps an error to its HTTP status and the message shown to the caller.
func statusFor(err error) (int, string) {
	var (
		vErr   *service.ValidationError
		cfgErr *calendar.ConfigurationError
		extErr *calendar.ExternalServiceError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Error()
	case errors.Is(err, store.ErrNotFound), errors.Is(err, calendar.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrReferenced):
		return http.StatusConflict, "record is still referenced by other records"
	case errors.Is(err, store.ErrConstraintViolation):
		return http.StatusConflict, conflictMessage(err)
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.As(err, &cfgErr), errors.Is(err, users.ErrLoginDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &extErr), errors.Is(err, whatsapp.ErrGateway):
		return http.StatusBadGateway, "upstream service failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func conflictMessage(err error) string {
	switch store.ConstraintName(err) {
	case "clients_tax_id_key":
		return "a client with this tax id already exists"
	case "users_email_key":
		return "a user with this email already exists"
	default:
		return "record already exists"
	}
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	attrs := []any{
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", status),
		slog.Any("err", err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		a.log.ErrorContext(r.Context(), "request failed", attrs...)
	case status == http.StatusNotFound:
		a.log.InfoContext(r.Context(), "request failed", attrs...)
	default:
		a.log.WarnContext(r.Context(), "request failed", attrs...)
	}
	writeError(w, status, msg)
}
