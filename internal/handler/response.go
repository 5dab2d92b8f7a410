package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the API has one
// response shape. Errors always look like:
//
//	{"error": "not_found", "message": "menu item not found with id abc123"}
//
// Validation errors additionally name the offending request field:
//
//	{"error": "validation_error", "message": "Name is required", "field": "name"}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/menu-planner/internal/apperror"
	"github.com/sakif/menu-planner/internal/auth"
)

// maxBodyBytes caps request bodies. Menu items with long recipes are the
// largest payloads the API accepts.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "not_found"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // request field for validation errors
}

// MessageResponse is the body of endpoints that only acknowledge an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers must be set before the
// status is written; once Encode starts writing the body they are frozen.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// errorStatus maps a domain error to its HTTP status and error kind.
//
// errors.Is walks the whole chain, so a service that wrapped an AppError with
// fmt.Errorf("...: %w", err) still maps to the right status.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrTransaction):
		return http.StatusInternalServerError, "transaction_failed"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError translates err into the standard error response.
//
// Only AppError messages reach the client. Anything else may carry SQL or
// file paths, so it is logged and replaced with a generic message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, kind := errorStatus(err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", slog.String("error", err.Error()))
		}
		writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
		return
	}

	logger.Error("unexpected error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON value from the request body into dst.
// Malformed or oversized bodies become validation errors. An empty body is
// accepted and leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "Request body too large")
		}
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	if dec.More() {
		return apperror.ValidationFailed("", "Request body must be a single JSON object")
	}
	return nil
}

// requestUserID returns the id RequireAuth stored in the context. Handlers
// mounted outside RequireAuth get an Unauthorized error.
func requestUserID(r *http.Request) (string, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("valid authentication required")
	}
	return id, nil
}
