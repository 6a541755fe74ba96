package handler

// RESPONSE HELPERS:
// Every JSON response goes through writeJSON and every failure through
// writeError, so all endpoints share one error shape:
//
//	{"error": "not_found", "message": "article not found with id abc123"}
//
// HTML pages use Views.renderError instead, which maps errors the same way
// but renders the error page.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/apperror"
)

// maxBodyBytes bounds JSON request bodies. Article bodies are the largest
// payload.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable, e.g. "not_found"
	Message string `json:"message"`         // human-readable
	Field   string `json:"field,omitempty"` // validation errors only
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// errorStatus maps a domain error to its HTTP status and error type.
// Anything that is not an *apperror.AppError is a 500.
func errorStatus(err error) (int, string, *apperror.AppError) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, "internal_error", nil
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error", appErr
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", appErr
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden", appErr
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found", appErr
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict", appErr
	}
	return http.StatusInternalServerError, "internal_error", nil
}

// writeError translates err into a JSON error response. Internal errors are
// logged and replaced with a generic message; their text may contain SQL
// or file paths.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType, appErr := errorStatus(err)
	if appErr == nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeJSON(w, r, status, ErrorResponse{
			Error:   errorType,
			Message: "An internal error occurred",
		})
		return
	}

	writeJSON(w, r, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Malformed bodies are reported as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "invalid JSON body: "+err.Error())
	}
	return nil
}

// APINotFound answers unmatched /api routes in JSON.
func APINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "no such endpoint: " + r.Method + " " + r.URL.Path,
	})
}
