package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/logger"
	"github.com/jwebster45206/story-reel/internal/middleware"
)

// maxBodyBytes bounds request bodies; reference images arrive inline.
const maxBodyBytes = 32 << 20

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(log, err).Error("Failed to encode response")
	}
}

// requestLogger tags log with the request ID set by the logging middleware.
func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	if id := middleware.RequestID(r.Context()); id != "" {
		return logger.WithRequestID(log, id)
	}
	return log
}

// writeError maps err onto a status code. Client errors are logged at warn,
// everything else at error.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		resp.Code = string(domainErr.Code)
	}

	log = requestLogger(log, r)
	errLog := logger.WithError(log, err)
	attrs := []any{"status", status, "method", r.Method, "path", r.URL.Path}
	if status >= http.StatusInternalServerError {
		errLog.ErrorContext(r.Context(), "Request failed", attrs...)
	} else {
		errLog.WarnContext(r.Context(), "Request rejected", attrs...)
	}
	writeJSON(w, log, status, resp)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, log *slog.Logger, allowed ...string) {
	log = requestLogger(log, r)
	log.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, log, http.StatusMethodNotAllowed, ErrorResponse{
		Error: fmt.Sprintf("Method not allowed. Supported methods: %s", strings.Join(allowed, ", ")),
	})
}

// decodeJSON reads a JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.CodeValidation, "Invalid JSON in request body", err)
	}
	return nil
}
