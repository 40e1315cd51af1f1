package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ErrValidation{Field: "body", Message: err.Error(), Err: err}
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := applog.FromContext(r.Context())
	var infra *core.ErrInfrastructure

	switch {
	case core.IsNotFound(err):
		logger.DebugContext(r.Context(), "not found", applog.FieldError, err.Error())
		writeError(w, http.StatusNotFound, err.Error())
	case core.IsValidation(err):
		logger.DebugContext(r.Context(), "validation error", applog.FieldError, err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &infra):
		logger.ErrorContext(r.Context(), "storage unavailable", applog.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		logger.ErrorContext(r.Context(), "unexpected error", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseYearMonth extracts year and month from query parameters.
// Missing values default to the current year and month.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year, month = now.Year(), int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, &core.ErrValidation{Field: "year", Message: fmt.Sprintf("invalid year %q", v)}
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, &core.ErrValidation{Field: "month", Message: fmt.Sprintf("invalid month %q", v)}
		}
	}
	return year, month, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, &core.ErrValidation{Field: key, Message: fmt.Sprintf("invalid date %q", v), Err: err}
	}
	return d, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ErrValidation{Field: key, Message: fmt.Sprintf("invalid integer %q", v), Err: err}
	}
	return n, nil
}

// queryBool treats a missing value as def.
func queryBool(r *http.Request, key string, def bool) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &core.ErrValidation{Field: key, Message: fmt.Sprintf("invalid boolean %q", v), Err: err}
	}
	return b, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
