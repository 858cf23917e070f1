package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Form and query parameters are read with r.FormValue, so they may come from
// the URL or from a multipart body. A malformed value writes a 400 response
// and returns false.

// ParseBoolParam reads a boolean parameter, returning def when it is absent.
func ParseBoolParam(w http.ResponseWriter, r *http.Request, name string, def bool, logger *zap.Logger) (bool, bool) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeParamError(w, name, "a boolean", raw, logger)
		return false, false
	}
	return v, true
}

// ParseIntParam reads an integer parameter, returning def when it is absent.
func ParseIntParam(w http.ResponseWriter, r *http.Request, name string, def int, logger *zap.Logger) (int, bool) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeParamError(w, name, "an integer", raw, logger)
		return 0, false
	}
	return v, true
}

// ParseFloatParam reads a float parameter, returning def when it is absent.
func ParseFloatParam(w http.ResponseWriter, r *http.Request, name string, def float64, logger *zap.Logger) (float64, bool) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeParamError(w, name, "a number", raw, logger)
		return 0, false
	}
	return v, true
}

// ParseStringParam reads a trimmed string parameter, returning def when it is absent.
func ParseStringParam(r *http.Request, name, def string) string {
	if raw := strings.TrimSpace(r.FormValue(name)); raw != "" {
		return raw
	}
	return def
}

// ParseListParam reads a comma separated parameter. Blank items are dropped.
func ParseListParam(r *http.Request, name string) []string {
	var out []string
	for _, item := range strings.Split(r.FormValue(name), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func writeParamError(w http.ResponseWriter, name, want, got string, logger *zap.Logger) {
	message := fmt.Sprintf("Parameter %s must be %s, got %q", name, want, got)
	if err := ErrorResponseWithDetails(w, http.StatusBadRequest, "INVALID_PARAMETER", message,
		map[string]any{"parameter": name}); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
