// Package handler implements the HTTP endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/snatchdl/snatch/internal/domain"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeFileName makes a title safe for a Content-Disposition filename.
func sanitizeFileName(name string) string {
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), "_")
	if len(name) > 200 {
		name = name[:200]
	}
	if name == "" {
		name = "download"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// statusFromError maps domain errors onto HTTP status codes. Unknown
// errors answer 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyURL),
		errors.Is(err, domain.ErrPlatformMismatch),
		errors.Is(err, domain.ErrUnsupportedPlatform):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoMedia),
		errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbiddenHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
