package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snatchdl/snatch/internal/api/middleware"
	"github.com/snatchdl/snatch/internal/domain"
)

// HistoryReader is the history persistence the user endpoint needs.
type HistoryReader interface {
	DownloadHistory(ctx context.Context, userID int64, limit int) ([]domain.DownloadRecord, error)
	DeleteDownloadRecord(ctx context.Context, userID, recordID int64) error
	UpdateDownloadFilename(ctx context.Context, userID, recordID int64, filename string) error
}

// UserHandler serves the authenticated account endpoint.
type UserHandler struct {
	history HistoryReader
	logger  *slog.Logger
}

// NewUserHandler creates a user handler.
func NewUserHandler(history HistoryReader, logger *slog.Logger) *UserHandler {
	return &UserHandler{history: history, logger: logger}
}

// Handle dispatches /api/user by its action parameter. The route is
// behind RequireUser, so the context always carries a user here.
func (h *UserHandler) Handle(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	action := strings.ToLower(r.URL.Query().Get("action"))
	if action == "" {
		action = "me"
	}

	switch action {
	case "me":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    user,
		})
	case "history":
		h.listHistory(w, r, user)
	case "delete-history":
		h.deleteHistory(w, r, user)
	case "rename-history":
		h.renameHistory(w, r, user)
	default:
		writeError(w, http.StatusBadRequest, "invalid action; use one of: me, history, delete-history, rename-history")
	}
}

func (h *UserHandler) listHistory(w http.ResponseWriter, r *http.Request, user *domain.User) {
	records, err := h.history.DownloadHistory(r.Context(), user.ID, limitParam(r, 50))
	if err != nil {
		h.logger.Error("failed to load history",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if records == nil {
		records = []domain.DownloadRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": records,
	})
}

type historyMutation struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
}

func parseHistoryMutation(r *http.Request) (historyMutation, bool) {
	var m historyMutation
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil || m.ID == 0 {
		return historyMutation{}, false
	}
	return m, true
}

func (h *UserHandler) deleteHistory(w http.ResponseWriter, r *http.Request, user *domain.User) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, ok := parseHistoryMutation(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "record id required")
		return
	}
	if err := h.history.DeleteDownloadRecord(r.Context(), user.ID, m.ID); err != nil {
		writeError(w, statusFromError(err), "failed to delete record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *UserHandler) renameHistory(w http.ResponseWriter, r *http.Request, user *domain.User) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	m, ok := parseHistoryMutation(r)
	if !ok || m.Filename == "" {
		writeError(w, http.StatusBadRequest, "record id and filename required")
		return
	}
	if err := h.history.UpdateDownloadFilename(r.Context(), user.ID, m.ID, sanitizeFileName(m.Filename)); err != nil {
		writeError(w, statusFromError(err), "failed to rename record")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
