package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snatchdl/snatch/internal/auth"
	"github.com/snatchdl/snatch/internal/domain"
)

// UserStore is the account persistence the auth flow needs.
type UserStore interface {
	UserByGithubID(ctx context.Context, githubID string) (*domain.User, error)
	CreateGithubUser(ctx context.Context, username, githubID string) (*domain.User, error)
}

// AuthHandler drives GitHub OAuth login and session lifecycle.
type AuthHandler struct {
	github   *auth.GitHub
	sessions *auth.Sessions
	users    UserStore
	logger   *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(github *auth.GitHub, sessions *auth.Sessions, users UserStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{github: github, sessions: sessions, users: users, logger: logger}
}

// Handle dispatches GET /api/auth by its action parameter.
func (h *AuthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(r.URL.Query().Get("action")) {
	case "login":
		h.login(w, r)
	case "callback":
		h.callback(w, r)
	case "logout":
		h.logout(w, r)
	default:
		writeError(w, http.StatusBadRequest, "invalid action; use one of: login, callback, logout")
	}
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if !h.github.Configured() {
		writeError(w, http.StatusInternalServerError, "GitHub OAuth is not configured")
		return
	}
	http.Redirect(w, r, h.github.AuthorizeURL(h.callbackURL(r)), http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "no code provided")
		return
	}

	accessToken, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.authFailed(w, "oauth exchange", err)
		return
	}

	ghUser, err := h.github.FetchUser(r.Context(), accessToken)
	if err != nil {
		h.authFailed(w, "fetch profile", err)
		return
	}

	user, err := h.users.UserByGithubID(r.Context(), ghUser.GithubID())
	if errors.Is(err, domain.ErrUserNotFound) {
		user, err = h.users.CreateGithubUser(r.Context(), ghUser.Login, ghUser.GithubID())
	}
	if err != nil {
		h.authFailed(w, "provision account", err)
		return
	}

	token, err := h.sessions.Token(user)
	if err != nil {
		h.authFailed(w, "issue session", err)
		return
	}

	http.SetCookie(w, h.sessions.NewCookie(token))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.sessions.ClearCookie())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// callbackURL reconstructs the externally visible callback address,
// honoring the proxy's forwarded protocol.
func (h *AuthHandler) callbackURL(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	return proto + "://" + r.Host + "/api/auth?action=callback"
}

func (h *AuthHandler) authFailed(w http.ResponseWriter, stage string, err error) {
	h.logger.Error("github auth failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "authentication failed")
}
