package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snatchdl/snatch/internal/api/handler"
	"github.com/snatchdl/snatch/internal/auth"
	"github.com/snatchdl/snatch/internal/service"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	downloads := service.NewDownloads(logger, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	proxy := service.NewProxy(logger, "test-agent", time.Second, time.Second)
	sessions := auth.NewSessions("test-secret", time.Hour, false)
	github := auth.NewGitHub("", "")

	return NewRouter(
		handler.NewDownloadHandler(downloads, logger),
		handler.NewUtilityHandler(nil, nil, nil, proxy, logger),
		handler.NewProxyHandler(proxy, logger),
		handler.NewAuthHandler(github, sessions, nil, logger),
		handler.NewUserHandler(nil, logger),
		handler.NewHealthHandler("test"),
		sessions,
	)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRouter_UserRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRouter_MethodNotAllowedIsJSON(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/download", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "method not allowed") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/download", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestRouter_DownloadValidation(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/download?platform=bogus&url=https://example.com", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
