package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snatchdl/snatch/internal/service"
)

func newProxyHandler() *ProxyHandler {
	proxy := service.NewProxy(testLogger(), "test-agent", time.Second, time.Second)
	return NewProxyHandler(proxy, testLogger())
}

func TestPinterestProxy_RequiresURL(t *testing.T) {
	h := newProxyHandler()

	rec := httptest.NewRecorder()
	h.Pinterest(rec, httptest.NewRequest(http.MethodGet, "/api/pinterest-proxy", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPinterestProxy_RejectsForeignHost(t *testing.T) {
	h := newProxyHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/api/pinterest-proxy?url=https://evil.example.com/a.jpg", nil)
	rec := httptest.NewRecorder()
	h.Pinterest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPinterestProxy_PlaceholderWhenFetchFails(t *testing.T) {
	h := newProxyHandler()

	// A canceled context makes every fallback fail without touching the
	// network; the endpoint must still answer 200 with the placeholder.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet,
		"/api/pinterest-proxy?url=https://i.pinimg.com/originals/ab/cd.jpg", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Pinterest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with placeholder", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/svg+xml" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), "#E60023") {
		t.Error("expected the Pinterest placeholder")
	}
}

func TestSpotifyProxy_PlaceholderWhenFetchFails(t *testing.T) {
	h := newProxyHandler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet,
		"/api/spotify-proxy?url=https://i.scdn.co/image/abc", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Spotify(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with placeholder", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "#1DB954") {
		t.Error("expected the Spotify placeholder")
	}
}

func TestSpotifyProxy_RejectsForeignHost(t *testing.T) {
	h := newProxyHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/api/spotify-proxy?url=https://evil.example.com/a.jpg", nil)
	rec := httptest.NewRecorder()
	h.Spotify(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestYouTubeProxy_RejectsForeignHost(t *testing.T) {
	h := newProxyHandler()

	req := httptest.NewRequest(http.MethodGet,
		"/api/youtube-proxy?url=https://evil.example.com/v.mp4", nil)
	rec := httptest.NewRecorder()
	h.YouTube(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestYouTubeProxy_RequiresURL(t *testing.T) {
	h := newProxyHandler()

	rec := httptest.NewRecorder()
	h.YouTube(rec, httptest.NewRequest(http.MethodGet, "/api/youtube-proxy", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
