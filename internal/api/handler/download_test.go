package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/snatchdl/snatch/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Validation paths never reach a provider, so the service can be wired
// with nil fetchers here.
func newValidationOnlyDownloads() *service.Downloads {
	return service.NewDownloads(testLogger(), nil, nil, nil, nil, nil, nil, nil, nil, nil)
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestDownload_InvalidPlatform(t *testing.T) {
	h := NewDownloadHandler(newValidationOnlyDownloads(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/download?platform=vimeo&url=https://vimeo.com/1", nil)
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, rec)
	if body["success"] != false {
		t.Error("expected success=false")
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "youtube") || !strings.Contains(msg, "tiktok") {
		t.Errorf("error = %q, want the supported platform list", msg)
	}
}

func TestDownload_EmptyURL(t *testing.T) {
	h := NewDownloadHandler(newValidationOnlyDownloads(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/download?platform=tiktok", nil)
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDownload_PlatformMismatch(t *testing.T) {
	h := NewDownloadHandler(newValidationOnlyDownloads(), testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/api/download?platform=tiktok&url=https://www.youtube.com/watch?v=abc", nil)
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	body := decodeErrorBody(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "TikTok") {
		t.Errorf("error = %q, want the platform named", msg)
	}
}

func TestDownload_POSTBodyParams(t *testing.T) {
	h := NewDownloadHandler(newValidationOnlyDownloads(), testLogger())

	// A mismatched URL in the JSON body proves the body was parsed.
	payload := `{"platform":"tiktok","url":"https://www.youtube.com/watch?v=abc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/download", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d for a mismatched body url", rec.Code, http.StatusBadRequest)
	}
}

func TestParseDownloadParams_QueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/api/download?platform=youtube&url=https://youtu.be/abc&quality=1080&metadata=true&title=My+Video", nil)

	p := parseDownloadParams(req)
	if p.Platform != "youtube" || p.URL != "https://youtu.be/abc" {
		t.Errorf("params = %+v", p)
	}
	if p.Quality != "1080" {
		t.Errorf("quality = %q", p.Quality)
	}
	if !p.Metadata {
		t.Error("metadata flag not parsed")
	}
	if p.Title != "My Video" {
		t.Errorf("title = %q", p.Title)
	}
}
