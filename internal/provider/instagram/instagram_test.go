package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snatchdl/snatch/internal/domain"
)

func TestResult_IsCarousel(t *testing.T) {
	single := &Result{URLs: []string{"a"}}
	if single.IsCarousel() {
		t.Error("single-media post should not be a carousel")
	}

	multi := &Result{URLs: []string{"a", "b", "c"}}
	if !multi.IsCarousel() {
		t.Error("multi-media post should be a carousel")
	}
}

func TestClassifyYtDlpError(t *testing.T) {
	base := errors.New("exit status 1")

	tests := []struct {
		stderr string
		want   error
	}{
		{"ERROR: [Instagram] login required to access this content", domain.ErrMediaUnavailable},
		{"ERROR: rate-limit reached", domain.ErrMediaUnavailable},
		{"HTTP Error 403: Forbidden", domain.ErrMediaUnavailable},
		{"ERROR: [Instagram] abc: not found", domain.ErrNoMedia},
		{"HTTP Error 404", domain.ErrNoMedia},
		{"ERROR: this post is unavailable", domain.ErrNoMedia},
	}
	for _, tt := range tests {
		got := classifyYtDlpError(tt.stderr, base)
		if !errors.Is(got, tt.want) {
			t.Errorf("classifyYtDlpError(%q) = %v, want %v", tt.stderr, got, tt.want)
		}
	}

	unknown := classifyYtDlpError("something else entirely", base)
	if !errors.Is(unknown, base) {
		t.Errorf("unknown stderr should wrap the exec error, got %v", unknown)
	}
}

func TestFetch_DowngramFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if got := r.FormValue("url"); got != "https://www.instagram.com/p/abc/" {
			t.Errorf("url = %q", got)
		}
		fmt.Fprint(w, `<html><body><div id="downloadhere">
			<a href="https://scontent.example.com/one.mp4">Download</a>
			<a href="https://scontent.example.com/two.jpg">Download</a>
			<a href="#top">Back</a>
		</div></body></html>`)
	}))
	defer srv.Close()

	// A bogus binary path forces the chain onto the downloadgram adapter.
	c := NewClient("/nonexistent/yt-dlp", "test-agent", time.Second)
	c.DowngramBase = srv.URL

	got, err := c.Fetch(context.Background(), "https://www.instagram.com/p/abc/")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Service != "downloadgram" {
		t.Errorf("service = %q, want downloadgram", got.Service)
	}
	if len(got.URLs) != 2 {
		t.Fatalf("urls = %d, want 2 (anchor link dropped)", len(got.URLs))
	}
	if !got.IsCarousel() {
		t.Error("two urls should read as a carousel")
	}
}

func TestFetch_DowngramNoLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="downloadhere"></div></body></html>`)
	}))
	defer srv.Close()

	c := NewClient("/nonexistent/yt-dlp", "test-agent", time.Second)
	c.DowngramBase = srv.URL

	_, err := c.Fetch(context.Background(), "https://www.instagram.com/p/abc/")
	if !errors.Is(err, domain.ErrNoMedia) {
		t.Errorf("error = %v, want ErrNoMedia", err)
	}
}
