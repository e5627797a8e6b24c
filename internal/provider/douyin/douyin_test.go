package douyin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestHash(t *testing.T) {
	videoURL := "https://v.douyin.com/abc123/"
	got := RequestHash(videoURL, "aio-dl")

	want := base64.StdEncoding.EncodeToString([]byte(videoURL)) +
		"1026" +
		base64.StdEncoding.EncodeToString([]byte("aio-dl"))
	if got != want {
		t.Errorf("RequestHash() = %q, want %q", got, want)
	}
}

func TestFetch_ScrapesTokenThenPosts(t *testing.T) {
	videoURL := "https://v.douyin.com/xyz/"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body><form><input id="token" value="TOKEN123" /></form></body></html>`)
		case "/wp-json/mx-downloader/video-data/":
			if r.Method != http.MethodPost {
				t.Errorf("method = %q, want POST", r.Method)
			}
			if got := r.FormValue("token"); got != "TOKEN123" {
				t.Errorf("token = %q, want TOKEN123", got)
			}
			if got := r.FormValue("hash"); got != RequestHash(videoURL, "aio-dl") {
				t.Errorf("hash = %q, want request hash for the video url", got)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"title":      "Douyin Dance",
				"id":         "741",
				"duration":   12,
				"thumbnail":  "https://cdn.example.com/cover.jpg",
				"author":     "Someone",
				"author_id":  "someone123",
				"digg_count": "500",
				"medias": []map[string]interface{}{
					{"url": "https://cdn.example.com/hd.mp4", "quality": "hd", "extension": "mp4"},
					{"url": "https://cdn.example.com/sd.mp4", "quality": "sd", "extension": "mp4"},
				},
			})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient("test-agent", time.Second)
	c.SnapBase = srv.URL

	got, err := c.Fetch(context.Background(), videoURL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Title != "Douyin Dance" {
		t.Errorf("title = %q", got.Title)
	}
	if got.DownloadURL != "https://cdn.example.com/hd.mp4" {
		t.Errorf("download url = %q, want the first media", got.DownloadURL)
	}
	if len(got.Medias) != 2 {
		t.Errorf("medias = %d, want 2", len(got.Medias))
	}
	if got.Stats.Views != "500" {
		t.Errorf("views = %q, want 500", got.Stats.Views)
	}
	if got.Stats.Likes != "0" {
		t.Errorf("likes = %q, want 0 for a missing count", got.Stats.Likes)
	}
	if got.Author != "Someone" || got.AuthorID != "someone123" {
		t.Errorf("author = %q / %q", got.Author, got.AuthorID)
	}
}

func TestFetch_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no form here</body></html>`)
	}))
	defer srv.Close()

	c := NewClient("test-agent", time.Second)
	c.SnapBase = srv.URL

	if _, err := c.Fetch(context.Background(), "https://v.douyin.com/xyz/"); err == nil {
		t.Error("expected error when the page has no token input")
	}
}

func TestFetch_EmptyMedias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			fmt.Fprint(w, `<input id="token" value="T" />`)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"title": "x", "medias": []interface{}{}})
	}))
	defer srv.Close()

	c := NewClient("test-agent", time.Second)
	c.SnapBase = srv.URL

	if _, err := c.Fetch(context.Background(), "https://v.douyin.com/xyz/"); err == nil {
		t.Error("expected error for a response without medias")
	}
}
