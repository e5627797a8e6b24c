package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snatchdl/snatch/internal/provider/pinterest"
	"github.com/snatchdl/snatch/internal/provider/spotify"
	"github.com/snatchdl/snatch/internal/provider/youtube"
	"github.com/snatchdl/snatch/internal/service"
)

type fakeYouTubeUtility struct {
	searchResult *youtube.SearchResult
	searchErr    error
	metadata     *youtube.VideoMetadata
	metadataErr  error
}

func (f *fakeYouTubeUtility) Search(ctx context.Context, query string) (*youtube.SearchResult, error) {
	return f.searchResult, f.searchErr
}

func (f *fakeYouTubeUtility) Metadata(ctx context.Context, videoURL string) (*youtube.VideoMetadata, error) {
	return f.metadata, f.metadataErr
}

type fakePinterestSearcher struct {
	pins []pinterest.Pin
	err  error
}

func (f *fakePinterestSearcher) Search(ctx context.Context, keyword string, limit int) ([]pinterest.Pin, error) {
	return f.pins, f.err
}

type fakeSpotifySearcher struct {
	tracks []spotify.SearchTrack
	err    error
}

func (f *fakeSpotifySearcher) Search(ctx context.Context, query string) ([]spotify.SearchTrack, error) {
	return f.tracks, f.err
}

func newUtilityHandler(yt YouTubeUtility, pin PinterestSearcher, sp SpotifySearcher) *UtilityHandler {
	proxy := service.NewProxy(testLogger(), "test-agent", time.Second, time.Second)
	return NewUtilityHandler(yt, pin, sp, proxy, testLogger())
}

func TestUtility_UnknownAction(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=bogus", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "tiktok-proxy") {
		t.Errorf("body = %q, want the action list", rec.Body.String())
	}
}

func TestUtility_ProxyActionsRejectPOST(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	for _, action := range []string{"tiktok-proxy", "instagram-proxy", "youtube-proxy", "facebook-proxy"} {
		req := httptest.NewRequest(http.MethodPost, "/api/utility?action="+action+"&url=https://example.com/x", nil)
		rec := httptest.NewRecorder()
		h.Handle(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want %d", action, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestUtility_Search(t *testing.T) {
	yt := &fakeYouTubeUtility{searchResult: &youtube.SearchResult{
		Videos: []youtube.SearchVideo{
			{VideoID: "abc", Title: "First", AuthorName: "Chan", Seconds: 61, Timestamp: "1:01"},
			{VideoID: "def", Title: "Second"},
		},
	}}
	h := newUtilityHandler(yt, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=search&q=test&limit=1", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool                     `json:"success"`
		Type    string                   `json:"type"`
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Type != "video" {
		t.Errorf("success = %v, type = %q", body.Success, body.Type)
	}
	if len(body.Results) != 1 {
		t.Fatalf("results = %d, want the limit of 1", len(body.Results))
	}
	if body.Results[0]["videoId"] != "abc" {
		t.Errorf("results[0] = %+v", body.Results[0])
	}
	duration, _ := body.Results[0]["duration"].(map[string]interface{})
	if duration["timestamp"] != "1:01" {
		t.Errorf("duration = %+v", duration)
	}
}

func TestUtility_SearchRequiresQuery(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=search", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUtility_ThumbnailRejectsNonYouTubeURL(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=thumbnail&url=https://vimeo.com/1", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUtility_ThumbnailDegradesOnOEmbedFailure(t *testing.T) {
	yt := &fakeYouTubeUtility{metadataErr: errors.New("oembed down")}
	h := newUtilityHandler(yt, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/utility?action=thumbnail&url=https://youtu.be/dQw4w9WgXcQ", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite the oembed failure", rec.Code)
	}
	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)
	if body["success"] != true {
		t.Error("expected success=true")
	}
	if body["thumbnail"] != youtube.ThumbnailURL("dQw4w9WgXcQ") {
		t.Errorf("thumbnail = %v, want the derived maxres url", body["thumbnail"])
	}
}

func TestUtility_Thumbnail(t *testing.T) {
	yt := &fakeYouTubeUtility{metadata: &youtube.VideoMetadata{
		Title:     "A Video",
		Author:    "Chan",
		Thumbnail: youtube.ThumbnailURL("dQw4w9WgXcQ"),
		VideoID:   "dQw4w9WgXcQ",
	}}
	h := newUtilityHandler(yt, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/utility?action=thumbnail&url=https://youtu.be/dQw4w9WgXcQ", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)
	if body["title"] != "A Video" || body["author"] != "Chan" {
		t.Errorf("body = %+v", body)
	}
}

func TestUtility_PinterestSearch(t *testing.T) {
	pin := &fakePinterestSearcher{pins: []pinterest.Pin{
		{ID: "111", Title: "Cat", Image: "https://i.pinimg.com/originals/a.jpg"},
	}}
	h := newUtilityHandler(&fakeYouTubeUtility{}, pin, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=pinterest-search&keyword=cats", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool            `json:"success"`
		Keyword string          `json:"keyword"`
		Count   int             `json:"count"`
		Pins    []pinterest.Pin `json:"pins"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Keyword != "cats" || body.Count != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestUtility_SpotifySearch(t *testing.T) {
	sp := &fakeSpotifySearcher{tracks: []spotify.SearchTrack{
		{No: 1, Title: "Song One", Artist: "Artist", SpotifyURL: "https://open.spotify.com/track/aaa"},
	}}
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, sp)

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=spotify-search&q=song", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success bool                  `json:"success"`
		Query   string                `json:"query"`
		Total   int                   `json:"total"`
		Results []spotify.SearchTrack `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Query != "song" || body.Total != 1 {
		t.Errorf("body = %+v", body)
	}
	if len(body.Results) != 1 || body.Results[0].SpotifyURL != "https://open.spotify.com/track/aaa" {
		t.Errorf("results = %+v", body.Results)
	}
}

func TestUtility_SpotifySearchRequiresQuery(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/utility?action=spotify-search", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestUtility_TikTokProxyStreamsAudio(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Referer"); got != "https://www.tiktok.com/" {
			t.Errorf("referer = %q", got)
		}
		w.Write([]byte("audio bytes"))
	}))
	defer upstream.Close()

	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/utility?action=tiktok-proxy&type=audio&url="+upstream.URL, nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="tiktok_audio.mp3"` {
		t.Errorf("disposition = %q", got)
	}
	if rec.Body.String() != "audio bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestUtility_YouTubeProxyRejectsForeignHost(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/utility?action=youtube-proxy&url=https://evil.example.com/v.mp4", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUtility_FacebookProxyRejectsForeignHost(t *testing.T) {
	h := newUtilityHandler(&fakeYouTubeUtility{}, &fakePinterestSearcher{}, &fakeSpotifySearcher{})

	req := httptest.NewRequest(http.MethodGet,
		"/api/utility?action=facebook-proxy&url=https://evil.example.com/v.mp4", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
