// Package spotify resolves Spotify tracks through the all-in-one
// downloader API, with oEmbed as the metadata source.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snatchdl/snatch/internal/domain"
)

// IsTrackURL reports whether the URL points at downloadable Spotify
// content (track, album or playlist pages).
func IsTrackURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(lower, "spotify.com/track") ||
		strings.Contains(lower, "spotify.com/album") ||
		strings.Contains(lower, "spotify.com/playlist")
}

// Result is a resolved Spotify track download.
type Result struct {
	Title       string
	Artist      string
	Thumbnail   string
	DownloadURL string
	Duration    int
	Quality     string
	Extension   string
	Type        string
}

// TrackMetadata is the oEmbed subset used on metadata-only calls.
type TrackMetadata struct {
	Title     string
	Thumbnail string
}

// SearchTrack is one hit from the track search endpoint.
type SearchTrack struct {
	No         int    `json:"no"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Duration   string `json:"duration"`
	SpotifyURL string `json:"spotifyUrl"`
	Thumbnail  string `json:"thumbnail"`
}

// Client talks to the downloader API and the public oEmbed endpoint.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	AIOBase    string
	OEmbedBase string
}

// NewClient creates a Spotify client against the given AIO API base.
func NewClient(aioBase, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		AIOBase:    aioBase,
		OEmbedBase: "https://open.spotify.com",
	}
}

type aioResponse struct {
	Status bool `json:"status"`
	Result *struct {
		Title     string `json:"title"`
		Author    string `json:"author"`
		Thumbnail string `json:"thumbnail"`
		Duration  int    `json:"duration"`
		Type      string `json:"type"`
		Medias    []struct {
			Type      string `json:"type"`
			URL       string `json:"url"`
			Quality   string `json:"quality"`
			Extension string `json:"extension"`
		} `json:"medias"`
	} `json:"result"`
}

// Download resolves a direct audio URL for a track. Non-track URLs fail
// with ErrPlatformMismatch before any network call.
func (c *Client) Download(ctx context.Context, trackURL string) (*Result, error) {
	if !IsTrackURL(trackURL) {
		return nil, domain.ErrPlatformMismatch
	}

	reqURL := fmt.Sprintf("%s/download/spotify?url=%s", c.AIOBase, url.QueryEscape(trackURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("spotify", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("spotify", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("spotify", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body aioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("spotify", fmt.Errorf("decode response: %w", err))
	}
	if !body.Status || body.Result == nil {
		return nil, domain.NewProviderError("spotify", fmt.Errorf("invalid api response"))
	}

	result := body.Result

	// Prefer the audio rendition; some tracks only list one media.
	audioIdx := -1
	for i, m := range result.Medias {
		if m.Type == "audio" {
			audioIdx = i
			break
		}
	}
	if audioIdx == -1 && len(result.Medias) > 0 {
		audioIdx = 0
	}
	if audioIdx == -1 || result.Medias[audioIdx].URL == "" {
		return nil, fmt.Errorf("track has no downloadable audio: %w", domain.ErrNoMedia)
	}
	audio := result.Medias[audioIdx]

	title := result.Title
	if title == "" {
		title = "Unknown Title"
	}
	artist := result.Author
	if artist == "" {
		artist = "Unknown Artist"
	}
	quality := audio.Quality
	if quality == "" {
		quality = "HQ"
	}
	extension := audio.Extension
	if extension == "" {
		extension = "mp3"
	}
	trackType := result.Type
	if trackType == "" {
		trackType = "single"
	}

	return &Result{
		Title:       title,
		Artist:      artist,
		Thumbnail:   result.Thumbnail,
		DownloadURL: audio.URL,
		Duration:    result.Duration,
		Quality:     quality,
		Extension:   extension,
		Type:        trackType,
	}, nil
}

// Metadata fetches title and cover art via oEmbed. Errors here are soft;
// callers fall back to platform defaults.
func (c *Client) Metadata(ctx context.Context, trackURL string) (*TrackMetadata, error) {
	reqURL := fmt.Sprintf("%s/oembed?url=%s", c.OEmbedBase, url.QueryEscape(trackURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("spotify-oembed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("spotify-oembed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("spotify-oembed", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Title        string `json:"title"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("spotify-oembed", fmt.Errorf("decode response: %w", err))
	}

	title := body.Title
	if title == "" {
		title = "Spotify Track"
	}
	return &TrackMetadata{Title: title, Thumbnail: body.ThumbnailURL}, nil
}

// Search queries the track search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]SearchTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	reqURL := fmt.Sprintf("%s/search/spotify?q=%s", c.AIOBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("spotify-search", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("spotify-search", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status bool `json:"status"`
		Result []struct {
			No         int    `json:"no"`
			Title      string `json:"title"`
			Artist     string `json:"artist"`
			Duration   string `json:"duration"`
			SpotifyURL string `json:"spotify_url"`
			Thumbnail  string `json:"thumbnail"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("spotify-search", fmt.Errorf("decode response: %w", err))
	}
	if !body.Status || len(body.Result) == 0 {
		return nil, domain.NewProviderError("spotify-search", fmt.Errorf("no results"))
	}

	tracks := make([]SearchTrack, 0, len(body.Result))
	for _, item := range body.Result {
		tracks = append(tracks, SearchTrack{
			No:         item.No,
			Title:      item.Title,
			Artist:     item.Artist,
			Duration:   item.Duration,
			SpotifyURL: item.SpotifyURL,
			Thumbnail:  item.Thumbnail,
		})
	}
	return tracks, nil
}
