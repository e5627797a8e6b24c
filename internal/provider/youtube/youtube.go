// Package youtube resolves YouTube videos and audio through an
// all-in-one downloader API and scrapes the public search results page.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/snatchdl/snatch/internal/domain"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
}

// ExtractVideoID pulls the 11-character video ID out of any supported
// YouTube URL form, or returns "".
func ExtractVideoID(rawURL string) string {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

var (
	videoFormats = []string{"144", "240", "360", "480", "720", "1080", "1440", "2160"}
	audioFormats = []string{"mp3", "m4a", "webm", "aac", "flac", "opus", "ogg", "wav"}
)

// IsAudioFormat reports whether the requested format selects an audio stream.
func IsAudioFormat(format string) bool {
	for _, f := range audioFormats {
		if f == format {
			return true
		}
	}
	return false
}

// SupportedFormats lists every accepted format value.
func SupportedFormats() []string {
	return append(append([]string{}, videoFormats...), audioFormats...)
}

func isSupportedFormat(format string) bool {
	for _, f := range SupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// StreamMedia is one stream entry of the downloader API's medias array.
type StreamMedia struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	Quality      string `json:"quality"`
	QualityLabel string `json:"qualityLabel"`
	Extension    string `json:"extension"`
	MimeType     string `json:"mimeType"`
	Height       int    `json:"height"`
	IsAudio      bool   `json:"is_audio"`
}

type aioResponse struct {
	Status bool `json:"status"`
	Result *struct {
		Title     string        `json:"title"`
		Thumbnail string        `json:"thumbnail"`
		Duration  int           `json:"duration"`
		Author    string        `json:"author"`
		Medias    []StreamMedia `json:"medias"`
	} `json:"result"`
}

// Result is a resolved YouTube download.
type Result struct {
	Title       string
	ID          string
	Thumbnail   string
	DownloadURL string
	Quality     string
	Author      string
	Extension   string
	Duration    int
	IsAudio     bool
}

// Client talks to the all-in-one downloader API.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	AIOBase    string
	OEmbedBase string
	SearchBase string
}

// NewClient creates a YouTube client against the given AIO API base.
func NewClient(aioBase, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		AIOBase:    aioBase,
		OEmbedBase: "https://www.youtube.com",
		SearchBase: "https://www.youtube.com",
	}
}

// Download resolves a direct media URL for the requested format. Video
// formats are quality labels ("720"); audio formats are codec names ("mp3").
func (c *Client) Download(ctx context.Context, link, format string) (*Result, error) {
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("format %q not available: %w", format, domain.ErrNoMedia)
	}

	id := ExtractVideoID(link)
	if id == "" {
		return nil, domain.ErrPlatformMismatch
	}

	watchURL := "https://www.youtube.com/watch?v=" + id
	reqURL := fmt.Sprintf("%s/download/aio?url=%s", c.AIOBase, url.QueryEscape(watchURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("aio", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("aio", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("aio", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body aioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("aio", fmt.Errorf("decode response: %w", err))
	}
	if !body.Status || body.Result == nil {
		return nil, domain.NewProviderError("aio", fmt.Errorf("invalid api response"))
	}

	isAudio := IsAudioFormat(format)
	best := SelectMedia(body.Result.Medias, format, isAudio)
	if best == nil || best.URL == "" {
		return nil, fmt.Errorf("format %q not available for this video: %w", format, domain.ErrNoMedia)
	}

	quality := best.QualityLabel
	if quality == "" {
		quality = best.Quality
	}
	if quality == "" {
		quality = format
	}
	extension := best.Extension
	if extension == "" {
		if isAudio {
			extension = "mp3"
		} else {
			extension = "mp4"
		}
	}
	thumbnail := body.Result.Thumbnail
	if thumbnail == "" {
		thumbnail = "https://i.ytimg.com/vi/" + id + "/mqdefault.jpg"
	}

	return &Result{
		Title:       body.Result.Title,
		ID:          id,
		Thumbnail:   thumbnail,
		DownloadURL: best.URL,
		Quality:     quality,
		Author:      body.Result.Author,
		Extension:   extension,
		Duration:    body.Result.Duration,
		IsAudio:     isAudio,
	}, nil
}

// SelectMedia picks the best matching stream.
//
// Audio: audio-only streams first, preferring the m4a/mp4a codec; when the
// video has no audio-only stream, the smallest video-with-audio wins.
//
// Video: mp4 streams with audio are preferred; within a pool the match is
// the exact height, else the highest height not above the target, else the
// closest available above it.
func SelectMedia(medias []StreamMedia, format string, isAudio bool) *StreamMedia {
	if len(medias) == 0 {
		return nil
	}

	if isAudio {
		var audioStreams []StreamMedia
		for _, m := range medias {
			if m.Type == "audio" || (m.IsAudio && m.Height == 0) || containsFold(m.MimeType, "audio") {
				audioStreams = append(audioStreams, m)
			}
		}
		if len(audioStreams) > 0 {
			for i := range audioStreams {
				if containsFold(audioStreams[i].MimeType, "mp4a") || audioStreams[i].Extension == "m4a" {
					return &audioStreams[i]
				}
			}
			return &audioStreams[0]
		}

		// No audio-only stream: smallest video that carries audio.
		var fallback *StreamMedia
		for i := range medias {
			m := &medias[i]
			if !m.IsAudio || m.Type != "video" {
				continue
			}
			if fallback == nil || heightOrMax(m) < heightOrMax(fallback) {
				fallback = m
			}
		}
		return fallback
	}

	targetHeight, err := strconv.Atoi(format)
	if err != nil || targetHeight <= 0 {
		targetHeight = 720
	}

	var videoStreams []StreamMedia
	for _, m := range medias {
		if m.Type == "video" && m.Height > 0 {
			videoStreams = append(videoStreams, m)
		}
	}
	if len(videoStreams) == 0 {
		return nil
	}

	var mp4WithAudio []StreamMedia
	for _, m := range videoStreams {
		if m.Extension == "mp4" && m.IsAudio {
			mp4WithAudio = append(mp4WithAudio, m)
		}
	}
	if len(mp4WithAudio) > 0 {
		return pickByHeight(mp4WithAudio, targetHeight)
	}

	best := pickByHeight(videoStreams, targetHeight)
	if best == nil {
		return nil
	}
	// Prefer mp4 at the chosen height.
	for i := range videoStreams {
		if videoStreams[i].Height == best.Height && videoStreams[i].Extension == "mp4" {
			return &videoStreams[i]
		}
	}
	return best
}

// pickByHeight selects the exact height, else the highest height at or
// below the target, else the lowest height available.
func pickByHeight(streams []StreamMedia, target int) *StreamMedia {
	for i := range streams {
		if streams[i].Height == target {
			return &streams[i]
		}
	}
	var below *StreamMedia
	for i := range streams {
		if streams[i].Height > target {
			continue
		}
		if below == nil || streams[i].Height > below.Height {
			below = &streams[i]
		}
	}
	if below != nil {
		return below
	}
	var lowest *StreamMedia
	for i := range streams {
		if lowest == nil || streams[i].Height < lowest.Height {
			lowest = &streams[i]
		}
	}
	return lowest
}

func heightOrMax(m *StreamMedia) int {
	if m.Height == 0 {
		return 1 << 30
	}
	return m.Height
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
