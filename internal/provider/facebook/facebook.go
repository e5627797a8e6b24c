// Package facebook resolves Facebook videos and photos through the
// all-in-one downloader API.
package facebook

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

// Result is a resolved Facebook media item.
type Result struct {
	Title       string
	Thumbnail   string
	DownloadURL string
	MediaType   string
	Quality     string
	Duration    int
	Author      string
}

// Client talks to the all-in-one downloader API.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	AIOBase string
}

// NewClient creates a Facebook client against the given AIO API base.
func NewClient(aioBase, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		AIOBase:    aioBase,
	}
}

type aioResponse struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
	Result *struct {
		Error     string `json:"error"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
		Cover     string `json:"cover"`
		Duration  int    `json:"duration"`
		Author    string `json:"author"`
		URL       string `json:"url"`
		Medias    []struct {
			Type    string `json:"type"`
			URL     string `json:"url"`
			Quality string `json:"quality"`
		} `json:"medias"`
	} `json:"result"`
}

// Fetch resolves a Facebook URL to its best rendition: HD first, then any
// video, then whatever the API listed first.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	reqURL := fmt.Sprintf("%s/download/aio?url=%s", c.AIOBase, url.QueryEscape(pageURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("facebook", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("facebook", err)
	}
	defer resp.Body.Close()

	var body aioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("facebook", fmt.Errorf("decode response: %w", err))
	}
	if !body.Status {
		msg := body.Error
		if msg == "" {
			msg = "upstream rejected the request"
		}
		return nil, domain.NewProviderError("facebook", fmt.Errorf("%s", msg))
	}
	if body.Result == nil {
		return nil, fmt.Errorf("empty api result: %w", domain.ErrNoMedia)
	}
	if body.Result.Error != "" {
		return nil, fmt.Errorf("video not found or private: %w", domain.ErrNoMedia)
	}

	result := body.Result

	downloadURL := ""
	mediaType := "video"
	quality := "HD"
	if len(result.Medias) > 0 {
		idx := -1
		for i, m := range result.Medias {
			if strings.EqualFold(m.Quality, "HD") {
				idx = i
				break
			}
		}
		if idx == -1 {
			for i, m := range result.Medias {
				if m.Type == "video" {
					idx = i
					break
				}
			}
		}
		if idx == -1 {
			idx = 0
		}
		selected := result.Medias[idx]
		downloadURL = selected.URL
		if selected.Quality != "" {
			quality = selected.Quality
		} else {
			quality = "Normal"
		}
		if selected.Type != "" {
			mediaType = selected.Type
		}
	}
	if downloadURL == "" {
		downloadURL = result.URL
	}
	if downloadURL == "" {
		return nil, fmt.Errorf("no download url; the post may be private: %w", domain.ErrNoMedia)
	}

	thumbnail := result.Thumbnail
	if thumbnail == "" {
		thumbnail = result.Cover
	}
	title := result.Title
	if title == "" {
		title = "Facebook Media"
	}
	author := result.Author
	if author == "" {
		author = "Facebook User"
	}

	return &Result{
		Title:       title,
		Thumbnail:   thumbnail,
		DownloadURL: downloadURL,
		MediaType:   mediaType,
		Quality:     quality,
		Duration:    result.Duration,
		Author:      author,
	}, nil
}
