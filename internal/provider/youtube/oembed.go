package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/snatchdl/snatch/internal/domain"
)

// VideoMetadata is the descriptive subset served by metadata-only calls.
type VideoMetadata struct {
	Title     string
	Author    string
	Thumbnail string
	VideoID   string
	Width     int
	Height    int
}

type oembedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Metadata fetches title and author via the oEmbed endpoint. The maxres
// thumbnail URL is derived from the video ID rather than trusted from the
// response; callers degrade to defaults when this errors.
func (c *Client) Metadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	id := ExtractVideoID(videoURL)
	if id == "" {
		return nil, domain.ErrPlatformMismatch
	}

	reqURL := fmt.Sprintf("%s/oembed?url=%s&format=json",
		c.OEmbedBase, url.QueryEscape("https://www.youtube.com/watch?v="+id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("youtube-oembed", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("youtube-oembed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("youtube-oembed", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body oembedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("youtube-oembed", fmt.Errorf("decode response: %w", err))
	}

	return &VideoMetadata{
		Title:     body.Title,
		Author:    body.AuthorName,
		Thumbnail: ThumbnailURL(id),
		VideoID:   id,
		Width:     body.Width,
		Height:    body.Height,
	}, nil
}

// ThumbnailURL returns the maxres thumbnail for a video ID.
func ThumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/maxresdefault.jpg"
}
