package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/snatchdl/snatch/internal/domain"
)

// SearchVideo is one video hit on the results page.
type SearchVideo struct {
	VideoID     string `json:"videoId"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Seconds     int    `json:"seconds,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Views       string `json:"views,omitempty"`
	AuthorName  string `json:"authorName,omitempty"`
	AuthorURL   string `json:"authorUrl,omitempty"`
	Ago         string `json:"ago,omitempty"`
}

// SearchPlaylist is one playlist hit on the results page.
type SearchPlaylist struct {
	PlaylistID string `json:"playlistId"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	VideoCount string `json:"videoCount,omitempty"`
	AuthorName string `json:"authorName,omitempty"`
}

// SearchChannel is one channel hit on the results page.
type SearchChannel struct {
	ChannelID   string `json:"channelId"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Subscribers string `json:"subscribers,omitempty"`
}

// SearchResult groups the typed hits of one query.
type SearchResult struct {
	Videos    []SearchVideo
	Playlists []SearchPlaylist
	Channels  []SearchChannel
}

// Search scrapes the YouTube results page. The page embeds its data as a
// ytInitialData JSON blob; gjson walks it without modelling the whole tree.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	reqURL := fmt.Sprintf("%s/results?search_query=%s", c.SearchBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("youtube-search", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("youtube-search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("youtube-search", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, domain.NewProviderError("youtube-search", err)
	}

	blob, err := extractInitialData(string(page))
	if err != nil {
		return nil, domain.NewProviderError("youtube-search", err)
	}

	return parseSearchBlob(blob), nil
}

// extractInitialData cuts the ytInitialData JSON object out of the page.
func extractInitialData(page string) (string, error) {
	const marker = "var ytInitialData = "
	start := strings.Index(page, marker)
	if start == -1 {
		return "", fmt.Errorf("ytInitialData not found")
	}
	start += len(marker)
	end := strings.Index(page[start:], ";</script>")
	if end == -1 {
		return "", fmt.Errorf("ytInitialData terminator not found")
	}
	return page[start : start+end], nil
}

func parseSearchBlob(blob string) *SearchResult {
	result := &SearchResult{}

	sections := gjson.Get(blob,
		"contents.twoColumnSearchResultsRenderer.primaryContents.sectionListRenderer.contents")
	sections.ForEach(func(_, section gjson.Result) bool {
		section.Get("itemSectionRenderer.contents").ForEach(func(_, item gjson.Result) bool {
			if v := item.Get("videoRenderer"); v.Exists() {
				result.Videos = append(result.Videos, parseVideoRenderer(v))
			}
			if p := item.Get("playlistRenderer"); p.Exists() {
				result.Playlists = append(result.Playlists, parsePlaylistRenderer(p))
			}
			if ch := item.Get("channelRenderer"); ch.Exists() {
				result.Channels = append(result.Channels, parseChannelRenderer(ch))
			}
			return true
		})
		return true
	})

	return result
}

func parseVideoRenderer(v gjson.Result) SearchVideo {
	id := v.Get("videoId").String()
	timestamp := v.Get("lengthText.simpleText").String()
	return SearchVideo{
		VideoID:     id,
		URL:         "https://www.youtube.com/watch?v=" + id,
		Title:       v.Get("title.runs.0.text").String(),
		Description: v.Get("detailedMetadataSnippets.0.snippetText.runs.0.text").String(),
		Thumbnail:   v.Get("thumbnail.thumbnails.@reverse.0.url").String(),
		Seconds:     timestampSeconds(timestamp),
		Timestamp:   timestamp,
		Views:       v.Get("viewCountText.simpleText").String(),
		AuthorName:  v.Get("ownerText.runs.0.text").String(),
		AuthorURL: "https://www.youtube.com" + v.Get(
			"ownerText.runs.0.navigationEndpoint.commandMetadata.webCommandMetadata.url").String(),
		Ago: v.Get("publishedTimeText.simpleText").String(),
	}
}

func parsePlaylistRenderer(p gjson.Result) SearchPlaylist {
	id := p.Get("playlistId").String()
	return SearchPlaylist{
		PlaylistID: id,
		URL:        "https://www.youtube.com/playlist?list=" + id,
		Title:      p.Get("title.simpleText").String(),
		Thumbnail:  p.Get("thumbnails.0.thumbnails.@reverse.0.url").String(),
		VideoCount: p.Get("videoCount").String(),
		AuthorName: p.Get("shortBylineText.runs.0.text").String(),
	}
}

func parseChannelRenderer(ch gjson.Result) SearchChannel {
	id := ch.Get("channelId").String()
	return SearchChannel{
		ChannelID:   id,
		URL:         "https://www.youtube.com/channel/" + id,
		Name:        ch.Get("title.simpleText").String(),
		Thumbnail:   ch.Get("thumbnail.thumbnails.@reverse.0.url").String(),
		Subscribers: ch.Get("videoCountText.simpleText").String(),
	}
}

// timestampSeconds converts "1:02:03" style durations to seconds.
func timestampSeconds(ts string) int {
	if ts == "" {
		return 0
	}
	parts := strings.Split(ts, ":")
	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}
