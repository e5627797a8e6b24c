// Package twitter fetches Twitter/X video posts, preferring the public
// syndication API and falling back to a twitsave HTML scrape.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider"
)

var tweetIDPattern = regexp.MustCompile(`status/(\d+)`)

// ExtractTweetID pulls the numeric status ID out of a tweet URL, or "".
func ExtractTweetID(rawURL string) string {
	if m := tweetIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// Video is one downloadable rendition of a tweet's video.
type Video struct {
	Quality string `json:"quality"`
	Bitrate int    `json:"bitrate,omitempty"`
	URL     string `json:"url"`
}

// Result is the common shape both adapters converge on. Videos are sorted
// best-to-worst; quality selection downstream indexes on that order.
type Result struct {
	Service   string
	Title     string
	Author    string
	Thumbnail string
	Videos    []Video
}

// SelectVideo picks a rendition by the requested quality tag. best/HD is
// the first entry, SD/medium the middle, low the last; anything else
// defaults to the first.
func (r *Result) SelectVideo(quality string) (Video, bool) {
	if len(r.Videos) == 0 {
		return Video{}, false
	}
	switch quality {
	case "SD", "medium":
		return r.Videos[len(r.Videos)/2], true
	case "low":
		return r.Videos[len(r.Videos)-1], true
	default: // "best", "HD" and unknown tags
		return r.Videos[0], true
	}
}

// Qualities returns the quality labels in rendition order.
func (r *Result) Qualities() []string {
	labels := make([]string, 0, len(r.Videos))
	for _, v := range r.Videos {
		labels = append(labels, v.Quality)
	}
	return labels
}

// Client fetches tweet videos.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	SyndicationBase string
	TwitsaveBase    string
}

// NewClient creates a Twitter client.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		userAgent:       userAgent,
		SyndicationBase: "https://cdn.syndication.twimg.com",
		TwitsaveBase:    "https://twitsave.com",
	}
}

// Fetch runs the adapter chain and returns the first successful result.
func (c *Client) Fetch(ctx context.Context, tweetURL string) (*Result, error) {
	return provider.RunChain(ctx, tweetURL, c.fetchSyndication, c.fetchTwitsave)
}

type syndicationResponse struct {
	Text string `json:"text"`
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	MediaDetails []struct {
		Type          string `json:"type"`
		MediaURLHTTPS string `json:"media_url_https"`
		VideoInfo     struct {
			Variants []struct {
				Bitrate     int    `json:"bitrate"`
				ContentType string `json:"content_type"`
				URL         string `json:"url"`
			} `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
}

func (c *Client) fetchSyndication(ctx context.Context, tweetURL string) (*Result, error) {
	tweetID := ExtractTweetID(tweetURL)
	if tweetID == "" {
		return nil, domain.NewProviderError("syndication", fmt.Errorf("no status id in url"))
	}

	reqURL := fmt.Sprintf("%s/tweet-result?id=%s&lang=en", c.SyndicationBase, tweetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("syndication", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("syndication", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("syndication", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body syndicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("syndication", fmt.Errorf("decode response: %w", err))
	}
	if len(body.MediaDetails) == 0 {
		return nil, domain.NewProviderError("syndication", fmt.Errorf("no media in tweet"))
	}

	var videos []Video
	for _, variant := range body.MediaDetails[0].VideoInfo.Variants {
		if variant.ContentType != "video/mp4" {
			continue
		}
		videos = append(videos, Video{
			Quality: bitrateQuality(variant.Bitrate),
			Bitrate: variant.Bitrate,
			URL:     variant.URL,
		})
	}
	if len(videos) == 0 {
		return nil, domain.NewProviderError("syndication", fmt.Errorf("no mp4 variants"))
	}

	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Bitrate > videos[j].Bitrate })

	title := body.Text
	if title == "" {
		title = "Twitter Video"
	}
	author := body.User.Name

	return &Result{
		Service:   "syndication",
		Title:     title,
		Author:    author,
		Thumbnail: body.MediaDetails[0].MediaURLHTTPS,
		Videos:    videos,
	}, nil
}

// bitrateQuality maps a variant bitrate to the coarse quality tags the
// response contract uses.
func bitrateQuality(bitrate int) string {
	switch {
	case bitrate > 2_000_000:
		return "HD"
	case bitrate > 800_000:
		return "SD"
	default:
		return "Low"
	}
}

func (c *Client) fetchTwitsave(ctx context.Context, tweetURL string) (*Result, error) {
	form := url.Values{}
	form.Set("url", tweetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TwitsaveBase+"/info",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewProviderError("twitsave", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("twitsave", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("twitsave", fmt.Errorf("parse response: %w", err))
	}

	var videos []Video
	doc.Find(`a[href*=".mp4"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !strings.HasPrefix(href, "https://") {
			return
		}
		// The link text is the resolution label, e.g. "1280x720".
		label := strings.TrimSpace(sel.Text())
		if label == "" {
			return
		}
		videos = append(videos, Video{Quality: label, URL: strings.TrimSpace(href)})
	})
	if len(videos) == 0 {
		return nil, domain.NewProviderError("twitsave", fmt.Errorf("no video found"))
	}

	title := strings.TrimSpace(doc.Find("div.leading-tight p.m-2").First().Text())
	if title == "" {
		title = "Twitter Video"
	}

	return &Result{
		Service: "twitsave",
		Title:   title,
		Videos:  videos,
	}, nil
}
