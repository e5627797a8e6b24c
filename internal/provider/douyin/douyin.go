// Package douyin resolves Douyin videos through the snapdouyin.app
// downloader, which needs a scraped page token plus a request hash.
package douyin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snatchdl/snatch/internal/domain"
)

const hashSalt = "aio-dl"

// RequestHash builds the anti-abuse hash snapdouyin expects:
// base64(url) + (len(url)+1000) + base64(salt).
func RequestHash(videoURL, salt string) string {
	urlB64 := base64.StdEncoding.EncodeToString([]byte(videoURL))
	saltB64 := base64.StdEncoding.EncodeToString([]byte(salt))
	return urlB64 + strconv.Itoa(len(videoURL)+1000) + saltB64
}

// Media is one rendition returned by the downloader.
type Media struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Quality   string `json:"quality"`
	Extension string `json:"extension"`
}

// Result is a resolved Douyin video.
type Result struct {
	Service     string
	Title       string
	ID          string
	Duration    int
	Cover       string
	DownloadURL string
	Medias      []Media
	Stats       domain.MediaStats
	Author      string
	AuthorID    string
}

// Client talks to snapdouyin.app.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	SnapBase string
}

// NewClient creates a Douyin client.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		SnapBase:   "https://snapdouyin.app",
	}
}

// Fetch resolves a Douyin video URL to its downloadable renditions.
func (c *Client) Fetch(ctx context.Context, videoURL string) (*Result, error) {
	token, err := c.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("url", videoURL)
	form.Set("token", token)
	form.Set("hash", RequestHash(videoURL, hashSalt))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.SnapBase+"/wp-json/mx-downloader/video-data/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewProviderError("snapdouyin", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Origin", c.SnapBase)
	req.Header.Set("Referer", c.SnapBase+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("snapdouyin", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("snapdouyin", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Title        string `json:"title"`
		ID           string `json:"id"`
		Duration     int    `json:"duration"`
		Thumbnail    string `json:"thumbnail"`
		Author       string `json:"author"`
		AuthorID     string `json:"author_id"`
		DiggCount    string `json:"digg_count"`
		LikeCount    string `json:"like_count"`
		CommentCount string `json:"comment_count"`
		ShareCount   string `json:"share_count"`
		Medias       []struct {
			URL       string `json:"url"`
			Quality   string `json:"quality"`
			Extension string `json:"extension"`
			Thumb     string `json:"thumb"`
		} `json:"medias"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("snapdouyin", fmt.Errorf("decode response: %w", err))
	}
	if len(body.Medias) == 0 {
		return nil, domain.NewProviderError("snapdouyin", fmt.Errorf("no media in response: %w", domain.ErrNoMedia))
	}

	primary := body.Medias[0]

	title := body.Title
	if title == "" {
		title = "Douyin Video"
	}
	id := body.ID
	if id == "" {
		id = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}
	cover := body.Thumbnail
	if cover == "" {
		cover = primary.Thumb
	}

	medias := make([]Media, 0, len(body.Medias))
	for _, m := range body.Medias {
		mediaType := m.Quality
		if mediaType == "" {
			mediaType = "video"
		}
		medias = append(medias, Media{
			Type:      mediaType,
			URL:       m.URL,
			Quality:   m.Quality,
			Extension: m.Extension,
		})
	}

	return &Result{
		Service:     "snapdouyin",
		Title:       title,
		ID:          id,
		Duration:    body.Duration,
		Cover:       cover,
		DownloadURL: primary.URL,
		Medias:      medias,
		Stats: domain.MediaStats{
			Views:    orZero(body.DiggCount),
			Likes:    orZero(body.LikeCount),
			Comments: orZero(body.CommentCount),
			Shares:   orZero(body.ShareCount),
		},
		Author:   body.Author,
		AuthorID: body.AuthorID,
	}, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SnapBase+"/", nil)
	if err != nil {
		return "", domain.NewProviderError("snapdouyin", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewProviderError("snapdouyin", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", domain.NewProviderError("snapdouyin", fmt.Errorf("parse page: %w", err))
	}

	token, ok := doc.Find("input#token").Attr("value")
	if !ok || token == "" {
		return "", domain.NewProviderError("snapdouyin", fmt.Errorf("download token not found"))
	}
	return token, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
