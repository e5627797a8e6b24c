// Package tiktok downloads TikTok posts through a chain of third-party
// services: tikwm, then ssstik, then tiklydown.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider"
)

// Variant types, ordered by selection preference.
const (
	TypeNoWatermarkHD = "nowatermark_hd"
	TypeNoWatermark   = "nowatermark"
	TypeWatermark     = "watermark"
	TypePhoto         = "photo"
)

// Media is one downloadable item of a post.
type Media struct {
	Type string
	URL  string
}

// Author identifies the post's creator.
type Author struct {
	Fullname string
	Nickname string
	Avatar   string
}

// Result is the common shape every TikTok adapter converges on.
type Result struct {
	Service   string
	Title     string
	ID        string
	Duration  int
	Cover     string
	Data      []Media
	MusicInfo *domain.MusicInfo
	Stats     *domain.MediaStats
	Author    *Author
}

// IsPhotoSlides reports whether the post is a photo-mode carousel.
// The convention is positional: photo posts put a photo item first.
func (r *Result) IsPhotoSlides() bool {
	return len(r.Data) > 0 && r.Data[0].Type == TypePhoto
}

// PhotoURLs returns every photo item URL in original order.
func (r *Result) PhotoURLs() []string {
	var urls []string
	for _, m := range r.Data {
		if m.Type == TypePhoto {
			urls = append(urls, m.URL)
		}
	}
	return urls
}

// SelectVideo picks the best video variant: HD without watermark, then
// without watermark, then whatever has a URL.
func (r *Result) SelectVideo() (Media, bool) {
	for _, want := range []string{TypeNoWatermarkHD, TypeNoWatermark} {
		for _, m := range r.Data {
			if m.Type == want && m.URL != "" {
				return m, true
			}
		}
	}
	for _, m := range r.Data {
		if m.URL != "" && m.Type != TypePhoto {
			return m, true
		}
	}
	return Media{}, false
}

// Client fetches TikTok media via third-party downloader services.
type Client struct {
	httpClient *http.Client
	userAgent  string

	// Overridable in tests.
	TikwmBase     string
	SSSTikBase    string
	TiklydownBase string
}

// NewClient creates a TikTok client.
func NewClient(userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		TikwmBase:     "https://tikwm.com",
		SSSTikBase:    "https://ssstik.io",
		TiklydownBase: "https://api.tiklydown.eu.org",
	}
}

// Fetch runs the adapter chain and returns the first successful result.
func (c *Client) Fetch(ctx context.Context, postURL string) (*Result, error) {
	return provider.RunChain(ctx, postURL, c.fetchTikwm, c.fetchSSSTik, c.fetchTiklydown)
}

type tikwmResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		ID           string   `json:"id"`
		Title        string   `json:"title"`
		Cover        string   `json:"cover"`
		Duration     int      `json:"duration"`
		Play         string   `json:"play"`
		WMPlay       string   `json:"wmplay"`
		HDPlay       string   `json:"hdplay"`
		Images       []string `json:"images"`
		PlayCount    int64    `json:"play_count"`
		DiggCount    int64    `json:"digg_count"`
		CommentCount int64    `json:"comment_count"`
		ShareCount   int64    `json:"share_count"`
		MusicInfo    struct {
			Title  string `json:"title"`
			Author string `json:"author"`
			Play   string `json:"play"`
		} `json:"music_info"`
		Author struct {
			UniqueID string `json:"unique_id"`
			Nickname string `json:"nickname"`
			Avatar   string `json:"avatar"`
		} `json:"author"`
	} `json:"data"`
}

func (c *Client) fetchTikwm(ctx context.Context, postURL string) (*Result, error) {
	reqURL := fmt.Sprintf("%s/api/?url=%s&hd=1", c.TikwmBase, url.QueryEscape(postURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("tikwm", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("tikwm", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("tikwm", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body tikwmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("tikwm", fmt.Errorf("decode response: %w", err))
	}
	if body.Code != 0 {
		return nil, domain.NewProviderError("tikwm", fmt.Errorf("api error: %s", body.Msg))
	}

	d := body.Data
	result := &Result{
		Service:  "tikwm",
		Title:    d.Title,
		ID:       d.ID,
		Duration: d.Duration,
		Cover:    c.absoluteTikwm(d.Cover),
		Stats: &domain.MediaStats{
			Views:    strconv.FormatInt(d.PlayCount, 10),
			Likes:    strconv.FormatInt(d.DiggCount, 10),
			Comments: strconv.FormatInt(d.CommentCount, 10),
			Shares:   strconv.FormatInt(d.ShareCount, 10),
		},
	}
	if d.Author.Nickname != "" || d.Author.UniqueID != "" {
		result.Author = &Author{
			Fullname: d.Author.UniqueID,
			Nickname: d.Author.Nickname,
			Avatar:   c.absoluteTikwm(d.Author.Avatar),
		}
	}
	if d.MusicInfo.Play != "" {
		result.MusicInfo = &domain.MusicInfo{
			Title:  d.MusicInfo.Title,
			Author: d.MusicInfo.Author,
			URL:    c.absoluteTikwm(d.MusicInfo.Play),
		}
	}

	// Photo mode posts carry an images array instead of play URLs.
	for _, img := range d.Images {
		result.Data = append(result.Data, Media{Type: TypePhoto, URL: img})
	}
	if len(result.Data) == 0 {
		if d.HDPlay != "" {
			result.Data = append(result.Data, Media{Type: TypeNoWatermarkHD, URL: c.absoluteTikwm(d.HDPlay)})
		}
		if d.Play != "" {
			result.Data = append(result.Data, Media{Type: TypeNoWatermark, URL: c.absoluteTikwm(d.Play)})
		}
		if d.WMPlay != "" {
			result.Data = append(result.Data, Media{Type: TypeWatermark, URL: c.absoluteTikwm(d.WMPlay)})
		}
	}
	if len(result.Data) == 0 {
		return nil, domain.NewProviderError("tikwm", fmt.Errorf("no media in response"))
	}

	return result, nil
}

// absoluteTikwm resolves tikwm's relative media paths against its host.
func (c *Client) absoluteTikwm(u string) string {
	if u == "" || strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return c.TikwmBase + u
}

func (c *Client) fetchSSSTik(ctx context.Context, postURL string) (*Result, error) {
	// The form action and anti-bot tokens are embedded in the homepage.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SSSTikBase, nil)
	if err != nil {
		return nil, domain.NewProviderError("ssstik", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("ssstik", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("ssstik", fmt.Errorf("parse homepage: %w", err))
	}

	form := doc.Find(`form[hx-target="#target"]`)
	action, _ := form.Attr("hx-post")
	includeVals, _ := form.Attr("include-vals")
	tt, ts := parseIncludeVals(includeVals)
	if action == "" || tt == "" {
		return nil, domain.NewProviderError("ssstik", fmt.Errorf("download form not found"))
	}

	values := url.Values{}
	values.Set("id", postURL)
	values.Set("locale", "en")
	values.Set("tt", tt)
	values.Set("ts", ts)

	postReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.SSSTikBase+action, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, domain.NewProviderError("ssstik", err)
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	postReq.Header.Set("User-Agent", c.userAgent)

	postResp, err := c.httpClient.Do(postReq)
	if err != nil {
		return nil, domain.NewProviderError("ssstik", err)
	}
	defer postResp.Body.Close()

	resultDoc, err := goquery.NewDocumentFromReader(postResp.Body)
	if err != nil {
		return nil, domain.NewProviderError("ssstik", fmt.Errorf("parse result: %w", err))
	}

	videoURL, _ := resultDoc.Find("div > a.without_watermark_direct").Attr("href")
	if videoURL == "" {
		if href, ok := resultDoc.Find("div > a.without_watermark").Attr("href"); ok {
			videoURL = c.SSSTikBase + href
		}
	}
	if videoURL == "" {
		return nil, domain.NewProviderError("ssstik", fmt.Errorf("no video url found"))
	}

	result := &Result{
		Service: "ssstik",
		Data:    []Media{{Type: TypeNoWatermark, URL: videoURL}},
	}
	if musicURL, ok := resultDoc.Find("div > a.music").Attr("href"); ok && musicURL != "" {
		result.MusicInfo = &domain.MusicInfo{URL: musicURL}
	}
	return result, nil
}

// parseIncludeVals pulls the tt and ts tokens out of an htmx include-vals
// attribute of the form "tt:'TOKEN',ts:1700000000".
func parseIncludeVals(raw string) (tt, ts string) {
	cleaned := strings.ReplaceAll(raw, "'", "")
	for _, part := range strings.Split(cleaned, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "tt:"):
			tt = strings.TrimPrefix(part, "tt:")
		case strings.HasPrefix(part, "ts:"):
			ts = strings.TrimPrefix(part, "ts:")
		}
	}
	return tt, ts
}

type tiklydownResponse struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	Video struct {
		NoWatermark string `json:"noWatermark"`
		Cover       string `json:"cover"`
	} `json:"video"`
	Music struct {
		PlayURL string `json:"play_url"`
	} `json:"music"`
	Author struct {
		Name string `json:"name"`
	} `json:"author"`
}

func (c *Client) fetchTiklydown(ctx context.Context, postURL string) (*Result, error) {
	reqURL := fmt.Sprintf("%s/api/download?url=%s", c.TiklydownBase, url.QueryEscape(postURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("tiklydown", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("tiklydown", err)
	}
	defer resp.Body.Close()

	var body tiklydownResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewProviderError("tiklydown", fmt.Errorf("decode response: %w", err))
	}
	if body.Video.NoWatermark == "" {
		return nil, domain.NewProviderError("tiklydown", fmt.Errorf("no video found"))
	}

	result := &Result{
		Service: "tiklydown",
		Title:   body.Title,
		ID:      body.ID.String(),
		Cover:   body.Video.Cover,
		Data:    []Media{{Type: TypeNoWatermark, URL: body.Video.NoWatermark}},
	}
	if body.Author.Name != "" {
		result.Author = &Author{Nickname: body.Author.Name}
	}
	if body.Music.PlayURL != "" {
		result.MusicInfo = &domain.MusicInfo{URL: body.Music.PlayURL}
	}
	return result, nil
}
