// Package instagram resolves Instagram posts and reels. The primary
// adapter shells out to yt-dlp; the fallback scrapes downloadgram.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider"
)

// Result is a resolved Instagram post. Carousels carry every media URL
// in order; single posts have exactly one entry.
type Result struct {
	Service   string
	Title     string
	Author    string
	Thumbnail string
	URLs      []string
}

// IsCarousel reports whether the post resolved to more than one media item.
func (r *Result) IsCarousel() bool { return len(r.URLs) > 1 }

// Client resolves Instagram media.
type Client struct {
	httpClient *http.Client
	userAgent  string
	ytDlpPath  string

	// Overridable in tests.
	DowngramBase string
}

// NewClient creates an Instagram client. ytDlpPath is the yt-dlp binary
// to execute; an empty value falls back to "yt-dlp" on PATH.
func NewClient(ytDlpPath, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if ytDlpPath == "" {
		ytDlpPath = "yt-dlp"
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    userAgent,
		ytDlpPath:    ytDlpPath,
		DowngramBase: "https://downloadgram.org",
	}
}

// Fetch runs the adapter chain and returns the first successful result.
func (c *Client) Fetch(ctx context.Context, postURL string) (*Result, error) {
	return provider.RunChain(ctx, postURL, c.fetchYtDlp, c.fetchDowngram)
}

// ytDlpInfo is the subset of yt-dlp's single-JSON dump the resolver needs.
// Carousel posts come back as a playlist with per-item entries.
type ytDlpInfo struct {
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Entries   []struct {
		URL       string `json:"url"`
		Thumbnail string `json:"thumbnail"`
	} `json:"entries"`
}

func (c *Client) fetchYtDlp(ctx context.Context, postURL string) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.ytDlpPath,
		"--dump-single-json",
		"--no-warnings",
		"--no-check-certificates",
		"--user-agent", c.userAgent,
		postURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, domain.NewProviderError("yt-dlp", classifyYtDlpError(stderr.String(), err))
	}

	var info ytDlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, domain.NewProviderError("yt-dlp", fmt.Errorf("decode output: %w", err))
	}

	var urls []string
	if info.URL != "" {
		urls = append(urls, info.URL)
	}
	for _, entry := range info.Entries {
		if entry.URL != "" {
			urls = append(urls, entry.URL)
		}
	}
	if len(urls) == 0 {
		return nil, domain.NewProviderError("yt-dlp", fmt.Errorf("no media url in output: %w", domain.ErrNoMedia))
	}

	thumbnail := info.Thumbnail
	if thumbnail == "" && len(info.Entries) > 0 {
		thumbnail = info.Entries[0].Thumbnail
	}

	return &Result{
		Service:   "yt-dlp",
		Title:     info.Title,
		Author:    info.Uploader,
		Thumbnail: thumbnail,
		URLs:      urls,
	}, nil
}

// classifyYtDlpError maps known yt-dlp failure modes onto domain errors
// so the handler can pick a sensible status.
func classifyYtDlpError(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "login required") || strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "403"):
		return fmt.Errorf("instagram rejected the request: %w", domain.ErrMediaUnavailable)
	case strings.Contains(lower, "not found") || strings.Contains(lower, "404") ||
		strings.Contains(lower, "unavailable"):
		return fmt.Errorf("post not found: %w", domain.ErrNoMedia)
	default:
		return fmt.Errorf("yt-dlp failed: %w", err)
	}
}

func (c *Client) fetchDowngram(ctx context.Context, postURL string) (*Result, error) {
	form := url.Values{}
	form.Set("url", postURL)
	form.Set("submit", "")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.DowngramBase+"/",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewProviderError("downloadgram", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("downloadgram", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("downloadgram", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("downloadgram", fmt.Errorf("parse response: %w", err))
	}

	var urls []string
	doc.Find("#downloadhere > a").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok && strings.HasPrefix(href, "http") {
			urls = append(urls, href)
		}
	})
	if len(urls) == 0 {
		return nil, domain.NewProviderError("downloadgram", fmt.Errorf("no download links: %w", domain.ErrNoMedia))
	}

	return &Result{
		Service: "downloadgram",
		URLs:    urls,
	}, nil
}
