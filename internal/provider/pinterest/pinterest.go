// Package pinterest resolves pins and searches boards by scraping
// pinterest.com directly, with savepin.app as a download fallback.
package pinterest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider"
)

var (
	pinIDPattern    = regexp.MustCompile(`pin/(\d+)`)
	sizeDirPattern  = regexp.MustCompile(`/\d+x/`)
	searchRetries   = 3
	searchRetryWait = time.Second
)

// ExtractPinID pulls the numeric pin ID out of a pin URL, or "".
func ExtractPinID(rawURL string) string {
	if m := pinIDPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1]
	}
	return ""
}

// UpgradeImageQuality rewrites a sized pinimg path (/236x/, /564x/,
// /736x/) to the /originals/ variant.
func UpgradeImageQuality(imageURL string) string {
	if imageURL == "" {
		return imageURL
	}
	return sizeDirPattern.ReplaceAllString(imageURL, "/originals/")
}

// Media is one downloadable rendition of a pin.
type Media struct {
	Type    string `json:"type"`
	Format  string `json:"format"`
	Quality string `json:"quality,omitempty"`
	URL     string `json:"url"`
}

// IsVideo reports whether the rendition is a video.
func (m Media) IsVideo() bool {
	t := strings.ToLower(m.Type)
	f := strings.ToLower(m.Format)
	return strings.Contains(t, "video") || strings.Contains(f, "mp4")
}

// Result is a resolved pin; Results[0] is the preferred rendition.
type Result struct {
	Service     string
	Title       string
	Description string
	URL         string
	Results     []Media
}

// Pin is one search hit.
type Pin struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Image       string `json:"image"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
}

// Client scrapes Pinterest. The session cookie comes from configuration;
// an empty cookie still works for public pins but search results thin out.
type Client struct {
	httpClient *http.Client
	userAgent  string
	cookie     string

	// Overridable in tests.
	PinterestBase string
	SearchBase    string
	SavePinBase   string
}

// NewClient creates a Pinterest client with the given session cookie.
func NewClient(cookie, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		userAgent:     userAgent,
		cookie:        cookie,
		PinterestBase: "https://www.pinterest.com",
		SearchBase:    "https://id.pinterest.com",
		SavePinBase:   "https://www.savepin.app",
	}
}

// Fetch resolves a pin's media, direct scrape first then savepin.
func (c *Client) Fetch(ctx context.Context, pinURL string) (*Result, error) {
	return provider.RunChain(ctx, pinURL, c.fetchDirect, c.fetchSavePin)
}

func (c *Client) fetchDirect(ctx context.Context, pinURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pinURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("pinterest", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.PinterestBase+"/")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("pinterest", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewProviderError("pinterest", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("pinterest", fmt.Errorf("parse page: %w", err))
	}

	ogVideo, _ := doc.Find(`meta[property="og:video"]`).Attr("content")
	ogImage, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	ogTitle, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	ogDesc, _ := doc.Find(`meta[property="og:description"]`).Attr("content")
	if ogTitle == "" {
		ogTitle = strings.TrimSpace(doc.Find("title").Text())
	}

	var medias []Media
	if ogVideo != "" {
		medias = append(medias, Media{Type: "video", Format: "MP4", URL: ogVideo})
	}
	if ogImage != "" {
		medias = append(medias, Media{Type: "image", Format: "JPG", URL: UpgradeImageQuality(ogImage)})
	}
	if len(medias) == 0 {
		if src, ok := doc.Find("video").Attr("src"); ok && src != "" {
			medias = append(medias, Media{Type: "video", Format: "MP4", URL: src})
		}
	}
	if len(medias) == 0 {
		return nil, domain.NewProviderError("pinterest", fmt.Errorf("no media in page metadata: %w", domain.ErrNoMedia))
	}

	title := ogTitle
	if title == "" {
		title = "Pinterest Pin"
	}

	return &Result{
		Service:     "pinterest",
		Title:       title,
		Description: ogDesc,
		URL:         pinURL,
		Results:     medias,
	}, nil
}

func (c *Client) fetchSavePin(ctx context.Context, pinURL string) (*Result, error) {
	reqURL := fmt.Sprintf("%s/download.php?url=%s&lang=en&type=redirect",
		c.SavePinBase, url.QueryEscape(pinURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewProviderError("savepin", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewProviderError("savepin", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.NewProviderError("savepin", fmt.Errorf("parse response: %w", err))
	}

	var medias []Media
	doc.Find("td.video-quality").Each(func(_ int, sel *goquery.Selection) {
		quality := strings.ToLower(strings.TrimSpace(sel.Text()))
		link, ok := sel.NextAll().Find("a").Attr("href")
		if !ok || link == "" {
			return
		}
		medias = append(medias, Media{
			Type:    "video",
			Format:  "MP4",
			Quality: quality,
			URL:     decodeForceSave(link),
		})
	})

	if len(medias) == 0 {
		doc.Find("a[download], .download-link").Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || href == "" || strings.HasPrefix(href, "#") {
				return
			}
			media := Media{Type: "image", Format: "JPG", URL: href}
			if strings.Contains(href, ".mp4") {
				media.Type = "video"
				media.Format = "MP4"
			}
			medias = append(medias, media)
		})
	}
	if len(medias) == 0 {
		return nil, domain.NewProviderError("savepin", fmt.Errorf("no download links: %w", domain.ErrNoMedia))
	}

	title := strings.TrimSpace(doc.Find("h1").Text())
	if title == "" {
		title = "Pinterest Pin"
	}

	return &Result{
		Service: "savepin",
		Title:   title,
		URL:     pinURL,
		Results: medias,
	}, nil
}

// decodeForceSave unwraps savepin's force-save.php redirect links.
func decodeForceSave(link string) string {
	const marker = "force-save.php?url="
	idx := strings.Index(link, marker)
	if idx == -1 {
		return link
	}
	decoded, err := url.QueryUnescape(link[idx+len(marker):])
	if err != nil {
		return link
	}
	return decoded
}

// Search scrapes the pins search page for a keyword, retrying on thin or
// failed pages. It returns up to limit pins and never an empty-slice error;
// callers treat zero pins as a soft failure.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Pin, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("empty search keyword")
	}
	if limit <= 0 {
		limit = 4
	}

	searchURL := fmt.Sprintf("%s/search/pins/?q=%s", c.SearchBase, url.QueryEscape(keyword))

	var lastErr error
	for attempt := 1; attempt <= searchRetries; attempt++ {
		pins, err := c.searchOnce(ctx, searchURL, keyword, limit)
		if err == nil && len(pins) > 0 {
			return pins, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("no pins found")
		}
		if attempt < searchRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(searchRetryWait * time.Duration(attempt)):
			}
		}
	}
	return nil, domain.NewProviderError("pinterest-search", lastErr)
}

func (c *Client) searchOnce(ctx context.Context, searchURL, keyword string, limit int) ([]Pin, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.PinterestBase+"/")
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	var pins []Pin
	seen := make(map[string]bool)

	// Pin links with an inline image are the best hits.
	doc.Find(`a[href*="/pin/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || seen[href] {
			return true
		}
		pinID := ExtractPinID(href)
		if pinID == "" {
			return true
		}
		img := sel.Find("img")
		imgSrc, ok := img.Attr("src")
		if !ok || imgSrc == "" {
			imgSrc, _ = img.Attr("data-src")
		}
		if imgSrc == "" {
			return true
		}
		title := img.AttrOr("alt", keyword)
		pins = append(pins, Pin{
			ID:          pinID,
			URL:         c.PinterestBase + "/pin/" + pinID + "/",
			Title:       title,
			Image:       UpgradeImageQuality(imgSrc),
			Thumbnail:   imgSrc,
			Description: title,
		})
		seen[href] = true
		return len(pins) < limit
	})

	// Pad with bare pinimg images when the page yields few pin links.
	if len(pins) < limit {
		doc.Find("img").EachWithBreak(func(i int, sel *goquery.Selection) bool {
			src, ok := sel.Attr("src")
			if !ok || src == "" {
				src, _ = sel.Attr("data-src")
			}
			if src == "" || !strings.Contains(src, "pinimg.com") {
				return true
			}
			upgraded := UpgradeImageQuality(src)
			for _, p := range pins {
				if p.Image == upgraded {
					return true
				}
			}
			pins = append(pins, Pin{
				ID:          fmt.Sprintf("img_%d_%d", time.Now().UnixMilli(), i),
				URL:         searchURL,
				Title:       fmt.Sprintf("%s - Image %d", keyword, len(pins)+1),
				Image:       upgraded,
				Thumbnail:   src,
				Description: "Pinterest search result for: " + keyword,
			})
			return len(pins) < limit
		})
	}

	return pins, nil
}
