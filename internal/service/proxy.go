package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Allowed upstream hosts per proxy. Everything else is rejected before a
// single byte is fetched.
var (
	googleHosts    = []string{"googlevideo.com", "youtube.com", "ytimg.com", "ggpht.com"}
	facebookHosts  = []string{"facebook.com", "fbcdn.net"}
	spotifyHosts   = []string{"scdn.co"}
	pinterestHosts = []string{"pinimg.com", "pinterest.com"}
)

// IsGoogleHost reports whether the URL's host belongs to Google's CDN.
func IsGoogleHost(rawURL string) bool { return hostAllowed(rawURL, googleHosts) }

// IsFacebookHost reports whether the URL's host belongs to Facebook.
func IsFacebookHost(rawURL string) bool { return hostAllowed(rawURL, facebookHosts) }

// IsSpotifyImageURL reports whether the URL points at Spotify's image CDN.
func IsSpotifyImageURL(rawURL string) bool { return hostAllowed(rawURL, spotifyHosts) }

// IsPinterestImageURL reports whether the URL points at Pinterest's CDN.
func IsPinterestImageURL(rawURL string) bool { return hostAllowed(rawURL, pinterestHosts) }

func hostAllowed(rawURL string, allowed []string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, suffix := range allowed {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

var originalsDir = regexp.MustCompile(`/\d+x/`)

// PinterestFallbackURLs builds the quality ladder tried by the Pinterest
// image proxy. An /originals/ URL degrades through /736x/, /564x/ and
// /236x/; a sized URL gets the /originals/ variant inserted second.
func PinterestFallbackURLs(imageURL string) []string {
	urls := []string{imageURL}
	switch {
	case strings.Contains(imageURL, "/originals/"):
		for _, size := range []string{"/736x/", "/564x/", "/236x/"} {
			urls = append(urls, strings.Replace(imageURL, "/originals/", size, 1))
		}
	case originalsDir.MatchString(imageURL):
		urls = append(urls, originalsDir.ReplaceAllString(imageURL, "/originals/"))
	}
	return urls
}

// StreamRequest describes one proxied media download.
type StreamRequest struct {
	URL         string
	Referer     string
	Accept      string
	ContentType string // forced; empty keeps the upstream type
	Filename    string // attachment name; empty sends no disposition
	Inline      bool   // serve for display instead of download
}

// Proxy fetches upstream bytes on the browser's behalf. Images use a
// short timeout; full media downloads get a long one.
type Proxy struct {
	imageClient *http.Client
	mediaClient *http.Client
	userAgent   string
	logger      *slog.Logger
}

// NewProxy creates the byte proxy service.
func NewProxy(logger *slog.Logger, userAgent string, imageTimeout, mediaTimeout time.Duration) *Proxy {
	if imageTimeout <= 0 {
		imageTimeout = 8 * time.Second
	}
	if mediaTimeout <= 0 {
		mediaTimeout = 120 * time.Second
	}
	return &Proxy{
		imageClient: &http.Client{Timeout: imageTimeout},
		mediaClient: &http.Client{Timeout: mediaTimeout},
		userAgent:   userAgent,
		logger:      logger,
	}
}

// Stream fetches the upstream URL and copies it to the response with
// download headers. Errors before the first byte reach the caller so it
// can still write an error response; errors mid-copy only get logged.
func (p *Proxy) Stream(ctx context.Context, w http.ResponseWriter, sr StreamRequest) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sr.URL, nil)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	if sr.Referer != "" {
		req.Header.Set("Referer", sr.Referer)
	}
	accept := sr.Accept
	if accept == "" {
		accept = "*/*"
	}
	req.Header.Set("Accept", accept)

	resp, err := p.mediaClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	contentType := sr.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	switch {
	case sr.Inline:
		w.Header().Set("Content-Disposition", "inline")
	case sr.Filename != "":
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sr.Filename))
	}
	if length := resp.Header.Get("Content-Length"); length != "" {
		w.Header().Set("Content-Length", length)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Cache-Control", "no-cache")

	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("proxy stream interrupted",
			slog.String("url", sr.URL),
			slog.String("error", err.Error()))
	}
	return nil
}

// FetchImage tries each candidate URL in order and returns the first body
// that looks like a real image. Bodies of 100 bytes or fewer are treated
// as CDN error pages and skipped.
func (p *Proxy) FetchImage(ctx context.Context, candidates []string, referer string) ([]byte, string, error) {
	var lastErr error
	for _, candidate := range candidates {
		data, contentType, err := p.fetchImageOnce(ctx, candidate, referer)
		if err != nil {
			lastErr = err
			continue
		}
		if len(data) <= 100 {
			lastErr = fmt.Errorf("response too small (%d bytes)", len(data))
			continue
		}
		return data, contentType, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate urls")
	}
	return nil, "", lastErr
}

func (p *Proxy) fetchImageOnce(ctx context.Context, imageURL, referer string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.imageClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d for %s", resp.StatusCode, imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// PinterestPlaceholderSVG is the branded stand-in served when every
// Pinterest fallback fails; the endpoint still answers 200 so the UI
// shows something instead of a broken image.
func PinterestPlaceholderSVG() []byte {
	return []byte(`<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <rect width="200" height="200" fill="#E60023"/>
  <text x="100" y="100" font-family="Arial" font-size="80" fill="white" text-anchor="middle" dominant-baseline="middle">&#128204;</text>
  <text x="100" y="160" font-family="Arial" font-size="14" fill="white" text-anchor="middle">Image unavailable</text>
</svg>`)
}

// SpotifyPlaceholderSVG is the branded stand-in for failed album art.
func SpotifyPlaceholderSVG() []byte {
	return []byte(`<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="spotifyGrad" x1="0%" y1="0%" x2="100%" y2="100%">
      <stop offset="0%" style="stop-color:#1DB954;stop-opacity:1" />
      <stop offset="100%" style="stop-color:#191414;stop-opacity:1" />
    </linearGradient>
  </defs>
  <rect width="200" height="200" fill="url(#spotifyGrad)"/>
  <text x="100" y="100" font-family="Arial" font-size="60" fill="white" text-anchor="middle" dominant-baseline="middle">&#127925;</text>
  <text x="100" y="160" font-family="Arial" font-size="12" fill="white" text-anchor="middle">Image unavailable</text>
</svg>`)
}
