package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/snatchdl/snatch/internal/service"
)

// ProxyHandler serves the standalone image proxy endpoints. These exist
// so the frontend can show Pinterest and Spotify thumbnails the CDNs
// refuse to serve cross-origin.
type ProxyHandler struct {
	proxy  *service.Proxy
	logger *slog.Logger
}

// NewProxyHandler creates a proxy handler.
func NewProxyHandler(proxy *service.Proxy, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{proxy: proxy, logger: logger}
}

// Pinterest handles GET /api/pinterest-proxy. It walks the quality
// ladder and falls back to a branded placeholder rather than a broken
// image, so the response is 200 even when every upstream fails.
func (h *ProxyHandler) Pinterest(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !service.IsPinterestImageURL(imageURL) {
		writeError(w, http.StatusBadRequest, "not a Pinterest image URL")
		return
	}

	data, contentType, err := h.proxy.FetchImage(r.Context(),
		service.PinterestFallbackURLs(imageURL), "https://www.pinterest.com/")
	if err != nil {
		h.logger.Warn("pinterest proxy fallbacks exhausted",
			slog.String("url", imageURL),
			slog.String("error", err.Error()))
		writePlaceholder(w, service.PinterestPlaceholderSVG())
		return
	}

	writeImage(w, data, contentType)
}

// Spotify handles GET /api/spotify-proxy for album art on scdn.co.
func (h *ProxyHandler) Spotify(w http.ResponseWriter, r *http.Request) {
	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !service.IsSpotifyImageURL(imageURL) {
		writeError(w, http.StatusBadRequest, "not a Spotify image URL")
		return
	}

	data, contentType, err := h.proxy.FetchImage(r.Context(), []string{imageURL}, "")
	if err != nil {
		h.logger.Warn("spotify proxy fetch failed",
			slog.String("url", imageURL),
			slog.String("error", err.Error()))
		writePlaceholder(w, service.SpotifyPlaceholderSVG())
		return
	}

	writeImage(w, data, contentType)
}

// YouTube handles GET /api/youtube-proxy: streams a CDN rendition to the
// browser as a forced download. Unlike the image proxies this one fails
// loudly; a silent placeholder would corrupt a video file.
func (h *ProxyHandler) YouTube(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !service.IsGoogleHost(mediaURL) {
		writeError(w, http.StatusForbidden, "only Google CDN URLs are allowed")
		return
	}

	isAudio := r.URL.Query().Get("type") == "audio"
	contentType := "video/mp4"
	extension := "mp4"
	if isAudio {
		contentType = "audio/mpeg"
		extension = "mp3"
	}
	title := r.URL.Query().Get("title")
	if title == "" {
		title = "download"
	}

	err := h.proxy.Stream(r.Context(), w, service.StreamRequest{
		URL:         mediaURL,
		Referer:     "https://www.youtube.com/",
		ContentType: contentType,
		Filename:    sanitizeFileName(title) + "." + extension,
	})
	if err != nil {
		h.logger.Error("youtube proxy stream failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "failed to fetch video")
	}
}

func writeImage(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writePlaceholder(w http.ResponseWriter, svg []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}
