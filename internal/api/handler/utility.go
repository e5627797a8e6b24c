package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider/pinterest"
	"github.com/snatchdl/snatch/internal/provider/spotify"
	"github.com/snatchdl/snatch/internal/provider/youtube"
	"github.com/snatchdl/snatch/internal/service"
)

// YouTubeUtility is the slice of the YouTube client the utility endpoint
// needs: page search and oEmbed metadata.
type YouTubeUtility interface {
	Search(ctx context.Context, query string) (*youtube.SearchResult, error)
	Metadata(ctx context.Context, videoURL string) (*youtube.VideoMetadata, error)
}

// PinterestSearcher searches pins by keyword.
type PinterestSearcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]pinterest.Pin, error)
}

// SpotifySearcher searches tracks by keyword.
type SpotifySearcher interface {
	Search(ctx context.Context, query string) ([]spotify.SearchTrack, error)
}

// UtilityHandler serves the consolidated utility endpoint: searches,
// thumbnail lookups and the CORS byte proxies.
type UtilityHandler struct {
	youtube   YouTubeUtility
	pinterest PinterestSearcher
	spotify   SpotifySearcher
	proxy     *service.Proxy
	logger    *slog.Logger
}

// NewUtilityHandler creates a utility handler.
func NewUtilityHandler(yt YouTubeUtility, pin PinterestSearcher, sp SpotifySearcher, proxy *service.Proxy, logger *slog.Logger) *UtilityHandler {
	return &UtilityHandler{youtube: yt, pinterest: pin, spotify: sp, proxy: proxy, logger: logger}
}

// Handle dispatches GET/POST /api/utility by its action parameter.
func (h *UtilityHandler) Handle(w http.ResponseWriter, r *http.Request) {
	action := strings.ToLower(r.URL.Query().Get("action"))

	switch action {
	case "search":
		h.search(w, r)
	case "thumbnail":
		h.thumbnail(w, r)
	case "pinterest-search":
		h.pinterestSearch(w, r)
	case "spotify-search":
		h.spotifySearch(w, r)
	case "tiktok-proxy", "instagram-proxy", "youtube-proxy", "facebook-proxy":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "proxy actions only support GET")
			return
		}
		switch action {
		case "tiktok-proxy":
			h.tiktokProxy(w, r)
		case "instagram-proxy":
			h.instagramProxy(w, r)
		case "youtube-proxy":
			h.youtubeProxy(w, r)
		case "facebook-proxy":
			h.facebookProxy(w, r)
		}
	default:
		writeError(w, http.StatusBadRequest,
			"invalid action; use one of: search, thumbnail, pinterest-search, spotify-search, tiktok-proxy, instagram-proxy, youtube-proxy, facebook-proxy")
	}
}

func queryParam(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.URL.Query().Get(name); v != "" {
			return v
		}
	}
	return ""
}

func limitParam(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func (h *UtilityHandler) search(w http.ResponseWriter, r *http.Request) {
	query := queryParam(r, "query", "q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter required")
		return
	}
	limit := limitParam(r, 10)
	searchType := queryParam(r, "type")
	if searchType == "" {
		searchType = "video"
	}

	results, err := h.youtube.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("youtube search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	var payload interface{}
	switch searchType {
	case "video":
		payload = videoSearchItems(results.Videos, limit)
	case "playlist":
		payload = playlistSearchItems(results.Playlists, limit)
	case "channel":
		payload = channelSearchItems(results.Channels, limit)
	default:
		payload = map[string]interface{}{
			"videos":    videoSearchItems(results.Videos, limit),
			"playlists": playlistSearchItems(results.Playlists, limit),
			"channels":  channelSearchItems(results.Channels, limit),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"query":   query,
		"type":    searchType,
		"results": payload,
	})
}

func videoSearchItems(videos []youtube.SearchVideo, limit int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, limit)
	for _, v := range videos {
		if len(items) >= limit {
			break
		}
		items = append(items, map[string]interface{}{
			"type":        "video",
			"videoId":     v.VideoID,
			"url":         v.URL,
			"title":       v.Title,
			"description": v.Description,
			"thumbnail":   v.Thumbnail,
			"duration": map[string]interface{}{
				"seconds":   v.Seconds,
				"timestamp": v.Timestamp,
			},
			"views": v.Views,
			"author": map[string]string{
				"name": v.AuthorName,
				"url":  v.AuthorURL,
			},
			"ago": v.Ago,
		})
	}
	return items
}

func playlistSearchItems(playlists []youtube.SearchPlaylist, limit int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, limit)
	for _, p := range playlists {
		if len(items) >= limit {
			break
		}
		items = append(items, map[string]interface{}{
			"type":       "playlist",
			"playlistId": p.PlaylistID,
			"url":        p.URL,
			"title":      p.Title,
			"thumbnail":  p.Thumbnail,
			"videoCount": p.VideoCount,
			"author": map[string]string{
				"name": p.AuthorName,
			},
		})
	}
	return items
}

func channelSearchItems(channels []youtube.SearchChannel, limit int) []map[string]interface{} {
	items := make([]map[string]interface{}, 0, limit)
	for _, ch := range channels {
		if len(items) >= limit {
			break
		}
		items = append(items, map[string]interface{}{
			"type":        "channel",
			"channelId":   ch.ChannelID,
			"url":         ch.URL,
			"name":        ch.Name,
			"thumbnail":   ch.Thumbnail,
			"subscribers": ch.Subscribers,
		})
	}
	return items
}

// thumbnail answers title, author and maxres thumbnail for a video URL.
// oEmbed failures degrade to the derived thumbnail URL; the endpoint only
// hard-fails on non-YouTube input.
func (h *UtilityHandler) thumbnail(w http.ResponseWriter, r *http.Request) {
	videoURL := r.URL.Query().Get("url")
	if videoURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !domain.PlatformYouTube.MatchesURL(videoURL) {
		writeError(w, http.StatusBadRequest, "url is not a YouTube link")
		return
	}

	meta, err := h.youtube.Metadata(r.Context(), videoURL)
	if err != nil {
		id := youtube.ExtractVideoID(videoURL)
		resp := map[string]interface{}{
			"success":  true,
			"title":    "YouTube Video",
			"platform": "YouTube",
			"id":       id,
		}
		if id != "" {
			resp["thumbnail"] = youtube.ThumbnailURL(id)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"title":     meta.Title,
		"author":    meta.Author,
		"thumbnail": meta.Thumbnail,
		"platform":  "YouTube",
		"id":        meta.VideoID,
		"width":     meta.Width,
		"height":    meta.Height,
	})
}

func (h *UtilityHandler) pinterestSearch(w http.ResponseWriter, r *http.Request) {
	query := queryParam(r, "query", "q", "keyword")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter required")
		return
	}
	limit := limitParam(r, 20)

	pins, err := h.pinterest.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("pinterest search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "pinterest search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"keyword": query,
		"count":   len(pins),
		"pins":    pins,
	})
}

func (h *UtilityHandler) spotifySearch(w http.ResponseWriter, r *http.Request) {
	query := queryParam(r, "query", "q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter required")
		return
	}

	tracks, err := h.spotify.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("spotify search failed",
			slog.String("query", query),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "spotify search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"query":   query,
		"total":   len(tracks),
		"results": tracks,
	})
}

func (h *UtilityHandler) tiktokProxy(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	mediaType := r.URL.Query().Get("type")

	sr := service.StreamRequest{
		URL:     mediaURL,
		Referer: "https://www.tiktok.com/",
	}
	switch mediaType {
	case "thumbnail", "image":
		sr.Accept = "image/webp,image/apng,image/*,*/*;q=0.8"
		sr.Inline = true
	case "audio":
		sr.ContentType = "audio/mpeg"
		sr.Filename = "tiktok_audio.mp3"
	case "video":
		sr.ContentType = "video/mp4"
		sr.Filename = "tiktok_video.mp4"
	}

	if err := h.proxy.Stream(r.Context(), w, sr); err != nil {
		h.streamError(w, "tiktok", err)
	}
}

func (h *UtilityHandler) instagramProxy(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	sr := service.StreamRequest{
		URL:     mediaURL,
		Referer: "https://www.instagram.com/",
		Accept:  "image/webp,image/apng,image/*,*/*;q=0.8",
	}
	if r.URL.Query().Get("type") == "preview" {
		sr.Inline = true
	} else {
		sr.Filename = fmt.Sprintf("instagram_%d", time.Now().UnixMilli())
	}

	if err := h.proxy.Stream(r.Context(), w, sr); err != nil {
		h.streamError(w, "instagram", err)
	}
}

func (h *UtilityHandler) youtubeProxy(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !service.IsGoogleHost(mediaURL) {
		writeError(w, http.StatusForbidden, domain.ErrForbiddenHost.Error())
		return
	}

	sr := service.StreamRequest{
		URL:    mediaURL,
		Accept: "*/*",
	}
	extension := "mp4"
	sr.ContentType = "video/mp4"
	if r.URL.Query().Get("type") == "audio" {
		extension = "mp3"
		sr.ContentType = "audio/mpeg"
	}
	sr.Filename = r.URL.Query().Get("filename")
	if sr.Filename == "" {
		sr.Filename = fmt.Sprintf("youtube_%d.%s", time.Now().UnixMilli(), extension)
	}

	if err := h.proxy.Stream(r.Context(), w, sr); err != nil {
		h.streamError(w, "youtube", err)
	}
}

func (h *UtilityHandler) facebookProxy(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	if mediaURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	if !service.IsFacebookHost(mediaURL) {
		writeError(w, http.StatusForbidden, domain.ErrForbiddenHost.Error())
		return
	}

	sr := service.StreamRequest{
		URL:     mediaURL,
		Referer: "https://www.facebook.com/",
	}
	extension := "mp4"
	sr.ContentType = "video/mp4"
	if r.URL.Query().Get("type") == "image" {
		extension = "jpg"
		sr.ContentType = "image/jpeg"
	}
	sr.Filename = r.URL.Query().Get("filename")
	if sr.Filename == "" {
		sr.Filename = fmt.Sprintf("facebook_%d.%s", time.Now().UnixMilli(), extension)
	}

	if err := h.proxy.Stream(r.Context(), w, sr); err != nil {
		h.streamError(w, "facebook", err)
	}
}

func (h *UtilityHandler) streamError(w http.ResponseWriter, name string, err error) {
	h.logger.Error("proxy fetch failed",
		slog.String("proxy", name),
		slog.String("error", err.Error()))
	writeError(w, http.StatusBadGateway, "failed to fetch media")
}
