package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/snatchdl/snatch/internal/api/middleware"
	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/service"
)

// DownloadHandler serves the consolidated download endpoint.
type DownloadHandler struct {
	downloads *service.Downloads
	logger    *slog.Logger
}

// NewDownloadHandler creates a download handler.
func NewDownloadHandler(downloads *service.Downloads, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{downloads: downloads, logger: logger}
}

type downloadParams struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Quality  string `json:"quality"`
	Metadata bool   `json:"metadata"`
	Title    string `json:"title"`
}

// parseDownloadParams accepts both GET query parameters and a POST JSON
// body, matching what the frontend sends from different views.
func parseDownloadParams(r *http.Request) downloadParams {
	var p downloadParams
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&p); err == nil && p.URL != "" {
			return p
		}
	}
	q := r.URL.Query()
	return downloadParams{
		Platform: q.Get("platform"),
		URL:      q.Get("url"),
		Format:   q.Get("format"),
		Quality:  q.Get("quality"),
		Metadata: q.Get("metadata") == "true",
		Title:    q.Get("title"),
	}
}

// Download handles GET/POST /api/download.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	params := parseDownloadParams(r)

	platform, ok := domain.ParsePlatform(strings.ToLower(params.Platform))
	if !ok {
		writeError(w, http.StatusBadRequest,
			"invalid platform; use one of: "+strings.Join(platformNames(), ", "))
		return
	}

	user, _ := middleware.UserFrom(r.Context())

	result, err := h.downloads.Download(r.Context(), &domain.DownloadRequest{
		Platform:     platform,
		URL:          params.URL,
		Format:       params.Format,
		Quality:      params.Quality,
		MetadataOnly: params.Metadata,
		Title:        params.Title,
	}, user)
	if err != nil {
		h.logger.Error("download failed",
			slog.String("platform", string(platform)),
			slog.String("url", params.URL),
			slog.String("error", err.Error()))
		writeError(w, statusFromError(err), downloadErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func platformNames() []string {
	names := make([]string, 0, len(domain.SupportedPlatforms))
	for _, p := range domain.SupportedPlatforms {
		names = append(names, string(p))
	}
	return names
}

// downloadErrorMessage keeps upstream detail out of client responses;
// the full error goes to the log instead.
func downloadErrorMessage(err error) string {
	switch statusFromError(err) {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusNotFound:
		return "no downloadable media found for this link"
	default:
		return "download failed, please try again"
	}
}
