// Package service holds the download orchestration and byte-proxy logic
// behind the HTTP handlers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snatchdl/snatch/internal/domain"
	"github.com/snatchdl/snatch/internal/provider/douyin"
	"github.com/snatchdl/snatch/internal/provider/facebook"
	"github.com/snatchdl/snatch/internal/provider/instagram"
	"github.com/snatchdl/snatch/internal/provider/pinterest"
	"github.com/snatchdl/snatch/internal/provider/spotify"
	"github.com/snatchdl/snatch/internal/provider/tiktok"
	"github.com/snatchdl/snatch/internal/provider/twitter"
	"github.com/snatchdl/snatch/internal/provider/youtube"
)

// Per-platform fetch surfaces, narrowed so tests can fake a single
// platform without standing up the others.
type (
	TikTokFetcher interface {
		Fetch(ctx context.Context, url string) (*tiktok.Result, error)
	}

	YouTubeFetcher interface {
		Download(ctx context.Context, link, format string) (*youtube.Result, error)
		Metadata(ctx context.Context, videoURL string) (*youtube.VideoMetadata, error)
		Search(ctx context.Context, query string) (*youtube.SearchResult, error)
	}

	InstagramFetcher interface {
		Fetch(ctx context.Context, url string) (*instagram.Result, error)
	}

	DouyinFetcher interface {
		Fetch(ctx context.Context, url string) (*douyin.Result, error)
	}

	TwitterFetcher interface {
		Fetch(ctx context.Context, url string) (*twitter.Result, error)
	}

	SpotifyFetcher interface {
		Download(ctx context.Context, url string) (*spotify.Result, error)
		Metadata(ctx context.Context, url string) (*spotify.TrackMetadata, error)
	}

	PinterestFetcher interface {
		Fetch(ctx context.Context, url string) (*pinterest.Result, error)
	}

	FacebookFetcher interface {
		Fetch(ctx context.Context, url string) (*facebook.Result, error)
	}
)

// HistoryStore records completed downloads.
type HistoryStore interface {
	SaveDownload(ctx context.Context, rec *domain.DownloadRecord) error
}

// Downloads routes a request to the right platform provider and
// normalizes the provider's answer into the response contract.
type Downloads struct {
	logger  *slog.Logger
	history HistoryStore

	tiktok    TikTokFetcher
	youtube   YouTubeFetcher
	instagram InstagramFetcher
	douyin    DouyinFetcher
	twitter   TwitterFetcher
	spotify   SpotifyFetcher
	pinterest PinterestFetcher
	facebook  FacebookFetcher
}

// NewDownloads wires the download service. history may be nil when the
// service runs without persistence.
func NewDownloads(
	logger *slog.Logger,
	history HistoryStore,
	tt TikTokFetcher,
	yt YouTubeFetcher,
	ig InstagramFetcher,
	dy DouyinFetcher,
	tw TwitterFetcher,
	sp SpotifyFetcher,
	pin PinterestFetcher,
	fb FacebookFetcher,
) *Downloads {
	return &Downloads{
		logger:    logger,
		history:   history,
		tiktok:    tt,
		youtube:   yt,
		instagram: ig,
		douyin:    dy,
		twitter:   tw,
		spotify:   sp,
		pinterest: pin,
		facebook:  fb,
	}
}

// Download validates the request, dispatches to the platform provider and
// records history for authenticated callers. Validation failures surface
// before any upstream call is made.
func (d *Downloads) Download(ctx context.Context, req *domain.DownloadRequest, user *domain.User) (*domain.NormalizedMedia, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, domain.ErrEmptyURL
	}
	if !req.Platform.MatchesURL(req.URL) {
		return nil, fmt.Errorf("%s: %w", req.Platform.DisplayName(), domain.ErrPlatformMismatch)
	}

	var (
		result *domain.NormalizedMedia
		err    error
	)
	switch req.Platform {
	case domain.PlatformYouTube:
		result, err = d.downloadYouTube(ctx, req, false)
	case domain.PlatformYouTubeAudio:
		result, err = d.downloadYouTube(ctx, req, true)
	case domain.PlatformTikTok:
		result, err = d.downloadTikTok(ctx, req)
	case domain.PlatformInstagram:
		result, err = d.downloadInstagram(ctx, req)
	case domain.PlatformDouyin:
		result, err = d.downloadDouyin(ctx, req)
	case domain.PlatformTwitter:
		result, err = d.downloadTwitter(ctx, req)
	case domain.PlatformSpotify:
		result, err = d.downloadSpotify(ctx, req)
	case domain.PlatformPinterest:
		result, err = d.downloadPinterest(ctx, req)
	case domain.PlatformFacebook:
		result, err = d.downloadFacebook(ctx, req)
	default:
		return nil, domain.ErrUnsupportedPlatform
	}
	if err != nil {
		return nil, err
	}

	if user != nil && !req.MetadataOnly {
		d.saveHistory(user, req, result)
	}
	return result, nil
}

// saveHistory records the download without blocking the response; a
// failed insert only produces a log line.
func (d *Downloads) saveHistory(user *domain.User, req *domain.DownloadRequest, result *domain.NormalizedMedia) {
	title := req.Title
	if title == "" {
		title = result.Title
	}
	rec := &domain.DownloadRecord{
		UserID:   user.ID,
		URL:      req.URL,
		Title:    title,
		Platform: req.Platform.DisplayName(),
		Filename: result.FileName,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.history.SaveDownload(ctx, rec); err != nil {
			d.logger.Error("failed to save download history",
				slog.Int64("user_id", user.ID),
				slog.String("platform", rec.Platform),
				slog.String("error", err.Error()))
		}
	}()
}

func (d *Downloads) downloadYouTube(ctx context.Context, req *domain.DownloadRequest, audio bool) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		meta, err := d.youtube.Metadata(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformYouTube, "YouTube Video"), nil
		}
		return &domain.NormalizedMedia{
			Success:   true,
			Title:     meta.Title,
			Author:    meta.Author,
			Thumbnail: meta.Thumbnail,
			Platform:  "YouTube",
		}, nil
	}

	format := "720"
	if audio {
		format = "mp3"
	} else if req.Quality != "" {
		format = req.Quality
	}

	result, err := d.youtube.Download(ctx, req.URL, format)
	if err != nil {
		return nil, err
	}

	media := &domain.NormalizedMedia{
		Success:     true,
		Title:       result.Title,
		Author:      result.Author,
		Thumbnail:   result.Thumbnail,
		DownloadURL: result.DownloadURL,
		Quality:     result.Quality,
		Duration:    result.Duration,
		Platform:    "YouTube",
	}
	id := result.ID
	if id == "" {
		id = uuid.NewString()
	}
	if audio {
		media.Title = orDefault(result.Title, "YouTube Audio")
		media.FileName = id + ".mp3"
		media.Format = "mp3"
		media.MediaType = domain.MediaTypeAudio
	} else {
		media.Title = orDefault(result.Title, "YouTube Video")
		media.FileName = id + ".mp4"
		media.MediaType = domain.MediaTypeVideo
	}
	return media, nil
}

func (d *Downloads) downloadTikTok(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		result, err := d.tiktok.Fetch(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformTikTok, "TikTok Video"), nil
		}
		media := &domain.NormalizedMedia{
			Success:   true,
			Title:     result.Title,
			Author:    authorName(result.Author),
			Thumbnail: result.Cover,
			Duration:  result.Duration,
			Stats:     result.Stats,
			Platform:  "TikTok",
		}
		if result.IsPhotoSlides() {
			media.IsPhotoSlides = true
			media.PhotoCount = len(result.Data)
		}
		return media, nil
	}

	result, err := d.tiktok.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	id := result.ID
	if id == "" {
		id = uuid.NewString()
	}

	if result.IsPhotoSlides() {
		photoURLs := result.PhotoURLs()
		return &domain.NormalizedMedia{
			Success:       true,
			Title:         result.Title,
			Author:        authorName(result.Author),
			Thumbnail:     result.Cover,
			IsPhotoSlides: true,
			PhotoURLs:     photoURLs,
			PhotoCount:    len(photoURLs),
			FileName:      id + "_photos",
			Duration:      result.Duration,
			Stats:         result.Stats,
			MusicInfo:     result.MusicInfo,
			MediaType:     domain.MediaTypeCarousel,
			Platform:      "TikTok",
		}, nil
	}

	media := &domain.NormalizedMedia{
		Success:   true,
		Title:     result.Title,
		Author:    authorName(result.Author),
		Thumbnail: result.Cover,
		Duration:  result.Duration,
		Stats:     result.Stats,
		MusicInfo: result.MusicInfo,
		Platform:  "TikTok",
	}
	if req.Format == "audio" {
		if result.MusicInfo == nil || result.MusicInfo.URL == "" {
			return nil, fmt.Errorf("audio track: %w", domain.ErrMediaUnavailable)
		}
		media.DownloadURL = TikTokProxyURL(result.MusicInfo.URL, "audio")
		media.FileName = id + "_audio.mp3"
		media.Format = "mp3"
		media.MediaType = domain.MediaTypeAudio
		return media, nil
	}

	video, ok := result.SelectVideo()
	if !ok || video.URL == "" {
		return nil, fmt.Errorf("video rendition: %w", domain.ErrMediaUnavailable)
	}
	media.DownloadURL = video.URL
	media.FileName = id + ".mp4"
	media.MediaType = domain.MediaTypeVideo
	return media, nil
}

// TikTokProxyURL routes a TikTok CDN URL through the same-origin byte
// proxy so the browser can download it without CORS trouble.
func TikTokProxyURL(mediaURL, mediaType string) string {
	return "/api/utility?action=tiktok-proxy&url=" + url.QueryEscape(mediaURL) + "&type=" + mediaType
}

func (d *Downloads) downloadInstagram(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		return metadataFallback(domain.PlatformInstagram, "Instagram Media"), nil
	}

	result, err := d.instagram.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if len(result.URLs) == 0 {
		return nil, fmt.Errorf("instagram media: %w", domain.ErrNoMedia)
	}

	return &domain.NormalizedMedia{
		Success:       true,
		Title:         result.Title,
		Author:        result.Author,
		Thumbnail:     result.Thumbnail,
		DownloadURL:   result.URLs[0],
		URLs:          result.URLs,
		FileName:      fmt.Sprintf("instagram_%d.mp4", time.Now().UnixMilli()),
		IsCarousel:    result.IsCarousel(),
		CarouselCount: len(result.URLs),
		Service:       result.Service,
		Platform:      "Instagram",
	}, nil
}

func (d *Downloads) downloadDouyin(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		result, err := d.douyin.Fetch(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformDouyin, "Douyin Video"), nil
		}
		return &domain.NormalizedMedia{
			Success:   true,
			Title:     result.Title,
			Author:    orDefault(result.Author, "Unknown"),
			Thumbnail: result.Cover,
			Duration:  result.Duration,
			Stats:     &result.Stats,
			Platform:  "Douyin",
		}, nil
	}

	result, err := d.douyin.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if result.DownloadURL == "" {
		return nil, fmt.Errorf("douyin media: %w", domain.ErrNoMedia)
	}

	variants := make([]domain.MediaVariant, 0, len(result.Medias))
	for _, m := range result.Medias {
		variants = append(variants, domain.MediaVariant{
			Type:      m.Type,
			URL:       m.URL,
			Quality:   m.Quality,
			Extension: m.Extension,
		})
	}

	return &domain.NormalizedMedia{
		Success:     true,
		Title:       result.Title,
		Author:      orDefault(result.Author, "Unknown"),
		Thumbnail:   result.Cover,
		DownloadURL: result.DownloadURL,
		FileName:    "douyin_" + result.ID + ".mp4",
		Duration:    result.Duration,
		Stats:       &result.Stats,
		AllMedias:   variants,
		MediaType:   domain.MediaTypeVideo,
		Platform:    "Douyin",
	}, nil
}

func (d *Downloads) downloadTwitter(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		result, err := d.twitter.Fetch(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformTwitter, "Twitter Video"), nil
		}
		qualities := make([]domain.QualityInfo, 0, len(result.Videos))
		for _, v := range result.Videos {
			qualities = append(qualities, domain.QualityInfo{Quality: v.Quality, Bitrate: v.Bitrate})
		}
		return &domain.NormalizedMedia{
			Success:    true,
			Title:      result.Title,
			Author:     orDefault(result.Author, "Unknown"),
			Thumbnail:  result.Thumbnail,
			Qualities:  qualities,
			VideoCount: len(result.Videos),
			Platform:   "Twitter",
		}, nil
	}

	result, err := d.twitter.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	quality := req.Quality
	if quality == "" {
		quality = "best"
	}
	video, ok := result.SelectVideo(quality)
	if !ok {
		return nil, fmt.Errorf("twitter video: %w", domain.ErrNoMedia)
	}

	tweetID := twitter.ExtractTweetID(req.URL)
	if tweetID == "" {
		tweetID = uuid.NewString()
	}

	return &domain.NormalizedMedia{
		Success:            true,
		Title:              result.Title,
		Author:             orDefault(result.Author, "Unknown"),
		Thumbnail:          result.Thumbnail,
		DownloadURL:        video.URL,
		FileName:           "twitter_" + tweetID + ".mp4",
		Quality:            video.Quality,
		AvailableQualities: result.Qualities(),
		MediaType:          domain.MediaTypeVideo,
		Platform:           "Twitter",
	}, nil
}

func (d *Downloads) downloadSpotify(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		meta, err := d.spotify.Metadata(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformSpotify, "Spotify Track"), nil
		}
		media := &domain.NormalizedMedia{
			Success:   true,
			Title:     meta.Title,
			Thumbnail: meta.Thumbnail,
			Platform:  "Spotify",
		}
		// The playable stream lives on YouTube: search by track title and
		// surface the top hit. A failed search only loses the bridge.
		if d.youtube != nil {
			if search, err := d.youtube.Search(ctx, meta.Title+" audio"); err == nil && len(search.Videos) > 0 {
				top := search.Videos[0]
				media.YouTubeURL = top.URL
				media.Duration = top.Seconds
				media.Source = "YouTube Bridge"
			}
		}
		return media, nil
	}

	result, err := d.spotify.Download(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	return &domain.NormalizedMedia{
		Success:     true,
		Title:       result.Title,
		Artist:      result.Artist,
		Thumbnail:   result.Thumbnail,
		DownloadURL: result.DownloadURL,
		FileName:    sanitizeFileName(result.Title) + "." + result.Extension,
		Duration:    result.Duration,
		Quality:     result.Quality,
		Format:      result.Extension,
		MediaType:   domain.MediaTypeAudio,
		Platform:    "Spotify",
	}, nil
}

func (d *Downloads) downloadPinterest(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		result, err := d.pinterest.Fetch(ctx, req.URL)
		if err != nil || len(result.Results) == 0 {
			return metadataFallback(domain.PlatformPinterest, "Pinterest Pin"), nil
		}
		first := result.Results[0]
		return &domain.NormalizedMedia{
			Success:   true,
			Title:     result.Title,
			Thumbnail: first.URL,
			MediaType: domain.MediaType(strings.ToLower(first.Type)),
			Format:    first.Format,
			Platform:  "Pinterest",
		}, nil
	}

	result, err := d.pinterest.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, fmt.Errorf("pinterest media: %w", domain.ErrNoMedia)
	}

	best := result.Results[0]
	extension := ".jpg"
	mediaType := domain.MediaTypeImage
	if best.IsVideo() {
		extension = ".mp4"
		mediaType = domain.MediaTypeVideo
	}

	variants := make([]domain.MediaVariant, 0, len(result.Results))
	for _, m := range result.Results {
		variants = append(variants, domain.MediaVariant{
			Type:    m.Type,
			URL:     m.URL,
			Quality: m.Quality,
			Format:  m.Format,
		})
	}

	return &domain.NormalizedMedia{
		Success:     true,
		Title:       result.Title,
		DownloadURL: best.URL,
		FileName:    fmt.Sprintf("pinterest_%d%s", time.Now().UnixMilli(), extension),
		MediaType:   mediaType,
		Format:      best.Format,
		AllResults:  variants,
		Service:     result.Service,
		Platform:    "Pinterest",
	}, nil
}

func (d *Downloads) downloadFacebook(ctx context.Context, req *domain.DownloadRequest) (*domain.NormalizedMedia, error) {
	if req.MetadataOnly {
		result, err := d.facebook.Fetch(ctx, req.URL)
		if err != nil {
			return metadataFallback(domain.PlatformFacebook, "Facebook Media"), nil
		}
		return &domain.NormalizedMedia{
			Success:   true,
			Title:     result.Title,
			Author:    result.Author,
			Thumbnail: result.Thumbnail,
			Duration:  result.Duration,
			Platform:  "Facebook",
		}, nil
	}

	result, err := d.facebook.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	mediaType := domain.MediaTypeVideo
	extension := ".mp4"
	if result.MediaType == "image" || result.MediaType == "photo" {
		mediaType = domain.MediaTypeImage
		extension = ".jpg"
	}

	return &domain.NormalizedMedia{
		Success:     true,
		Title:       result.Title,
		Author:      result.Author,
		Thumbnail:   result.Thumbnail,
		DownloadURL: result.DownloadURL,
		FileName:    fmt.Sprintf("facebook_%d%s", time.Now().UnixMilli(), extension),
		Quality:     result.Quality,
		Duration:    result.Duration,
		MediaType:   mediaType,
		Platform:    "Facebook",
	}, nil
}

// metadataFallback is the degraded metadata answer: the caller only wants
// something to show, so upstream failures soften to platform defaults.
func metadataFallback(platform domain.Platform, title string) *domain.NormalizedMedia {
	return &domain.NormalizedMedia{
		Success:  true,
		Title:    title,
		Platform: platform.DisplayName(),
	}
}

func authorName(author *tiktok.Author) string {
	if author == nil || author.Nickname == "" {
		return "Unknown"
	}
	return author.Nickname
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// sanitizeFileName strips characters that break Content-Disposition
// filenames and path handling.
func sanitizeFileName(name string) string {
	if name == "" {
		return "download"
	}
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
