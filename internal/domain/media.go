package domain

import "time"

// MediaType classifies the primary media of a normalized result.
type MediaType string

const (
	MediaTypeVideo    MediaType = "video"
	MediaTypeAudio    MediaType = "audio"
	MediaTypeImage    MediaType = "image"
	MediaTypeCarousel MediaType = "carousel"
)

// DownloadRequest is the parsed input of the download endpoint.
// URL must be non-empty and match the platform's domains before any
// upstream provider is contacted.
type DownloadRequest struct {
	Platform     Platform
	URL          string
	Format       string // "video" or "audio"; platform-specific default
	Quality      string // e.g. "720", "best", "low"
	MetadataOnly bool
	Title        string // optional client-supplied title for history
}

// MediaStats carries upstream engagement counters. Values stay strings
// because providers return them in mixed formats ("1.2M", "1200000").
type MediaStats struct {
	Views    string `json:"views,omitempty"`
	Likes    string `json:"likes,omitempty"`
	Comments string `json:"comment,omitempty"`
	Shares   string `json:"share,omitempty"`
}

// MusicInfo describes the extractable audio track of a post.
type MusicInfo struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	URL    string `json:"url,omitempty"`
}

// MediaVariant is one downloadable rendition inside a multi-media result.
type MediaVariant struct {
	Type      string `json:"type,omitempty"`
	URL       string `json:"url,omitempty"`
	Quality   string `json:"quality,omitempty"`
	Format    string `json:"format,omitempty"`
	Extension string `json:"extension,omitempty"`
}

// NormalizedMedia is the platform-agnostic response contract of the
// download endpoint. Success implies at least one of DownloadURL, URLs
// or PhotoURLs is populated (metadata-only responses excepted); failure
// responses never reach this type, they are written as error JSON.
type NormalizedMedia struct {
	Success   bool   `json:"success"`
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`

	DownloadURL string   `json:"downloadUrl,omitempty"`
	URLs        []string `json:"urls,omitempty"`
	FileName    string   `json:"fileName,omitempty"`

	// TikTok photo mode.
	IsPhotoSlides bool     `json:"isPhotoSlides,omitempty"`
	PhotoURLs     []string `json:"photoUrls,omitempty"`
	PhotoCount    int      `json:"photoCount,omitempty"`

	// Instagram sidecar.
	IsCarousel    bool `json:"isCarousel,omitempty"`
	CarouselCount int  `json:"carouselCount,omitempty"`

	MediaType          MediaType      `json:"mediaType,omitempty"`
	Format             string         `json:"format,omitempty"`
	Duration           int            `json:"duration,omitempty"`
	Quality            string         `json:"quality,omitempty"`
	AvailableQualities []string       `json:"availableQualities,omitempty"`
	Qualities          []QualityInfo  `json:"qualities,omitempty"`
	VideoCount         int            `json:"videoCount,omitempty"`
	Stats              *MediaStats    `json:"stats,omitempty"`
	MusicInfo          *MusicInfo     `json:"musicInfo,omitempty"`
	AllMedias          []MediaVariant `json:"allMedias,omitempty"`
	AllResults         []MediaVariant `json:"allResults,omitempty"`

	Platform string `json:"platform,omitempty"`
	Service  string `json:"service,omitempty"`
	Source   string `json:"source,omitempty"`

	// Spotify metadata-only bridge result.
	YouTubeURL string `json:"youtubeUrl,omitempty"`
}

// QualityInfo pairs a quality label with its bitrate for metadata responses.
type QualityInfo struct {
	Quality string `json:"quality"`
	Bitrate int    `json:"bitrate,omitempty"`
}

// User is an authenticated account. Accounts are created on first GitHub
// login; there is no password flow.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	GithubID string `json:"-"`
}

// DownloadRecord is one row of a user's download history.
type DownloadRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}
