package domain

import "strings"

// Platform identifies a supported download source.
type Platform string

const (
	PlatformYouTube      Platform = "youtube"
	PlatformYouTubeAudio Platform = "youtube-audio"
	PlatformTikTok       Platform = "tiktok"
	PlatformInstagram    Platform = "instagram"
	PlatformDouyin       Platform = "douyin"
	PlatformTwitter      Platform = "twitter"
	PlatformSpotify      Platform = "spotify"
	PlatformPinterest    Platform = "pinterest"
	PlatformFacebook     Platform = "facebook"
)

// SupportedPlatforms lists every platform the download endpoint accepts,
// in the order they are reported to callers.
var SupportedPlatforms = []Platform{
	PlatformYouTube,
	PlatformYouTubeAudio,
	PlatformTikTok,
	PlatformInstagram,
	PlatformDouyin,
	PlatformTwitter,
	PlatformSpotify,
	PlatformPinterest,
	PlatformFacebook,
}

// ParsePlatform maps a request parameter to a Platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SupportedPlatforms {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// DisplayName returns the human-facing platform name used in responses
// and history records.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube, PlatformYouTubeAudio:
		return "YouTube"
	case PlatformTikTok:
		return "TikTok"
	case PlatformInstagram:
		return "Instagram"
	case PlatformDouyin:
		return "Douyin"
	case PlatformTwitter:
		return "Twitter"
	case PlatformSpotify:
		return "Spotify"
	case PlatformPinterest:
		return "Pinterest"
	case PlatformFacebook:
		return "Facebook"
	}
	return string(p)
}

// hostSubstrings returns the URL fragments that identify a platform's links.
// Matching is deliberately substring-based: share links use many subdomains
// and shorteners (vt.tiktok.com, pin.it, fb.watch) that a strict host parse
// would miss.
func (p Platform) hostSubstrings() []string {
	switch p {
	case PlatformYouTube, PlatformYouTubeAudio:
		return []string{"youtube.com", "youtu.be"}
	case PlatformTikTok:
		return []string{"tiktok.com", "vt.tiktok.com", "vm.tiktok.com"}
	case PlatformInstagram:
		return []string{"instagram.com"}
	case PlatformDouyin:
		return []string{"douyin.com", "v.douyin.com"}
	case PlatformTwitter:
		return []string{"twitter.com", "x.com"}
	case PlatformSpotify:
		return []string{"spotify.com"}
	case PlatformPinterest:
		return []string{"pinterest.com", "pin.it"}
	case PlatformFacebook:
		return []string{"facebook.com", "fb.watch", "fb.com"}
	}
	return nil
}

// MatchesURL reports whether the URL plausibly belongs to the platform.
func (p Platform) MatchesURL(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, frag := range p.hostSubstrings() {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
