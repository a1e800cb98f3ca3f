package domain

import "strings"

// Platform identifies the media site a URL belongs to.
type Platform string

const (
	PlatformNone    Platform = ""
	PlatformYouTube Platform = "youtube"
	PlatformTwitter Platform = "twitter"
)

// String returns the string representation of the Platform.
func (p Platform) String() string {
	if p == PlatformNone {
		return "none"
	}
	return string(p)
}

// Known reports whether the platform is one we accept.
func (p Platform) Known() bool {
	return p == PlatformYouTube || p == PlatformTwitter
}

// DisplayName returns the human readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformTwitter:
		return "X (Twitter)"
	default:
		return ""
	}
}

// DetectPlatform derives the platform from a raw URL string by substring
// containment. The match is case-sensitive and the input is not trimmed,
// parsed or otherwise validated. YouTube hosts are checked first.
func DetectPlatform(rawURL string) Platform {
	if strings.Contains(rawURL, "youtube.com") || strings.Contains(rawURL, "youtu.be") {
		return PlatformYouTube
	}
	if strings.Contains(rawURL, "twitter.com") || strings.Contains(rawURL, "x.com") {
		return PlatformTwitter
	}
	return PlatformNone
}
