package generation

import "strings"

// Platform is a supported social media target.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
)

var knownPlatforms = map[Platform]struct{}{
	PlatformYouTube:   {},
	PlatformFacebook:  {},
	PlatformInstagram: {},
	PlatformTikTok:    {},
}

// ParsePlatform normalizes a raw platform name. Unknown names return false.
func ParsePlatform(raw string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := knownPlatforms[p]
	return p, ok
}

// AllPlatforms returns the closed platform set in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformYouTube, PlatformFacebook, PlatformInstagram, PlatformTikTok}
}
