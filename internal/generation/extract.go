package generation

import (
	"regexp"
	"strings"
)

// Completion replies are asked for as one "platform: description" line per
// target. The scan is tolerant: labels match case-insensitively, unknown
// labels are dropped, and a repeated label keeps the later occurrence.
var fieldPattern = regexp.MustCompile(`(\w+):\s([^:\n]+)`)

// ExtractFields splits a raw completion into per-platform descriptions.
// With exactly one requested platform the whole raw text belongs to it,
// embedded colons and all, so no scanning happens.
func ExtractFields(raw string, requested []Platform) map[Platform]string {
	if len(requested) == 1 {
		return map[Platform]string{requested[0]: raw}
	}

	out := make(map[Platform]string, len(requested))
	for _, match := range fieldPattern.FindAllStringSubmatch(raw, -1) {
		platform, ok := ParsePlatform(match[1])
		if !ok {
			continue
		}
		out[platform] = strings.TrimSpace(match[2])
	}

	for platform := range out {
		if !contains(requested, platform) {
			delete(out, platform)
		}
	}
	return out
}

func contains(platforms []Platform, p Platform) bool {
	for _, candidate := range platforms {
		if candidate == p {
			return true
		}
	}
	return false
}
