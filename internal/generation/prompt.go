package generation

import (
	"fmt"
	"strings"
)

// BuildPrompt produces the single user message sent to the completion API.
// For multi-platform requests the reply format is pinned to one
// "platform: description" line per target so ExtractFields can split it.
func BuildPrompt(keywords []string, platforms []Platform) string {
	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write an engaging social media post description for each of the following platforms: %s.\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "The post is about: %s.\n", strings.Join(keywords, ", "))
	b.WriteString("Match each platform's tone and audience, and include relevant hashtags.\n")
	if len(platforms) > 1 {
		b.WriteString("Reply with exactly one line per platform in the form \"platform: description\" and nothing else.")
	} else {
		b.WriteString("Reply with the description text only.")
	}
	return b.String()
}
