package studio

import (
	"fmt"
	"strings"

	"github.com/walljourney/mindset/internal/ai"
)

// CaptionText is the post caption users copy: the takeaway in quotes, the
// narrative, then the hashtags on one line.
func CaptionText(keyTakeaway, narrative string, hashtags []string) string {
	tags := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	return fmt.Sprintf("\"%s\"\n\n%s\n\n%s", keyTakeaway, narrative, strings.Join(tags, " "))
}

// ScriptText renders the video script for a teleprompter or an editor.
func ScriptText(segments []ai.ScriptSegment) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = fmt.Sprintf("PART: %s\nVisual Direction: %s\nAudio/Voice Over: \"%s\"",
			strings.ToUpper(seg.Part), seg.Visual, seg.Audio)
	}
	return strings.Join(parts, "\n\n---\n\n")
}
