package opening

import (
	"regexp"
	"strings"
)

var (
	titleSeparators = []string{" - ", " | ", " / ", " \u2014 "}
	opSuffix        = regexp.MustCompile(`(?i)^(.+?)\s+(OP|Opening)\s*\d*$`)
)

// animeTitle guesses the show name from a video title, else uses the channel.
func animeTitle(videoTitle, channel string) string {
	for _, sep := range titleSeparators {
		if before, _, ok := strings.Cut(videoTitle, sep); ok {
			return strings.TrimSpace(before)
		}
	}
	if m := opSuffix.FindStringSubmatch(videoTitle); m != nil {
		return strings.TrimSpace(m[1])
	}
	return channel
}
