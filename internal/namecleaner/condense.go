package namecleaner

import (
	"regexp"
	"strings"
)

const ellipsis = "..."

var (
	qualityTagPattern   = regexp.MustCompile(`(?i)\s*[\[\(][^\]\)]*(?:720p|1080p|2160p|4K|BluRay|WEB-DL|WEBRip|HDRip|BRRip|DVDRip|x264|x265|H\.264|H\.265|HEVC|AAC|AC3|DTS|MP3)[^\]\)]*[\]\)]`)
	trailingYearPattern = regexp.MustCompile(`\s*\(\d{4}\)\s*$`)
	releaseGroupPattern = regexp.MustCompile(`\s*-\s*[A-Z0-9]+\s*$`)
	videoExtPattern     = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|mov|wmv|flv|webm|m4v)$`)
)

var descriptionBreaks = []string{". ", "! ", "? ", ", "}

// Condense shortens a display name to at most maxLen characters by dropping
// quality tags, a trailing year, a release group suffix and a video
// extension before truncating with "...".
func Condense(name string, maxLen int) string {
	if runeLen(name) <= maxLen {
		return name
	}

	condensed := qualityTagPattern.ReplaceAllString(name, "")
	condensed = trailingYearPattern.ReplaceAllString(condensed, "")
	condensed = releaseGroupPattern.ReplaceAllString(condensed, "")
	condensed = videoExtPattern.ReplaceAllString(condensed, "")
	condensed = strings.Join(strings.Fields(condensed), " ")

	if runeLen(condensed) > maxLen {
		condensed = truncate(condensed, maxLen)
	}

	return strings.TrimSpace(condensed)
}

// CondenseDescription cuts text at the last sentence or comma boundary that
// fits in maxLen, falling back to a hard cut.
func CondenseDescription(text string, maxLen int) string {
	if runeLen(text) <= maxLen {
		return text
	}
	if maxLen <= len(ellipsis) {
		return string([]rune(text)[:max(maxLen, 0)])
	}

	head := string([]rune(text)[:maxLen-len(ellipsis)])
	best := 0
	for _, boundary := range descriptionBreaks {
		if pos := strings.LastIndex(head, boundary); pos >= 0 && pos+len(boundary) > best {
			best = pos + len(boundary)
		}
	}

	if best > 0 {
		return strings.TrimSpace(head[:best]) + ellipsis
	}
	return head + ellipsis
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= len(ellipsis) {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

func runeLen(text string) int {
	return len([]rune(text))
}
