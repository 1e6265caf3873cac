// Package namecleaner recovers single torrent titles from scraped text that
// sometimes contains a whole results page, and shortens long titles.
package namecleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxRawLength  = 2000
	postedBy      = "Posted by"
	tabularHeader = "torrent name size uploader age seed leech"
)

var (
	summaryHeaderPattern  = regexp.MustCompile(`(?i)\w+\s+results\s+\d+-\d+\s+from\s+\d+\s+torrent.*?leech\s*`)
	residualHeaderPattern = regexp.MustCompile(`(?i)^.*?(?:seed|leech)\s+`)
	leadingDigitsPattern  = regexp.MustCompile(`^\d+\s*`)
	numericTokenPattern   = regexp.MustCompile(`^\d+\w*$`)
)

var stopTokens = map[string]struct{}{
	"posted": {},
	"by":     {},
	"gb":     {},
	"mb":     {},
	"kb":     {},
	"tb":     {},
}

// IsConcatenated reports whether text looks like several results glued
// together rather than one title.
func IsConcatenated(text string) bool {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "results") && strings.Contains(lower, "from"):
		return true
	case strings.Contains(lower, tabularHeader):
		return true
	case strings.Count(text, postedBy) > 2:
		return true
	case strings.Count(text, "GB") > 3 && strings.Count(text, "MB") > 3:
		return true
	}
	return false
}

// CleanConcatenated returns the best single title it can find in text.
// Text longer than 2000 characters is treated as a full page and yields "".
// A single "Posted by" suffix is cut off; clean titles come back unchanged.
func CleanConcatenated(text string) string {
	if text == "" {
		return text
	}

	if utf8.RuneCountInString(text) > maxRawLength {
		return ""
	}

	if IsConcatenated(text) {
		if recovered, ok := recoverTitle(text); ok {
			return recovered
		}
	}

	if strings.Count(text, postedBy) == 1 {
		before, _, _ := strings.Cut(text, postedBy)
		return strings.TrimSpace(before)
	}

	return text
}

func recoverTitle(text string) (string, bool) {
	cleaned := summaryHeaderPattern.ReplaceAllString(text, "")

	if before, _, found := strings.Cut(cleaned, postedBy); found {
		candidate := strings.TrimSpace(before)
		candidate = residualHeaderPattern.ReplaceAllString(candidate, "")
		candidate = leadingDigitsPattern.ReplaceAllString(candidate, "")
		if len(candidate) > 3 {
			return strings.TrimSpace(candidate), true
		}
	}

	var current []string
	for _, word := range strings.Fields(text) {
		if _, stop := stopTokens[strings.ToLower(word)]; stop {
			if len(current) > 0 {
				return strings.TrimSpace(strings.Join(current, " ")), true
			}
			continue
		}
		if !numericTokenPattern.MatchString(word) {
			current = append(current, word)
		}
	}

	return "", false
}
