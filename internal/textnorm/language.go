// Package textnorm normalizes scraped torrent titles: a keyword heuristic for
// the title language and a repair pass for double-decoded (mojibake) text.
package textnorm

import (
	"regexp"
	"strings"
)

const English = "English"

type languageRule struct {
	name     string
	patterns []*regexp.Regexp
}

// Order matters: the first language with a matching pattern wins.
var languageRules = []languageRule{
	{name: "Russian", patterns: compileAll(`\b(rus)\b`)},
	{name: "Spanish", patterns: compileAll(`\b(spa|esp|spanish)\b`)},
	{name: "French", patterns: compileAll(`\b(fr|french)\b`)},
	{name: "German", patterns: compileAll(`\b(ger|german)\b`)},
	{name: "Italian", patterns: compileAll(`\b(ita|italian)\b`)},
	{name: "Hindi", patterns: compileAll(`\b(hindi)\b`)},
	{name: "Korean", patterns: compileAll(`\b(kor|korean)\b`)},
	{name: "Japanese", patterns: compileAll(`\b(jap|japanese)\b`)},
	{name: "Chinese", patterns: compileAll(`\b(chs|cht|chinese)\b`)},
	{name: "Portuguese", patterns: compileAll(`\b(pt|portuguese)\b`)},
	{name: "Dutch", patterns: compileAll(`\b(nl|dutch)\b`)},
	{name: "Swedish", patterns: compileAll(`\b(swe|swedish)\b`)},
	{name: "Norwegian", patterns: compileAll(`\b(nor|norwegian)\b`)},
	{name: "Danish", patterns: compileAll(`\b(dan|danish)\b`)},
	{name: "Finnish", patterns: compileAll(`\b(fin|finnish)\b`)},
}

func compileAll(raw ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(raw))
	for _, pattern := range raw {
		compiled = append(compiled, regexp.MustCompile(pattern))
	}
	return compiled
}

// DetectLanguage guesses the language of a torrent title from keyword tags
// such as "RUS" or "French". Titles without a known tag are English. The
// result is deterministic but not accurate: "Fin" in an English title reads
// as Finnish.
func DetectLanguage(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range languageRules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(lower) {
				return rule.name
			}
		}
	}
	return English
}

// IsEnglish reports whether DetectLanguage classifies name as English.
func IsEnglish(name string) bool {
	return DetectLanguage(name) == English
}
