package textnorm

import (
	"html"
	"strings"
)

// maxUnescapePasses bounds entity decoding of nested escapes such as
// "&amp;amp;".
const maxUnescapePasses = 8

type replacement struct {
	bad  string
	good string
}

// UTF-8 bytes read as Windows-1252. Longer sequences sharing a prefix must
// come first: "â€" alone is the last of its family and "Â" the last overall.
var mojibakeTable = []replacement{
	{bad: "â€\u201d", good: "—"},
	{bad: "â€\u201c", good: "–"},
	{bad: "â€œ", good: `"`},
	{bad: "â€\u009d", good: `"`},
	{bad: "â€™", good: "'"},
	{bad: "â€˜", good: "'"},
	{bad: "â€¦", good: "..."},
	{bad: "â€¢", good: "•"},
	{bad: "â€¹", good: "‹"},
	{bad: "â€º", good: "›"},
	{bad: "â€", good: `"`},
	{bad: "Â«", good: "«"},
	{bad: "Â»", good: "»"},
	{bad: "Â\u00a0", good: " "},
	{bad: "Ã©", good: "é"},
	{bad: "Ã¡", good: "á"},
	{bad: "Ã\u00ad", good: "í"},
	{bad: "Ã³", good: "ó"},
	{bad: "Ãº", good: "ú"},
	{bad: "Ã±", good: "ñ"},
	{bad: "Ã¼", good: "ü"},
	{bad: "Ã¶", good: "ö"},
	{bad: "Ã¤", good: "ä"},
	{bad: "Ã§", good: "ç"},
	{bad: "Â", good: " "},
}

// RepairEncoding decodes HTML entities until none remain, maps known mojibake
// sequences back to the characters they came from and collapses whitespace.
// The function is idempotent.
func RepairEncoding(text string) string {
	if text == "" {
		return text
	}

	repaired := unescapeAll(text)
	if strings.ContainsAny(repaired, "âÃÂ") {
		for _, item := range mojibakeTable {
			repaired = strings.ReplaceAll(repaired, item.bad, item.good)
		}
	}

	return CollapseWhitespace(repaired)
}

func unescapeAll(text string) string {
	for pass := 0; pass < maxUnescapePasses; pass++ {
		decoded := html.UnescapeString(text)
		if decoded == text {
			break
		}
		text = decoded
	}
	return text
}

// CollapseWhitespace trims text and folds every whitespace run into one space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
