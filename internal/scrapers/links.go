package scrapers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

var (
	infoHashPattern    = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	btihPattern        = regexp.MustCompile(`(?i)urn:btih:([0-9a-f]{40})`)
	embeddedHashFinder = regexp.MustCompile(`(?i)([0-9a-f]{40})`)
)

// AbsoluteURL resolves href against base. Scheme-relative links take the
// base scheme, root-relative and bare paths are appended to the base root.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	lowered := strings.ToLower(href)
	if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
		return href
	}

	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasPrefix(href, "//") {
		scheme := "https"
		if parsed, err := url.Parse(base); err == nil && parsed.Scheme != "" {
			scheme = parsed.Scheme
		}
		return scheme + ":" + href
	}

	if strings.HasPrefix(href, "/") {
		return base + href
	}
	return base + "/" + href
}

func IsAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func IsInfoHash(value string) bool {
	return infoHashPattern.MatchString(value)
}

// HashFromMagnet extracts the lower-case hex info-hash from a magnet link.
// Base32 hashes are converted to hex.
func HashFromMagnet(magnet string) (string, bool) {
	if parsed, err := metainfo.ParseMagnetUri(strings.TrimSpace(magnet)); err == nil {
		return parsed.InfoHash.HexString(), true
	}

	match := btihPattern.FindStringSubmatch(magnet)
	if len(match) == 2 {
		return strings.ToLower(match[1]), true
	}
	return "", false
}

// HashFromLink finds a 40-hex info-hash embedded anywhere in a link, such as
// a .torrent cache url.
func HashFromLink(link string) (string, bool) {
	match := embeddedHashFinder.FindStringSubmatch(link)
	if len(match) == 2 {
		return strings.ToLower(match[1]), true
	}
	return "", false
}

// MagnetFor builds a magnet link for a hex info-hash and display name.
func MagnetFor(hash, name string) string {
	var infoHash metainfo.Hash
	if err := infoHash.FromHexString(hash); err != nil {
		return ""
	}
	return metainfo.Magnet{InfoHash: infoHash, DisplayName: name}.String()
}
