package scrapers

import (
	"fmt"
	"sort"
	"time"

	"github.com/woztorrentz/torrent-api/internal/textnorm"
)

// NewResult sorts records by seeders (highest first), keeps at most limit of
// them and stamps the elapsed time since started. A limit below 1 keeps all.
func NewResult(records []TorrentRecord, limit int, started time.Time) *Result {
	data := make([]TorrentRecord, len(records))
	copy(data, records)

	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Seeders > data[j].Seeders
	})

	if limit > 0 && len(data) > limit {
		data = data[:limit]
	}

	return &Result{
		Data:  data,
		Total: len(data),
		Time:  time.Since(started).Seconds(),
	}
}

// Unavailable wraps a fetch failure so that errors.Is(err, ErrUnavailable)
// holds while the cause stays visible in logs.
func Unavailable(endpoint string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, cause)
}

// Keep reports whether a record satisfies the output invariants: English,
// seeded, absolute url and a well-formed or placeholder hash.
func Keep(record TorrentRecord) bool {
	if record.Seeders < 1 || record.Name == "" {
		return false
	}
	if record.Language != textnorm.English {
		return false
	}
	if !IsInfoHash(record.Hash) {
		return false
	}
	return IsAbsoluteURL(record.URL)
}
