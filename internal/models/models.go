package models

import "time"

// SiteCheck is one availability probe of a torrent site.
type SiteCheck struct {
	ID        int64     `json:"id"`
	SiteKey   string    `json:"siteKey"`
	Available bool      `json:"available"`
	Error     *string   `json:"error,omitempty"`
	LatencyMS int64     `json:"latencyMs"`
	CheckedAt time.Time `json:"checkedAt"`
}
