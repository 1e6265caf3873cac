// Package sites holds the table of supported torrent sites and what each one
// can do. The table is YAML; a default copy is embedded in the binary.
package sites

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const DefaultLimit = 50

type Descriptor struct {
	Key                     string         `yaml:"key" json:"key"`
	Name                    string         `yaml:"name" json:"name"`
	BaseURL                 string         `yaml:"base_url" json:"baseUrl"`
	Enabled                 *bool          `yaml:"enabled" json:"-"`
	TrendingAvailable       bool           `yaml:"trending_available" json:"trendingAvailable"`
	TrendingCategory        bool           `yaml:"trending_category" json:"trendingCategory"`
	RecentAvailable         bool           `yaml:"recent_available" json:"recentAvailable"`
	RecentCategoryAvailable bool           `yaml:"recent_category_available" json:"recentCategoryAvailable"`
	Top100Available         bool           `yaml:"top_100_available" json:"top100Available"`
	Top100CategoryAvailable bool           `yaml:"top_100_category_available" json:"top100CategoryAvailable"`
	Categories              []string       `yaml:"categories" json:"categories"`
	Top100Categories        map[string]int `yaml:"top_100_categories" json:"top100Categories,omitempty"`
	Limit                   int            `yaml:"limit" json:"limit"`
}

// Category is one browse category in display form.
type Category struct {
	Value string `json:"value"`
	Label string `json:"label"`
	ID    int    `json:"id"`
}

// NormalizeKey is the lookup form of a site key: trimmed and lower-case.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (d *Descriptor) normalizeAndValidate() error {
	d.Key = NormalizeKey(d.Key)
	d.Name = strings.TrimSpace(d.Name)
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")

	if d.Key == "" {
		return fmt.Errorf("key is required")
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsed, err := url.Parse(d.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) url")
	}

	if d.Limit <= 0 {
		d.Limit = DefaultLimit
	}
	if d.Categories == nil {
		d.Categories = []string{}
	}

	for name, id := range d.Top100Categories {
		if id <= 0 {
			return fmt.Errorf("top_100_categories.%s must be a positive id", name)
		}
	}

	return nil
}

func (d Descriptor) isEnabled() bool {
	if d.Enabled == nil {
		return true
	}
	return *d.Enabled
}

// CategoryID resolves a browse category name such as "hd_movies".
func (d Descriptor) CategoryID(name string) (int, bool) {
	id, ok := d.Top100Categories[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// CategoryNames lists browse category names in id order.
func (d Descriptor) CategoryNames() []string {
	items := d.FormattedCategories()
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Value)
	}
	return names
}

// FormattedCategories returns browse categories for display, ordered by id
// with hd_movies first since it is the default listing.
func (d Descriptor) FormattedCategories() []Category {
	items := make([]Category, 0, len(d.Top100Categories))
	for name, id := range d.Top100Categories {
		items = append(items, Category{Value: name, Label: labelFor(name), ID: id})
	}

	sort.Slice(items, func(i, j int) bool {
		if (items[i].Value == "hd_movies") != (items[j].Value == "hd_movies") {
			return items[i].Value == "hd_movies"
		}
		if items[i].ID != items[j].ID {
			return items[i].ID < items[j].ID
		}
		return items[i].Value < items[j].Value
	})

	return items
}

func labelFor(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for index, word := range words {
		words[index] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
