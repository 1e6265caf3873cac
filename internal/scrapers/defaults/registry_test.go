package defaults

import (
	"testing"

	"github.com/woztorrentz/torrent-api/internal/scrapers"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

func TestNewRegistryWiresDefaultTable(t *testing.T) {
	table, err := sites.Default()
	if err != nil {
		t.Fatalf("default table: %v", err)
	}

	registry, err := NewRegistry(table, Options{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	for _, key := range []string{"piratebay", "kickass", "limetorrents"} {
		scraper, descriptor, ok := registry.New(key)
		if !ok {
			t.Fatalf("expected %s to be registered", key)
		}
		if scraper.Key() != key || descriptor.Key != key {
			t.Fatalf("unexpected scraper %q for %s", scraper.Key(), key)
		}
	}

	scraper, _, _ := registry.New("piratebay")
	if _, ok := scraper.(scrapers.CategoryBrowser); !ok {
		t.Fatalf("expected piratebay to browse categories")
	}
	kickass, _, _ := registry.New("kickass")
	if _, ok := kickass.(scrapers.CategoryBrowser); ok {
		t.Fatalf("expected kickass not to browse categories")
	}
}

func TestNewRegistryReportsUnknownSites(t *testing.T) {
	table := []sites.Descriptor{
		{Key: "piratebay", Name: "Pirate Bay", BaseURL: "https://pb.example", Limit: 50},
		{Key: "nyaa", Name: "Nyaa", BaseURL: "https://nyaa.example", Limit: 50},
	}

	registry, err := NewRegistry(table, Options{})
	if err == nil {
		t.Fatalf("expected error for site without scraper")
	}
	if len(registry.List()) != 1 {
		t.Fatalf("expected known sites to stay active")
	}
}
