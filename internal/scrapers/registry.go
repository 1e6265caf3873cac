package scrapers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/woztorrentz/torrent-api/internal/sites"
)

// Registry maps site keys to scraper factories and the site table entry that
// governs which operations may be called.
type Registry struct {
	mu          sync.RWMutex
	factories   map[string]Factory
	descriptors map[string]sites.Descriptor
}

type HealthStatus struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func NewRegistry() *Registry {
	return &Registry{
		factories:   map[string]Factory{},
		descriptors: map[string]sites.Descriptor{},
	}
}

func (r *Registry) Register(key string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("factory is nil")
	}

	normalized := sites.NormalizeKey(key)
	if normalized == "" {
		return fmt.Errorf("site key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[normalized]; exists {
		return fmt.Errorf("site %q already registered", normalized)
	}

	r.factories[normalized] = factory
	return nil
}

// Apply replaces the site table. Entries without a registered scraper are
// skipped and reported in the returned error; the rest still take effect.
func (r *Registry) Apply(table []sites.Descriptor) error {
	next := make(map[string]sites.Descriptor, len(table))
	skipped := make([]string, 0)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, descriptor := range table {
		key := sites.NormalizeKey(descriptor.Key)
		if _, ok := r.factories[key]; !ok {
			skipped = append(skipped, key)
			continue
		}
		next[key] = descriptor
	}
	r.descriptors = next

	if len(skipped) > 0 {
		sort.Strings(skipped)
		return fmt.Errorf("no scraper for sites: %s", strings.Join(skipped, ", "))
	}
	return nil
}

// Lookup resolves a site key case-insensitively.
func (r *Registry) Lookup(key string) (sites.Descriptor, Factory, bool) {
	normalized := sites.NormalizeKey(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	descriptor, ok := r.descriptors[normalized]
	if !ok {
		return sites.Descriptor{}, nil, false
	}
	factory, ok := r.factories[normalized]
	if !ok {
		return sites.Descriptor{}, nil, false
	}
	return descriptor, factory, true
}

// New builds a fresh scraper for key.
func (r *Registry) New(key string) (Scraper, sites.Descriptor, bool) {
	descriptor, factory, ok := r.Lookup(key)
	if !ok {
		return nil, sites.Descriptor{}, false
	}
	return factory(descriptor), descriptor, true
}

// List returns the active site table ordered by key.
func (r *Registry) List() []sites.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]sites.Descriptor, 0, len(r.descriptors))
	for _, descriptor := range r.descriptors {
		items = append(items, descriptor)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})

	return items
}

// Health probes every active site with a fresh scraper.
func (r *Registry) Health(ctx context.Context) []HealthStatus {
	r.mu.RLock()
	list := make([]Scraper, 0, len(r.descriptors))
	for key, descriptor := range r.descriptors {
		list = append(list, r.factories[key](descriptor))
	}
	r.mu.RUnlock()

	statuses := make([]HealthStatus, 0, len(list))
	for _, scraper := range list {
		started := time.Now()
		err := scraper.HealthCheck(ctx)
		status := HealthStatus{
			Key:       scraper.Key(),
			Name:      scraper.Name(),
			Healthy:   err == nil,
			LatencyMS: time.Since(started).Milliseconds(),
		}
		if err != nil {
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Key < statuses[j].Key
	})

	return statuses
}
