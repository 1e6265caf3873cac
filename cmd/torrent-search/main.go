package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woztorrentz/torrent-api/internal/config"
	"github.com/woztorrentz/torrent-api/internal/dispatch"
	"github.com/woztorrentz/torrent-api/internal/namecleaner"
	"github.com/woztorrentz/torrent-api/internal/scrapers/defaults"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

func main() {
	var (
		site       = flag.String("site", "", "Site key (piratebay, kickass, limetorrents)")
		query      = flag.String("query", "", "Search query")
		page       = flag.Int("page", 1, "Result page")
		limit      = flag.Int("limit", 0, "Maximum records (0 = site default)")
		top100     = flag.Bool("top100", false, "Browse the top HD movies instead of searching")
		category   = flag.String("category", "", "Browse a top 100 category such as pc_games")
		categories = flag.Bool("categories", false, "List browse categories and exit")
		condense   = flag.Int("condense", 0, "Shorten names to at most this many characters (0 = off)")
		timeout    = flag.Duration("timeout", 60*time.Second, "Overall timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	table, err := sites.Load(cfg.SitesPath)
	if err != nil {
		slog.Error("failed to load site table", "path", cfg.SitesPath, "error", err)
		os.Exit(1)
	}

	registry, registryErr := defaults.NewRegistry(table, defaults.Options{
		Logger:                  logger,
		DetailWorkers:           cfg.DetailWorkers,
		DetailRequestsPerSecond: cfg.DetailRequestsPerSecond,
		LimetorrentsCookie:      cfg.LimetorrentsCookie,
	})
	if registryErr != nil {
		slog.Warn("site registry loaded with warnings", "error", registryErr)
	}
	dispatcher := dispatch.New(registry, dispatch.Options{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if *categories {
		items, descriptor, err := dispatcher.Categories(*site)
		if err != nil {
			exitWith(err)
		}
		writeJSON(map[string]any{"categories": items, "source": descriptor.Name})
		return
	}

	var response *dispatch.Response
	switch {
	case *category != "":
		response, err = dispatcher.Top100Category(ctx, *site, *category, *page, *limit)
	case *top100:
		response, err = dispatcher.Top100Movies(ctx, *site, *page, *limit)
	default:
		response, err = dispatcher.Search(ctx, *site, *query, *page, *limit)
	}
	if err != nil {
		exitWith(err)
	}

	if *condense > 0 {
		for index := range response.Data {
			response.Data[index].Name = namecleaner.Condense(response.Data[index].Name, *condense)
		}
	}
	writeJSON(response)
}

func writeJSON(output any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(output); err != nil {
		slog.Error("failed to write results", "error", err)
		os.Exit(1)
	}
}

func exitWith(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
