package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/woztorrentz/torrent-api/internal/models"
	"github.com/woztorrentz/torrent-api/internal/notifications"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
)

type checkRepository interface {
	Insert(ctx context.Context, check models.SiteCheck) (int64, error)
	LatestBySite(ctx context.Context) (map[string]models.SiteCheck, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

type healthSource interface {
	Health(ctx context.Context) []scrapers.HealthStatus
}

type PollerConfig struct {
	// Schedule is a standard cron spec or descriptor such as "@every 15m".
	Schedule     string
	CheckTimeout time.Duration
	KeepChecks   int
}

// Poller probes every site on a cron schedule, records the outcome and
// notifies when a site flips between available and unavailable.
type Poller struct {
	repo     checkRepository
	sites    healthSource
	notifier notifications.Notifier
	cfg      PollerConfig
	cron     *cron.Cron
	logger   *slog.Logger
}

func NewPoller(repo checkRepository, sites healthSource, notifier notifications.Notifier, cfg PollerConfig, logger *slog.Logger) (*Poller, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 30 * time.Second
	}
	if cfg.KeepChecks <= 0 {
		cfg.KeepChecks = 500
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse status schedule %q: %w", cfg.Schedule, err)
	}

	return &Poller{
		repo:     repo,
		sites:    sites,
		notifier: notifier,
		cfg:      cfg,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger,
	}, nil
}

// Start runs one check immediately, then on every schedule tick until ctx is
// done.
func (p *Poller) Start(ctx context.Context) error {
	if _, err := p.cron.AddFunc(p.cfg.Schedule, func() { p.runLogged(ctx, "status poll failed") }); err != nil {
		return fmt.Errorf("schedule status poll: %w", err)
	}

	p.logger.Info("status poller started", "schedule", p.cfg.Schedule)
	go p.runLogged(ctx, "initial status poll failed")
	p.cron.Start()

	go func() {
		<-ctx.Done()
		<-p.cron.Stop().Done()
		p.logger.Info("status poller stopped")
	}()

	return nil
}

// StopWait stops the schedule and waits up to timeout for a running poll.
func (p *Poller) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.cron.Stop().Done():
	case <-time.After(timeout):
	}
}

func (p *Poller) runLogged(ctx context.Context, message string) {
	if err := p.RunOnce(ctx); err != nil {
		p.logger.Warn(message, "error", err)
	}
}

func (p *Poller) RunOnce(ctx context.Context) error {
	previous, err := p.repo.LatestBySite(ctx)
	if err != nil {
		return fmt.Errorf("load latest site checks: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
	statuses := p.sites.Health(checkCtx)
	cancel()

	now := time.Now().UTC()
	for _, status := range statuses {
		check := models.SiteCheck{
			SiteKey:   status.Key,
			Available: status.Healthy,
			LatencyMS: status.LatencyMS,
			CheckedAt: now,
		}
		if status.Error != "" {
			reason := status.Error
			check.Error = &reason
		}

		if _, err := p.repo.Insert(ctx, check); err != nil {
			p.logger.Warn("record site check failed", "site", status.Key, "error", err)
			continue
		}

		last, seen := previous[status.Key]
		if !seen || last.Available == status.Healthy {
			continue
		}

		p.logger.Info("site availability changed", "site", status.Key, "available", status.Healthy)
		message := notifications.SiteStatusChanged(status.Key, status.Name, status.Healthy, status.Error, now)
		if err := p.notifier.Notify(ctx, message); err != nil {
			p.logger.Warn("site status notification failed", "site", status.Key, "error", err)
		}
	}

	if removed, err := p.repo.Prune(ctx, p.cfg.KeepChecks); err != nil {
		p.logger.Warn("prune site checks failed", "error", err)
	} else if removed > 0 {
		p.logger.Debug("pruned site checks", "removed", removed)
	}

	return nil
}
