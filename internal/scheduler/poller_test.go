package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/woztorrentz/torrent-api/internal/models"
	"github.com/woztorrentz/torrent-api/internal/notifications"
	"github.com/woztorrentz/torrent-api/internal/scrapers"
)

type fakeRepo struct {
	latest   map[string]models.SiteCheck
	inserted []models.SiteCheck
	pruned   int
	listErr  error
}

func (f *fakeRepo) Insert(_ context.Context, check models.SiteCheck) (int64, error) {
	f.inserted = append(f.inserted, check)
	return int64(len(f.inserted)), nil
}

func (f *fakeRepo) LatestBySite(context.Context) (map[string]models.SiteCheck, error) {
	return f.latest, f.listErr
}

func (f *fakeRepo) Prune(_ context.Context, keep int) (int64, error) {
	f.pruned = keep
	return 0, nil
}

type fakeSites struct {
	statuses []scrapers.HealthStatus
}

func (f fakeSites) Health(context.Context) []scrapers.HealthStatus {
	return f.statuses
}

type fakeNotifier struct {
	messages []notifications.Message
}

func (f *fakeNotifier) Notify(_ context.Context, message notifications.Message) error {
	f.messages = append(f.messages, message)
	return nil
}

func TestPollerRunOnce_RecordsChecksAndNotifiesOnFlip(t *testing.T) {
	repo := &fakeRepo{latest: map[string]models.SiteCheck{
		"piratebay": {SiteKey: "piratebay", Available: true},
		"kickass":   {SiteKey: "kickass", Available: true},
	}}
	sites := fakeSites{statuses: []scrapers.HealthStatus{
		{Key: "kickass", Name: "Kickass", Healthy: true, LatencyMS: 80},
		{Key: "limetorrents", Name: "Limetorrents", Healthy: false, Error: "site unavailable"},
		{Key: "piratebay", Name: "Pirate Bay", Healthy: false, Error: "site unavailable: unexpected status: 403"},
	}}
	notifier := &fakeNotifier{}

	poller, err := NewPoller(repo, sites, notifier, PollerConfig{Schedule: "@every 1m", KeepChecks: 50}, nil)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if len(repo.inserted) != 3 {
		t.Fatalf("expected 3 checks recorded, got %d", len(repo.inserted))
	}
	if repo.inserted[1].Error == nil || repo.inserted[0].Error != nil {
		t.Fatalf("expected error text only on failed checks: %#v", repo.inserted)
	}
	if len(notifier.messages) != 1 || notifier.messages[0].Title != "Pirate Bay unavailable" {
		t.Fatalf("expected one flip notification, got %#v", notifier.messages)
	}
	if repo.pruned != 50 {
		t.Fatalf("expected prune with keep 50, got %d", repo.pruned)
	}
}

func TestPollerRunOnce_FailsWhenHistoryUnavailable(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("database is locked")}
	poller, err := NewPoller(repo, fakeSites{}, nil, PollerConfig{}, nil)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	if err := poller.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewPollerRejectsInvalidSchedule(t *testing.T) {
	if _, err := NewPoller(&fakeRepo{}, fakeSites{}, nil, PollerConfig{Schedule: "every now and then"}, nil); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestPollerStartRunsInitialCheck(t *testing.T) {
	repo := &recordingRepo{inserted: make(chan models.SiteCheck, 4)}
	sites := fakeSites{statuses: []scrapers.HealthStatus{{Key: "kickass", Name: "Kickass", Healthy: true}}}

	poller, err := NewPoller(repo, sites, nil, PollerConfig{Schedule: "@every 1h"}, nil)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := poller.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case check := <-repo.inserted:
		if check.SiteKey != "kickass" || !check.Available {
			t.Fatalf("unexpected check %#v", check)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected initial check to run")
	}

	cancel()
	poller.StopWait(time.Second)
}

type recordingRepo struct {
	inserted chan models.SiteCheck
}

func (r *recordingRepo) Insert(_ context.Context, check models.SiteCheck) (int64, error) {
	r.inserted <- check
	return 1, nil
}

func (r *recordingRepo) LatestBySite(context.Context) (map[string]models.SiteCheck, error) {
	return map[string]models.SiteCheck{}, nil
}

func (r *recordingRepo) Prune(context.Context, int) (int64, error) {
	return 0, nil
}
