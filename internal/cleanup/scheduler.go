// Package cleanup runs the periodic pruning jobs: push subscriptions that
// stopped receiving deliveries and read notifications past retention.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSubscriptionSpec = "0 0 3 * * *"
	DefaultNotificationSpec = "0 30 3 * * *"
	jobTimeout              = 5 * time.Minute
)

type Subscriptions interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

type Notifications interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Config controls the jobs. A zero age disables that job.
type Config struct {
	StaleSubscriptionAge  time.Duration
	NotificationRetention time.Duration
	SubscriptionSpec      string
	NotificationSpec      string
	Location              *time.Location
}

// Result reports how many rows one pass removed.
type Result struct {
	Subscriptions int64 `json:"subscriptions"`
	Notifications int64 `json:"notifications"`
}

// Scheduler runs the cleanup jobs on a cron schedule.
type Scheduler struct {
	mu     sync.Mutex
	cfg    Config
	subs   Subscriptions
	notifs Notifications
	logger *slog.Logger
	now    func() time.Time
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(subs Subscriptions, notifs Notifications, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.SubscriptionSpec == "" {
		cfg.SubscriptionSpec = DefaultSubscriptionSpec
	}
	if cfg.NotificationSpec == "" {
		cfg.NotificationSpec = DefaultNotificationSpec
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		cfg:    cfg,
		subs:   subs,
		notifs: notifs,
		logger: logger,
		now:    time.Now,
	}
}

// Start registers the enabled jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New(cron.WithSeconds(), cron.WithLocation(s.cfg.Location))
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.cfg.StaleSubscriptionAge > 0 {
		if _, err := c.AddFunc(s.cfg.SubscriptionSpec, s.runSubscriptions); err != nil {
			s.cancel()
			return fmt.Errorf("schedule subscription cleanup: %w", err)
		}
	}
	if s.cfg.NotificationRetention > 0 {
		if _, err := c.AddFunc(s.cfg.NotificationSpec, s.runNotifications); err != nil {
			s.cancel()
			return fmt.Errorf("schedule notification cleanup: %w", err)
		}
	}

	s.cron = c
	c.Start()
	s.logger.Info("cleanup scheduler started", "jobs", len(c.Entries()))
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func (s *Scheduler) runSubscriptions() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	if _, err := s.PruneSubscriptions(ctx); err != nil {
		s.logger.Error("subscription cleanup", "error", err)
	}
}

func (s *Scheduler) runNotifications() {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	if _, err := s.PruneNotifications(ctx); err != nil {
		s.logger.Error("notification cleanup", "error", err)
	}
}

// PruneSubscriptions deletes subscriptions idle longer than the configured age.
func (s *Scheduler) PruneSubscriptions(ctx context.Context) (int64, error) {
	if s.cfg.StaleSubscriptionAge <= 0 {
		return 0, nil
	}
	n, err := s.subs.DeleteStale(ctx, s.now().Add(-s.cfg.StaleSubscriptionAge))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("removed stale push subscriptions", "count", n)
	}
	return n, nil
}

// PruneNotifications deletes read notifications past retention.
func (s *Scheduler) PruneNotifications(ctx context.Context) (int64, error) {
	if s.cfg.NotificationRetention <= 0 {
		return 0, nil
	}
	n, err := s.notifs.DeleteOlderThan(ctx, s.now().Add(-s.cfg.NotificationRetention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("removed old notifications", "count", n)
	}
	return n, nil
}

// RunOnce runs every enabled job immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	var err error
	if res.Subscriptions, err = s.PruneSubscriptions(ctx); err != nil {
		return res, fmt.Errorf("prune subscriptions: %w", err)
	}
	if res.Notifications, err = s.PruneNotifications(ctx); err != nil {
		return res, fmt.Errorf("prune notifications: %w", err)
	}
	return res, nil
}
