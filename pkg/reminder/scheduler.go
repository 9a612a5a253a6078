package reminder

import (
	"context"
	"log/slog"
	"time"
)

// Notifier renders a short spoken notification for a due reminder. The
// dialogue session implements this with a one-off model call.
type Notifier interface {
	ReminderNotice(ctx context.Context, name string, at time.Time) (string, error)
}

// Announcer injects a notification into the speech output pipeline with
// reminder priority.
type Announcer interface {
	AnnounceReminder(text string)
}

// Scheduler polls the store at a fixed interval and announces due
// reminders. Failures on one tick are logged and retried on the next; the
// loop only stops when its context is cancelled.
type Scheduler struct {
	store     *Store
	notifier  Notifier
	announcer Announcer
	interval  time.Duration
	logger    *slog.Logger

	now func() time.Time
}

// NewScheduler creates a scheduler. Interval defaults to one second when
// zero or negative.
func NewScheduler(store *Store, notifier Notifier, announcer Announcer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     store,
		notifier:  notifier,
		announcer: announcer,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled. Intended to run on its own goroutine
// for the whole process lifetime.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes one poll iteration: remove every due reminder from the
// store, then announce it. Removal goes first so a store-write failure
// cannot re-announce the same reminder on the next tick; the reminder
// stays due and gets one announcement once removal succeeds.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	for _, r := range s.store.Due(now) {
		if err := s.store.Remove(r.ID); err != nil {
			s.logger.Warn("failed to remove due reminder, will retry", "id", r.ID, "name", r.Name, "error", err)
			continue
		}

		text := s.renderNotice(ctx, r)
		s.announcer.AnnounceReminder(text)
		s.logger.Info("reminder fired", "name", r.Name, "scheduled_for", time.Unix(r.RemindAt, 0))
	}
}

func (s *Scheduler) renderNotice(ctx context.Context, r Reminder) string {
	at := time.Unix(r.RemindAt, 0)
	if s.notifier != nil {
		text, err := s.notifier.ReminderNotice(ctx, r.Name, at)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			s.logger.Warn("reminder notice rendering failed, using fallback", "name", r.Name, "error", err)
		}
	}
	return "Reminder: " + r.Name
}
