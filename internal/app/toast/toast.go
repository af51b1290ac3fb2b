// Package toast implements the engine's notification sinks: a persisted
// feed with a delivery policy, a log sink and a fan-out.
package toast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ascend-hq/ascend/internal/domain"
)

// Store is the persistence a Feed needs.
type Store interface {
	InsertNotification(n domain.Notification) (int64, error)
	NotificationCountSince(since time.Time) (int, error)
	ListPendingNotifications(limit int) ([]domain.Notification, error)
	ListNotifications(limit int) ([]domain.Notification, error)
	MarkNotificationShown(id int64) error
}

// Feed stores toasts for later display, subject to a NotificationPolicy.
type Feed struct {
	store  Store
	policy domain.NotificationPolicy
	loc    *time.Location
	now    func() time.Time
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithPolicy sets the delivery policy.
func WithPolicy(p domain.NotificationPolicy) FeedOption {
	return func(f *Feed) { f.policy = p }
}

// WithLocation sets the time zone used for quiet hours and the daily cap.
func WithLocation(loc *time.Location) FeedOption {
	return func(f *Feed) {
		if loc != nil {
			f.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) FeedOption {
	return func(f *Feed) { f.now = now }
}

// NewFeed creates a feed with the default (unlimited) policy.
func NewFeed(store Store, opts ...FeedOption) *Feed {
	f := &Feed{
		store:  store,
		policy: domain.DefaultNotificationPolicy(),
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Notify stores n unless the policy suppresses it. Suppression is not an
// error.
func (f *Feed) Notify(n domain.Notification) error {
	_, err := f.Create(n)
	return err
}

// Create stores n and returns its id, or 0 when the policy suppressed it.
func (f *Feed) Create(n domain.Notification) (int64, error) {
	now := f.now().In(f.loc)

	if f.policy.MaxPerDay > 0 {
		y, m, d := now.Date()
		startOfDay := time.Date(y, m, d, 0, 0, 0, 0, f.loc)
		count, err := f.store.NotificationCountSince(startOfDay)
		if err != nil {
			return 0, fmt.Errorf("count today: %w", err)
		}
		if count >= f.policy.MaxPerDay {
			return 0, nil
		}
	}
	if f.isQuietHour(now) {
		return 0, nil
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.Shown = false

	id, err := f.store.InsertNotification(n)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	return id, nil
}

// Pending returns unshown notifications, newest first.
func (f *Feed) Pending(limit int) ([]domain.Notification, error) {
	return f.store.ListPendingNotifications(limit)
}

// Recent returns notifications regardless of shown state, newest first.
func (f *Feed) Recent(limit int) ([]domain.Notification, error) {
	return f.store.ListNotifications(limit)
}

// MarkShown marks a notification as shown.
func (f *Feed) MarkShown(id int64) error {
	return f.store.MarkNotificationShown(id)
}

// Policy returns the active policy.
func (f *Feed) Policy() domain.NotificationPolicy {
	return f.policy
}

// isQuietHour reports whether t falls within quiet hours. Equal or missing
// bounds disable quiet hours.
func (f *Feed) isQuietHour(t time.Time) bool {
	if f.policy.QuietStart == "" || f.policy.QuietEnd == "" {
		return false
	}
	startHour, startMin := parseHHMM(f.policy.QuietStart)
	endHour, endMin := parseHHMM(f.policy.QuietEnd)

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	switch {
	case startMinutes == endMinutes:
		return false
	case startMinutes > endMinutes:
		// Wraps midnight, e.g. 22:00 to 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}

// ─── Log Sink ───────────────────────────────────────────────────────────────

// LogSink writes toasts to a logger.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

// Notify logs n at info level.
func (s *LogSink) Notify(n domain.Notification) error {
	s.log.Info(n.Title,
		zap.String("type", string(n.Type)),
		zap.String("body", n.Body),
	)
	return nil
}

// ─── Fan-out ────────────────────────────────────────────────────────────────

// Sink is anything that accepts a toast.
type Sink interface {
	Notify(n domain.Notification) error
}

// Multi delivers to every sink and joins their errors.
type Multi []Sink

// Notify calls every sink, even after one fails.
func (m Multi) Notify(n domain.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
