// Package refresh keeps an in-memory snapshot of the platform's upcoming
// events and configuration, refreshed on demand or on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"eventfeed/internal/clock"
	"eventfeed/internal/fetch"
	"eventfeed/internal/humanize"
	"eventfeed/internal/ical"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/model"
)

// Source is the subset of *fetch.Client the service drives.
type Source interface {
	FetchEvents(ctx context.Context) (fetch.EventsPage, error)
	FetchConfig(ctx context.Context) (model.FetchConfigResponse, error)
	FetchEventPicture(ctx context.Context, pictureURL *url.URL) ([]byte, error)
}

// Item is a decoded event with its label as of the refresh.
type Item struct {
	Event model.Event
	Label model.HumanReadableDateTime
}

// Snapshot is the outcome of the latest refresh. When one of the two
// queries fails, its part is carried over from the previous snapshot and
// the error text is recorded.
type Snapshot struct {
	UpdatedAt time.Time

	Items     []Item
	Failures  []string
	Total     int64
	EventsErr string

	Config    *model.FetchConfigResponse
	ConfigErr string

	Pictures map[uuid.UUID][]byte
}

// Events returns the decoded events in response order.
func (s Snapshot) Events() []model.Event {
	out := make([]model.Event, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it.Event)
	}
	return out
}

// Find returns the event with the given id.
func (s Snapshot) Find(id uuid.UUID) (model.Event, bool) {
	for _, it := range s.Items {
		if it.Event.ID == id {
			return it.Event, true
		}
	}
	return model.Event{}, false
}

type Service struct {
	source    Source
	clock     clock.Clock
	humanizer *humanize.Humanizer
	loc       *time.Location

	fetchPictures  bool
	pictureWorkers int
	icsPath        string

	// refreshMu serializes refreshes; mu guards snapshot.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	snapshot  Snapshot
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the zone used for labels and the cron schedule.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithPictures enables picture downloads with at most workers in flight.
func WithPictures(workers int) Option {
	return func(s *Service) {
		s.fetchPictures = true
		if workers > 0 {
			s.pictureWorkers = workers
		}
	}
}

// WithICSExport writes an iCalendar file to path after every refresh.
func WithICSExport(path string) Option {
	return func(s *Service) {
		s.icsPath = path
	}
}

func New(source Source, opts ...Option) *Service {
	s := &Service{
		source:         source,
		clock:          clock.NewSystem(),
		loc:            time.Local,
		pictureWorkers: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.humanizer = humanize.New(humanize.WithClock(s.clock), humanize.WithLocation(s.loc))
	return s
}

// Humanizer returns the humanizer used for labels, sharing the service clock.
func (s *Service) Humanizer() *humanize.Humanizer {
	return s.humanizer
}

// Snapshot returns the latest snapshot. The zero Snapshot means no refresh
// has completed yet.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh fetches config and events concurrently, then pictures, and stores
// the new snapshot. The returned error joins the config and events errors;
// the snapshot is stored either way.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	started := s.clock.Now()
	prev := s.Snapshot()

	var (
		page      fetch.EventsPage
		eventsErr error
		cfg       model.FetchConfigResponse
		configErr error
	)

	// Each query records its own error so one failure does not cancel the other.
	var g errgroup.Group
	g.Go(func() error {
		page, eventsErr = s.source.FetchEvents(ctx)
		return nil
	})
	g.Go(func() error {
		cfg, configErr = s.source.FetchConfig(ctx)
		return nil
	})
	_ = g.Wait()

	next := Snapshot{UpdatedAt: started}

	if eventsErr != nil {
		appLog.Error("events refresh failed", eventsErr)
		next.Items = prev.Items
		next.Failures = prev.Failures
		next.Total = prev.Total
		next.Pictures = prev.Pictures
		next.EventsErr = eventsErr.Error()
	} else {
		for _, r := range page.Results {
			if !r.OK() {
				next.Failures = append(next.Failures, r.Err.Error())
				continue
			}
			next.Items = append(next.Items, Item{
				Event: r.Event,
				Label: s.humanizer.BeginningAt(r.Event, started),
			})
		}
		next.Total = page.Total
		next.Pictures = s.fetchAllPictures(ctx, next.Items, prev.Pictures)
	}

	if configErr != nil {
		appLog.Error("config refresh failed", configErr)
		next.Config = prev.Config
		next.ConfigErr = configErr.Error()
	} else {
		next.Config = &cfg
	}

	if s.icsPath != "" && eventsErr == nil {
		if err := ical.WriteFile(s.icsPath, next.Events(), started); err != nil {
			appLog.Error("ics export failed", err, "path", s.icsPath)
		}
	}

	s.mu.Lock()
	s.snapshot = next
	s.mu.Unlock()

	appLog.Info("refresh completed",
		"events", len(next.Items),
		"failures", len(next.Failures),
		"total", next.Total,
		"pictures", len(next.Pictures),
		"elapsed", s.clock.Now().Sub(started),
	)

	return next, errors.Join(eventsErr, configErr)
}

// fetchAllPictures downloads pictures for items with at most pictureWorkers
// requests in flight. A failed download is logged and the previous bytes,
// if any, are kept.
func (s *Service) fetchAllPictures(ctx context.Context, items []Item, prev map[uuid.UUID][]byte) map[uuid.UUID][]byte {
	if !s.fetchPictures {
		return nil
	}

	var (
		mu  sync.Mutex
		out = make(map[uuid.UUID][]byte)
	)

	var g errgroup.Group
	g.SetLimit(s.pictureWorkers)
	for _, it := range items {
		if !it.Event.HasPicture() {
			continue
		}
		ev := it.Event
		g.Go(func() error {
			body, err := s.source.FetchEventPicture(ctx, ev.PictureURL)
			if err != nil {
				appLog.Error("picture fetch failed", err,
					"event", ev.ID.String(),
					"url", appLog.RedactURL(ev.PictureURL.String()),
				)
				body = prev[ev.ID]
				if body == nil {
					return nil
				}
			}
			mu.Lock()
			out[ev.ID] = body
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Start runs Refresh on the cron schedule, evaluated in the service's
// location, until ctx is done. A run that is still going when the next one
// is due is skipped.
func (s *Service) Start(ctx context.Context, schedule string) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Refresh(ctx); err != nil {
			appLog.Warn("scheduled refresh incomplete", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", schedule, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", schedule, "timezone", s.loc.String())

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}

// cronLogger routes the scheduler's own messages to the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
