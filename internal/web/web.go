package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"eventfeed/internal/config"
	"eventfeed/internal/humanize"
	"eventfeed/internal/ical"
	appLog "eventfeed/internal/log"
	"eventfeed/internal/refresh"
)

// Snapshots is the read side of the refresh service.
type Snapshots interface {
	Snapshot() refresh.Snapshot
}

// Server exposes the latest refresh snapshot as a read-only JSON API and an
// iCalendar feed.
type Server struct {
	cfg       *config.Config
	snapshots Snapshots
	humanizer *humanize.Humanizer
	mux       *http.ServeMux
}

// NewServer constructs a new Server. Labels are computed per request with h
// so they stay current between refreshes.
func NewServer(cfg *config.Config, snapshots Snapshots, h *humanize.Humanizer) *Server {
	s := &Server{
		cfg:       cfg,
		snapshots: snapshots,
		humanizer: h,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventfeed", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/{id}/picture", s.handlePicture)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events          []eventDTO `json:"events"`
	Failures        []string   `json:"failures"`
	Total           int64      `json:"total"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DisplayTimeZone string     `json:"display_timezone"`
	Error           string     `json:"error,omitempty"`
}

type eventDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	BeginsOn      time.Time `json:"begins_on"`
	EndsOn        time.Time `json:"ends_on"`
	Beginning     string    `json:"beginning"`
	IsNow         bool      `json:"is_now"`
	IsLong        bool      `json:"is_long"`
	DurationHours int64     `json:"duration_hours"`
	PictureURL    string    `json:"picture_url,omitempty"`
}

// handleEvents returns the events of the latest snapshot, labelled against
// the humanizer's clock at request time.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}

	dtos := make([]eventDTO, 0, len(snap.Items))
	for _, it := range snap.Items {
		ev := it.Event
		label := s.humanizer.Beginning(ev)
		dto := eventDTO{
			ID:            ev.ID.String(),
			Title:         ev.Title,
			BeginsOn:      ev.BeginsOn.Time(),
			EndsOn:        ev.EndsOn.Time(),
			Beginning:     label.String(),
			IsNow:         label.IsNow(),
			IsLong:        ev.IsLong(),
			DurationHours: ev.DurationInHours(),
		}
		if ev.HasPicture() {
			dto.PictureURL = ev.PictureURL.String()
		}
		dtos = append(dtos, dto)
	}

	failures := snap.Failures
	if failures == nil {
		failures = []string{}
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          dtos,
		Failures:        failures,
		Total:           snap.Total,
		UpdatedAt:       snap.UpdatedAt,
		DisplayTimeZone: s.humanizer.Location().String(),
		Error:           snap.EventsErr,
	})
}

type configResponse struct {
	Version    string        `json:"version"`
	Categories []categoryDTO `json:"categories"`
	Languages  []string      `json:"languages"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Error      string        `json:"error,omitempty"`
}

type categoryDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}
	if snap.Config == nil {
		writeError(w, http.StatusServiceUnavailable, "config unavailable: "+snap.ConfigErr)
		return
	}

	cats := make([]categoryDTO, 0, len(snap.Config.Categories))
	for _, c := range snap.Config.Categories {
		cats = append(cats, categoryDTO{ID: c.ID, Label: c.Label})
	}

	writeJSON(w, http.StatusOK, configResponse{
		Version:    snap.Config.InstanceVersion.String(),
		Categories: cats,
		Languages:  snap.Config.Languages,
		UpdatedAt:  snap.UpdatedAt,
		Error:      snap.ConfigErr,
	})
}

// handlePicture serves the downloaded picture of one event.
func (s *Server) handlePicture(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	snap := s.snapshots.Snapshot()
	if _, ok := snap.Find(id); !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	body, ok := snap.Pictures[id]
	if !ok {
		writeError(w, http.StatusNotFound, "picture not available")
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(body))
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.currentSnapshot(w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ical.Encode(snap.Events(), snap.UpdatedAt)))
}

// currentSnapshot writes a 503 until the first refresh has completed.
func (s *Server) currentSnapshot(w http.ResponseWriter) (refresh.Snapshot, bool) {
	snap := s.snapshots.Snapshot()
	if snap.UpdatedAt.IsZero() {
		writeError(w, http.StatusServiceUnavailable, "no refresh has completed yet")
		return snap, false
	}
	return snap, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
