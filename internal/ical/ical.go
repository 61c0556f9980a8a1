// Package ical exports the current event snapshot as an iCalendar feed.
package ical

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventfeed/internal/log"
	"eventfeed/internal/model"
)

const ProductID = "-//eventfeed//events export//EN"

// uidDomain qualifies event UIDs so they stay unique across calendars.
const uidDomain = "eventfeed"

// UID returns the VEVENT UID used for an event.
func UID(ev model.Event) string {
	return ev.ID.String() + "@" + uidDomain
}

// Encode serializes events into a VCALENDAR. Times are written in UTC;
// stamp becomes every event's DTSTAMP.
func Encode(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		ve := cal.AddEvent(UID(ev))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.BeginsOn.Time())
		ve.SetEndAt(ev.EndsOn.Time())
		ve.SetSummary(ev.Title)
		if ev.HasPicture() {
			ve.SetProperty(ical.ComponentPropertyUrl, ev.PictureURL.String())
		}
	}

	return cal.Serialize()
}

// WriteFile encodes events and replaces path atomically.
func WriteFile(path string, events []model.Event, stamp time.Time) error {
	if path == "" {
		return errors.New("ics path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventfeed-ics-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(Encode(events, stamp)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	appLog.Info("ics export written", "path", path, "event_count", len(events))
	return nil
}

// Decode parses a feed produced by Encode back into events. Only the
// fields Encode writes are read; VEVENTs that cannot be mapped are skipped.
func Decode(data string) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(strings.NewReader(data))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := decodeVEvent(ve)
		if err != nil {
			appLog.Error("ics vevent decode failed", err, "uid", ve.Id())
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
