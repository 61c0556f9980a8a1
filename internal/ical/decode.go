package ical

import (
	"fmt"
	"net/url"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"eventfeed/internal/model"
)

func decodeVEvent(ve *ical.VEvent) (model.Event, error) {
	uid := strings.TrimSuffix(ve.Id(), "@"+uidDomain)
	id, err := uuid.Parse(uid)
	if err != nil {
		return model.Event{}, fmt.Errorf("uid %q: %w", ve.Id(), err)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return model.Event{}, fmt.Errorf("dtstart: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return model.Event{}, fmt.Errorf("dtend: %w", err)
	}

	ev := model.Event{
		ID:       id,
		BeginsOn: model.NewDateTime(start),
		EndsOn:   model.NewDateTime(end),
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUrl); p != nil && p.Value != "" {
		u, err := url.Parse(p.Value)
		if err != nil {
			return model.Event{}, fmt.Errorf("url: %w", err)
		}
		ev.PictureURL = u
	}
	return ev, nil
}
