package itinerary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pierosc/japan-itinerary/internal/types"
)

// ErrMalformedPayload is returned by ImportJSON when the payload is not a
// structurally valid snapshot.
var ErrMalformedPayload = errors.New("malformed trip payload")

// Export produces a versioned snapshot of the current state. It is a pure
// function of the store: no side effects, no I/O.
func (s *Store) Export() types.Snapshot {
	prefs := s.prefs
	snap := types.Snapshot{
		Version:      types.SnapshotVersion,
		Days:         make([]string, len(s.days)),
		SelectedDate: s.selectedDate,
		Currency:     s.currency,
		Prefs:        &prefs,
		Places:       make([]types.Place, len(s.places)),
		Legs:         make([]types.Leg, len(s.legs)),
	}
	copy(snap.Days, s.days)
	copy(snap.Places, s.places)
	copy(snap.Legs, s.legs)
	return snap
}

// ExportJSON marshals the current snapshot as indented JSON.
func (s *Store) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s.Export(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// ImportJSON parses an external snapshot payload and fully replaces the
// store's state with it. Invalid payloads return ErrMalformedPayload and
// leave the current state untouched; nothing is ever partially applied.
func (s *Store) ImportJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ErrMalformedPayload
	}
	var snap types.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	s.Import(snap)
	return nil
}

// Import replaces all state with the snapshot's content. Places and legs
// missing an id get a fresh one (legacy and hand-edited payloads). A missing
// day list is derived from the distinct non-null place dates, in order of
// first appearance; an empty trip still ends up with today as its one day.
func (s *Store) Import(snap types.Snapshot) {
	places := make([]types.Place, len(snap.Places))
	for i, p := range snap.Places {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Images == nil {
			p.Images = []types.Image{}
		}
		places[i] = p
	}

	legs := make([]types.Leg, len(snap.Legs))
	for i, l := range snap.Legs {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		legs[i] = l
	}

	days := make([]string, 0, len(snap.Days))
	days = append(days, snap.Days...)
	if len(days) == 0 {
		seen := make(map[string]bool)
		for _, p := range places {
			if p.Date != nil && !seen[*p.Date] {
				seen[*p.Date] = true
				days = append(days, *p.Date)
			}
		}
	}
	if len(days) == 0 {
		days = []string{s.todayKey()}
	}

	selected := snap.SelectedDate
	if selected == "" {
		selected = days[0]
	} else {
		found := false
		for _, d := range days {
			if d == selected {
				found = true
				break
			}
		}
		if !found {
			selected = days[0]
		}
	}

	currency := snap.Currency
	if currency.Code == "" && currency.RatePerJPY == 0 {
		currency = types.Currency{Code: "USD", RatePerJPY: 0.0065}
	}

	prefs := types.Prefs{
		ShowMap:      true,
		RouteVisible: true,
		Basemap:      "esri-worldgray",
	}
	if snap.Prefs != nil {
		prefs = *snap.Prefs
	}

	s.places = places
	s.legs = legs
	s.days = days
	s.selectedDate = selected
	s.selectedID = ""
	s.currency = currency
	s.prefs = prefs
	s.notify()
}
