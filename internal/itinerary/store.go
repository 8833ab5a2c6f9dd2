// Package itinerary holds the in-memory trip state: days, places, legs,
// currency preference and selection, plus every mutation and query defined
// over them. A Store is a plain constructible value; it performs no I/O and
// is not safe for concurrent use — callers serialize access so that at most
// one mutation is in flight at a time.
package itinerary

import (
	"time"

	"github.com/google/uuid"

	"github.com/pierosc/japan-itinerary/internal/types"
)

const defaultDurationMin = 60

// Store owns all itinerary data for a single trip.
type Store struct {
	places       []types.Place
	legs         []types.Leg
	days         []string
	selectedDate string
	selectedID   string
	currency     types.Currency
	prefs        types.Prefs

	watchers    map[int]func()
	nextWatcher int

	now func() time.Time
}

// New returns an empty store with today as its only day.
func New() *Store {
	s := &Store{
		currency: types.Currency{Code: "USD", RatePerJPY: 0.0065},
		prefs: types.Prefs{
			ShowMap:      true,
			RouteVisible: true,
			Basemap:      "esri-worldgray",
		},
		watchers: make(map[int]func()),
		now:      time.Now,
	}
	today := s.todayKey()
	s.days = []string{today}
	s.selectedDate = today
	return s
}

func (s *Store) todayKey() string {
	return s.now().Format("2006-01-02")
}

// Subscribe registers a coarse "state changed" callback fired after every
// mutating operation. The returned func unregisters it.
func (s *Store) Subscribe(fn func()) func() {
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	return func() { delete(s.watchers, id) }
}

func (s *Store) notify() {
	for _, fn := range s.watchers {
		fn()
	}
}

// ---- Days ----

// Days returns the trip's day keys in insertion order.
func (s *Store) Days() []string {
	out := make([]string, len(s.days))
	copy(out, s.days)
	return out
}

// SelectedDate returns the currently selected day key.
func (s *Store) SelectedDate() string { return s.selectedDate }

func (s *Store) hasDay(day string) bool {
	for _, d := range s.days {
		if d == day {
			return true
		}
	}
	return false
}

// SelectDay makes day the selected one, appending it to the day set if it
// is not yet a member. Place selection is cleared.
func (s *Store) SelectDay(day string) {
	if !s.hasDay(day) {
		s.days = append(s.days, day)
	}
	s.selectedDate = day
	s.selectedID = ""
	s.notify()
}

// AddDay idempotently inserts day into the day set and selects it.
func (s *Store) AddDay(day string) {
	if !s.hasDay(day) {
		s.days = append(s.days, day)
	}
	s.selectedDate = day
	s.notify()
}

// RemoveDay drops day from the day set and cascades: every place and leg on
// that day is deleted. A trip always keeps at least one day; when the last
// one goes, today is synthesized. Selection moves to the first remaining day
// and the place selection is cleared.
func (s *Store) RemoveDay(day string) {
	remaining := s.days[:0:0]
	for _, d := range s.days {
		if d != day {
			remaining = append(remaining, d)
		}
	}
	if len(remaining) == 0 {
		remaining = []string{s.todayKey()}
	}
	s.days = remaining
	s.selectedDate = remaining[0]
	s.selectedID = ""

	places := s.places[:0:0]
	for _, p := range s.places {
		if p.Date == nil || *p.Date != day {
			places = append(places, p)
		}
	}
	s.places = places

	legs := s.legs[:0:0]
	for _, l := range s.legs {
		if l.Date != day {
			legs = append(legs, l)
		}
	}
	s.legs = legs
	s.notify()
}

// ---- Places ----

// AddPlace appends a new place with a fresh id and returns it. With no day
// in the params the place lands on the selected day; Unassigned pools it.
func (s *Store) AddPlace(params types.AddPlaceParams) types.Place {
	p := types.Place{
		ID:          uuid.NewString(),
		Name:        params.Name,
		Category:    params.Category,
		Lat:         params.Lat,
		Lng:         params.Lng,
		StartTime:   params.StartTime,
		DurationMin: params.DurationMin,
		PriceRange:  params.PriceRange,
		SourceURL:   params.SourceURL,
		Notes:       params.Notes,
		SpendJPY:    params.SpendJPY,
		Images:      params.Images,
		Items:       params.Items,
	}
	if p.Category == "" {
		p.Category = types.CategoryOther
	}
	if p.DurationMin == 0 {
		p.DurationMin = defaultDurationMin
	}
	if p.Images == nil {
		p.Images = []types.Image{}
	}
	switch {
	case params.Unassigned:
		p.Date = nil
	case params.Date != nil:
		day := *params.Date
		p.Date = &day
	default:
		day := s.selectedDate
		p.Date = &day
	}
	s.places = append(s.places, p)
	s.notify()
	return p
}

// Place returns the place with the given id, if present.
func (s *Store) Place(id string) (types.Place, bool) {
	for _, p := range s.places {
		if p.ID == id {
			return p, true
		}
	}
	return types.Place{}, false
}

// Places returns the full place collection in store order.
func (s *Store) Places() []types.Place {
	out := make([]types.Place, len(s.places))
	copy(out, s.places)
	return out
}

// PlacesForDay returns the places assigned to day, preserving store order.
func (s *Store) PlacesForDay(day string) []types.Place {
	var out []types.Place
	for _, p := range s.places {
		if p.Date != nil && *p.Date == day {
			out = append(out, p)
		}
	}
	return out
}

// UnassignedPlaces returns the pooled places with no day, in store order.
func (s *Store) UnassignedPlaces() []types.Place {
	var out []types.Place
	for _, p := range s.places {
		if p.Date == nil {
			out = append(out, p)
		}
	}
	return out
}

// UpdatePlace merges the patch into the place matching id. Unknown ids are a
// silent no-op; the id itself never changes.
func (s *Store) UpdatePlace(id string, patch types.PlacePatch) {
	for i := range s.places {
		if s.places[i].ID != id {
			continue
		}
		p := &s.places[i]
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Category != nil {
			p.Category = *patch.Category
		}
		if patch.Lat != nil {
			p.Lat = *patch.Lat
		}
		if patch.Lng != nil {
			p.Lng = *patch.Lng
		}
		if patch.ClearDate {
			p.Date = nil
		} else if patch.Date != nil {
			day := *patch.Date
			p.Date = &day
		}
		if patch.StartTime != nil {
			p.StartTime = *patch.StartTime
		}
		if patch.DurationMin != nil {
			p.DurationMin = *patch.DurationMin
		}
		if patch.PriceRange != nil {
			p.PriceRange = *patch.PriceRange
		}
		if patch.SourceURL != nil {
			p.SourceURL = *patch.SourceURL
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		if patch.SpendJPY != nil {
			p.SpendJPY = *patch.SpendJPY
		}
		if patch.Images != nil {
			p.Images = *patch.Images
		}
		if patch.Items != nil {
			p.Items = *patch.Items
		}
		s.notify()
		return
	}
}

// RemovePlace deletes the place and cascades to every leg touching it.
// Selection is cleared when it pointed at the removed place.
func (s *Store) RemovePlace(id string) {
	places := s.places[:0:0]
	found := false
	for _, p := range s.places {
		if p.ID == id {
			found = true
			continue
		}
		places = append(places, p)
	}
	if !found {
		return
	}
	s.places = places

	legs := s.legs[:0:0]
	for _, l := range s.legs {
		if l.FromID == id || l.ToID == id {
			continue
		}
		legs = append(legs, l)
	}
	s.legs = legs

	if s.selectedID == id {
		s.selectedID = ""
	}
	s.notify()
}

// AssignPlaceToDay moves the place onto day, inserting the day into the day
// set when absent. The place keeps its position in the collection.
func (s *Store) AssignPlaceToDay(id, day string) {
	for i := range s.places {
		if s.places[i].ID != id {
			continue
		}
		d := day
		s.places[i].Date = &d
		if !s.hasDay(day) {
			s.days = append(s.days, day)
		}
		s.notify()
		return
	}
}

// SelectPlace marks id as the active place; an empty id clears selection.
func (s *Store) SelectPlace(id string) {
	s.selectedID = id
	s.notify()
}

// SelectedPlaceID returns the id of the active place, or "".
func (s *Store) SelectedPlaceID() string { return s.selectedID }

// ReorderDay rebuilds the ordering of day's places from orderedIDs and drops
// every leg of that day that no longer connects two now-consecutive places.
// Ids not currently assigned to day are ignored. Adjacency is recomputed
// from scratch on every call, so a leg dropped by an earlier reorder could
// never survive, but one whose endpoints become adjacent again is a valid
// candidate for re-creation by the caller.
func (s *Store) ReorderDay(day string, orderedIDs []string) {
	var others []types.Place
	same := make(map[string]types.Place)
	for _, p := range s.places {
		if p.Date != nil && *p.Date == day {
			same[p.ID] = p
		} else {
			others = append(others, p)
		}
	}

	ordered := make([]types.Place, 0, len(same))
	for _, id := range orderedIDs {
		if p, ok := same[id]; ok {
			ordered = append(ordered, p)
			delete(same, id)
		}
	}

	// The reordered block moves to the tail of the collection; display
	// always filters by day, so the global position is inconsequential.
	s.places = append(others, ordered...)

	adjacent := make(map[[2]string]bool, len(ordered))
	for i := 0; i+1 < len(ordered); i++ {
		adjacent[[2]string{ordered[i].ID, ordered[i+1].ID}] = true
	}

	legs := s.legs[:0:0]
	for _, l := range s.legs {
		if l.Date == day && !adjacent[[2]string{l.FromID, l.ToID}] {
			continue
		}
		legs = append(legs, l)
	}
	s.legs = legs
	s.notify()
}

// ---- Legs ----

// AddLeg creates a leg between two places of day and returns it. Adjacency
// is not verified and duplicates between the same pair are allowed.
func (s *Store) AddLeg(day, fromID, toID string, mode types.TravelMode, path []types.Coordinate) types.Leg {
	l := types.Leg{
		ID:     uuid.NewString(),
		Date:   day,
		FromID: fromID,
		ToID:   toID,
		Mode:   mode,
		Path:   path,
	}
	if l.Mode == "" {
		l.Mode = types.ModeWalk
	}
	s.legs = append(s.legs, l)
	s.notify()
	return l
}

// Legs returns every leg in store order.
func (s *Store) Legs() []types.Leg {
	out := make([]types.Leg, len(s.legs))
	copy(out, s.legs)
	return out
}

// LegsForDay returns the legs whose day matches, in store order.
func (s *Store) LegsForDay(day string) []types.Leg {
	var out []types.Leg
	for _, l := range s.legs {
		if l.Date == day {
			out = append(out, l)
		}
	}
	return out
}

// UpdateLeg merges the patch into the leg matching id; unknown ids no-op.
func (s *Store) UpdateLeg(id string, patch types.LegPatch) {
	for i := range s.legs {
		if s.legs[i].ID != id {
			continue
		}
		l := &s.legs[i]
		if patch.Mode != nil {
			l.Mode = *patch.Mode
		}
		if patch.Name != nil {
			l.Name = *patch.Name
		}
		if patch.Path != nil {
			l.Path = *patch.Path
		}
		if patch.DurationMin != nil {
			l.DurationMin = patch.DurationMin
		}
		if patch.PriceJPY != nil {
			l.PriceJPY = patch.PriceJPY
		}
		s.notify()
		return
	}
}

// RemoveLeg deletes the leg matching id; unknown ids no-op.
func (s *Store) RemoveLeg(id string) {
	legs := s.legs[:0:0]
	found := false
	for _, l := range s.legs {
		if l.ID == id {
			found = true
			continue
		}
		legs = append(legs, l)
	}
	if found {
		s.legs = legs
		s.notify()
	}
}

// ---- Totals & currency ----

// TotalForDay sums SpendJPY over the places assigned to day.
func (s *Store) TotalForDay(day string) int {
	total := 0
	for _, p := range s.places {
		if p.Date != nil && *p.Date == day {
			total += p.SpendJPY
		}
	}
	return total
}

// TotalAll sums SpendJPY over every place regardless of day.
func (s *Store) TotalAll() int {
	total := 0
	for _, p := range s.places {
		total += p.SpendJPY
	}
	return total
}

// Convert applies the advisory display rate to an amount of JPY.
func (s *Store) Convert(jpy int) float64 {
	return float64(jpy) * s.currency.RatePerJPY
}

// Currency returns the current conversion preference.
func (s *Store) Currency() types.Currency { return s.currency }

// SetCurrencyCode changes the target currency code.
func (s *Store) SetCurrencyCode(code string) {
	s.currency.Code = code
	s.notify()
}

// SetCurrencyRatePerJPY changes the advisory conversion rate.
func (s *Store) SetCurrencyRatePerJPY(rate float64) {
	s.currency.RatePerJPY = rate
	s.notify()
}

// ---- UI preferences (round-tripped verbatim) ----

// Prefs returns the UI-adjacent preferences.
func (s *Store) Prefs() types.Prefs { return s.prefs }

// SetShowMap toggles map visibility.
func (s *Store) SetShowMap(v bool) { s.prefs.ShowMap = v; s.notify() }

// ToggleFinance flips the finance panel state.
func (s *Store) ToggleFinance() { s.prefs.FinanceOpen = !s.prefs.FinanceOpen; s.notify() }

// ToggleRoute flips leg visibility on the map.
func (s *Store) ToggleRoute() { s.prefs.RouteVisible = !s.prefs.RouteVisible; s.notify() }

// SetBasemap selects the base tile layer.
func (s *Store) SetBasemap(name string) { s.prefs.Basemap = name; s.notify() }

// SetMapTilerKey stores the MapTiler API key preference.
func (s *Store) SetMapTilerKey(key string) { s.prefs.MapTilerKey = key; s.notify() }

// Clear resets the trip to a single synthesized "today" with no places,
// legs or selection. Currency and prefs are kept.
func (s *Store) Clear() {
	today := s.todayKey()
	s.places = nil
	s.legs = nil
	s.days = []string{today}
	s.selectedDate = today
	s.selectedID = ""
	s.notify()
}
