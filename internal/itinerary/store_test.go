package itinerary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierosc/japan-itinerary/internal/types"
)

func newTestStore() *Store {
	s := New()
	s.now = func() time.Time { return time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestStore_Days(t *testing.T) {
	t.Run("select inserts unknown day and clears place selection", func(t *testing.T) {
		s := newTestStore()
		p := s.AddPlace(types.AddPlaceParams{Name: "Senso-ji"})
		s.SelectPlace(p.ID)

		s.SelectDay("2026-01-10")

		assert.Contains(t, s.Days(), "2026-01-10")
		assert.Equal(t, "2026-01-10", s.SelectedDate())
		assert.Empty(t, s.SelectedPlaceID())
	})

	t.Run("add day is idempotent and selects", func(t *testing.T) {
		s := newTestStore()
		s.AddDay("2026-01-10")
		s.AddDay("2026-01-10")

		count := 0
		for _, d := range s.Days() {
			if d == "2026-01-10" {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Equal(t, "2026-01-10", s.SelectedDate())
	})

	t.Run("remove day cascades to places and legs", func(t *testing.T) {
		s := newTestStore()
		s.AddDay("2026-01-10")
		a := s.AddPlace(types.AddPlaceParams{Name: "A"})
		b := s.AddPlace(types.AddPlaceParams{Name: "B"})
		s.AddLeg("2026-01-10", a.ID, b.ID, types.ModeWalk, nil)

		s.RemoveDay("2026-01-10")

		assert.Empty(t, s.PlacesForDay("2026-01-10"))
		assert.Empty(t, s.LegsForDay("2026-01-10"))
		assert.NotContains(t, s.Days(), "2026-01-10")
	})

	t.Run("removing the only day synthesizes today", func(t *testing.T) {
		s := newTestStore()
		require.Len(t, s.Days(), 1)
		only := s.Days()[0]

		s.RemoveDay(only)

		require.Len(t, s.Days(), 1)
		assert.Equal(t, "2026-01-02", s.Days()[0])
		assert.Equal(t, "2026-01-02", s.SelectedDate())
	})

	t.Run("removing the selected day selects the first remaining", func(t *testing.T) {
		s := newTestStore()
		s.AddDay("2026-01-10")
		s.AddDay("2026-01-11")
		require.Equal(t, "2026-01-11", s.SelectedDate())

		s.RemoveDay("2026-01-11")

		assert.Equal(t, s.Days()[0], s.SelectedDate())
	})
}

func TestStore_AddPlace(t *testing.T) {
	s := newTestStore()
	s.AddDay("2026-01-10")

	t.Run("defaults to the selected day", func(t *testing.T) {
		p := s.AddPlace(types.AddPlaceParams{Name: "Ichiran", Category: types.CategoryRestaurant})
		require.NotNil(t, p.Date)
		assert.Equal(t, "2026-01-10", *p.Date)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, 60, p.DurationMin)
	})

	t.Run("explicit unassigned pools the place", func(t *testing.T) {
		p := s.AddPlace(types.AddPlaceParams{Name: "Pool me", Unassigned: true})
		assert.Nil(t, p.Date)
		ids := make([]string, 0)
		for _, up := range s.UnassignedPlaces() {
			ids = append(ids, up.ID)
		}
		assert.Contains(t, ids, p.ID)
	})

	t.Run("ids are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, p := range s.Places() {
			assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
			seen[p.ID] = true
		}
	})
}

func TestStore_UpdatePlace(t *testing.T) {
	s := newTestStore()
	p := s.AddPlace(types.AddPlaceParams{Name: "BookOff", SpendJPY: 2000})

	t.Run("partial patch", func(t *testing.T) {
		notes := "Hunt bargains"
		spend := 3500
		s.UpdatePlace(p.ID, types.PlacePatch{Notes: &notes, SpendJPY: &spend})

		got, ok := s.Place(p.ID)
		require.True(t, ok)
		assert.Equal(t, "Hunt bargains", got.Notes)
		assert.Equal(t, 3500, got.SpendJPY)
		assert.Equal(t, "BookOff", got.Name)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("clear date pools the place", func(t *testing.T) {
		s.UpdatePlace(p.ID, types.PlacePatch{ClearDate: true})
		got, _ := s.Place(p.ID)
		assert.Nil(t, got.Date)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		name := "ghost"
		s.UpdatePlace("missing", types.PlacePatch{Name: &name})
		assert.Len(t, s.Places(), 1)
	})
}

func TestStore_RemovePlace_Cascades(t *testing.T) {
	s := newTestStore()
	s.AddDay("2026-01-10")
	a := s.AddPlace(types.AddPlaceParams{Name: "A"})
	b := s.AddPlace(types.AddPlaceParams{Name: "B"})
	c := s.AddPlace(types.AddPlaceParams{Name: "C"})
	s.AddLeg("2026-01-10", a.ID, b.ID, types.ModeWalk, nil)
	s.AddLeg("2026-01-10", b.ID, c.ID, types.ModeTrain, nil)
	s.SelectPlace(b.ID)

	s.RemovePlace(b.ID)

	_, ok := s.Place(b.ID)
	assert.False(t, ok)
	for _, l := range s.Legs() {
		assert.NotEqual(t, b.ID, l.FromID)
		assert.NotEqual(t, b.ID, l.ToID)
	}
	assert.Empty(t, s.Legs(), "both legs touched the removed place")
	assert.Empty(t, s.SelectedPlaceID())
}

func TestStore_AssignPlaceToDay(t *testing.T) {
	s := newTestStore()
	p := s.AddPlace(types.AddPlaceParams{Name: "Pooled", Unassigned: true})
	require.Len(t, s.UnassignedPlaces(), 1)

	s.AssignPlaceToDay(p.ID, "2026-04-01")

	assert.Empty(t, s.UnassignedPlaces())
	assigned := s.PlacesForDay("2026-04-01")
	require.Len(t, assigned, 1)
	assert.Equal(t, p.ID, assigned[0].ID)
	assert.Contains(t, s.Days(), "2026-04-01")
}

func TestStore_ReorderDay(t *testing.T) {
	const d = "2026-01-10"

	setup := func() (*Store, types.Place, types.Place, types.Place) {
		s := newTestStore()
		s.AddDay(d)
		a := s.AddPlace(types.AddPlaceParams{Name: "A"})
		b := s.AddPlace(types.AddPlaceParams{Name: "B"})
		c := s.AddPlace(types.AddPlaceParams{Name: "C"})
		return s, a, b, c
	}

	t.Run("breaking adjacency drops the leg", func(t *testing.T) {
		s, a, b, c := setup()
		s.AddLeg(d, a.ID, b.ID, types.ModeWalk, nil)

		s.ReorderDay(d, []string{b.ID, a.ID, c.ID})

		assert.Empty(t, s.LegsForDay(d), "A->B is no longer adjacent")
		got := s.PlacesForDay(d)
		require.Len(t, got, 3)
		assert.Equal(t, []string{b.ID, a.ID, c.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("legs still matching consecutive pairs survive", func(t *testing.T) {
		s, a, b, c := setup()
		s.AddLeg(d, b.ID, c.ID, types.ModeTrain, nil)

		s.ReorderDay(d, []string{a.ID, b.ID, c.ID})

		require.Len(t, s.LegsForDay(d), 1)
		assert.Equal(t, b.ID, s.LegsForDay(d)[0].FromID)
	})

	t.Run("adjacency is recomputed fresh each call", func(t *testing.T) {
		s, a, b, c := setup()
		s.ReorderDay(d, []string{b.ID, a.ID, c.ID})
		s.AddLeg(d, a.ID, b.ID, types.ModeWalk, nil)

		// A->B is not adjacent under [B,A,C]; reordering back makes it
		// adjacent again and the leg must be retained.
		s.ReorderDay(d, []string{a.ID, b.ID, c.ID})

		require.Len(t, s.LegsForDay(d), 1)
		leg := s.LegsForDay(d)[0]
		assert.Equal(t, a.ID, leg.FromID)
		assert.Equal(t, b.ID, leg.ToID)
	})

	t.Run("unknown ids in the ordering are dropped", func(t *testing.T) {
		s, a, b, c := setup()
		s.ReorderDay(d, []string{c.ID, "not-a-place", a.ID, b.ID})

		got := s.PlacesForDay(d)
		require.Len(t, got, 3)
		assert.Equal(t, c.ID, got[0].ID)
	})

	t.Run("other days are untouched", func(t *testing.T) {
		s, a, b, _ := setup()
		s.AddDay("2026-01-11")
		x := s.AddPlace(types.AddPlaceParams{Name: "X"})
		y := s.AddPlace(types.AddPlaceParams{Name: "Y"})
		s.AddLeg("2026-01-11", x.ID, y.ID, types.ModeWalk, nil)

		s.ReorderDay(d, []string{b.ID, a.ID})

		assert.Len(t, s.LegsForDay("2026-01-11"), 1)
		assert.Len(t, s.PlacesForDay("2026-01-11"), 2)
	})
}

func TestStore_Legs(t *testing.T) {
	s := newTestStore()
	s.AddDay("2026-01-10")
	a := s.AddPlace(types.AddPlaceParams{Name: "A"})
	b := s.AddPlace(types.AddPlaceParams{Name: "B"})

	t.Run("duplicate legs between the same pair coexist", func(t *testing.T) {
		s.AddLeg("2026-01-10", a.ID, b.ID, types.ModeWalk, nil)
		s.AddLeg("2026-01-10", a.ID, b.ID, types.ModeTrain, nil)
		assert.Len(t, s.LegsForDay("2026-01-10"), 2)
	})

	t.Run("patch and remove", func(t *testing.T) {
		leg := s.AddLeg("2026-01-10", a.ID, b.ID, types.ModeCar, nil)
		name := "Scenic drive"
		mins := 25
		s.UpdateLeg(leg.ID, types.LegPatch{Name: &name, DurationMin: &mins})

		var got types.Leg
		for _, l := range s.Legs() {
			if l.ID == leg.ID {
				got = l
			}
		}
		assert.Equal(t, "Scenic drive", got.Name)
		require.NotNil(t, got.DurationMin)
		assert.Equal(t, 25, *got.DurationMin)

		s.RemoveLeg(leg.ID)
		assert.Len(t, s.LegsForDay("2026-01-10"), 2)
	})
}

func TestStore_Totals(t *testing.T) {
	s := newTestStore()
	s.AddDay("D")
	s.AddPlace(types.AddPlaceParams{Name: "p1", SpendJPY: 500})
	s.AddPlace(types.AddPlaceParams{Name: "p2", SpendJPY: 0})
	s.AddPlace(types.AddPlaceParams{Name: "p3", SpendJPY: 1500})
	s.AddDay("E")
	s.AddPlace(types.AddPlaceParams{Name: "p4", SpendJPY: 300})

	assert.Equal(t, 2000, s.TotalForDay("D"))
	assert.Equal(t, 300, s.TotalForDay("E"))
	assert.Equal(t, 2300, s.TotalAll())

	s.SetCurrencyRatePerJPY(0.01)
	assert.InDelta(t, 23.0, s.Convert(s.TotalAll()), 1e-9)
}

func TestStore_ItemsSubtotal(t *testing.T) {
	p := types.Place{Items: []types.PlaceItem{
		{Name: "ramen", Qty: 2, PriceJPY: 900},
		{Name: "beer", Qty: 1, PriceJPY: 500},
	}}
	assert.Equal(t, 2300, p.ItemsSubtotal())
}

func TestStore_Subscribe(t *testing.T) {
	s := newTestStore()
	calls := 0
	unsubscribe := s.Subscribe(func() { calls++ })

	s.AddDay("2026-01-10")
	s.AddPlace(types.AddPlaceParams{Name: "A"})
	assert.Equal(t, 2, calls)

	unsubscribe()
	s.AddDay("2026-01-11")
	assert.Equal(t, 2, calls)
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore()
	s.AddDay("2026-01-10")
	s.AddPlace(types.AddPlaceParams{Name: "A", SpendJPY: 100})
	s.SetCurrencyCode("EUR")

	s.Clear()

	assert.Empty(t, s.Places())
	assert.Empty(t, s.Legs())
	assert.Equal(t, []string{"2026-01-02"}, s.Days())
	assert.Equal(t, "2026-01-02", s.SelectedDate())
	assert.Equal(t, "EUR", s.Currency().Code, "currency preference survives a clear")
}

func TestEstimateLeg(t *testing.T) {
	sensoji := types.Coordinate{Lat: 35.714765, Lng: 139.796655}
	akihabara := types.Coordinate{Lat: 35.698683, Lng: 139.773167}

	km, minutes := EstimateLeg(sensoji, akihabara, types.ModeWalk)
	assert.InDelta(t, 2.76, km, 0.1)
	assert.InDelta(t, 37, minutes, 2)

	_, trainMin := EstimateLeg(sensoji, akihabara, types.ModeTrain)
	assert.Less(t, trainMin, minutes)

	kmUnknown, _ := EstimateLeg(sensoji, akihabara, types.TravelMode("rickshaw"))
	assert.InDelta(t, km, kmUnknown, 1e-9)
}
