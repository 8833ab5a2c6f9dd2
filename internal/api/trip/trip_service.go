package trip

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pierosc/japan-itinerary/app/observability/metrics"
	"github.com/pierosc/japan-itinerary/internal/api/geocoding"
	"github.com/pierosc/japan-itinerary/internal/api/routing"
	"github.com/pierosc/japan-itinerary/internal/itinerary"
	"github.com/pierosc/japan-itinerary/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// DayView is the day-set state returned after day mutations.
type DayView struct {
	Days         []string `json:"days"`
	SelectedDate string   `json:"selectedDate"`
}

// Service exposes the itinerary engine per trip id, plus the persistence and
// routing collaborators around it. Engine operations are serialized per trip
// so at most one mutation is in flight at a time.
type Service interface {
	SelectDay(ctx context.Context, tripID, day string) DayView
	AddDay(ctx context.Context, tripID, day string) DayView
	RemoveDay(ctx context.Context, tripID, day string) DayView

	AddPlace(ctx context.Context, tripID string, params types.AddPlaceParams) types.Place
	UpdatePlace(ctx context.Context, tripID, placeID string, patch types.PlacePatch)
	RemovePlace(ctx context.Context, tripID, placeID string)
	AssignPlaceToDay(ctx context.Context, tripID, placeID, day string)
	SelectPlace(ctx context.Context, tripID, placeID string)
	PlacesForDay(ctx context.Context, tripID, day string) []types.Place
	UnassignedPlaces(ctx context.Context, tripID string) []types.Place
	ReorderDay(ctx context.Context, tripID, day string, orderedIDs []string)

	AddLeg(ctx context.Context, tripID, day, fromID, toID string, mode types.TravelMode, resolvePath bool) types.Leg
	UpdateLeg(ctx context.Context, tripID, legID string, patch types.LegPatch)
	RemoveLeg(ctx context.Context, tripID, legID string)
	LegsForDay(ctx context.Context, tripID, day string) []types.Leg

	Totals(ctx context.Context, tripID string) types.TripTotals
	SetCurrency(ctx context.Context, tripID, code string, ratePerJPY float64) types.Currency

	Prefs(ctx context.Context, tripID string) types.Prefs
	UpdatePrefs(ctx context.Context, tripID string, update PrefsUpdate) types.Prefs
	ClearTrip(ctx context.Context, tripID string)

	SearchPlaces(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)

	ExportTrip(ctx context.Context, tripID string) ([]byte, error)
	ImportTrip(ctx context.Context, tripID string, payload []byte) error

	SaveTrip(ctx context.Context, tripID, ownerID string, meta types.SaveTripRequest) error
	LoadTrip(ctx context.Context, tripID, userID string) error
	ListTrips(ctx context.Context, userID string) ([]types.TripRecord, error)
	DeleteTrip(ctx context.Context, tripID, ownerID string) error
	ShareTrip(ctx context.Context, tripID, ownerID, userID string) error
	UnshareTrip(ctx context.Context, tripID, ownerID, userID string) error
}

// tripSession is one live engine instance. The mutex enforces the engine's
// at-most-one-in-flight-mutation contract.
type tripSession struct {
	mu    sync.Mutex
	store *itinerary.Store
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	directions routing.Directions
	geocoder   geocoding.Searcher
	sessions   *cache.Cache
}

// NewServiceImpl creates a new instance of ServiceImpl. The sessions cache
// is the local adapter holding live engines keyed by trip id; the repository
// is the remote one.
func NewServiceImpl(repo Repository, directions routing.Directions, geocoder geocoding.Searcher, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repo,
		directions: directions,
		geocoder:   geocoder,
		sessions:   cache.New(cache.NoExpiration, 0),
	}
}

func (s *ServiceImpl) session(tripID string) *tripSession {
	if v, ok := s.sessions.Get(tripID); ok {
		return v.(*tripSession)
	}
	_ = s.sessions.Add(tripID, &tripSession{store: itinerary.New()}, cache.NoExpiration)
	v, _ := s.sessions.Get(tripID)
	return v.(*tripSession)
}

// withStore runs fn against the trip's engine while holding its lock.
func (s *ServiceImpl) withStore(tripID string, fn func(st *itinerary.Store)) {
	sess := s.session(tripID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess.store)
}

// ---- Day operations ----

func (s *ServiceImpl) SelectDay(ctx context.Context, tripID, day string) DayView {
	var view DayView
	s.withStore(tripID, func(st *itinerary.Store) {
		st.SelectDay(day)
		view = DayView{Days: st.Days(), SelectedDate: st.SelectedDate()}
	})
	return view
}

func (s *ServiceImpl) AddDay(ctx context.Context, tripID, day string) DayView {
	var view DayView
	s.withStore(tripID, func(st *itinerary.Store) {
		st.AddDay(day)
		view = DayView{Days: st.Days(), SelectedDate: st.SelectedDate()}
	})
	return view
}

func (s *ServiceImpl) RemoveDay(ctx context.Context, tripID, day string) DayView {
	ctx, span := otel.Tracer("TripService").Start(ctx, "RemoveDay", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("trip.day", day),
	))
	defer span.End()

	var view DayView
	s.withStore(tripID, func(st *itinerary.Store) {
		st.RemoveDay(day)
		view = DayView{Days: st.Days(), SelectedDate: st.SelectedDate()}
	})
	s.logger.InfoContext(ctx, "Day removed with cascade",
		slog.String("tripID", tripID), slog.String("day", day))
	span.SetStatus(codes.Ok, "Day removed")
	return view
}

// ---- Place operations ----

func (s *ServiceImpl) AddPlace(ctx context.Context, tripID string, params types.AddPlaceParams) types.Place {
	ctx, span := otel.Tracer("TripService").Start(ctx, "AddPlace", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("place.name", params.Name),
	))
	defer span.End()

	var place types.Place
	s.withStore(tripID, func(st *itinerary.Store) {
		place = st.AddPlace(params)
	})
	span.SetAttributes(attribute.String("place.id", place.ID))
	span.SetStatus(codes.Ok, "Place added")
	return place
}

func (s *ServiceImpl) UpdatePlace(ctx context.Context, tripID, placeID string, patch types.PlacePatch) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.UpdatePlace(placeID, patch)
	})
}

func (s *ServiceImpl) RemovePlace(ctx context.Context, tripID, placeID string) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.RemovePlace(placeID)
	})
}

func (s *ServiceImpl) AssignPlaceToDay(ctx context.Context, tripID, placeID, day string) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.AssignPlaceToDay(placeID, day)
	})
}

func (s *ServiceImpl) SelectPlace(ctx context.Context, tripID, placeID string) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.SelectPlace(placeID)
	})
}

func (s *ServiceImpl) PlacesForDay(ctx context.Context, tripID, day string) []types.Place {
	var places []types.Place
	s.withStore(tripID, func(st *itinerary.Store) {
		places = st.PlacesForDay(day)
	})
	return places
}

func (s *ServiceImpl) UnassignedPlaces(ctx context.Context, tripID string) []types.Place {
	var places []types.Place
	s.withStore(tripID, func(st *itinerary.Store) {
		places = st.UnassignedPlaces()
	})
	return places
}

func (s *ServiceImpl) ReorderDay(ctx context.Context, tripID, day string, orderedIDs []string) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ReorderDay", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("trip.day", day),
		attribute.Int("order.size", len(orderedIDs)),
	))
	defer span.End()

	s.withStore(tripID, func(st *itinerary.Store) {
		st.ReorderDay(day, orderedIDs)
	})
	s.logger.DebugContext(ctx, "Day reordered",
		slog.String("tripID", tripID), slog.String("day", day))
	span.SetStatus(codes.Ok, "Day reordered")
}

// ---- Leg operations ----

// AddLeg creates a leg between two places. With resolvePath set, the routing
// collaborator is asked for the path geometry first; lookup failures are
// logged and the leg is created without a path, matching the UI's "draw a
// straight line" fallback.
func (s *ServiceImpl) AddLeg(ctx context.Context, tripID, day, fromID, toID string, mode types.TravelMode, resolvePath bool) types.Leg {
	ctx, span := otel.Tracer("TripService").Start(ctx, "AddLeg", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.String("leg.mode", string(mode)),
	))
	defer span.End()

	var from, to types.Place
	var haveEndpoints bool
	s.withStore(tripID, func(st *itinerary.Store) {
		var okFrom, okTo bool
		from, okFrom = st.Place(fromID)
		to, okTo = st.Place(toID)
		haveEndpoints = okFrom && okTo
	})

	var path []types.Coordinate
	if resolvePath && haveEndpoints && s.directions != nil {
		resolved, err := s.directions.FindPath(ctx,
			types.Coordinate{Lat: from.Lat, Lng: from.Lng},
			types.Coordinate{Lat: to.Lat, Lng: to.Lng},
			mode)
		if err != nil {
			s.logger.WarnContext(ctx, "Path lookup failed, creating leg without geometry",
				slog.String("tripID", tripID), slog.Any("error", err))
			span.RecordError(err)
		} else {
			path = resolved
		}
		metrics.Get().RoutingLookupsTotal.Add(ctx, 1)
	}

	var leg types.Leg
	s.withStore(tripID, func(st *itinerary.Store) {
		leg = st.AddLeg(day, fromID, toID, mode, path)
	})
	span.SetAttributes(attribute.String("leg.id", leg.ID))
	span.SetStatus(codes.Ok, "Leg added")
	return leg
}

func (s *ServiceImpl) UpdateLeg(ctx context.Context, tripID, legID string, patch types.LegPatch) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.UpdateLeg(legID, patch)
	})
}

func (s *ServiceImpl) RemoveLeg(ctx context.Context, tripID, legID string) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.RemoveLeg(legID)
	})
}

func (s *ServiceImpl) LegsForDay(ctx context.Context, tripID, day string) []types.Leg {
	var legs []types.Leg
	s.withStore(tripID, func(st *itinerary.Store) {
		legs = st.LegsForDay(day)
	})
	return legs
}

// ---- Totals & currency ----

func (s *ServiceImpl) Totals(ctx context.Context, tripID string) types.TripTotals {
	var totals types.TripTotals
	s.withStore(tripID, func(st *itinerary.Store) {
		perDay := make(map[string]int)
		for _, d := range st.Days() {
			perDay[d] = st.TotalForDay(d)
		}
		totals = types.TripTotals{
			PerDayJPY:    perDay,
			TripJPY:      st.TotalAll(),
			Converted:    st.Convert(st.TotalAll()),
			CurrencyCode: st.Currency().Code,
		}
	})
	return totals
}

func (s *ServiceImpl) SetCurrency(ctx context.Context, tripID, code string, ratePerJPY float64) types.Currency {
	var currency types.Currency
	s.withStore(tripID, func(st *itinerary.Store) {
		if code != "" {
			st.SetCurrencyCode(code)
		}
		if ratePerJPY > 0 {
			st.SetCurrencyRatePerJPY(ratePerJPY)
		}
		currency = st.Currency()
	})
	return currency
}

// ---- UI preferences ----

// PrefsUpdate is a partial update of the trip's UI preferences; nil fields
// are left untouched.
type PrefsUpdate struct {
	ShowMap      *bool   `json:"showMap,omitempty"`
	FinanceOpen  *bool   `json:"financeOpen,omitempty"`
	RouteVisible *bool   `json:"routeVisible,omitempty"`
	Basemap      *string `json:"basemap,omitempty"`
	MapTilerKey  *string `json:"mapTilerKey,omitempty"`
}

func (s *ServiceImpl) Prefs(ctx context.Context, tripID string) types.Prefs {
	var prefs types.Prefs
	s.withStore(tripID, func(st *itinerary.Store) {
		prefs = st.Prefs()
	})
	return prefs
}

func (s *ServiceImpl) UpdatePrefs(ctx context.Context, tripID string, update PrefsUpdate) types.Prefs {
	var prefs types.Prefs
	s.withStore(tripID, func(st *itinerary.Store) {
		if update.ShowMap != nil {
			st.SetShowMap(*update.ShowMap)
		}
		if update.FinanceOpen != nil && *update.FinanceOpen != st.Prefs().FinanceOpen {
			st.ToggleFinance()
		}
		if update.RouteVisible != nil && *update.RouteVisible != st.Prefs().RouteVisible {
			st.ToggleRoute()
		}
		if update.Basemap != nil {
			st.SetBasemap(*update.Basemap)
		}
		if update.MapTilerKey != nil {
			st.SetMapTilerKey(*update.MapTilerKey)
		}
		prefs = st.Prefs()
	})
	return prefs
}

// ClearTrip empties places, legs and days; currency and preferences survive.
func (s *ServiceImpl) ClearTrip(ctx context.Context, tripID string) {
	s.withStore(tripID, func(st *itinerary.Store) {
		st.Clear()
	})
}

// ---- Geocoding ----

// SearchPlaces forwards a free-text location query to the geocoding
// collaborator. Results are candidates the caller can turn into AddPlace
// coordinates.
func (s *ServiceImpl) SearchPlaces(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	if s.geocoder == nil {
		return nil, fmt.Errorf("geocoding is not configured")
	}
	results, err := s.geocoder.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search places: %w", err)
	}
	return results, nil
}

// ---- Snapshots & remote persistence ----

func (s *ServiceImpl) ExportTrip(ctx context.Context, tripID string) ([]byte, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ExportTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	var data []byte
	var err error
	s.withStore(tripID, func(st *itinerary.Store) {
		data, err = st.ExportJSON()
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Export failed")
		return nil, fmt.Errorf("failed to export trip %s: %w", tripID, err)
	}
	span.SetStatus(codes.Ok, "Trip exported")
	return data, nil
}

func (s *ServiceImpl) ImportTrip(ctx context.Context, tripID string, payload []byte) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ImportTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
		attribute.Int("payload.bytes", len(payload)),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ImportTrip"), slog.String("tripID", tripID))

	var err error
	s.withStore(tripID, func(st *itinerary.Store) {
		err = st.ImportJSON(payload)
	})
	if err != nil {
		l.WarnContext(ctx, "Rejected snapshot import", slog.Any("error", err))
		metrics.Get().ImportFailuresTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Import rejected")
		return fmt.Errorf("failed to import trip %s: %w", tripID, err)
	}

	l.InfoContext(ctx, "Snapshot imported")
	span.SetStatus(codes.Ok, "Trip imported")
	return nil
}

// SaveTrip exports the current snapshot and upserts it remotely with the
// given display metadata. A failed save leaves in-memory state untouched.
func (s *ServiceImpl) SaveTrip(ctx context.Context, tripID, ownerID string, meta types.SaveTripRequest) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "SaveTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SaveTrip"), slog.String("tripID", tripID))

	payload, err := s.ExportTrip(ctx, tripID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Export failed")
		return err
	}

	rec := types.TripRecord{
		TripID:      tripID,
		OwnerID:     ownerID,
		Title:       meta.Title,
		Destination: meta.Destination,
		CoverURL:    meta.CoverURL,
	}
	if err := s.repository.SaveTrip(ctx, rec, payload); err != nil {
		l.ErrorContext(ctx, "Failed to save trip remotely", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remote save failed")
		return fmt.Errorf("failed to save trip: %w", err)
	}

	metrics.Get().TripSavesTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Trip saved remotely", slog.Int("payload_bytes", len(payload)))
	span.SetStatus(codes.Ok, "Trip saved")
	return nil
}

// LoadTrip fetches the remote snapshot and imports it, fully replacing the
// in-memory state. A failed fetch or a malformed payload leaves the current
// state untouched.
func (s *ServiceImpl) LoadTrip(ctx context.Context, tripID, userID string) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "LoadTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "LoadTrip"), slog.String("tripID", tripID))

	_, payload, err := s.repository.GetTrip(ctx, tripID, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remote fetch failed")
		return fmt.Errorf("failed to load trip: %w", err)
	}

	if err := s.ImportTrip(ctx, tripID, payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Import failed")
		return err
	}

	metrics.Get().TripLoadsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Trip loaded from remote")
	span.SetStatus(codes.Ok, "Trip loaded")
	return nil
}

func (s *ServiceImpl) ListTrips(ctx context.Context, userID string) ([]types.TripRecord, error) {
	trips, err := s.repository.ListTrips(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

func (s *ServiceImpl) DeleteTrip(ctx context.Context, tripID, ownerID string) error {
	if err := s.repository.DeleteTrip(ctx, tripID, ownerID); err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	// Drop the live session too; a deleted trip starts fresh next time.
	s.sessions.Delete(tripID)
	return nil
}

func (s *ServiceImpl) ShareTrip(ctx context.Context, tripID, ownerID, userID string) error {
	if err := s.repository.ShareTrip(ctx, tripID, ownerID, userID); err != nil {
		return fmt.Errorf("failed to share trip: %w", err)
	}
	return nil
}

func (s *ServiceImpl) UnshareTrip(ctx context.Context, tripID, ownerID, userID string) error {
	if err := s.repository.UnshareTrip(ctx, tripID, ownerID, userID); err != nil {
		return fmt.Errorf("failed to unshare trip: %w", err)
	}
	return nil
}
