package trip

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pierosc/japan-itinerary/internal/itinerary"
	"github.com/pierosc/japan-itinerary/internal/types"
)

// MockTripRepository is a mock implementation of Repository
type MockTripRepository struct {
	mock.Mock
}

func (m *MockTripRepository) SaveTrip(ctx context.Context, rec types.TripRecord, data []byte) error {
	args := m.Called(ctx, rec, data)
	return args.Error(0)
}

func (m *MockTripRepository) GetTrip(ctx context.Context, tripID, userID string) (*types.TripRecord, []byte, error) {
	args := m.Called(ctx, tripID, userID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*types.TripRecord), args.Get(1).([]byte), args.Error(2)
}

func (m *MockTripRepository) ListTrips(ctx context.Context, userID string) ([]types.TripRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.TripRecord), args.Error(1)
}

func (m *MockTripRepository) DeleteTrip(ctx context.Context, tripID, ownerID string) error {
	args := m.Called(ctx, tripID, ownerID)
	return args.Error(0)
}

func (m *MockTripRepository) ShareTrip(ctx context.Context, tripID, ownerID, targetUserID string) error {
	args := m.Called(ctx, tripID, ownerID, targetUserID)
	return args.Error(0)
}

func (m *MockTripRepository) UnshareTrip(ctx context.Context, tripID, ownerID, targetUserID string) error {
	args := m.Called(ctx, tripID, ownerID, targetUserID)
	return args.Error(0)
}

// stubDirections lets tests script the routing collaborator.
type stubDirections struct {
	findPath func(ctx context.Context, from, to types.Coordinate, mode types.TravelMode) ([]types.Coordinate, error)
}

func (s *stubDirections) FindPath(ctx context.Context, from, to types.Coordinate, mode types.TravelMode) ([]types.Coordinate, error) {
	return s.findPath(ctx, from, to, mode)
}

// stubSearcher scripts the geocoding collaborator.
type stubSearcher struct {
	search func(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	return s.search(ctx, query, limit)
}

func setupTripServiceTest() (*ServiceImpl, *MockTripRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockTripRepository)
	service := NewServiceImpl(mockRepo, nil, nil, logger)
	return service, mockRepo
}

func strPtr(s string) *string { return &s }

func TestServiceImpl_SessionsAreIsolatedPerTrip(t *testing.T) {
	service, _ := setupTripServiceTest()
	ctx := context.Background()

	service.AddPlace(ctx, "trip-a", types.AddPlaceParams{Name: "Senso-ji", Unassigned: true})

	assert.Len(t, service.UnassignedPlaces(ctx, "trip-a"), 1)
	assert.Empty(t, service.UnassignedPlaces(ctx, "trip-b"))
}

func TestServiceImpl_AddLeg(t *testing.T) {
	ctx := context.Background()
	day := "2026-04-01"

	seedPlaces := func(s *ServiceImpl) (types.Place, types.Place) {
		from := s.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Senso-ji", Lat: 35.7148, Lng: 139.7967, Date: strPtr(day)})
		to := s.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Akihabara", Lat: 35.6984, Lng: 139.7731, Date: strPtr(day)})
		return from, to
	}

	t.Run("resolves path through the routing collaborator", func(t *testing.T) {
		service, _ := setupTripServiceTest()
		wantPath := []types.Coordinate{{Lat: 35.7148, Lng: 139.7967}, {Lat: 35.6984, Lng: 139.7731}}
		service.directions = &stubDirections{
			findPath: func(_ context.Context, from, to types.Coordinate, mode types.TravelMode) ([]types.Coordinate, error) {
				assert.Equal(t, types.ModeWalk, mode)
				assert.InDelta(t, 35.7148, from.Lat, 1e-9)
				assert.InDelta(t, 139.7731, to.Lng, 1e-9)
				return wantPath, nil
			},
		}
		from, to := seedPlaces(service)

		leg := service.AddLeg(ctx, "trip-1", day, from.ID, to.ID, types.ModeWalk, true)
		assert.Equal(t, wantPath, leg.Path)
		assert.Equal(t, types.ModeWalk, leg.Mode)
	})

	t.Run("routing failure still creates the leg, without geometry", func(t *testing.T) {
		service, _ := setupTripServiceTest()
		service.directions = &stubDirections{
			findPath: func(context.Context, types.Coordinate, types.Coordinate, types.TravelMode) ([]types.Coordinate, error) {
				return nil, errors.New("osrm unreachable")
			},
		}
		from, to := seedPlaces(service)

		leg := service.AddLeg(ctx, "trip-1", day, from.ID, to.ID, types.ModeWalk, true)
		assert.NotEmpty(t, leg.ID)
		assert.Nil(t, leg.Path)
		assert.Len(t, service.LegsForDay(ctx, "trip-1", day), 1)
	})

	t.Run("resolvePath false never calls the collaborator", func(t *testing.T) {
		service, _ := setupTripServiceTest()
		service.directions = &stubDirections{
			findPath: func(context.Context, types.Coordinate, types.Coordinate, types.TravelMode) ([]types.Coordinate, error) {
				t.Fatal("FindPath should not be called")
				return nil, nil
			},
		}
		from, to := seedPlaces(service)

		leg := service.AddLeg(ctx, "trip-1", day, from.ID, to.ID, types.ModeTrain, false)
		assert.Nil(t, leg.Path)
	})
}

func TestServiceImpl_SaveTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("exports the snapshot and upserts it with metadata", func(t *testing.T) {
		service, mockRepo := setupTripServiceTest()
		service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Senso-ji", Unassigned: true})

		var savedPayload []byte
		// The service wraps the caller's context in a span, so expectations
		// must not pin the context value itself.
		mockRepo.On("SaveTrip", mock.Anything, mock.MatchedBy(func(rec types.TripRecord) bool {
			return rec.TripID == "trip-1" && rec.OwnerID == "user-1" && rec.Title == "Tokyo"
		}), mock.Anything).Run(func(args mock.Arguments) {
			savedPayload = args.Get(2).([]byte)
		}).Return(nil).Once()

		err := service.SaveTrip(ctx, "trip-1", "user-1", types.SaveTripRequest{Title: "Tokyo"})
		require.NoError(t, err)
		assert.Contains(t, string(savedPayload), `"Senso-ji"`)
		assert.Contains(t, string(savedPayload), `"version": 5`)
		mockRepo.AssertExpectations(t)
	})

	t.Run("repository failure surfaces and leaves memory untouched", func(t *testing.T) {
		service, mockRepo := setupTripServiceTest()
		service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Senso-ji", Unassigned: true})
		repoErr := errors.New("connection refused")
		mockRepo.On("SaveTrip", mock.Anything, mock.Anything, mock.Anything).Return(repoErr).Once()

		err := service.SaveTrip(ctx, "trip-1", "user-1", types.SaveTripRequest{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, repoErr))
		assert.Len(t, service.UnassignedPlaces(ctx, "trip-1"), 1)
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceImpl_LoadTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces in-memory state with the stored snapshot", func(t *testing.T) {
		service, mockRepo := setupTripServiceTest()
		service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Stale", Unassigned: true})

		stored := []byte(`{
			"version": 5,
			"days": ["2026-04-01"],
			"selectedDate": "2026-04-01",
			"places": [{"id": "p1", "name": "Fushimi Inari", "date": "2026-04-01"}],
			"legs": []
		}`)
		rec := &types.TripRecord{TripID: "trip-1", OwnerID: "user-1"}
		mockRepo.On("GetTrip", mock.Anything, "trip-1", "user-1").Return(rec, stored, nil).Once()

		err := service.LoadTrip(ctx, "trip-1", "user-1")
		require.NoError(t, err)

		places := service.PlacesForDay(ctx, "trip-1", "2026-04-01")
		require.Len(t, places, 1)
		assert.Equal(t, "Fushimi Inari", places[0].Name)
		assert.Empty(t, service.UnassignedPlaces(ctx, "trip-1"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("missing trip leaves memory untouched", func(t *testing.T) {
		service, mockRepo := setupTripServiceTest()
		service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Keep me", Unassigned: true})
		mockRepo.On("GetTrip", mock.Anything, "trip-1", "user-1").Return(nil, nil, ErrTripNotFound).Once()

		err := service.LoadTrip(ctx, "trip-1", "user-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTripNotFound))
		assert.Len(t, service.UnassignedPlaces(ctx, "trip-1"), 1)
		mockRepo.AssertExpectations(t)
	})

	t.Run("malformed stored snapshot is rejected and memory kept", func(t *testing.T) {
		service, mockRepo := setupTripServiceTest()
		service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Keep me", Unassigned: true})
		rec := &types.TripRecord{TripID: "trip-1", OwnerID: "user-1"}
		mockRepo.On("GetTrip", mock.Anything, "trip-1", "user-1").Return(rec, []byte("{not json"), nil).Once()

		err := service.LoadTrip(ctx, "trip-1", "user-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, itinerary.ErrMalformedPayload))
		assert.Len(t, service.UnassignedPlaces(ctx, "trip-1"), 1)
		mockRepo.AssertExpectations(t)
	})
}

func TestServiceImpl_DeleteTrip(t *testing.T) {
	service, mockRepo := setupTripServiceTest()
	ctx := context.Background()

	service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Senso-ji", Unassigned: true})
	mockRepo.On("DeleteTrip", mock.Anything, "trip-1", "user-1").Return(nil).Once()

	require.NoError(t, service.DeleteTrip(ctx, "trip-1", "user-1"))

	// The live session is dropped alongside the remote record.
	assert.Empty(t, service.UnassignedPlaces(ctx, "trip-1"))
	mockRepo.AssertExpectations(t)
}

func TestServiceImpl_Totals(t *testing.T) {
	service, _ := setupTripServiceTest()
	ctx := context.Background()
	day := "2026-04-01"

	view := service.AddDay(ctx, "trip-1", day)
	service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Ramen", Date: strPtr(day), SpendJPY: 2000})
	// Item subtotals are a derived view; only SpendJPY counts as spend.
	service.AddPlace(ctx, "trip-1", types.AddPlaceParams{
		Name: "Bookstore", Date: strPtr(day),
		Items: []types.PlaceItem{{ID: "i1", Name: "Paperback", Qty: 2, PriceJPY: 150}},
	})
	service.SetCurrency(ctx, "trip-1", "EUR", 0.006)

	totals := service.Totals(ctx, "trip-1")
	assert.Equal(t, 2000, totals.TripJPY)
	assert.Equal(t, 2000, totals.PerDayJPY[day])
	assert.InDelta(t, 12.0, totals.Converted, 1e-9)
	assert.Equal(t, "EUR", totals.CurrencyCode)

	// Per-day keys come from the day set itself.
	assert.Len(t, totals.PerDayJPY, len(view.Days))
	for _, d := range view.Days {
		assert.Contains(t, totals.PerDayJPY, d)
	}
}

func TestServiceImpl_SearchPlaces(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards to the geocoder", func(t *testing.T) {
		service, _ := setupTripServiceTest()
		service.geocoder = &stubSearcher{
			search: func(_ context.Context, query string, limit int) ([]types.GeocodeResult, error) {
				assert.Equal(t, "Kinkaku-ji", query)
				assert.Equal(t, 3, limit)
				return []types.GeocodeResult{{Name: "Kinkaku-ji", Lat: 35.0394, Lng: 135.7292}}, nil
			},
		}

		results, err := service.SearchPlaces(ctx, "Kinkaku-ji", 3)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Kinkaku-ji", results[0].Name)
	})

	t.Run("unconfigured geocoder errors", func(t *testing.T) {
		service, _ := setupTripServiceTest()
		_, err := service.SearchPlaces(ctx, "anything", 5)
		require.Error(t, err)
	})
}

func TestServiceImpl_Prefs(t *testing.T) {
	service, _ := setupTripServiceTest()
	ctx := context.Background()

	prefs := service.Prefs(ctx, "trip-1")
	assert.True(t, prefs.ShowMap)
	assert.True(t, prefs.RouteVisible)
	assert.False(t, prefs.FinanceOpen)

	show := false
	finance := true
	basemap := "osm-bright"
	updated := service.UpdatePrefs(ctx, "trip-1", PrefsUpdate{
		ShowMap:     &show,
		FinanceOpen: &finance,
		Basemap:     &basemap,
	})
	assert.False(t, updated.ShowMap)
	assert.True(t, updated.FinanceOpen)
	assert.Equal(t, "osm-bright", updated.Basemap)
	// Untouched fields survive a partial update.
	assert.True(t, updated.RouteVisible)
}

func TestServiceImpl_ClearTrip(t *testing.T) {
	service, _ := setupTripServiceTest()
	ctx := context.Background()

	service.AddPlace(ctx, "trip-1", types.AddPlaceParams{Name: "Senso-ji", Unassigned: true})
	service.SetCurrency(ctx, "trip-1", "EUR", 0.006)

	service.ClearTrip(ctx, "trip-1")

	assert.Empty(t, service.UnassignedPlaces(ctx, "trip-1"))
	assert.Equal(t, "EUR", service.Totals(ctx, "trip-1").CurrencyCode)
}

func TestServiceImpl_ImportTrip(t *testing.T) {
	service, _ := setupTripServiceTest()
	ctx := context.Background()

	err := service.ImportTrip(ctx, "trip-1", []byte("not json at all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, itinerary.ErrMalformedPayload))
}
