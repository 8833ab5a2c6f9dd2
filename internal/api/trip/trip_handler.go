package trip

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/pierosc/japan-itinerary/app/middleware"
	"github.com/pierosc/japan-itinerary/internal/api"
	"github.com/pierosc/japan-itinerary/internal/itinerary"
	"github.com/pierosc/japan-itinerary/internal/types"
)

// importMaxBytes caps inline snapshot uploads; snapshots can carry embedded
// image bytes so this is deliberately generous.
const importMaxBytes = 16 << 20

type Handler struct {
	tripService Service
	logger      *slog.Logger
}

// NewHandler creates a new trip handler instance.
func NewHandler(tripService Service, logger *slog.Logger) *Handler {
	if logger == nil {
		panic("PANIC: Attempting to create trip Handler with nil logger!")
	}
	return &Handler{
		tripService: tripService,
		logger:      logger,
	}
}

type dayRequest struct {
	Date string `json:"date"`
}

type orderRequest struct {
	Order []string `json:"order"`
}

type addLegRequest struct {
	Date        string           `json:"date"`
	FromID      string           `json:"fromId"`
	ToID        string           `json:"toId"`
	Mode        types.TravelMode `json:"mode"`
	ResolvePath bool             `json:"resolvePath"`
}

type currencyRequest struct {
	Code       string  `json:"code"`
	RatePerJPY float64 `json:"ratePerJPY"`
}

type selectionRequest struct {
	PlaceID string `json:"placeId"`
}

type shareRequest struct {
	UserID string `json:"userId"`
}

// requireUserID pulls the authenticated user from the request context, or
// writes a 401 and returns false.
func (h *Handler) requireUserID(w http.ResponseWriter, r *http.Request, span trace.Span) (string, bool) {
	userID, ok := appMiddleware.GetUserIDFromContext(r.Context())
	if !ok || userID == "" {
		h.logger.ErrorContext(r.Context(), "User ID not found in context")
		span.SetStatus(codes.Error, "Authentication required")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return "", false
	}
	return userID, true
}

// ---- Days ----

// SelectDay godoc
// @Summary      Select Day
// @Description  Switches the trip's selected day; unknown days are added first.
// @Tags         Trip
// @Router       /trips/{tripID}/days/selected [put]
func (h *Handler) SelectDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "SelectDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days/selected"),
	))
	defer span.End()

	var req dayRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	view := h.tripService.SelectDay(ctx, chi.URLParam(r, "tripID"), req.Date)
	span.SetStatus(codes.Ok, "Day selected")
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

func (h *Handler) AddDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "AddDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days"),
	))
	defer span.End()

	var req dayRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "date is required")
		return
	}
	view := h.tripService.AddDay(ctx, chi.URLParam(r, "tripID"), req.Date)
	span.SetStatus(codes.Ok, "Day added")
	api.WriteJSONResponse(w, r, http.StatusCreated, view)
}

// RemoveDay removes a day together with its places and legs.
func (h *Handler) RemoveDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "RemoveDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days/{day}"),
	))
	defer span.End()

	view := h.tripService.RemoveDay(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "day"))
	span.SetStatus(codes.Ok, "Day removed")
	api.WriteJSONResponse(w, r, http.StatusOK, view)
}

// ---- Places ----

// AddPlace godoc
// @Summary      Add Place
// @Description  Adds a place to the selected day, an explicit day, or the unassigned pool.
// @Tags         Trip
// @Router       /trips/{tripID}/places [post]
func (h *Handler) AddPlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "AddPlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AddPlace"))

	var params types.AddPlaceParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Invalid add-place body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if params.Name == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "name is required")
		return
	}

	place := h.tripService.AddPlace(ctx, chi.URLParam(r, "tripID"), params)
	span.SetStatus(codes.Ok, "Place added")
	api.WriteJSONResponse(w, r, http.StatusCreated, place)
}

func (h *Handler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdatePlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places/{placeID}"),
	))
	defer span.End()

	var patch types.PlacePatch
	if err := api.DecodeJSONBody(w, r, &patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.tripService.UpdatePlace(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "placeID"), patch)
	span.SetStatus(codes.Ok, "Place updated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemovePlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "RemovePlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places/{placeID}"),
	))
	defer span.End()

	h.tripService.RemovePlace(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "placeID"))
	span.SetStatus(codes.Ok, "Place removed")
	w.WriteHeader(http.StatusNoContent)
}

// AssignPlaceToDay moves a place (typically from the unassigned pool) onto a
// day, creating the day if needed.
func (h *Handler) AssignPlaceToDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "AssignPlaceToDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places/{placeID}/day"),
	))
	defer span.End()

	var req dayRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Date == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "date is required")
		return
	}
	h.tripService.AssignPlaceToDay(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "placeID"), req.Date)
	span.SetStatus(codes.Ok, "Place assigned")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectPlace(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "SelectPlace", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/selection"),
	))
	defer span.End()

	var req selectionRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.tripService.SelectPlace(ctx, chi.URLParam(r, "tripID"), req.PlaceID)
	span.SetStatus(codes.Ok, "Place selected")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PlacesForDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "PlacesForDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days/{day}/places"),
	))
	defer span.End()

	places := h.tripService.PlacesForDay(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "day"))
	span.SetStatus(codes.Ok, "Places retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

func (h *Handler) UnassignedPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UnassignedPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/places/unassigned"),
	))
	defer span.End()

	places := h.tripService.UnassignedPlaces(ctx, chi.URLParam(r, "tripID"))
	span.SetStatus(codes.Ok, "Unassigned places retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

// ReorderDay godoc
// @Summary      Reorder Day
// @Description  Replaces the display order of a day's places; legs between places that are no longer adjacent are dropped.
// @Tags         Trip
// @Router       /trips/{tripID}/days/{day}/order [put]
func (h *Handler) ReorderDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ReorderDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days/{day}/order"),
	))
	defer span.End()

	var req orderRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tripID := chi.URLParam(r, "tripID")
	day := chi.URLParam(r, "day")
	h.tripService.ReorderDay(ctx, tripID, day, req.Order)
	span.SetStatus(codes.Ok, "Day reordered")
	api.WriteJSONResponse(w, r, http.StatusOK, h.tripService.PlacesForDay(ctx, tripID, day))
}

// ---- Legs ----

func (h *Handler) AddLeg(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "AddLeg", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/legs"),
	))
	defer span.End()

	var req addLegRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.FromID == "" || req.ToID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "fromId and toId are required")
		return
	}

	leg := h.tripService.AddLeg(ctx, chi.URLParam(r, "tripID"), req.Date, req.FromID, req.ToID, req.Mode, req.ResolvePath)
	span.SetStatus(codes.Ok, "Leg added")
	api.WriteJSONResponse(w, r, http.StatusCreated, leg)
}

func (h *Handler) UpdateLeg(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdateLeg", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/legs/{legID}"),
	))
	defer span.End()

	var patch types.LegPatch
	if err := api.DecodeJSONBody(w, r, &patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.tripService.UpdateLeg(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "legID"), patch)
	span.SetStatus(codes.Ok, "Leg updated")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveLeg(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "RemoveLeg", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/legs/{legID}"),
	))
	defer span.End()

	h.tripService.RemoveLeg(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "legID"))
	span.SetStatus(codes.Ok, "Leg removed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LegsForDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "LegsForDay", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/days/{day}/legs"),
	))
	defer span.End()

	legs := h.tripService.LegsForDay(ctx, chi.URLParam(r, "tripID"), chi.URLParam(r, "day"))
	span.SetStatus(codes.Ok, "Legs retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, legs)
}

// ---- Totals & currency ----

func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "Totals", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/totals"),
	))
	defer span.End()

	totals := h.tripService.Totals(ctx, chi.URLParam(r, "tripID"))
	span.SetStatus(codes.Ok, "Totals computed")
	api.WriteJSONResponse(w, r, http.StatusOK, totals)
}

func (h *Handler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "SetCurrency", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/currency"),
	))
	defer span.End()

	var req currencyRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	currency := h.tripService.SetCurrency(ctx, chi.URLParam(r, "tripID"), req.Code, req.RatePerJPY)
	span.SetStatus(codes.Ok, "Currency updated")
	api.WriteJSONResponse(w, r, http.StatusOK, currency)
}

// ---- Preferences & reset ----

func (h *Handler) Prefs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "Prefs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/prefs"),
	))
	defer span.End()

	prefs := h.tripService.Prefs(ctx, chi.URLParam(r, "tripID"))
	span.SetStatus(codes.Ok, "Prefs retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, prefs)
}

func (h *Handler) UpdatePrefs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdatePrefs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/prefs"),
	))
	defer span.End()

	var update PrefsUpdate
	if err := api.DecodeJSONBody(w, r, &update); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	prefs := h.tripService.UpdatePrefs(ctx, chi.URLParam(r, "tripID"), update)
	span.SetStatus(codes.Ok, "Prefs updated")
	api.WriteJSONResponse(w, r, http.StatusOK, prefs)
}

// ClearTrip empties the itinerary while keeping currency and preferences.
func (h *Handler) ClearTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ClearTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/clear"),
	))
	defer span.End()

	h.tripService.ClearTrip(ctx, chi.URLParam(r, "tripID"))
	span.SetStatus(codes.Ok, "Trip cleared")
	w.WriteHeader(http.StatusNoContent)
}

// ---- Geocoding ----

// SearchPlaces proxies a free-text location search.
func (h *Handler) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "SearchPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchPlaces"))

	query := r.URL.Query().Get("q")
	if query == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "q is required")
		return
	}
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results, err := h.tripService.SearchPlaces(ctx, query, limit)
	if err != nil {
		l.ErrorContext(ctx, "Location search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Location search failed")
		api.ErrorResponse(w, r, http.StatusBadGateway, "Location search failed")
		return
	}
	span.SetStatus(codes.Ok, "Location search completed")
	api.WriteJSONResponse(w, r, http.StatusOK, results)
}

// ---- Snapshots & persistence ----

// ExportTrip streams the versioned snapshot as a JSON download.
func (h *Handler) ExportTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ExportTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/export"),
	))
	defer span.End()

	data, err := h.tripService.ExportTrip(ctx, chi.URLParam(r, "tripID"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Export failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to export trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip exported")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="trip.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportTrip replaces the trip's state with the posted snapshot. The body is
// the raw snapshot JSON, not a wrapper object.
func (h *Handler) ImportTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ImportTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/import"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ImportTrip"))

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, importMaxBytes))
	if err != nil {
		l.WarnContext(ctx, "Failed to read import body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read body")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := h.tripService.ImportTrip(ctx, chi.URLParam(r, "tripID"), payload); err != nil {
		if errors.Is(err, itinerary.ErrMalformedPayload) {
			span.SetStatus(codes.Error, "Malformed snapshot")
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, "Malformed trip snapshot")
			return
		}
		l.ErrorContext(ctx, "Import failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Import failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to import trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip imported")
	w.WriteHeader(http.StatusNoContent)
}

// SaveTrip godoc
// @Summary      Save Trip
// @Description  Exports the current snapshot and upserts it remotely under the authenticated owner.
// @Tags         Trip
// @Security     BearerAuth
// @Router       /trips/{tripID}/save [post]
func (h *Handler) SaveTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "SaveTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/save"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SaveTrip"))

	userID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	var meta types.SaveTripRequest
	if err := api.DecodeJSONBody(w, r, &meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tripID := chi.URLParam(r, "tripID")
	if err := h.tripService.SaveTrip(ctx, tripID, userID, meta); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			span.SetStatus(codes.Error, "Trip owned by someone else")
			api.ErrorResponse(w, r, http.StatusForbidden, "Trip belongs to another user")
			return
		}
		l.ErrorContext(ctx, "Failed to save trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip saved")
	w.WriteHeader(http.StatusNoContent)
}

// LoadTrip fetches the remote snapshot and replaces the in-memory state.
func (h *Handler) LoadTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "LoadTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/load"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "LoadTrip"))

	userID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	tripID := chi.URLParam(r, "tripID")
	if err := h.tripService.LoadTrip(ctx, tripID, userID); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			span.SetStatus(codes.Error, "Trip not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
			return
		}
		if errors.Is(err, itinerary.ErrMalformedPayload) {
			span.SetStatus(codes.Error, "Stored snapshot malformed")
			api.ErrorResponse(w, r, http.StatusUnprocessableEntity, "Stored trip snapshot is malformed")
			return
		}
		l.ErrorContext(ctx, "Failed to load trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Load failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip loaded")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ListTrips", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListTrips"))

	userID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	trips, err := h.tripService.ListTrips(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list trips", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list trips")
		return
	}
	span.SetStatus(codes.Ok, "Trips listed")
	api.WriteJSONResponse(w, r, http.StatusOK, trips)
}

func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "DeleteTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteTrip"))

	userID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	if err := h.tripService.DeleteTrip(ctx, chi.URLParam(r, "tripID"), userID); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			span.SetStatus(codes.Error, "Trip not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
			return
		}
		l.ErrorContext(ctx, "Failed to delete trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ShareTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "ShareTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/share"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ShareTrip"))

	userID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	var req shareRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.tripService.ShareTrip(ctx, chi.URLParam(r, "tripID"), userID, req.UserID); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			span.SetStatus(codes.Error, "Trip not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
			return
		}
		l.ErrorContext(ctx, "Failed to share trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Share failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to share trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip shared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UnshareTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UnshareTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/share/{userID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UnshareTrip"))

	ownerID, ok := h.requireUserID(w, r, span)
	if !ok {
		return
	}

	if err := h.tripService.UnshareTrip(ctx, chi.URLParam(r, "tripID"), ownerID, chi.URLParam(r, "userID")); err != nil {
		if errors.Is(err, ErrTripNotFound) {
			span.SetStatus(codes.Error, "Trip not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Trip not found")
			return
		}
		l.ErrorContext(ctx, "Failed to unshare trip", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unshare failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to unshare trip")
		return
	}
	span.SetStatus(codes.Ok, "Trip unshared")
	w.WriteHeader(http.StatusNoContent)
}
