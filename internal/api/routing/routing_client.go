// Package routing is the client for the external routing collaborator. It
// speaks the OSRM HTTP contract: two coordinates and a mode in, an ordered
// path of coordinates out. The engine stores whatever comes back verbatim.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pierosc/japan-itinerary/internal/types"
)

var _ Directions = (*Client)(nil)

// Directions resolves a travel path between two coordinates. A nil path with
// a nil error means the mode has no lookup (train legs are drawn straight).
type Directions interface {
	FindPath(ctx context.Context, from, to types.Coordinate, mode types.TravelMode) ([]types.Coordinate, error)
}

type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		logger:     logger,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache.New(1*time.Hour, 10*time.Minute),
	}
}

// osrmResponse is the slice of the OSRM payload we care about.
type osrmResponse struct {
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lng, lat] pairs
		} `json:"geometry"`
	} `json:"routes"`
}

var profiles = map[types.TravelMode]string{
	types.ModeWalk: "foot",
	types.ModeCar:  "driving",
}

// FindPath queries the routing service for a path between two coordinates.
// Train legs have no routing profile and return nil without a lookup.
func (c *Client) FindPath(ctx context.Context, from, to types.Coordinate, mode types.TravelMode) ([]types.Coordinate, error) {
	ctx, span := otel.Tracer("RoutingClient").Start(ctx, "FindPath", trace.WithAttributes(
		attribute.String("routing.mode", string(mode)),
	))
	defer span.End()

	profile, ok := profiles[mode]
	if !ok {
		span.SetStatus(codes.Ok, "No routing profile for mode")
		return nil, nil
	}

	key := fmt.Sprintf("%s|%f,%f|%f,%f", profile, from.Lng, from.Lat, to.Lng, to.Lat)
	if cached, found := c.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("routing.cache_hit", true))
		span.SetStatus(codes.Ok, "Path served from cache")
		return cached.([]types.Coordinate), nil
	}

	url := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		c.baseURL, profile, from.Lng, from.Lat, to.Lng, to.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build request")
		return nil, fmt.Errorf("failed to build routing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Routing lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Routing lookup failed")
		return nil, fmt.Errorf("routing lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("routing service returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unexpected routing status")
		return nil, err
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode routing response")
		return nil, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if len(body.Routes) == 0 {
		span.SetStatus(codes.Ok, "No route found")
		return nil, nil
	}

	coords := body.Routes[0].Geometry.Coordinates
	path := make([]types.Coordinate, 0, len(coords))
	for _, pair := range coords {
		if len(pair) < 2 {
			continue
		}
		path = append(path, types.Coordinate{Lat: pair[1], Lng: pair[0]})
	}

	c.cache.Set(key, path, cache.DefaultExpiration)
	span.SetAttributes(attribute.Int("routing.path_points", len(path)))
	span.SetStatus(codes.Ok, "Path resolved")
	return path, nil
}
