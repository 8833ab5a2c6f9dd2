// Package geocoding is the client for the external search collaborator. It
// speaks the Nominatim HTTP contract: free text in, coordinate candidates
// out, used to construct new places.
package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pierosc/japan-itinerary/internal/types"
)

var _ Searcher = (*Client)(nil)

// Searcher resolves free text into coordinate candidates.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error)
}

type Client struct {
	logger     *slog.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		logger:     logger,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// nominatimResult mirrors one entry of the Nominatim search response.
// Coordinates come back as strings.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns up to limit candidates for the query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.GeocodeResult, error) {
	ctx, span := otel.Tracer("GeocodingClient").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("geocoding.query", query),
	))
	defer span.End()

	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to build request")
		return nil, fmt.Errorf("failed to build geocoding request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", "japan-itinerary/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Geocoding lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoding lookup failed")
		return nil, fmt.Errorf("geocoding lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unexpected geocoding status")
		return nil, err
	}

	var body []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode geocoding response")
		return nil, fmt.Errorf("failed to decode geocoding response: %w", err)
	}

	results := make([]types.GeocodeResult, 0, len(body))
	for _, entry := range body {
		lat, latErr := strconv.ParseFloat(entry.Lat, 64)
		lng, lngErr := strconv.ParseFloat(entry.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		results = append(results, types.GeocodeResult{
			Name: entry.DisplayName,
			Lat:  lat,
			Lng:  lng,
		})
	}

	span.SetAttributes(attribute.Int("geocoding.results", len(results)))
	span.SetStatus(codes.Ok, "Search completed")
	return results, nil
}
