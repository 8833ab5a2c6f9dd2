package types

import "time"

// TripRecord is the display metadata stored next to a trip's snapshot by the
// remote persistence collaborator. The engine itself never sees it.
type TripRecord struct {
	TripID      string    `json:"trip_id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	SharedWith  []string  `json:"shared_with,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SaveTripRequest is the metadata supplied when persisting a trip remotely.
type SaveTripRequest struct {
	Title       string `json:"title"`
	Destination string `json:"destination,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// GeocodeResult is one candidate returned by the search collaborator.
type GeocodeResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// TripTotals is the aggregate spend view for one trip.
type TripTotals struct {
	PerDayJPY    map[string]int `json:"per_day_jpy"`
	TripJPY      int            `json:"trip_jpy"`
	Converted    float64        `json:"converted"`
	CurrencyCode string         `json:"currency_code"`
}
