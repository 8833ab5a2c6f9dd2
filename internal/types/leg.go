package types

// TravelMode is the means of travel for a leg.
type TravelMode string

const (
	ModeWalk  TravelMode = "walk"
	ModeTrain TravelMode = "train"
	ModeCar   TravelMode = "car"
)

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Leg is a directed travel connection between two places of the same day.
// Path holds the geometry returned by the routing collaborator, stored
// verbatim; it is nil when no lookup was done or the lookup failed.
type Leg struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	FromID      string       `json:"fromId"`
	ToID        string       `json:"toId"`
	Mode        TravelMode   `json:"mode"`
	Name        string       `json:"name,omitempty"`
	Path        []Coordinate `json:"path,omitempty"`
	DurationMin *int         `json:"durationMin,omitempty"`
	PriceJPY    *int         `json:"priceJPY,omitempty"`
}

// LegPatch is a partial update for a leg; nil fields are left untouched.
type LegPatch struct {
	Mode        *TravelMode   `json:"mode,omitempty"`
	Name        *string       `json:"name,omitempty"`
	Path        *[]Coordinate `json:"path,omitempty"`
	DurationMin *int          `json:"durationMin,omitempty"`
	PriceJPY    *int          `json:"priceJPY,omitempty"`
}
