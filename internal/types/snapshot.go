package types

// SnapshotVersion is the current schema version written on export. The
// engine carries it through for collaborators but never branches on it.
const SnapshotVersion = 5

// Currency is the advisory display-conversion preference. RatePerJPY is
// "output units per one JPY"; spend truth stays in JPY.
type Currency struct {
	Code       string  `json:"code"`
	RatePerJPY float64 `json:"ratePerJPY"`
}

// Prefs are UI-adjacent preferences the engine round-trips verbatim.
type Prefs struct {
	ShowMap      bool   `json:"showMap"`
	FinanceOpen  bool   `json:"financeOpen"`
	RouteVisible bool   `json:"routeVisible"`
	Basemap      string `json:"basemap"`
	MapTilerKey  string `json:"mapTilerKey"`
}

// Snapshot is the complete exported state of one trip.
type Snapshot struct {
	Version      int      `json:"version"`
	Days         []string `json:"days"`
	SelectedDate string   `json:"selectedDate"`
	Currency     Currency `json:"currency"`
	Prefs        *Prefs   `json:"ui,omitempty"`
	Places       []Place  `json:"places"`
	Legs         []Leg    `json:"legs"`
}
