package types

// Category classifies a place on the itinerary.
type Category string

const (
	CategoryRestaurant    Category = "restaurant"
	CategoryShop          Category = "shop"
	CategorySupermarket   Category = "supermarket"
	CategoryUsedBookstore Category = "used-bookstore"
	CategoryAttraction    Category = "attraction"
	CategoryCafe          Category = "cafe"
	CategoryHotel         Category = "hotel"
	CategoryOther         Category = "other"
)

// Image is a picture attached to a place or a place item. Either URL points
// at a remote image or Data holds the raw bytes; Name labels it in the UI.
type Image struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// PlaceItem is a sub-item of a place (a dish, a purchase). Used for
// restaurant/shop style places to break spend down into line items.
type PlaceItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	PriceJPY  int    `json:"priceJPY"`
	Notes     string `json:"notes,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	ImageData []byte `json:"imageData,omitempty"`
	Checked   bool   `json:"checked"`
}

// Place is a point of interest placed on a day of the trip.
// Date is the calendar-day key ("2006-01-02"); nil means the place sits in
// the unassigned pool. The position of a Place inside the store's collection
// defines its display order within its day.
type Place struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Category    Category    `json:"category"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Date        *string     `json:"date"`
	StartTime   string      `json:"startTime,omitempty"`
	DurationMin int         `json:"durationMin"`
	PriceRange  string      `json:"priceRange,omitempty"`
	SourceURL   string      `json:"sourceUrl,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	SpendJPY    int         `json:"spendJPY"`
	Images      []Image     `json:"images"`
	Items       []PlaceItem `json:"items,omitempty"`
}

// ItemsSubtotal returns the derived total of the place's line items.
func (p Place) ItemsSubtotal() int {
	total := 0
	for _, it := range p.Items {
		total += it.Qty * it.PriceJPY
	}
	return total
}

// AddPlaceParams carries the caller-supplied fields for a new place.
// Date nil means "use the currently selected day"; Unassigned true pools the
// place with no day regardless of Date.
type AddPlaceParams struct {
	Name        string      `json:"name"`
	Category    Category    `json:"category"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
	Date        *string     `json:"date,omitempty"`
	Unassigned  bool        `json:"unassigned,omitempty"`
	StartTime   string      `json:"startTime,omitempty"`
	DurationMin int         `json:"durationMin,omitempty"`
	PriceRange  string      `json:"priceRange,omitempty"`
	SourceURL   string      `json:"sourceUrl,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	SpendJPY    int         `json:"spendJPY,omitempty"`
	Images      []Image     `json:"images,omitempty"`
	Items       []PlaceItem `json:"items,omitempty"`
}

// PlacePatch is a partial update for a place; nil fields are left untouched.
// ClearDate moves the place back to the unassigned pool and wins over Date.
type PlacePatch struct {
	Name        *string      `json:"name,omitempty"`
	Category    *Category    `json:"category,omitempty"`
	Lat         *float64     `json:"lat,omitempty"`
	Lng         *float64     `json:"lng,omitempty"`
	Date        *string      `json:"date,omitempty"`
	ClearDate   bool         `json:"clearDate,omitempty"`
	StartTime   *string      `json:"startTime,omitempty"`
	DurationMin *int         `json:"durationMin,omitempty"`
	PriceRange  *string      `json:"priceRange,omitempty"`
	SourceURL   *string      `json:"sourceUrl,omitempty"`
	Notes       *string      `json:"notes,omitempty"`
	SpendJPY    *int         `json:"spendJPY,omitempty"`
	Images      *[]Image     `json:"images,omitempty"`
	Items       *[]PlaceItem `json:"items,omitempty"`
}
