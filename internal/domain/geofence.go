package domain

// Placement is the (macro-region, locality) pair attached to a position.
type Placement struct {
	Region  string `toml:"region"`
	Country string `toml:"country"`
}

// BoundingBox is an inclusive lat/lng rectangle labelled with a placement.
type BoundingBox struct {
	MinLat float64 `toml:"min_lat"`
	MaxLat float64 `toml:"max_lat"`
	MinLng float64 `toml:"min_lng"`
	MaxLng float64 `toml:"max_lng"`
	Placement
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// InternationalAirspace is returned when no box matches.
var InternationalAirspace = Placement{Region: "Global", Country: "International Airspace"}

// DefaultBoxes is the compiled-in box list. Where boxes overlap the earlier
// one wins, so the Black Sea box shadows the north of the Eastern Mediterranean.
func DefaultBoxes() []BoundingBox {
	return []BoundingBox{
		{MinLat: 35, MaxLat: 55, MinLng: 25, MaxLng: 45, Placement: Placement{"Eastern Europe", "Black Sea Region"}},
		{MinLat: 30, MaxLat: 40, MinLng: 30, MaxLng: 40, Placement: Placement{"Middle East", "Eastern Mediterranean"}},
		{MinLat: 28, MaxLat: 35, MinLng: 32, MaxLng: 37, Placement: Placement{"Middle East", "Israel/Lebanon"}},
		{MinLat: 20, MaxLat: 30, MinLng: 115, MaxLng: 130, Placement: Placement{"Asia Pacific", "Taiwan Strait"}},
		{MinLat: 10, MaxLat: 20, MinLng: 40, MaxLng: 55, Placement: Placement{"Middle East", "Red Sea/Yemen"}},
		{MinLat: 50, MaxLat: 70, MinLng: 15, MaxLng: 35, Placement: Placement{"Europe", "Baltic/Nordic Region"}},
		{MinLat: 35, MaxLat: 45, MinLng: -10, MaxLng: 5, Placement: Placement{"Europe", "Western Europe"}},
		{MinLat: 30, MaxLat: 50, MinLng: -130, MaxLng: -60, Placement: Placement{"North America", "Continental US"}},
		{MinLat: 32, MaxLat: 42, MinLng: 125, MaxLng: 145, Placement: Placement{"Asia Pacific", "Japan/Korea"}},
	}
}

// Geofence maps coordinates to placements, first matching box wins.
// It holds no mutable state and is safe for concurrent use.
type Geofence struct {
	boxes []BoundingBox
}

// NewGeofence copies boxes so later changes by the caller have no effect.
func NewGeofence(boxes []BoundingBox) *Geofence {
	return &Geofence{boxes: append([]BoundingBox(nil), boxes...)}
}

// Resolve returns the placement of the first box containing the point, or
// InternationalAirspace.
func (g *Geofence) Resolve(lat, lng float64) Placement {
	for _, b := range g.boxes {
		if b.Contains(lat, lng) {
			return b.Placement
		}
	}
	return InternationalAirspace
}

var defaultGeofence = NewGeofence(DefaultBoxes())

// ResolveRegion resolves a point against the compiled-in boxes.
func ResolveRegion(lat, lng float64) Placement {
	return defaultGeofence.Resolve(lat, lng)
}
