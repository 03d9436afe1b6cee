package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRegion(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     Placement
	}{
		{"black sea", 43.5, 34.0, Placement{"Eastern Europe", "Black Sea Region"}},
		{"black sea shadows eastern med", 36, 35, Placement{"Eastern Europe", "Black Sea Region"}},
		{"eastern med south of black sea box", 33, 31, Placement{"Middle East", "Eastern Mediterranean"}},
		{"israel outside both earlier boxes", 29, 33, Placement{"Middle East", "Israel/Lebanon"}},
		{"taiwan strait", 24, 120, Placement{"Asia Pacific", "Taiwan Strait"}},
		{"red sea", 15.2, 45.5, Placement{"Middle East", "Red Sea/Yemen"}},
		{"baltic", 58, 20, Placement{"Europe", "Baltic/Nordic Region"}},
		{"iberia", 40, -4, Placement{"Europe", "Western Europe"}},
		{"continental us", 39, -98, Placement{"North America", "Continental US"}},
		{"japan", 36, 140, Placement{"Asia Pacific", "Japan/Korea"}},
		{"inclusive edge", 55, 45, Placement{"Eastern Europe", "Black Sea Region"}},
		{"south atlantic", -30, -20, InternationalAirspace},
		{"null island", 0, 0, InternationalAirspace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRegion(tt.lat, tt.lng))
		})
	}
}

func TestResolveRegion_Idempotent(t *testing.T) {
	allowed := map[Placement]bool{InternationalAirspace: true}
	for _, b := range DefaultBoxes() {
		allowed[b.Placement] = true
	}

	for lat := -90.0; lat <= 90; lat += 2.5 {
		for lng := -180.0; lng <= 180; lng += 5 {
			first := ResolveRegion(lat, lng)
			assert.Equal(t, first, ResolveRegion(lat, lng))
			assert.True(t, allowed[first], "unexpected placement %+v at %v,%v", first, lat, lng)
		}
	}
}

func TestNewGeofence_CopiesBoxes(t *testing.T) {
	boxes := []BoundingBox{{MinLat: 0, MaxLat: 1, MinLng: 0, MaxLng: 1, Placement: Placement{"Test", "Square"}}}
	g := NewGeofence(boxes)

	boxes[0].Placement = Placement{"Changed", "Later"}

	assert.Equal(t, Placement{"Test", "Square"}, g.Resolve(0.5, 0.5))
	assert.Equal(t, InternationalAirspace, g.Resolve(2, 2))
}
