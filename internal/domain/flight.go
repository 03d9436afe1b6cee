package domain

import "time"

// AircraftCategory is the closed set of tags a classified flight can carry.
type AircraftCategory string

const (
	CategoryMilitary     AircraftCategory = "military"
	CategoryGovernment   AircraftCategory = "government"
	CategorySurveillance AircraftCategory = "surveillance"
	CategoryTanker       AircraftCategory = "tanker"
	CategoryTransport    AircraftCategory = "transport"
	CategoryCivil        AircraftCategory = "civil"
	CategoryFighter      AircraftCategory = "fighter"
	CategoryBomber       AircraftCategory = "bomber"
	CategoryHelicopter   AircraftCategory = "helicopter"
	CategoryDrone        AircraftCategory = "drone"
)

// Valid reports whether c is one of the ten known categories.
func (c AircraftCategory) Valid() bool {
	switch c {
	case CategoryMilitary, CategoryGovernment, CategorySurveillance, CategoryTanker,
		CategoryTransport, CategoryCivil, CategoryFighter, CategoryBomber,
		CategoryHelicopter, CategoryDrone:
		return true
	}
	return false
}

// GeoLocation is a WGS-84 position with the labels the map groups by.
type GeoLocation struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country,omitempty"`
}

// RawAircraftState is one state vector row from the transponder feed.
// Nil pointers mark values the feed did not report.
type RawAircraftState struct {
	ICAO24        string
	Callsign      string
	OriginCountry string
	Latitude      *float64
	Longitude     *float64
	BaroAltitude  *float64 // meters
	Velocity      *float64 // m/s over ground
	TrueTrack     *float64 // degrees clockwise from north
	OnGround      bool
}

// NormalizedFlight is a classified, airborne flight of interest.
type NormalizedFlight struct {
	ID           string           `json:"id"`
	Callsign     string           `json:"callsign"`
	AircraftType string           `json:"aircraftType"`
	Category     AircraftCategory `json:"category"`
	Location     GeoLocation      `json:"location"`
	Altitude     int              `json:"altitude"` // feet
	Speed        int              `json:"speed"`    // knots
	Heading      int              `json:"heading"`  // degrees
	Timestamp    time.Time        `json:"timestamp"`
}

// RecordKey identifies the flight when a snapshot is published downstream.
func (f NormalizedFlight) RecordKey() string { return f.ID }
