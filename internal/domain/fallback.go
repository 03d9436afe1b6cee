package domain

import "time"

// FallbackFlights is the curated list shown before any live poll succeeds.
func FallbackFlights(now time.Time) []NormalizedFlight {
	now = now.UTC()
	f := func(id, callsign, typ string, cat AircraftCategory, lat, lng float64, region, country string, alt, speed, heading int) NormalizedFlight {
		return NormalizedFlight{
			ID:           id,
			Callsign:     callsign,
			AircraftType: typ,
			Category:     cat,
			Location:     GeoLocation{Lat: lat, Lng: lng, Region: region, Country: country},
			Altitude:     alt,
			Speed:        speed,
			Heading:      heading,
			Timestamp:    now,
		}
	}
	return []NormalizedFlight{
		f("sample-rj-1", "RRR6601", "Boeing RC-135W Rivet Joint", CategorySurveillance, 43.5, 34, "Eastern Europe", "Black Sea", 28000, 420, 90),
		f("sample-gh-1", "FORTE11", "RQ-4B Global Hawk", CategorySurveillance, 44.2, 35.8, "Eastern Europe", "Black Sea", 55000, 340, 180),
		f("sample-kc-1", "LAGR135", "KC-135 Stratotanker", CategoryTanker, 50.5, 25.3, "Eastern Europe", "Poland", 28000, 380, 270),
		f("sample-awacs-1", "DUKE01", "E-3 Sentry AWACS", CategorySurveillance, 54.2, 18.5, "Europe", "Baltic Region", 32000, 360, 45),
		f("sample-c17-1", "RCH421", "C-17 Globemaster III", CategoryTransport, 49.8, 24.2, "Eastern Europe", "Western Ukraine", 35000, 450, 120),
		f("sample-p8-1", "JAKE15", "P-8A Poseidon", CategorySurveillance, 33.5, 34.8, "Middle East", "Eastern Mediterranean", 25000, 380, 220),
		f("sample-f16-1", "VIPER21", "F-16 Fighting Falcon", CategoryMilitary, 51.2, 21.5, "Eastern Europe", "Poland", 38000, 520, 85),
		f("sample-mq9-1", "REAPER01", "MQ-9 Reaper", CategorySurveillance, 15.2, 45.5, "Middle East", "Red Sea/Yemen", 22000, 180, 140),
	}
}

// FallbackPredictions is a single placeholder market.
func FallbackPredictions(now time.Time) []NormalizedPrediction {
	resolves := now.UTC().Add(30 * 24 * time.Hour)
	return []NormalizedPrediction{{
		ID:                  "default-1",
		Question:            "Loading real-time prediction markets...",
		Probability:         50,
		PreviousProbability: 50,
		Change24h:           0,
		ChangeSynthetic:     true,
		Volume:              0,
		Source:              SourcePolymarket,
		Category:            TopicPolitical,
		ResolutionDate:      &resolves,
		SparklineData:       []float64{50, 50, 50, 50, 50, 50},
	}}
}

// FallbackWeatherAlerts is the curated pair of advisories shown before any
// live poll succeeds.
func FallbackWeatherAlerts(now time.Time) []NormalizedWeatherAlert {
	now = now.UTC()
	return []NormalizedWeatherAlert{
		{
			ID:                 "default-wx-1",
			Type:               AlertSIGMET,
			Title:              "Convective Activity - Eastern Mediterranean",
			Description:        "SIGMET CHARLIE 3 - Convective activity observed over eastern Mediterranean",
			LaymansDescription: "Thunderstorm activity in the region. Expect turbulence and lightning. Commercial flights are routing around this area.",
			Severity:           SeverityWatch,
			Location:           GeoLocation{Lat: 35, Lng: 33, Region: "Middle East"},
			AffectedAltitude:   &AltitudeBand{Min: 25000, Max: 45000},
			ValidFrom:          now,
			ValidTo:            now.Add(6 * time.Hour),
		},
		{
			ID:                 "default-wx-2",
			Type:               AlertAIRMET,
			Title:              "Moderate Turbulence - Black Sea Region",
			Description:        "AIRMET TANGO - Moderate turbulence between FL250 and FL350",
			LaymansDescription: "Bumpy conditions for aircraft flying through this region. Seatbelts recommended for passengers.",
			Severity:           SeverityAdvisory,
			Location:           GeoLocation{Lat: 43, Lng: 35, Region: "Eastern Europe"},
			AffectedAltitude:   &AltitudeBand{Min: 25000, Max: 35000},
			ValidFrom:          now,
			ValidTo:            now.Add(4 * time.Hour),
		},
	}
}
