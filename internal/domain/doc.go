// Package domain turns raw third-party feed rows into the records the
// situational-awareness map consumes.
//
// # Sources
//
// Three upstream feeds are normalized here:
//
//	Transponder state vectors  →  NormalizedFlight        (see [AircraftClassifier])
//	Prediction-market events   →  NormalizedPrediction    (see [MarketRules])
//	SIGMET/AIRMET advisories   →  NormalizedWeatherAlert  (see [TranslateHazard])
//
// Nothing in this package performs I/O. Adapters decode the wire format into
// the Raw* types and hand them over; everything here is deterministic apart
// from the jitter source injected into [MarketRules.BuildPrediction].
//
// # Transponder Conventions
//
// Units on the wire are SI and are converted on the way out:
//
//	barometric altitude  meters → feet   (× 3.28084, rounded)
//	velocity             m/s    → knots  (× 1.944, rounded)
//	true track           degrees, rounded
//
// Admission is a three-step filter: a military registry prefix always passes;
// an aircraft flying for a watch-listed country passes with a squawk-like
// callsign (2-4 letters then 2-4 digits) or above 35,000 ft; a short
// N-registration passes above 40,000 ft. Anything whose category resolves to
// civil is dropped afterwards, so civil never reaches output.
//
// Positions are labelled by [Geofence], an ordered list of inclusive boxes
// around conflict hotspots. The first containing box wins; positions outside
// every box are "International Airspace".
//
// # Market Conventions
//
// The outcome-price field is itself a JSON-encoded array of strings. The
// first element is the YES price in [0,1] and is scaled to a percentage.
// Unreadable prices default to 50.
//
// The feed carries no price history. When no earlier observation is known the
// previous probability is jittered around the current one and the record is
// flagged ChangeSynthetic.
//
// # Weather Conventions
//
// Severity codes SEV, MOD and LGT map to warning, watch and advisory; any
// other code is an advisory. Altitudes arrive in hundreds of feet.
// Coordinates are free text such as "45.5N 12.3W"; when absent the first
// letter of the ICAO station picks a regional center.
package domain
