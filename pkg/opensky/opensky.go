// Package opensky provides a rate-limited client for the OpenSky Network
// REST API state vector endpoint.
//
// API Documentation: https://openskynetwork.github.io/opensky-api/rest.html
// Rate Limits: anonymous users may poll /states/all every 10 seconds,
// registered users every 5 seconds.
package opensky

import (
	"fmt"
	"strings"

	"github.com/unklstewy/overhead/pkg/geo"
)

// PositionSource identifies where an aircraft's position report came from.
type PositionSource int

const (
	SourceADSB    PositionSource = 0
	SourceASTERIX PositionSource = 1
	SourceMLAT    PositionSource = 2
	SourceFLARM   PositionSource = 3
)

// ParsePositionSource converts the numeric code used by the API. Codes
// outside 0..3 fail with ErrUnknownPositionSource.
func ParsePositionSource(code int) (PositionSource, error) {
	switch ps := PositionSource(code); ps {
	case SourceADSB, SourceASTERIX, SourceMLAT, SourceFLARM:
		return ps, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownPositionSource, code)
	}
}

func (ps PositionSource) String() string {
	switch ps {
	case SourceADSB:
		return "ADSB"
	case SourceASTERIX:
		return "ASTERIX"
	case SourceMLAT:
		return "MLAT"
	case SourceFLARM:
		return "FLARM"
	default:
		return fmt.Sprintf("PositionSource(%d)", int(ps))
	}
}

// AircraftState is a single state vector as returned by /states/all.
// Field order matches the positional layout of the API response.
// Optional values are nil when the API reports null.
type AircraftState struct {
	// ICAO24 is the unique 24-bit transponder address in hex (e.g., "3c6444")
	ICAO24 string `json:"icao24" msgpack:"icao24"`

	// Callsign is the 8 character callsign; may be blank or padded with spaces
	Callsign *string `json:"callsign" msgpack:"callsign"`

	// OriginCountry is inferred from the ICAO24 address
	OriginCountry string `json:"origin_country" msgpack:"origin_country"`

	// TimePosition is the Unix time of the last position update
	TimePosition *int64 `json:"time_position" msgpack:"time_position"`

	// LastContact is the Unix time of the last message received from the transponder
	LastContact int64 `json:"last_contact" msgpack:"last_contact"`

	// Longitude in decimal degrees
	Longitude *float64 `json:"longitude" msgpack:"longitude"`

	// Latitude in decimal degrees
	Latitude *float64 `json:"latitude" msgpack:"latitude"`

	// BaroAltitude is the barometric altitude in meters
	BaroAltitude *float64 `json:"baro_altitude" msgpack:"baro_altitude"`

	// OnGround is true when the position came from a surface position report
	OnGround bool `json:"on_ground" msgpack:"on_ground"`

	// Velocity is the ground speed in m/s
	Velocity *float64 `json:"velocity" msgpack:"velocity"`

	// Heading is the true track in decimal degrees clockwise from north
	Heading *float64 `json:"heading" msgpack:"heading"`

	// VerticalRate in m/s, positive when climbing
	VerticalRate *float64 `json:"vertical_rate" msgpack:"vertical_rate"`

	// Sensors lists the receiver ids that contributed; nil unless requested
	Sensors []int `json:"sensors" msgpack:"sensors"`

	// GeoAltitude is the geometric altitude in meters
	GeoAltitude *float64 `json:"geo_altitude" msgpack:"geo_altitude"`

	// Squawk is the transponder code
	Squawk *string `json:"squawk" msgpack:"squawk"`

	// SPI is the special purpose indicator
	SPI bool `json:"spi" msgpack:"spi"`

	// PositionSource is the origin of the position report
	PositionSource PositionSource `json:"position_source" msgpack:"position_source"`
}

// Label returns the trimmed callsign, or the ICAO24 address when the callsign
// is missing or blank.
func (s AircraftState) Label() string {
	if s.Callsign != nil {
		if cs := strings.TrimSpace(*s.Callsign); cs != "" {
			return cs
		}
	}
	return s.ICAO24
}

// Position returns the reported position, or false when either coordinate is null.
func (s AircraftState) Position() (geo.Position, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return geo.Position{}, false
	}
	return geo.Position{Latitude: *s.Latitude, Longitude: *s.Longitude}, true
}

// LookFrom returns where the aircraft appears from observer, using the
// geometric altitude when reported and the barometric one otherwise.
// It returns false when the position is unknown.
func (s AircraftState) LookFrom(observer geo.Position) (geo.LookAngle, bool) {
	pos, ok := s.Position()
	if !ok {
		return geo.LookAngle{}, false
	}
	var alt float64
	switch {
	case s.OnGround:
	case s.GeoAltitude != nil:
		alt = *s.GeoAltitude
	case s.BaroAltitude != nil:
		alt = *s.BaroAltitude
	}
	return geo.Look(observer, pos, alt), true
}

// ResultKind tags the outcome of a States call.
type ResultKind int

const (
	// ResultRateLimited means the call was blocked locally and never reached
	// the network. Callers should try again later; it says nothing about
	// how many aircraft are present.
	ResultRateLimited ResultKind = iota + 1

	// ResultEmpty means the API answered and currently knows no aircraft in the area.
	ResultEmpty

	// ResultData means the API answered with at least one state vector.
	ResultData
)

func (k ResultKind) String() string {
	switch k {
	case ResultRateLimited:
		return "rate-limited"
	case ResultEmpty:
		return "empty"
	case ResultData:
		return "data"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of a States call.
type Result struct {
	Kind ResultKind

	// Time is the Unix time the states are associated with (from the response)
	Time int64

	// States in the order the API returned them; empty unless Kind == ResultData
	States []AircraftState
}

// RateLimited reports whether the call was blocked by the local rate limit.
func (r Result) RateLimited() bool {
	return r.Kind == ResultRateLimited
}

// Len returns the number of state vectors.
func (r Result) Len() int {
	return len(r.States)
}
