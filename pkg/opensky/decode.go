package opensky

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// stateVectorFields is the number of positional fields in a state vector.
const stateVectorFields = 17

// stateFieldNames names each positional field, for error messages.
var stateFieldNames = [stateVectorFields]string{
	"icao24", "callsign", "origin_country", "time_position",
	"last_contact", "longitude", "latitude", "baro_altitude", "on_ground",
	"velocity", "true_track", "vertical_rate", "sensors",
	"geo_altitude", "squawk", "spi", "position_source",
}

// statesResponse is the JSON envelope returned by /states/all.
type statesResponse struct {
	Time   int64             `json:"time"`
	States []json.RawMessage `json:"states"`
}

// decodeStates parses a /states/all body. The first bad record fails the
// whole decode; no partial results are returned.
func decodeStates(body []byte) (int64, []AircraftState, error) {
	var resp statesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil, fmt.Errorf("parse response: %w", err)
	}

	if len(resp.States) == 0 {
		return resp.Time, nil, nil
	}

	states := make([]AircraftState, 0, len(resp.States))
	for i, raw := range resp.States {
		state, err := decodeStateVector(raw)
		if err != nil {
			err.Index = i
			return resp.Time, nil, err
		}
		states = append(states, state)
	}

	return resp.Time, states, nil
}

// decodeStateVector converts one positional JSON array into an AircraftState.
func decodeStateVector(raw json.RawMessage) (AircraftState, *RecordError) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return AircraftState{}, &RecordError{Err: fmt.Errorf("%w: not a JSON array", ErrMalformedRecord)}
	}
	if len(fields) != stateVectorFields {
		return AircraftState{}, &RecordError{
			Err: fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, stateVectorFields, len(fields)),
		}
	}

	d := fieldDecoder{fields: fields}
	var s AircraftState

	d.required(0, &s.ICAO24)
	s.Callsign = optional[string](&d, 1)
	d.required(2, &s.OriginCountry)
	s.TimePosition = optional[int64](&d, 3)
	d.required(4, &s.LastContact)
	s.Longitude = optional[float64](&d, 5)
	s.Latitude = optional[float64](&d, 6)
	s.BaroAltitude = optional[float64](&d, 7)
	d.required(8, &s.OnGround)
	s.Velocity = optional[float64](&d, 9)
	s.Heading = optional[float64](&d, 10)
	s.VerticalRate = optional[float64](&d, 11)
	if p := optional[[]int](&d, 12); p != nil {
		s.Sensors = *p
	}
	s.GeoAltitude = optional[float64](&d, 13)
	s.Squawk = optional[string](&d, 14)
	d.required(15, &s.SPI)

	var code int
	d.required(16, &code)

	if d.err != nil {
		return AircraftState{}, d.err
	}

	ps, err := ParsePositionSource(code)
	if err != nil {
		return AircraftState{}, &RecordError{Field: stateFieldNames[16], Err: err}
	}
	s.PositionSource = ps

	return s, nil
}

// fieldDecoder decodes positional fields, keeping the first error.
type fieldDecoder struct {
	fields []json.RawMessage
	err    *RecordError
}

func (d *fieldDecoder) fail(i int, format string, args ...any) {
	if d.err != nil {
		return
	}
	d.err = &RecordError{
		Field: stateFieldNames[i],
		Err:   fmt.Errorf("%w: "+format, append([]any{ErrMalformedRecord}, args...)...),
	}
}

// required decodes field i into dst; null is rejected.
func (d *fieldDecoder) required(i int, dst any) {
	if d.err != nil {
		return
	}
	if isNull(d.fields[i]) {
		d.fail(i, "unexpected null")
		return
	}
	if err := json.Unmarshal(d.fields[i], dst); err != nil {
		d.fail(i, "%v", err)
	}
}

// optional decodes field i, returning nil for JSON null.
func optional[T any](d *fieldDecoder, i int) *T {
	if d.err != nil || isNull(d.fields[i]) {
		return nil
	}
	var v T
	if err := json.Unmarshal(d.fields[i], &v); err != nil {
		d.fail(i, "%v", err)
		return nil
	}
	return &v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
