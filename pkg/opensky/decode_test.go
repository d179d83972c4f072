package opensky

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unklstewy/overhead/pkg/geo"
)

const sampleState = `["3c6444","DLH9LF  ","Germany",1458564121,1458564122,6.1546,50.1964,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0]`

func TestDecodeStateVector(t *testing.T) {
	t.Run("Full record", func(t *testing.T) {
		s, recErr := decodeStateVector([]byte(sampleState))
		require.Nil(t, recErr)

		assert.Equal(t, "3c6444", s.ICAO24)
		require.NotNil(t, s.Callsign)
		assert.Equal(t, "DLH9LF  ", *s.Callsign)
		assert.Equal(t, "DLH9LF", s.Label())
		assert.Equal(t, "Germany", s.OriginCountry)
		require.NotNil(t, s.TimePosition)
		assert.Equal(t, int64(1458564121), *s.TimePosition)
		assert.Equal(t, int64(1458564122), s.LastContact)
		require.NotNil(t, s.Longitude)
		assert.Equal(t, 6.1546, *s.Longitude)
		require.NotNil(t, s.Latitude)
		assert.Equal(t, 50.1964, *s.Latitude)
		require.NotNil(t, s.BaroAltitude)
		assert.Equal(t, 9639.3, *s.BaroAltitude)
		assert.False(t, s.OnGround)
		require.NotNil(t, s.Velocity)
		assert.Equal(t, 232.88, *s.Velocity)
		require.NotNil(t, s.Heading)
		assert.Equal(t, 98.26, *s.Heading)
		require.NotNil(t, s.VerticalRate)
		assert.Equal(t, 4.55, *s.VerticalRate)
		assert.Nil(t, s.Sensors)
		require.NotNil(t, s.GeoAltitude)
		assert.Equal(t, 9716.22, *s.GeoAltitude)
		require.NotNil(t, s.Squawk)
		assert.Equal(t, "1000", *s.Squawk)
		assert.False(t, s.SPI)
		assert.Equal(t, SourceADSB, s.PositionSource)

		pos, ok := s.Position()
		require.True(t, ok)
		assert.Equal(t, 50.1964, pos.Latitude)
		assert.Equal(t, 6.1546, pos.Longitude)
	})

	t.Run("Nulls and sensors", func(t *testing.T) {
		raw := `["abc123",null,"France",null,1700000000,null,null,null,true,null,null,null,[1,2,3],null,null,true,2]`
		s, recErr := decodeStateVector([]byte(raw))
		require.Nil(t, recErr)

		assert.Nil(t, s.Callsign)
		assert.Equal(t, "abc123", s.Label())
		assert.Nil(t, s.TimePosition)
		assert.Nil(t, s.Latitude)
		assert.True(t, s.OnGround)
		assert.Equal(t, []int{1, 2, 3}, s.Sensors)
		assert.True(t, s.SPI)
		assert.Equal(t, SourceMLAT, s.PositionSource)

		_, ok := s.Position()
		assert.False(t, ok)
	})

	t.Run("Blank callsign falls back to icao24", func(t *testing.T) {
		raw := `["abc123","        ","France",null,1700000000,null,null,null,true,null,null,null,null,null,null,false,3]`
		s, recErr := decodeStateVector([]byte(raw))
		require.Nil(t, recErr)
		assert.Equal(t, "abc123", s.Label())
		assert.Equal(t, SourceFLARM, s.PositionSource)
	})

	malformed := []struct {
		name  string
		raw   string
		field string
	}{
		{"Too few fields", `["3c6444","DLH9LF","Germany"]`, ""},
		{"Too many fields", `["3c6444","DLH9LF  ","Germany",1,1,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0,1]`, ""},
		{"Not an array", `{"icao24":"3c6444"}`, ""},
		{"Null record", `null`, ""},
		{"Null icao24", `[null,"DLH9LF  ","Germany",1,1,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0]`, "icao24"},
		{"Numeric callsign", `["3c6444",42,"Germany",1,1,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0]`, "callsign"},
		{"String latitude", `["3c6444","DLH","Germany",1,1,6.1,"50.1",9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0]`, "latitude"},
		{"Fractional last contact", `["3c6444","DLH","Germany",1,1.5,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,0]`, "last_contact"},
		{"Numeric on_ground", `["3c6444","DLH","Germany",1,1,6.1,50.1,9639.3,0,232.88,98.26,4.55,null,9716.22,"1000",false,0]`, "on_ground"},
		{"Null position source", `["3c6444","DLH","Germany",1,1,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,null]`, "position_source"},
	}

	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			_, recErr := decodeStateVector([]byte(tt.raw))
			require.NotNil(t, recErr)
			assert.ErrorIs(t, recErr, ErrMalformedRecord)
			assert.Equal(t, tt.field, recErr.Field)
		})
	}

	t.Run("Unknown position source", func(t *testing.T) {
		raw := `["3c6444","DLH","Germany",1,1,6.1,50.1,9639.3,false,232.88,98.26,4.55,null,9716.22,"1000",false,99]`
		_, recErr := decodeStateVector([]byte(raw))
		require.NotNil(t, recErr)
		assert.ErrorIs(t, recErr, ErrUnknownPositionSource)
		assert.NotErrorIs(t, recErr, ErrMalformedRecord)
		assert.Equal(t, "position_source", recErr.Field)
	})
}

func TestLookFrom(t *testing.T) {
	s, recErr := decodeStateVector([]byte(sampleState))
	require.Nil(t, recErr)
	observer := geo.Position{Latitude: 50.1, Longitude: 6.1546}

	look, ok := s.LookFrom(observer)
	require.True(t, ok)
	// geo_altitude wins over baro_altitude
	want := geo.Look(observer, geo.Position{Latitude: 50.1964, Longitude: 6.1546}, 9716.22)
	assert.Equal(t, want, look)
	assert.InDelta(t, 0.0, look.Azimuth, 1e-9)

	s.GeoAltitude = nil
	look, _ = s.LookFrom(observer)
	assert.Equal(t, geo.Look(observer, geo.Position{Latitude: 50.1964, Longitude: 6.1546}, 9639.3), look)

	s.OnGround = true
	look, _ = s.LookFrom(observer)
	assert.Zero(t, look.Elevation)

	s.Latitude = nil
	_, ok = s.LookFrom(observer)
	assert.False(t, ok)
}

func TestDecodeStates(t *testing.T) {
	t.Run("Null states", func(t *testing.T) {
		ts, states, err := decodeStates([]byte(`{"time":1700000000,"states":null}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1700000000), ts)
		assert.Empty(t, states)
	})

	t.Run("Missing states", func(t *testing.T) {
		_, states, err := decodeStates([]byte(`{"time":1700000000}`))
		require.NoError(t, err)
		assert.Empty(t, states)
	})

	t.Run("Order is preserved", func(t *testing.T) {
		body := `{"time":1,"states":[` +
			`["ccc333",null,"X",null,1,null,null,null,false,null,null,null,null,null,null,false,0],` +
			`["aaa111",null,"X",null,1,null,null,null,false,null,null,null,null,null,null,false,1],` +
			`["bbb222",null,"X",null,1,null,null,null,false,null,null,null,null,null,null,false,2]]}`
		_, states, err := decodeStates([]byte(body))
		require.NoError(t, err)
		require.Len(t, states, 3)
		assert.Equal(t, "ccc333", states[0].ICAO24)
		assert.Equal(t, "aaa111", states[1].ICAO24)
		assert.Equal(t, "bbb222", states[2].ICAO24)
	})

	t.Run("Bad record fails the whole decode", func(t *testing.T) {
		body := `{"time":1,"states":[` + sampleState + `,["short"]]}`
		_, states, err := decodeStates([]byte(body))
		require.Error(t, err)
		assert.Nil(t, states)
		assert.ErrorIs(t, err, ErrMalformedRecord)

		var recErr *RecordError
		require.True(t, errors.As(err, &recErr))
		assert.Equal(t, 1, recErr.Index)
	})

	t.Run("Invalid JSON", func(t *testing.T) {
		_, _, err := decodeStates([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestParsePositionSource(t *testing.T) {
	for code, want := range map[int]PositionSource{0: SourceADSB, 1: SourceASTERIX, 2: SourceMLAT, 3: SourceFLARM} {
		ps, err := ParsePositionSource(code)
		require.NoError(t, err)
		assert.Equal(t, want, ps)
	}

	for _, code := range []int{-1, 4, 99} {
		_, err := ParsePositionSource(code)
		assert.ErrorIs(t, err, ErrUnknownPositionSource, "code %d", code)
	}

	assert.Equal(t, "MLAT", SourceMLAT.String())
	assert.Equal(t, "PositionSource(99)", PositionSource(99).String())
}
