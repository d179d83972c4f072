// Package location determines the observer's position on Earth.
//
// Several providers are available: a fixed position from configuration,
// IP-based lookup, the Google Geolocation API and an NMEA GPS receiver on a
// serial port. Cached wraps any of them so a position is only resolved once
// per TTL.
package location

import (
	"context"
	"errors"

	"github.com/unklstewy/overhead/pkg/geo"
)

// ErrNoFix is returned when a provider could not produce a position.
var ErrNoFix = errors.New("no position fix")

// Provider resolves the current observer position.
type Provider interface {
	Locate(ctx context.Context) (geo.Position, error)
}

// Static always returns the same position.
type Static struct {
	Position geo.Position
}

// NewStatic validates pos and returns a provider for it.
func NewStatic(pos geo.Position) (*Static, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	return &Static{Position: pos}, nil
}

// Locate returns the configured position.
func (s *Static) Locate(ctx context.Context) (geo.Position, error) {
	if err := ctx.Err(); err != nil {
		return geo.Position{}, err
	}
	return s.Position, nil
}
