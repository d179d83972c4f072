package location

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"

	"github.com/unklstewy/overhead/pkg/geo"
)

// GPSProvider reads the position from an NMEA 0183 GPS receiver on a serial port.
type GPSProvider struct {
	port     string // Serial device, e.g. /dev/ttyUSB0
	baudRate int    // Baud rate for the serial communication

	// open returns the NMEA byte stream; replaced in tests
	open func() (io.ReadCloser, error)
}

// NewGPSProvider creates a provider for the given serial port and baud rate.
func NewGPSProvider(port string, baudRate int) *GPSProvider {
	g := &GPSProvider{
		port:     port,
		baudRate: baudRate,
	}
	g.open = func() (io.ReadCloser, error) {
		return serial.OpenPort(&serial.Config{
			Name:        g.port,
			Baud:        g.baudRate,
			ReadTimeout: 2 * time.Second,
		})
	}
	return g
}

// Locate reads sentences until a GGA sentence with a valid fix arrives.
func (g *GPSProvider) Locate(ctx context.Context) (geo.Position, error) {
	rc, err := g.open()
	if err != nil {
		return geo.Position{}, fmt.Errorf("failed to open GPS port %s: %w", g.port, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return geo.Position{}, err
		}

		pos, ok, err := parseFix(scanner.Text())
		if err != nil {
			return geo.Position{}, err
		}
		if ok {
			return pos, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return geo.Position{}, fmt.Errorf("failed to read GPS data: %w", err)
	}
	return geo.Position{}, fmt.Errorf("%w: no GGA sentence with a fix on %s", ErrNoFix, g.port)
}

// parseFix extracts a position from a GGA sentence from any talker
// ($GPGGA, $GNGGA, ...). Other sentences and GGA sentences without a fix
// report ok == false.
func parseFix(line string) (geo.Position, bool, error) {
	line = strings.TrimSpace(line)
	if len(line) < 6 || !strings.HasPrefix(line, "$") || line[3:6] != nmea.TypeGGA {
		return geo.Position{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return geo.Position{}, false, fmt.Errorf("failed to parse NMEA sentence: %w", err)
	}

	gga, ok := sentence.(nmea.GGA)
	if !ok || gga.FixQuality == nmea.Invalid {
		return geo.Position{}, false, nil
	}

	pos := geo.Position{Latitude: gga.Latitude, Longitude: gga.Longitude}
	if err := pos.Validate(); err != nil {
		return geo.Position{}, false, err
	}
	return pos, true, nil
}
