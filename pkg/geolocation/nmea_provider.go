package geolocation

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/tarm/serial"
)

const (
	// knotsToMetersPerSecond converts RMC ground speed to SI units.
	knotsToMetersPerSecond = 0.514444

	// dopToMeters scales a dilution-of-precision value to an accuracy
	// estimate in meters, assuming a nominal pseudorange error of 5m.
	dopToMeters = 5.0

	// maxHighAccuracyHDOP is the largest HDOP accepted for a fix when the
	// caller requested high accuracy.
	maxHighAccuracyHDOP = 2.0
)

// NMEAProvider retrieves location data from a GPS receiver connected via
// serial port, merging GGA, RMC and GSA sentences into normalized positions.
type NMEAProvider struct {
	port     string // Serial port to which the GPS device is connected
	baudRate int    // Baud rate for the serial communication
}

// NewNMEAProvider creates a new NMEAProvider for the given port and baud rate.
func NewNMEAProvider(port string, baudRate int) *NMEAProvider {
	return &NMEAProvider{
		port:     port,
		baudRate: baudRate,
	}
}

// fixState accumulates the most recent sentences of a GPS cycle so a GGA
// position can be enriched with speed, heading and vertical accuracy.
type fixState struct {
	rmc    *nmea.RMC
	gsa    *nmea.GSA
	hasRMC bool
	hasGSA bool
}

func (f *fixState) apply(s nmea.Sentence) {
	switch v := s.(type) {
	case nmea.RMC:
		f.rmc = &v
		f.hasRMC = v.Validity == nmea.ValidRMC
	case nmea.GSA:
		f.gsa = &v
		f.hasGSA = true
	}
}

// position builds a Position from a GGA sentence and the accumulated state.
// It returns false when the fix does not satisfy the requested accuracy.
func (f *fixState) position(gga nmea.GGA, opts Options) (Position, bool) {
	if gga.FixQuality == nmea.Invalid {
		return Position{}, false
	}
	if opts.HighAccuracy && gga.HDOP > maxHighAccuracyHDOP {
		return Position{}, false
	}

	alt := gga.Altitude
	pos := Position{
		Latitude:  gga.Latitude,
		Longitude: gga.Longitude,
		Accuracy:  gga.HDOP * dopToMeters,
		Altitude:  &alt,
		Timestamp: time.Now(),
	}

	if f.hasRMC {
		speed := f.rmc.Speed * knotsToMetersPerSecond
		heading := f.rmc.Course
		pos.Speed = &speed
		pos.Heading = &heading
	}
	if f.hasGSA {
		altAcc := f.gsa.VDOP * dopToMeters
		pos.AltitudeAccuracy = &altAcc
	}

	return pos, true
}

// GetPosition reads NMEA sentences from the device until a usable fix is
// produced or the context is cancelled.
func (n *NMEAProvider) GetPosition(ctx context.Context, opts Options) (Position, error) {
	s, err := n.openPort()
	if err != nil {
		return Position{}, err
	}
	defer s.Close()

	// Closing the port unblocks the scanner when the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	var state fixState
	scanner := bufio.NewScanner(s)
	for scanner.Scan() {
		sentence, err := nmea.Parse(scanner.Text())
		if err != nil {
			// Receivers emit proprietary sentences the parser rejects.
			continue
		}

		if gga, ok := sentence.(nmea.GGA); ok {
			if pos, ok := state.position(gga, opts); ok {
				return pos, nil
			}
			continue
		}
		state.apply(sentence)
	}

	if ctx.Err() != nil {
		return Position{}, ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return Position{}, err
	}
	return Position{}, ErrNoFix
}

// Watch streams fixes from the device until the context is cancelled. Read
// failures are delivered as a final update before the channel is closed.
func (n *NMEAProvider) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	s, err := n.openPort()
	if err != nil {
		return nil, err
	}

	updates := make(chan Update, 1)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(updates)
		defer close(done)
		defer s.Close()

		var state fixState
		scanner := bufio.NewScanner(s)
		for scanner.Scan() {
			sentence, err := nmea.Parse(scanner.Text())
			if err != nil {
				continue
			}

			if gga, ok := sentence.(nmea.GGA); ok {
				pos, ok := state.position(gga, opts)
				if !ok {
					continue
				}
				select {
				case updates <- Update{Position: pos}:
				case <-ctx.Done():
					return
				}
				continue
			}
			state.apply(sentence)
		}

		if ctx.Err() != nil {
			return
		}
		if err := scanner.Err(); err != nil {
			updates <- Update{Err: err}
			return
		}
		updates <- Update{Err: ErrNoFix}
	}()

	return updates, nil
}

// Close implements Provider. The serial port is opened per call, so there
// is nothing to release here.
func (n *NMEAProvider) Close() error {
	return nil
}

func (n *NMEAProvider) openPort() (*serial.Port, error) {
	c := &serial.Config{Name: n.port, Baud: n.baudRate}
	s, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS device %s: %w", n.port, err)
	}
	return s, nil
}
