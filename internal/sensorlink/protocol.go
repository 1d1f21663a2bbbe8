// Package sensorlink ingests inertial and position readings from a line
// oriented stream, such as a replay file or a serial device, and feeds them
// to an estimator in arrival order.
//
// Each line is one JSON object:
//
//	{"kind":"imu","t":0.01,"x":-0.12,"y":0.03}
//	{"kind":"gps","t":1.00,"x":4.71,"y":8.52}
//	{"kind":"truth","t":1.00,"x":4.79,"y":8.41,"vx":4.38,"vy":5.40}
//
// imu carries an acceleration, gps a position fix. truth is an optional
// reference position written by the simulator; it is recorded but never
// shown to the estimator. Blank lines and lines starting with '#' are
// ignored.
package sensorlink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/sensorfusion/internal/linalg"
)

// Kind identifies the source of a reading.
type Kind string

const (
	KindIMU   Kind = "imu"
	KindGPS   Kind = "gps"
	KindTruth Kind = "truth"
)

var (
	// ErrSkipLine marks blank and comment lines.
	ErrSkipLine = errors.New("no reading on line")
	// ErrMalformed is returned for lines that are not a valid reading.
	ErrMalformed = errors.New("malformed reading")
)

// Reading is one decoded line.
type Reading struct {
	Kind Kind    `json:"kind"`
	T    float64 `json:"t,omitempty"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx,omitempty"`
	VY   float64 `json:"vy,omitempty"`
}

// Vec returns (X, Y).
func (r Reading) Vec() linalg.Vec2 { return linalg.Vec2{X: r.X, Y: r.Y} }

// Velocity returns (VX, VY); only meaningful for truth readings.
func (r Reading) Velocity() linalg.Vec2 { return linalg.Vec2{X: r.VX, Y: r.VY} }

// wireReading uses pointers so that missing coordinates can be told apart
// from zeros.
type wireReading struct {
	Kind Kind     `json:"kind"`
	T    *float64 `json:"t"`
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	VX   *float64 `json:"vx"`
	VY   *float64 `json:"vy"`
}

// ParseLine decodes one protocol line.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Reading{}, ErrSkipLine
	}

	var w wireReading
	if err := json.Unmarshal([]byte(line), &w); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch w.Kind {
	case KindIMU, KindGPS, KindTruth:
	case "":
		return Reading{}, fmt.Errorf("%w: missing kind", ErrMalformed)
	default:
		return Reading{}, fmt.Errorf("%w: unknown kind %q", ErrMalformed, w.Kind)
	}
	if w.X == nil || w.Y == nil {
		return Reading{}, fmt.Errorf("%w: %s reading needs x and y", ErrMalformed, w.Kind)
	}

	r := Reading{Kind: w.Kind, X: *w.X, Y: *w.Y}
	if w.T != nil {
		r.T = *w.T
	}
	if w.VX != nil {
		r.VX = *w.VX
	}
	if w.VY != nil {
		r.VY = *w.VY
	}
	return r, nil
}

// Encoder writes readings in the line protocol.
type Encoder struct {
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Encode writes r followed by a newline.
func (e *Encoder) Encode(r Reading) error {
	return e.enc.Encode(r)
}
