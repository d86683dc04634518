// Package tempomap evaluates tempo automation: a tick-sorted list of tempo
// breakpoints with step, linear or exponential interpolation between them.
package tempomap

import (
	"math"

	"github.com/cvail/tempogrid-go/internal/timebase"
)

// DefaultBPM is the tempo assumed when no automation points exist.
const DefaultBPM = 120.0

// Curve selects how tempo moves from one breakpoint toward the next.
type Curve int

const (
	CurveStep Curve = iota
	CurveLinear
	CurveExponential
)

// Point is one tempo breakpoint. Curve applies from this point to the next.
type Point struct {
	Tick  float64 `yaml:"tick"`
	BPM   float64 `yaml:"bpm"`
	Curve Curve   `yaml:"curve"`
}

// Map is an automation lane of tempo breakpoints. The caller keeps it sorted
// ascending by tick with no duplicate ticks.
type Map []Point

// TempoAt evaluates the tempo at a tick. With no points the default 120 BPM
// applies; before the first point its tempo holds; after the last point the
// last tempo holds.
func (m Map) TempoAt(tick float64) float64 {
	if len(m) == 0 {
		return DefaultBPM
	}
	prev := -1
	next := -1
	for i, p := range m {
		if p.Tick <= tick {
			prev = i
		} else {
			next = i
			break
		}
	}
	if prev < 0 {
		return m[0].BPM
	}
	if next < 0 {
		return m[prev].BPM
	}
	p, n := m[prev], m[next]
	progress := (tick - p.Tick) / (n.Tick - p.Tick)
	switch p.Curve {
	case CurveLinear:
		return p.BPM + (n.BPM-p.BPM)*progress
	case CurveExponential:
		return p.BPM * math.Pow(n.BPM/p.BPM, progress)
	default:
		return p.BPM
	}
}

// TimeBetween integrates elapsed seconds between two ticks across the tempo
// automation. It steps in fixed quarter-beat segments, sampling the tempo at
// each segment start, so the result is an approximation whose error shrinks
// with the step size.
func (m Map) TimeBetween(startTick, endTick float64, ticksPerBeat int) float64 {
	if endTick <= startTick {
		return 0
	}
	step := float64(ticksPerBeat) / 4.0
	total := 0.0
	for pos := startTick; pos < endTick; pos += step {
		segment := step
		if pos+segment > endTick {
			segment = endTick - pos
		}
		total += timebase.TicksToSeconds(segment, m.TempoAt(pos), ticksPerBeat)
	}
	return total
}
