// Package timebase converts between the musical and physical time domains:
// ticks, samples, seconds and bar/beat/sixteenth positions. All functions are
// pure; the caller supplies tempo, sample rate and resolution on every call.
package timebase

import (
	"fmt"
	"math"
)

// DefaultTicksPerBeat is the pulses-per-quarter-note resolution used
// throughout the engine unless a caller overrides it.
const DefaultTicksPerBeat = 480

// TimeSignature is beats per bar over the beat note value, e.g. 4/4 or 6/8.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// CommonTime is the 4/4 default.
var CommonTime = TimeSignature{Numerator: 4, Denominator: 4}

// TicksPerBar returns the bar length in ticks for the given resolution.
func (s TimeSignature) TicksPerBar(ticksPerBeat int) float64 {
	return float64(ticksPerBeat) * float64(s.Numerator)
}

// TicksPerSecond returns the tick rate for a tempo in BPM.
func TicksPerSecond(tempo float64, ticksPerBeat int) float64 {
	return tempo / 60.0 * float64(ticksPerBeat)
}

// TicksToSamples converts a tick duration to a whole sample count.
func TicksToSamples(ticks, tempo float64, sampleRate, ticksPerBeat int) int64 {
	tps := TicksPerSecond(tempo, ticksPerBeat)
	return int64(math.Round(ticks / tps * float64(sampleRate)))
}

// SamplesToTicks converts a sample count to a whole tick count. It is the
// algebraic inverse of TicksToSamples but rounds independently, so a
// round-trip may drift by up to one tick.
func SamplesToTicks(samples int64, tempo float64, sampleRate, ticksPerBeat int) float64 {
	tps := TicksPerSecond(tempo, ticksPerBeat)
	return math.Round(float64(samples) / float64(sampleRate) * tps)
}

// TicksToSeconds converts a tick duration to seconds.
func TicksToSeconds(ticks, tempo float64, ticksPerBeat int) float64 {
	return ticks / TicksPerSecond(tempo, ticksPerBeat)
}

// SecondsToTicks converts seconds to a whole tick count.
func SecondsToTicks(seconds, tempo float64, ticksPerBeat int) float64 {
	return math.Round(seconds * TicksPerSecond(tempo, ticksPerBeat))
}

// PositionToTicks converts a 1-indexed bar/beat/sixteenth position to ticks.
func PositionToTicks(bar, beat, sixteenth int, sig TimeSignature, ticksPerBeat int) float64 {
	tpb := float64(ticksPerBeat)
	return float64(bar-1)*tpb*float64(sig.Numerator) +
		float64(beat-1)*tpb +
		float64(sixteenth-1)*tpb/4.0
}

// TicksToPosition converts ticks back to a 1-indexed bar/beat/sixteenth
// position. It is the exact inverse of PositionToTicks for integral ticks.
func TicksToPosition(ticks float64, sig TimeSignature, ticksPerBeat int) (bar, beat, sixteenth int) {
	tpb := float64(ticksPerBeat)
	ticksPerBar := sig.TicksPerBar(ticksPerBeat)
	bar = int(math.Floor(ticks/ticksPerBar)) + 1
	rem := ticks - float64(bar-1)*ticksPerBar
	beat = int(math.Floor(rem/tpb)) + 1
	rem -= float64(beat-1) * tpb
	sixteenth = int(math.Floor(rem/(tpb/4.0))) + 1
	return bar, beat, sixteenth
}

// QuantizeMode selects how Quantize snaps ticks onto the grid.
type QuantizeMode int

const (
	QuantizeNearest QuantizeMode = iota
	QuantizeFloor
	QuantizeCeil
)

// Quantize snaps ticks onto a grid. Nearest rounds half up. A grid of zero
// or less is invalid configuration and returns an error.
func Quantize(ticks, grid float64, mode QuantizeMode) (float64, error) {
	if grid <= 0 {
		return 0, fmt.Errorf("timebase: quantize grid must be positive, got %g", grid)
	}
	switch mode {
	case QuantizeFloor:
		return math.Floor(ticks/grid) * grid, nil
	case QuantizeCeil:
		return math.Ceil(ticks/grid) * grid, nil
	default:
		return math.Floor(ticks/grid+0.5) * grid, nil
	}
}

// NoteValue identifies a note duration as its denominator: 1 = whole,
// 4 = quarter, 64 = sixty-fourth.
type NoteValue int

const (
	Whole        NoteValue = 1
	Half         NoteValue = 2
	Quarter      NoteValue = 4
	Eighth       NoteValue = 8
	Sixteenth    NoteValue = 16
	ThirtySecond NoteValue = 32
	SixtyFourth  NoteValue = 64
)

// TicksPerNote returns the duration of a note value in ticks.
func TicksPerNote(value NoteValue, ticksPerBeat int) (float64, error) {
	if value <= 0 {
		return 0, fmt.Errorf("timebase: note value must be positive, got %d", value)
	}
	return float64(ticksPerBeat) * 4.0 / float64(value), nil
}
