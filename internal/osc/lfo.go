package osc

import (
	"math"
	"math/rand"
)

// LFOWaveform selects the low-frequency oscillator shape. LFOs compute
// their value per sample in closed form rather than reading a table.
type LFOWaveform int

const (
	LFOSine LFOWaveform = iota
	LFOTriangle
	LFOSawtooth
	LFOSquare
	LFOSampleHold
)

// LFOParams configures an LFO. Depth scales the output; Phase is the phase
// Retrigger returns to.
type LFOParams struct {
	Waveform  LFOWaveform
	Frequency float64
	Depth     float64
	Phase     float64
}

// LFO is a per-sample modulation source. Sample-hold redraws its held value
// from the injected random source only when the phase wraps.
type LFO struct {
	params     LFOParams
	sampleRate float64
	phase      float64
	held       float64
	rng        *rand.Rand
}

// NewLFO builds an LFO. rng may be nil for waveforms other than
// sample-hold.
func NewLFO(sampleRate int, params LFOParams, rng *rand.Rand) *LFO {
	return &LFO{
		params:     params,
		sampleRate: float64(sampleRate),
		phase:      params.Phase,
		rng:        rng,
	}
}

// SetFrequency changes the LFO rate in Hz.
func (l *LFO) SetFrequency(hz float64) { l.params.Frequency = hz }

// SetDepth changes the output scale.
func (l *LFO) SetDepth(depth float64) { l.params.Depth = depth }

// Process computes the current value scaled by depth and advances the
// phase.
func (l *LFO) Process() float64 {
	var out float64
	switch l.params.Waveform {
	case LFOTriangle:
		if l.phase < 0.5 {
			out = 4.0*l.phase - 1.0
		} else {
			out = 3.0 - 4.0*l.phase
		}
	case LFOSawtooth:
		out = 1.0 - 2.0*l.phase
	case LFOSquare:
		if l.phase < 0.5 {
			out = 1.0
		} else {
			out = -1.0
		}
	case LFOSampleHold:
		out = l.held
	default:
		out = math.Sin(twoPi * l.phase)
	}

	prev := l.phase
	l.phase += l.params.Frequency / l.sampleRate
	for l.phase >= 1.0 {
		l.phase -= 1.0
	}
	if l.params.Waveform == LFOSampleHold && l.phase < prev && l.rng != nil {
		l.held = l.rng.Float64()*2.0 - 1.0
	}
	return out * l.params.Depth
}

// Retrigger returns the phase to the configured starting phase without
// touching the sample-hold state.
func (l *LFO) Retrigger() { l.phase = l.params.Phase }

// Reset retriggers and also zeroes the sample-hold state.
func (l *LFO) Reset() {
	l.Retrigger()
	l.held = 0
}
