// Package osc provides phase-accumulator tone generators: audio-rate
// wavetable oscillators and closed-form LFOs.
package osc

import (
	"fmt"
	"math"
	"math/rand"
)

const twoPi = math.Pi * 2

// Waveform selects the oscillator shape.
type Waveform int

const (
	WaveSine Waveform = iota
	WaveTriangle
	WaveSawtooth
	WaveSquare
	WavePulse
	WaveNoise
)

// DefaultTableSize is the wavetable length generated at construction when
// the caller does not supply one.
const DefaultTableSize = 2048

// Params configures an oscillator. Detune is in cents; PulseWidth applies
// to WavePulse only; Phase is the starting phase in [0, 1).
type Params struct {
	Waveform   Waveform
	Frequency  float64
	Detune     float64
	Gain       float64
	PulseWidth float64
	Phase      float64
}

// Oscillator is a phase-accumulator tone generator. Table-backed waveforms
// read a shared wavetable with linear interpolation; pulse is computed from
// the phase directly; noise draws from the injected random source.
type Oscillator struct {
	params     Params
	sampleRate float64
	phase      float64
	table      []float64
	rng        *rand.Rand
}

// NewOscillator builds an oscillator, generating a wavetable for
// table-backed waveforms. rng may be nil for waveforms other than noise.
func NewOscillator(sampleRate int, params Params, rng *rand.Rand) (*Oscillator, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("osc: sample rate must be positive, got %d", sampleRate)
	}
	if params.Waveform == WaveNoise && rng == nil {
		return nil, fmt.Errorf("osc: noise waveform requires a random source")
	}
	if params.PulseWidth == 0 {
		params.PulseWidth = 0.5
	}
	o := &Oscillator{
		params:     params,
		sampleRate: float64(sampleRate),
		phase:      params.Phase,
		rng:        rng,
	}
	switch params.Waveform {
	case WavePulse, WaveNoise:
		// computed directly, no table
	default:
		o.table = GenerateWavetable(params.Waveform, DefaultTableSize)
	}
	return o, nil
}

// SetWavetable replaces the oscillator's table. The oscillator reads but
// does not own the buffer. An empty table is invalid configuration.
func (o *Oscillator) SetWavetable(table []float64) error {
	if len(table) == 0 {
		return fmt.Errorf("osc: wavetable must not be empty")
	}
	o.table = table
	return nil
}

// SetFrequency changes the oscillator frequency in Hz.
func (o *Oscillator) SetFrequency(hz float64) { o.params.Frequency = hz }

// SetGain changes the output gain.
func (o *Oscillator) SetGain(gain float64) { o.params.Gain = gain }

// SetPhase forces the phase accumulator, wrapping into [0, 1).
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset returns the phase accumulator to the configured starting phase.
func (o *Oscillator) Reset() { o.phase = o.params.Phase }

// Process generates one sample and advances the phase.
func (o *Oscillator) Process() float64 {
	p := o.params
	effFreq := p.Frequency * math.Pow(2, p.Detune/1200.0)
	inc := effFreq / o.sampleRate

	var out float64
	switch p.Waveform {
	case WaveNoise:
		// Fresh draw per sample, phase kept advancing for consistency.
		out = o.rng.Float64()*2.0 - 1.0
	case WavePulse:
		if o.phase < p.PulseWidth {
			out = 1.0
		} else {
			out = -1.0
		}
	default:
		n := float64(len(o.table))
		idx := o.phase * n
		i0 := int(idx) % len(o.table)
		i1 := (i0 + 1) % len(o.table)
		frac := idx - math.Floor(idx)
		out = o.table[i0]*(1.0-frac) + o.table[i1]*frac
	}

	o.phase += inc
	for o.phase >= 1.0 {
		o.phase -= 1.0
	}
	return out * p.Gain
}

// ProcessBlock fills dst with consecutive samples.
func (o *Oscillator) ProcessBlock(dst []float64) {
	for i := range dst {
		dst[i] = o.Process()
	}
}

// Phase returns the current phase accumulator value.
func (o *Oscillator) Phase() float64 { return o.phase }

// GenerateWavetable computes one cycle of the given waveform. Pulse and
// noise have no table form and fall back to a sine table.
func GenerateWavetable(w Waveform, size int) []float64 {
	if size <= 0 {
		size = DefaultTableSize
	}
	table := make([]float64, size)
	for i := range table {
		phase := float64(i) / float64(size)
		switch w {
		case WaveTriangle:
			if phase < 0.5 {
				table[i] = 4.0*phase - 1.0
			} else {
				table[i] = 3.0 - 4.0*phase
			}
		case WaveSawtooth:
			table[i] = 1.0 - 2.0*phase
		case WaveSquare:
			if phase < 0.5 {
				table[i] = 1.0
			} else {
				table[i] = -1.0
			}
		default:
			table[i] = math.Sin(twoPi * phase)
		}
	}
	return table
}
