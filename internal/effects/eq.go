package effects

import "math"

// EQ3Band is a simple 3-band tone control built from one-pole crossover
// filters.
type EQ3Band struct {
	lowGain  float32
	midGain  float32
	highGain float32
	lpAlpha  float32
	hpAlpha  float32
	lp       float32
	hp       float32
}

// NewEQ3Band creates a 3-band EQ. Gains are linear (1.0 = unity);
// lowFreq and highFreq are the band crossover frequencies in Hz.
func NewEQ3Band(sampleRate int, lowGain, midGain, highGain, lowFreq, highFreq float32) *EQ3Band {
	lpRC := 1.0 / (2.0 * math.Pi * float64(lowFreq))
	hpRC := 1.0 / (2.0 * math.Pi * float64(highFreq))
	dt := 1.0 / float64(sampleRate)
	return &EQ3Band{
		lowGain:  lowGain,
		midGain:  midGain,
		highGain: highGain,
		lpAlpha:  float32(dt / (lpRC + dt)),
		hpAlpha:  float32(dt / (hpRC + dt)),
	}
}

func (eq *EQ3Band) Process(in float32) float32 {
	eq.lp += eq.lpAlpha * (in - eq.lp)
	low := eq.lp

	eq.hp += eq.hpAlpha * (in - eq.hp)
	high := in - eq.hp

	mid := in - low - high
	return low*eq.lowGain + mid*eq.midGain + high*eq.highGain
}

func (eq *EQ3Band) Reset() {
	eq.lp = 0
	eq.hp = 0
}
