package effects

import (
	"fmt"
	"math"
)

// levelFloor keeps the dB conversion finite for silent input.
const levelFloor = 1e-10

// CompressorParams configures a Compressor. Threshold and Makeup are in
// dB; Attack and Release are time constants in seconds.
type CompressorParams struct {
	Threshold float64
	Ratio     float64
	Attack    float64
	Release   float64
	Makeup    float64
}

// Compressor applies ratio-based gain reduction above a threshold,
// smoothed by an asymmetric envelope follower working in the dB domain.
type Compressor struct {
	params      CompressorParams
	attackCoef  float64
	releaseCoef float64
	envelope    float64
}

// NewCompressor builds a compressor at the given sample rate.
func NewCompressor(sampleRate int, params CompressorParams) (*Compressor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("effects: sample rate must be positive, got %d", sampleRate)
	}
	if params.Ratio < 1 {
		return nil, fmt.Errorf("effects: compressor ratio must be >= 1, got %g", params.Ratio)
	}
	if params.Attack <= 0 || params.Release <= 0 {
		return nil, fmt.Errorf("effects: compressor attack and release must be positive")
	}
	sr := float64(sampleRate)
	return &Compressor{
		params:      params,
		attackCoef:  math.Exp(-1.0 / (params.Attack * sr)),
		releaseCoef: math.Exp(-1.0 / (params.Release * sr)),
	}, nil
}

// GainReduction returns the current envelope value in dB.
func (c *Compressor) GainReduction() float64 { return c.envelope }

func (c *Compressor) Process(in float32) float32 {
	level := 20 * math.Log10(math.Abs(float64(in))+levelFloor)

	var target float64
	if level > c.params.Threshold {
		overshoot := level - c.params.Threshold
		target = overshoot - overshoot/c.params.Ratio
	}

	// Attack when reduction is increasing, release when decreasing.
	coef := c.releaseCoef
	if target > c.envelope {
		coef = c.attackCoef
	}
	c.envelope = target + (c.envelope-target)*coef

	gain := math.Pow(10, (-c.envelope+c.params.Makeup)/20)
	return in * float32(gain)
}

func (c *Compressor) Reset() {
	c.envelope = 0
}
