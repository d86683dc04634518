package tempogrid

import "github.com/cvail/tempogrid-go/internal/effects"

// The effect units live in an internal package; these aliases and
// constructors form the public surface for building chains.

// Chain is an ordered series of effect units applied to the engine
// output.
type Chain = effects.Chain

// NewChain builds a chain from the given units.
func NewChain(units ...effects.Effector) *Chain {
	return effects.NewChain(units...)
}

// Effect parameter types.
type (
	DelayParams      = effects.DelayParams
	ChorusParams     = effects.ChorusParams
	ReverbParams     = effects.ReverbParams
	CompressorParams = effects.CompressorParams
)

// NewDelay builds a delay line with the given maximum delay time in
// seconds.
func NewDelay(sampleRate int, maxTime float64, params DelayParams) (*effects.DelayLine, error) {
	return effects.NewDelayLine(sampleRate, maxTime, params)
}

// NewChorus builds a chorus around a 15 ms modulated delay.
func NewChorus(sampleRate int, params ChorusParams) (*effects.Chorus, error) {
	return effects.NewChorus(sampleRate, params)
}

// NewReverb builds a Schroeder reverberator.
func NewReverb(sampleRate int, params ReverbParams) (*effects.Reverb, error) {
	return effects.NewReverb(sampleRate, params)
}

// NewCompressor builds a feed-forward dynamics compressor.
func NewCompressor(sampleRate int, params CompressorParams) (*effects.Compressor, error) {
	return effects.NewCompressor(sampleRate, params)
}

// NewDistortion builds a tanh waveshaper with pre/post gain and an
// optional lowpass; pass lpfCutoff 0 to bypass the filter.
func NewDistortion(sampleRate int, preGain, postGain, lpfCutoff float32) *effects.Distortion {
	return effects.NewDistortion(sampleRate, preGain, postGain, lpfCutoff)
}

// NewEQ3Band builds a three-band shelving equalizer with the given band
// gains and crossover frequencies.
func NewEQ3Band(sampleRate int, lowGain, midGain, highGain, lowFreq, highFreq float32) *effects.EQ3Band {
	return effects.NewEQ3Band(sampleRate, lowGain, midGain, highGain, lowFreq, highFreq)
}
