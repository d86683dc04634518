package effects

import (
	"fmt"

	"github.com/cvail/tempogrid-go/internal/osc"
)

// chorusBaseDelay is the center delay the internal LFO modulates around.
const chorusBaseDelay = 0.015

// ChorusParams configures a Chorus. Rate is the modulation frequency in
// Hz; Depth scales the delay excursion up to the full base delay; Mix is
// the wet/dry balance.
type ChorusParams struct {
	Rate  float64
	Depth float64
	Mix   float64
}

// Chorus is a modulated delay. An internal sine LFO swings the delay
// around a 15 ms base; the read position interpolates linearly between
// the two nearest samples.
type Chorus struct {
	buf        []float32
	writeIdx   int
	sampleRate float64
	baseDelay  float64
	lfo        *osc.LFO
	params     ChorusParams
}

// NewChorus builds a chorus at the given sample rate.
func NewChorus(sampleRate int, params ChorusParams) (*Chorus, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("effects: sample rate must be positive, got %d", sampleRate)
	}
	base := chorusBaseDelay * float64(sampleRate)
	// Capacity for the base delay plus a full-depth excursion either way.
	size := int(base*2) + 2
	return &Chorus{
		buf:        make([]float32, size),
		sampleRate: float64(sampleRate),
		baseDelay:  base,
		lfo:        osc.NewLFO(sampleRate, osc.LFOParams{Waveform: osc.LFOSine, Frequency: params.Rate, Depth: 1}, nil),
		params:     params,
	}, nil
}

// SetRate changes the modulation frequency in Hz.
func (c *Chorus) SetRate(hz float64) {
	c.params.Rate = hz
	c.lfo.SetFrequency(hz)
}

// SetDepth changes the modulation depth.
func (c *Chorus) SetDepth(depth float64) { c.params.Depth = depth }

// SetMix changes the wet/dry mix.
func (c *Chorus) SetMix(mix float64) { c.params.Mix = mix }

func (c *Chorus) Process(in float32) float32 {
	c.buf[c.writeIdx] = in

	delay := c.baseDelay + c.baseDelay*c.params.Depth*c.lfo.Process()
	readPos := float64(c.writeIdx) - delay
	for readPos < 0 {
		readPos += float64(len(c.buf))
	}
	i0 := int(readPos)
	i1 := i0 + 1
	if i1 >= len(c.buf) {
		i1 = 0
	}
	frac := float32(readPos - float64(i0))
	wet := c.buf[i0]*(1-frac) + c.buf[i1]*frac

	c.writeIdx++
	if c.writeIdx >= len(c.buf) {
		c.writeIdx = 0
	}
	mix := float32(c.params.Mix)
	return in*(1-mix) + wet*mix
}

func (c *Chorus) Reset() {
	for i := range c.buf {
		c.buf[i] = 0
	}
	c.writeIdx = 0
	c.lfo.Reset()
}
