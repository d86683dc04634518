package effects

import (
	"fmt"
	"math"
)

// DelayParams configures a DelayLine. Time is the current delay in
// seconds, changeable while running up to the construction-time maximum.
type DelayParams struct {
	Time     float64
	Feedback float64
	Mix      float64
}

// DelayLine is a feedback delay over a fixed-capacity circular buffer.
// The tap position is recomputed from the current Time on every call, so
// live time changes re-read from a shifting tap point. The tap truncates
// to an integer sample index, no interpolation.
type DelayLine struct {
	buf        []float32
	writeIdx   int
	sampleRate float64
	maxTime    float64
	params     DelayParams
}

// NewDelayLine builds a delay line with capacity for maxTime seconds.
func NewDelayLine(sampleRate int, maxTime float64, params DelayParams) (*DelayLine, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("effects: sample rate must be positive, got %d", sampleRate)
	}
	if maxTime <= 0 {
		return nil, fmt.Errorf("effects: max delay time must be positive, got %g", maxTime)
	}
	if params.Time > maxTime {
		params.Time = maxTime
	}
	size := int(math.Ceil(maxTime * float64(sampleRate)))
	return &DelayLine{
		buf:        make([]float32, size),
		sampleRate: float64(sampleRate),
		maxTime:    maxTime,
		params:     params,
	}, nil
}

// SetTime changes the delay time, clamped to the buffer capacity.
func (d *DelayLine) SetTime(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > d.maxTime {
		seconds = d.maxTime
	}
	d.params.Time = seconds
}

// SetFeedback changes the feedback amount.
func (d *DelayLine) SetFeedback(fb float64) { d.params.Feedback = fb }

// SetMix changes the wet/dry mix.
func (d *DelayLine) SetMix(mix float64) { d.params.Mix = mix }

func (d *DelayLine) Process(in float32) float32 {
	delaySamples := int(d.params.Time * d.sampleRate)
	if delaySamples >= len(d.buf) {
		delaySamples = len(d.buf) - 1
	}
	readIdx := d.writeIdx - delaySamples
	if readIdx < 0 {
		readIdx += len(d.buf)
	}
	delayed := d.buf[readIdx]
	d.buf[d.writeIdx] = in + delayed*float32(d.params.Feedback)
	d.writeIdx++
	if d.writeIdx >= len(d.buf) {
		d.writeIdx = 0
	}
	mix := float32(d.params.Mix)
	return in*(1-mix) + delayed*mix
}

func (d *DelayLine) Reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.writeIdx = 0
}
