package effects

import "fmt"

// Freeverb reference tunings at 44.1 kHz, scaled to the target sample
// rate at construction.
var (
	combTuning    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [4]int{556, 441, 341, 225}
)

const allpassFeedback = 0.5

// ReverbParams configures a Reverb. RoomSize and Damping are 0..1; Mix is
// the wet/dry balance.
type ReverbParams struct {
	RoomSize float64
	Damping  float64
	Mix      float64
}

// Reverb is a Freeverb-style reverb: eight parallel damped comb filters
// averaged, then four series allpass filters.
type Reverb struct {
	combs   [8]comb
	allpass [4]allpass
	params  ReverbParams
}

type comb struct {
	buf         []float32
	pos         int
	feedback    float32
	damping     float32
	filterState float32
}

type allpass struct {
	buf []float32
	pos int
}

// NewReverb builds a reverb with buffer lengths scaled from the 44.1 kHz
// reference tunings.
func NewReverb(sampleRate int, params ReverbParams) (*Reverb, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("effects: sample rate must be positive, got %d", sampleRate)
	}
	scale := float64(sampleRate) / 44100.0
	r := &Reverb{params: params}
	fb := float32(0.7 + params.RoomSize*0.28)
	for i := range r.combs {
		n := int(float64(combTuning[i]) * scale)
		if n < 1 {
			n = 1
		}
		r.combs[i] = comb{
			buf:      make([]float32, n),
			feedback: fb,
			damping:  float32(params.Damping),
		}
	}
	for i := range r.allpass {
		n := int(float64(allpassTuning[i]) * scale)
		if n < 1 {
			n = 1
		}
		r.allpass[i] = allpass{buf: make([]float32, n)}
	}
	return r, nil
}

// SetRoomSize changes the comb feedback.
func (r *Reverb) SetRoomSize(size float64) {
	r.params.RoomSize = size
	fb := float32(0.7 + size*0.28)
	for i := range r.combs {
		r.combs[i].feedback = fb
	}
}

// SetDamping changes the comb damping.
func (r *Reverb) SetDamping(damping float64) {
	r.params.Damping = damping
	for i := range r.combs {
		r.combs[i].damping = float32(damping)
	}
}

// SetMix changes the wet/dry mix.
func (r *Reverb) SetMix(mix float64) { r.params.Mix = mix }

func (r *Reverb) Process(in float32) float32 {
	var wet float32
	for i := range r.combs {
		wet += r.combs[i].process(in)
	}
	wet /= 8
	for i := range r.allpass {
		wet = r.allpass[i].process(wet)
	}
	mix := float32(r.params.Mix)
	return in*(1-mix) + wet*mix
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		c := &r.combs[i]
		for j := range c.buf {
			c.buf[j] = 0
		}
		c.pos = 0
		c.filterState = 0
	}
	for i := range r.allpass {
		a := &r.allpass[i]
		for j := range a.buf {
			a.buf[j] = 0
		}
		a.pos = 0
	}
}

// process runs one comb step: the damping is a one-pole low-pass on the
// feedback path.
func (c *comb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filterState = out*(1-c.damping) + c.filterState*c.damping
	c.buf[c.pos] = in + c.filterState*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(in float32) float32 {
	buffered := a.buf[a.pos]
	out := -in + buffered
	a.buf[a.pos] = in + buffered*allpassFeedback
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
