// Package fm implements phase-modulation synthesis: sinusoidal operators
// with optional self-feedback, composed into voices under selectable
// routing topologies.
package fm

import (
	"fmt"
	"math"
)

const twoPi = math.Pi * 2

// Topology selects how a voice routes its operators.
type Topology int

const (
	// Serial chains each operator's output into the next operator's
	// phase-modulation input; the last operator is the carrier.
	Serial Topology = iota
	// Parallel mixes every operator as an unmodulated carrier.
	Parallel
	// Stack is a fixed four-operator routing: op1 modulates op2 and op3,
	// which sum with the unmodulated op0. Voices with fewer than four
	// operators fall back to Parallel.
	Stack
	// Custom leaves routing to the caller via a RoutingFunc.
	Custom
)

// OperatorParams configures one operator. Ratio multiplies the voice base
// frequency; Detune is in cents; Level scales the output; Feedback feeds
// the previous output back into the phase.
type OperatorParams struct {
	Ratio    float64
	Detune   float64
	Level    float64
	Feedback float64
}

// Operator is a phase-modulatable sine generator. It owns its phase
// accumulator and the previous raw output needed for self-feedback.
type Operator struct {
	params     OperatorParams
	sampleRate float64
	phase      float64
	prevOut    float64
}

// NewOperator builds an operator at the given sample rate.
func NewOperator(sampleRate int, params OperatorParams) *Operator {
	return &Operator{params: params, sampleRate: float64(sampleRate)}
}

// Process generates one sample at baseFreq with the given phase-modulation
// input. The modulation input and self-feedback are both added to the
// phase argument of the sine; the stored feedback memory is the raw sine
// output before level scaling.
func (o *Operator) Process(baseFreq, modulation float64) float64 {
	freq := baseFreq * o.params.Ratio * math.Pow(2, o.params.Detune/1200.0)
	fb := o.prevOut * o.params.Feedback * math.Pi
	out := math.Sin(twoPi*o.phase + modulation*twoPi + fb)
	o.prevOut = out
	o.phase += freq / o.sampleRate
	for o.phase >= 1.0 {
		o.phase -= 1.0
	}
	return out * o.params.Level
}

// Reset zeroes the phase and feedback memory.
func (o *Operator) Reset() {
	o.phase = 0
	o.prevOut = 0
}

// SetLevel changes the output level.
func (o *Operator) SetLevel(level float64) { o.params.Level = level }

// Params returns the operator's configuration.
func (o *Operator) Params() OperatorParams { return o.params }

// RoutingFunc computes one voice sample from its operators under a Custom
// topology. Implementations call Process on each operator exactly once.
type RoutingFunc func(ops []*Operator, baseFreq float64) float64

// Voice composes operators under a topology.
type Voice struct {
	topology Topology
	ops      []*Operator
	routing  RoutingFunc
}

// NewVoice builds a voice from operator parameter sets. A Custom topology
// requires a routing function.
func NewVoice(sampleRate int, topology Topology, params []OperatorParams, routing RoutingFunc) (*Voice, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("fm: voice requires at least one operator")
	}
	if topology == Custom && routing == nil {
		return nil, fmt.Errorf("fm: custom topology requires a routing function")
	}
	ops := make([]*Operator, len(params))
	for i, p := range params {
		ops[i] = NewOperator(sampleRate, p)
	}
	return &Voice{topology: topology, ops: ops, routing: routing}, nil
}

// Operators returns the voice's operators in order.
func (v *Voice) Operators() []*Operator { return v.ops }

// Process generates one sample at the given base frequency.
func (v *Voice) Process(baseFreq float64) float64 {
	switch v.topology {
	case Serial:
		var mod float64
		for _, op := range v.ops {
			mod = op.Process(baseFreq, mod)
		}
		return mod
	case Stack:
		if len(v.ops) < 4 {
			return v.parallel(baseFreq)
		}
		op0 := v.ops[0].Process(baseFreq, 0)
		op1 := v.ops[1].Process(baseFreq, 0)
		op2 := v.ops[2].Process(baseFreq, op1)
		op3 := v.ops[3].Process(baseFreq, op1)
		return (op0 + op2 + op3) / 3.0
	case Custom:
		return v.routing(v.ops, baseFreq)
	default:
		return v.parallel(baseFreq)
	}
}

func (v *Voice) parallel(baseFreq float64) float64 {
	var sum float64
	for _, op := range v.ops {
		sum += op.Process(baseFreq, 0)
	}
	return sum / float64(len(v.ops))
}

// Reset zeroes phase and feedback memory on every operator.
func (v *Voice) Reset() {
	for _, op := range v.ops {
		op.Reset()
	}
}
