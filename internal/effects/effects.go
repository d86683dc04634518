// Package effects implements the signal-processing chain: delay, chorus,
// reverb, compressor, distortion and EQ. Units process mono samples one at
// a time and compose through Chain. Buffer sizing happens at construction;
// Process never allocates.
package effects

// Effector processes one sample and returns the result.
type Effector interface {
	Process(in float32) float32
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(in float32) float32 {
	for _, e := range c.effects {
		in = e.Process(in)
	}
	return in
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}
