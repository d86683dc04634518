// Package groove applies expressive timing to tick values: swing,
// humanization jitter and groove templates.
package groove

import (
	"math"
	"math/rand"
)

// SwingSettings delays alternate subdivisions to create a shuffled feel.
// Resolution is the swung subdivision in ticks; zero means half a beat.
type SwingSettings struct {
	Amount     float64 `yaml:"amount"`
	Resolution float64 `yaml:"resolution"`
}

// ApplySwing shifts offbeat ticks later by Resolution*Amount. Downbeats and
// zero-amount settings pass through unchanged.
func ApplySwing(ticks float64, s SwingSettings, ticksPerBeat int) float64 {
	if s.Amount == 0 {
		return ticks
	}
	res := s.Resolution
	if res <= 0 {
		res = float64(ticksPerBeat) / 2.0
	}
	positionInPair := math.Mod(ticks/res, 2.0)
	if positionInPair >= 0.5 && positionInPair < 1.5 {
		return ticks + res*s.Amount
	}
	return ticks
}

// HumanizeSettings bounds the randomized jitter applied to note timing and
// velocity. Deterministic is advisory; callers control reproducibility by
// seeding the generator they pass in.
type HumanizeSettings struct {
	TimingMs      float64 `yaml:"timing_ms"`
	Velocity      float64 `yaml:"velocity"`
	Deterministic bool    `yaml:"deterministic"`
}

// ApplyHumanize jitters a tick value by a uniform random offset within
// ±TimingMs, converted to ticks at the given tempo. The result never goes
// negative. A zero timing bound is a no-op.
func ApplyHumanize(ticks float64, s HumanizeSettings, rng *rand.Rand, tempo float64, ticksPerBeat int) float64 {
	if s.TimingMs == 0 {
		return ticks
	}
	beatsPerSecond := tempo / 60.0
	maxTicks := s.TimingMs / 1000.0 * beatsPerSecond * float64(ticksPerBeat)
	offset := (rng.Float64()*2.0 - 1.0) * maxTicks
	out := ticks + offset
	if out < 0 {
		out = 0
	}
	return out
}

// HumanizeVelocity jitters a 0-1 velocity within ±Velocity, clamped to [0,1].
func HumanizeVelocity(velocity float64, s HumanizeSettings, rng *rand.Rand) float64 {
	if s.Velocity == 0 {
		return velocity
	}
	out := velocity + (rng.Float64()*2.0-1.0)*s.Velocity
	if out < 0 {
		return 0
	}
	if out > 1 {
		return 1
	}
	return out
}

// Entry is one slot of a groove template. Position indexes sixteenths within
// the template; multipliers of 1 are identity.
type Entry struct {
	Position int     `yaml:"position"`
	Offset   float64 `yaml:"offset"`
	Velocity float64 `yaml:"velocity"`
	Gate     float64 `yaml:"gate"`
}

// Template is a fixed-length table of per-sixteenth timing and dynamics
// offsets. Length is in sixteenth notes.
type Template struct {
	Name    string  `yaml:"name"`
	Length  int     `yaml:"length"`
	Entries []Entry `yaml:"entries"`
}

// Adjustment is the result of a template lookup. The zero adjustment is not
// the identity; use identityAdjustment via Apply.
type Adjustment struct {
	Offset   float64
	Velocity float64
	Gate     float64
}

// Apply locates the sixteenth slot for the given tick and returns its
// adjustment. Ticks outside the template wrap; slots with no entry return
// the identity adjustment.
func Apply(ticks float64, tmpl *Template, ticksPerBeat int) Adjustment {
	identity := Adjustment{Offset: 0, Velocity: 1, Gate: 1}
	if tmpl == nil || tmpl.Length <= 0 {
		return identity
	}
	ticksPerSixteenth := float64(ticksPerBeat) / 4.0
	patternTicks := ticksPerSixteenth * float64(tmpl.Length)
	pos := math.Mod(ticks, patternTicks)
	if pos < 0 {
		pos += patternTicks
	}
	index := int(math.Floor(pos / ticksPerSixteenth))
	for _, e := range tmpl.Entries {
		if e.Position == index {
			adj := Adjustment{Offset: e.Offset, Velocity: e.Velocity, Gate: e.Gate}
			if adj.Velocity == 0 {
				adj.Velocity = 1
			}
			if adj.Gate == 0 {
				adj.Gate = 1
			}
			return adj
		}
	}
	return identity
}

// PatternTicks returns the template length in ticks.
func (t *Template) PatternTicks(ticksPerBeat int) float64 {
	return float64(ticksPerBeat) / 4.0 * float64(t.Length)
}
