package transport

import "github.com/cvail/tempogrid-go/internal/timebase"

// MetronomeSettings configures click generation.
type MetronomeSettings struct {
	Enabled        bool
	Volume         float64
	AccentDownbeat bool
	Subdivision    int
	CountInBars    int
}

// DefaultMetronomeSettings returns the documented defaults.
func DefaultMetronomeSettings() MetronomeSettings {
	return MetronomeSettings{
		Enabled:        true,
		Volume:         0.7,
		AccentDownbeat: true,
		Subdivision:    1,
		CountInBars:    0,
	}
}

// ClickType distinguishes accented downbeats, plain beats and subdivision
// ticks.
type ClickType int

const (
	ClickBeat ClickType = iota
	ClickDownbeat
	ClickSubdivision
)

// Click is one metronome event.
type Click struct {
	Tick float64
	Type ClickType
}

// MetronomeClicks generates one bar of clicks starting at barStart: one per
// beat, the first typed as a downbeat when accenting, plus evenly spaced
// subdivision clicks between beats when Subdivision > 1.
func MetronomeClicks(barStart float64, sig timebase.TimeSignature, ticksPerBeat int, s MetronomeSettings) []Click {
	tpb := float64(ticksPerBeat)
	clicks := make([]Click, 0, sig.Numerator*maxInt(s.Subdivision, 1))
	for beat := 0; beat < sig.Numerator; beat++ {
		tick := barStart + float64(beat)*tpb
		ct := ClickBeat
		if beat == 0 && s.AccentDownbeat {
			ct = ClickDownbeat
		}
		clicks = append(clicks, Click{Tick: tick, Type: ct})
		if s.Subdivision > 1 {
			step := tpb / float64(s.Subdivision)
			for j := 1; j < s.Subdivision; j++ {
				clicks = append(clicks, Click{Tick: tick + float64(j)*step, Type: ClickSubdivision})
			}
		}
	}
	return clicks
}

// PrerollSettings configures the count-in before recording or playback.
type PrerollSettings struct {
	Enabled   bool
	Bars      int
	Metronome bool
}

// DefaultPrerollSettings returns the documented defaults.
func DefaultPrerollSettings() PrerollSettings {
	return PrerollSettings{Enabled: false, Bars: 1, Metronome: true}
}

// PrerollStart returns the tick where a preroll of the given bar count
// begins, clamped to zero.
func PrerollStart(startTick float64, bars int, sig timebase.TimeSignature, ticksPerBeat int) float64 {
	start := startTick - float64(bars)*float64(ticksPerBeat)*float64(sig.Numerator)
	if start < 0 {
		return 0
	}
	return start
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
