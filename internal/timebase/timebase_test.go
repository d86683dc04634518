package timebase

import (
	"math"
	"testing"
)

func TestTicksToSamplesAtReferenceTempo(t *testing.T) {
	// One beat at 120 BPM and 48 kHz is half a second = 24000 samples.
	got := TicksToSamples(480, 120, 48000, 480)
	if got != 24000 {
		t.Errorf("TicksToSamples(480, 120, 48000, 480) = %d, want 24000", got)
	}
}

func TestSampleTickRoundTripWithinOneTick(t *testing.T) {
	for _, tc := range []struct {
		ticks float64
		tempo float64
		sr    int
		tpb   int
	}{
		{480, 120, 48000, 480},
		{1, 120, 48000, 480},
		{123, 97.3, 44100, 480},
		{9999, 300, 96000, 960},
		{7, 20, 22050, 96},
	} {
		samples := TicksToSamples(tc.ticks, tc.tempo, tc.sr, tc.tpb)
		back := SamplesToTicks(samples, tc.tempo, tc.sr, tc.tpb)
		if math.Abs(back-tc.ticks) > 1 {
			t.Errorf("round trip %v: got %g ticks back, want within 1 of %g", tc, back, tc.ticks)
		}
	}
}

func TestPositionRoundTripExact(t *testing.T) {
	sigs := []TimeSignature{{4, 4}, {3, 4}, {6, 8}, {7, 8}, {5, 4}}
	for _, sig := range sigs {
		for bar := 1; bar <= 5; bar++ {
			for beat := 1; beat <= sig.Numerator; beat++ {
				for sixteenth := 1; sixteenth <= 4; sixteenth++ {
					ticks := PositionToTicks(bar, beat, sixteenth, sig, 480)
					b, bt, sx := TicksToPosition(ticks, sig, 480)
					if b != bar || bt != beat || sx != sixteenth {
						t.Fatalf("sig %d/%d: (%d,%d,%d) -> %g -> (%d,%d,%d)",
							sig.Numerator, sig.Denominator, bar, beat, sixteenth, ticks, b, bt, sx)
					}
				}
			}
		}
	}
}

func TestSecondsConversions(t *testing.T) {
	sec := TicksToSeconds(480, 120, 480)
	if math.Abs(sec-0.5) > 1e-9 {
		t.Errorf("480 ticks at 120 BPM = %g s, want 0.5", sec)
	}
	ticks := SecondsToTicks(0.5, 120, 480)
	if ticks != 480 {
		t.Errorf("0.5 s at 120 BPM = %g ticks, want 480", ticks)
	}
}

func TestQuantizeModes(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ticks float64
		grid  float64
		mode  QuantizeMode
		want  float64
	}{
		{"nearest rounds up from half", 100, 120, QuantizeNearest, 120},
		{"nearest below half", 59, 120, QuantizeNearest, 0},
		{"nearest exactly half", 60, 120, QuantizeNearest, 120},
		{"floor", 150, 120, QuantizeFloor, 120},
		{"ceil", 121, 120, QuantizeCeil, 240},
		{"already on grid", 240, 120, QuantizeNearest, 240},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Quantize(tc.ticks, tc.grid, tc.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Quantize(%g, %g) = %g, want %g", tc.ticks, tc.grid, got, tc.want)
			}
		})
	}
}

func TestQuantizeZeroGridErrors(t *testing.T) {
	if _, err := Quantize(100, 0, QuantizeNearest); err == nil {
		t.Error("expected error for zero grid")
	}
	if _, err := Quantize(100, -10, QuantizeFloor); err == nil {
		t.Error("expected error for negative grid")
	}
}

func TestTicksPerNote(t *testing.T) {
	for _, tc := range []struct {
		value NoteValue
		want  float64
	}{
		{Whole, 1920},
		{Half, 960},
		{Quarter, 480},
		{Eighth, 240},
		{Sixteenth, 120},
		{ThirtySecond, 60},
		{SixtyFourth, 30},
	} {
		got, err := TicksPerNote(tc.value, 480)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Errorf("TicksPerNote(%d) = %g, want %g", tc.value, got, tc.want)
		}
	}
	if _, err := TicksPerNote(0, 480); err == nil {
		t.Error("expected error for zero note value")
	}
}

func TestTicksPerBar(t *testing.T) {
	if got := (TimeSignature{3, 4}).TicksPerBar(480); got != 1440 {
		t.Errorf("3/4 bar = %g ticks, want 1440", got)
	}
}
