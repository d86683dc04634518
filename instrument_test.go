package tempogrid

import (
	"math"
	"testing"
)

func TestMidiToFreq(t *testing.T) {
	cases := []struct {
		key  uint8
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6255653},
	}
	for _, c := range cases {
		if got := midiToFreq(c.key); math.Abs(got-c.want) > 1e-6 {
			t.Errorf("midiToFreq(%d) = %g, want %g", c.key, got, c.want)
		}
	}
}

func TestAmpEnvLifecycle(t *testing.T) {
	env := newAmpEnv(1000, 0.01, 0.02)
	env.gateOn()

	for i := 0; i < 10; i++ {
		env.next()
	}
	if env.stage != envSustain {
		t.Fatalf("after attack: stage = %d, want sustain", env.stage)
	}
	if env.level != 1 {
		t.Fatalf("sustain level = %g, want 1", env.level)
	}

	env.gateOff()
	for i := 0; i < 20; i++ {
		env.next()
	}
	if env.active() {
		t.Fatal("envelope still active after full release")
	}
	if env.level != 0 {
		t.Fatalf("released level = %g, want 0", env.level)
	}
}

func TestFMInstrumentNoteLifecycle(t *testing.T) {
	params := DefaultFMInstrumentParams()
	params.ReleaseSec = 0.01
	ins, err := NewFMInstrument(48000, params)
	if err != nil {
		t.Fatalf("NewFMInstrument: %v", err)
	}

	id := ins.NoteOn(69, 1)
	if ins.ActiveVoices() != 1 {
		t.Fatalf("active voices after NoteOn = %d, want 1", ins.ActiveVoices())
	}

	var peak float64
	for i := 0; i < 4800; i++ {
		s := math.Abs(float64(ins.Render()))
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("held note rendered silence")
	}

	ins.NoteOff(id)
	for i := 0; i < 960; i++ {
		ins.Render()
	}
	if ins.ActiveVoices() != 0 {
		t.Fatalf("active voices after release = %d, want 0", ins.ActiveVoices())
	}
}

func TestFMInstrumentVoiceStealing(t *testing.T) {
	params := DefaultFMInstrumentParams()
	params.Polyphony = 2
	ins, err := NewFMInstrument(48000, params)
	if err != nil {
		t.Fatalf("NewFMInstrument: %v", err)
	}

	id1 := ins.NoteOn(60, 1)
	id2 := ins.NoteOn(64, 1)
	id3 := ins.NoteOn(67, 1)
	if id1 == id2 || id2 == id3 || id1 == id3 {
		t.Fatalf("voice ids must be distinct: %d %d %d", id1, id2, id3)
	}
	if ins.ActiveVoices() != 2 {
		t.Fatalf("active voices = %d, want polyphony cap 2", ins.ActiveVoices())
	}
}

func TestFMInstrumentPolyphonyClamped(t *testing.T) {
	params := DefaultFMInstrumentParams()
	params.Polyphony = MaxVoices * 4
	ins, err := NewFMInstrument(48000, params)
	if err != nil {
		t.Fatalf("NewFMInstrument: %v", err)
	}
	if len(ins.slots) != MaxVoices {
		t.Fatalf("slots = %d, want clamp to %d", len(ins.slots), MaxVoices)
	}
}

func TestFMInstrumentReset(t *testing.T) {
	ins, err := NewFMInstrument(48000, DefaultFMInstrumentParams())
	if err != nil {
		t.Fatalf("NewFMInstrument: %v", err)
	}
	ins.NoteOn(60, 1)
	ins.NoteOn(64, 1)
	ins.Reset()
	if ins.ActiveVoices() != 0 {
		t.Fatalf("active voices after Reset = %d, want 0", ins.ActiveVoices())
	}
	if s := ins.Render(); s != 0 {
		t.Fatalf("render after Reset = %g, want 0", s)
	}
}

func TestOscInstrumentRenders(t *testing.T) {
	ins, err := NewOscInstrument(48000, DefaultOscInstrumentParams())
	if err != nil {
		t.Fatalf("NewOscInstrument: %v", err)
	}
	id := ins.NoteOn(57, 0.9)
	var peak float64
	for i := 0; i < 2400; i++ {
		s := math.Abs(float64(ins.Render()))
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("held note rendered silence")
	}
	ins.NoteOff(id)
	for i := 0; i < 48000; i++ {
		ins.Render()
	}
	if ins.ActiveVoices() != 0 {
		t.Fatalf("active voices after release = %d, want 0", ins.ActiveVoices())
	}
}

func TestOscInstrumentVelocityScalesOutput(t *testing.T) {
	peakAt := func(vel float64) float64 {
		ins, err := NewOscInstrument(48000, DefaultOscInstrumentParams())
		if err != nil {
			t.Fatalf("NewOscInstrument: %v", err)
		}
		ins.NoteOn(69, vel)
		var peak float64
		for i := 0; i < 4800; i++ {
			s := math.Abs(float64(ins.Render()))
			if s > peak {
				peak = s
			}
		}
		return peak
	}
	loud := peakAt(1)
	soft := peakAt(0.25)
	if math.Abs(soft-loud/4) > 1e-6 {
		t.Fatalf("velocity scaling: peak(0.25) = %g, peak(1)/4 = %g", soft, loud/4)
	}
}
