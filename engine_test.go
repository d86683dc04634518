package tempogrid

import (
	"math"
	"testing"

	"github.com/cvail/tempogrid-go/internal/groove"
	"github.com/cvail/tempogrid-go/internal/transport"
)

// stubInstrument records note lifecycle calls and emits a constant sample
// while any voice is held.
type stubInstrument struct {
	nextID int
	held   map[int]bool
	ons    []uint8
	offs   []int
	level  float32
}

func newStubInstrument(level float32) *stubInstrument {
	return &stubInstrument{held: map[int]bool{}, level: level}
}

func (s *stubInstrument) NoteOn(key uint8, velocity float64) int {
	s.nextID++
	s.held[s.nextID] = true
	s.ons = append(s.ons, key)
	return s.nextID
}

func (s *stubInstrument) NoteOff(id int) {
	delete(s.held, id)
	s.offs = append(s.offs, id)
}

func (s *stubInstrument) Render() float32 {
	if len(s.held) > 0 {
		return s.level
	}
	return 0
}

func (s *stubInstrument) ActiveVoices() int { return len(s.held) }

func (s *stubInstrument) Reset() {
	s.held = map[int]bool{}
}

func mustEngine(t *testing.T, cfg EngineConfig, inst Instrument) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, inst, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func processBlocks(e *Engine, blocks, frames int) {
	buf := make([]float32, frames*2)
	for i := 0; i < blocks; i++ {
		e.Process(buf)
	}
}

func TestNewEngineRequiresInstrument(t *testing.T) {
	if _, err := NewEngine(DefaultEngineConfig(), nil, nil); err == nil {
		t.Fatal("expected error for nil instrument")
	}
}

func TestScheduleNoteAppliesSwing(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Swing = groove.SwingSettings{Amount: 0.5}
	e := mustEngine(t, cfg, newStubInstrument(0))

	// 240 is the offbeat eighth at 480 TPB; swing pushes it later by
	// half the 240-tick resolution.
	e.ScheduleNote(240, NoteEvent{Key: 60, Velocity: 0.8, Duration: 120})
	evs := e.Transport().EventsInRange(0, 1e9)
	if len(evs) != 1 {
		t.Fatalf("expected 1 scheduled event, got %d", len(evs))
	}
	if got, want := evs[0].Tick, 360.0; got != want {
		t.Fatalf("swung tick = %g, want %g", got, want)
	}
}

func TestScheduleNoteAppliesGrooveTemplate(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Groove = &groove.Template{
		Name:   "laid back",
		Length: 16,
		Entries: []groove.Entry{
			{Position: 0, Offset: 12, Velocity: 0.5, Gate: 0.75},
		},
	}
	e := mustEngine(t, cfg, newStubInstrument(0))

	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 0.8, Duration: 480})
	evs := e.Transport().EventsInRange(0, 1e9)
	if len(evs) != 1 {
		t.Fatalf("expected 1 scheduled event, got %d", len(evs))
	}
	if got, want := evs[0].Tick, 12.0; got != want {
		t.Fatalf("grooved tick = %g, want %g", got, want)
	}
	n := evs[0].Payload
	if math.Abs(n.Velocity-0.4) > 1e-12 {
		t.Fatalf("grooved velocity = %g, want 0.4", n.Velocity)
	}
	if math.Abs(n.Gate-0.75) > 1e-12 {
		t.Fatalf("grooved gate = %g, want 0.75", n.Gate)
	}
}

func TestScheduleNoteHumanizeReproducible(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Humanize = groove.HumanizeSettings{TimingMs: 10, Velocity: 0.1}
	cfg.Seed = 42

	ticksOf := func() (float64, float64) {
		e := mustEngine(t, cfg, newStubInstrument(0))
		e.ScheduleNote(480, NoteEvent{Key: 60, Velocity: 0.8, Duration: 120})
		ev := e.Transport().EventsInRange(0, 1e9)[0]
		return ev.Tick, ev.Payload.Velocity
	}
	t1, v1 := ticksOf()
	t2, v2 := ticksOf()
	if t1 != t2 || v1 != v2 {
		t.Fatalf("same seed produced different results: (%g, %g) vs (%g, %g)", t1, v1, t2, v2)
	}
	if t1 == 480 {
		t.Fatal("expected humanize to move the tick")
	}
}

func TestProcessDispatchesNoteAndNoteOff(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)

	// Quarter note at tick 0: off at tick 480, i.e. 0.5 s, 24000 samples
	// at 48 kHz and 120 BPM.
	e.ScheduleNote(0, NoteEvent{Key: 64, Velocity: 1, Duration: 480, Gate: 1})
	e.Do(func(e *Engine) { e.tr.Play() })

	processBlocks(e, 1, 512)
	if len(inst.ons) != 1 || inst.ons[0] != 64 {
		t.Fatalf("note-ons after first block = %v, want [64]", inst.ons)
	}
	if len(inst.offs) != 0 {
		t.Fatalf("premature note-off: %v", inst.offs)
	}

	// 47 more blocks of 512 frames crosses 24000 samples.
	processBlocks(e, 47, 512)
	if len(inst.offs) != 1 {
		t.Fatalf("note-offs = %v, want exactly one", inst.offs)
	}
	if inst.ActiveVoices() != 0 {
		t.Fatalf("voices still active after note-off: %d", inst.ActiveVoices())
	}
}

func TestNoteOffHonorsGate(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)

	// Gate 0.5 halves the sounding length: off at tick 240 = 12000 samples.
	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 1, Duration: 480, Gate: 0.5})
	e.Do(func(e *Engine) { e.tr.Play() })

	processBlocks(e, 23, 512) // 11776 samples
	if len(inst.offs) != 0 {
		t.Fatalf("note-off before gate-scaled duration: %v", inst.offs)
	}
	processBlocks(e, 1, 512) // 12288 samples
	if len(inst.offs) != 1 {
		t.Fatalf("note-offs = %v, want one at gate-scaled duration", inst.offs)
	}
}

func TestDoReportsFullQueue(t *testing.T) {
	e := mustEngine(t, DefaultEngineConfig(), newStubInstrument(0))
	for i := 0; i < commandQueueCap; i++ {
		if !e.Do(func(*Engine) {}) {
			t.Fatalf("queue rejected command %d of %d", i, commandQueueCap)
		}
	}
	if e.Do(func(*Engine) {}) {
		t.Fatal("expected full queue to reject the command")
	}
	processBlocks(e, 1, 64)
	if !e.Do(func(*Engine) {}) {
		t.Fatal("queue should accept again after a block drained it")
	}
}

func TestWatchReceivesBeatAndBarEvents(t *testing.T) {
	e := mustEngine(t, DefaultEngineConfig(), newStubInstrument(0))
	ch := e.Watch()
	e.Do(func(e *Engine) { e.tr.Play() })

	// One bar at 120 BPM in 4/4 is 2 s = 96000 samples.
	processBlocks(e, 188, 512)

	var beats, bars int
	for {
		select {
		case ev := <-ch:
			switch ev.Kind {
			case EventBeat:
				beats++
			case EventBar:
				bars++
			}
			continue
		default:
		}
		break
	}
	if beats < 3 {
		t.Fatalf("beat events = %d, want at least 3", beats)
	}
	if bars < 1 {
		t.Fatalf("bar events = %d, want at least 1", bars)
	}
}

func TestFiniteEngineFinishes(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)
	ch := e.Watch()
	e.SetFinite(true)
	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 1, Duration: 96, Gate: 1})
	e.Do(func(e *Engine) { e.tr.Play() })

	processBlocks(e, 20, 512)
	if !e.Finished() {
		t.Fatal("finite engine did not finish after its only note ended")
	}
	var ended bool
	for {
		select {
		case ev := <-ch:
			if ev.Kind == EventPlaybackEnded {
				ended = true
			}
			continue
		default:
		}
		break
	}
	if !ended {
		t.Fatal("expected an EventPlaybackEnded on the watch channel")
	}
}

func TestInfiniteEngineNeverFinishes(t *testing.T) {
	e := mustEngine(t, DefaultEngineConfig(), newStubInstrument(0))
	e.Do(func(e *Engine) { e.tr.Play() })
	processBlocks(e, 10, 512)
	if e.Finished() {
		t.Fatal("engine without SetFinite reported finished")
	}
}

func TestMasterVolumeScalesOutput(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)
	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 1, Duration: 4800, Gate: 1})
	e.Do(func(e *Engine) { e.tr.Play() })

	buf := make([]float32, 128)
	e.Process(buf)
	if buf[10] != 0.5 || buf[11] != 0.5 {
		t.Fatalf("unity volume frame = (%g, %g), want (0.5, 0.5)", buf[10], buf[11])
	}

	e.SetMasterVolume(0.5)
	e.Process(buf)
	if buf[10] != 0.25 {
		t.Fatalf("half volume sample = %g, want 0.25", buf[10])
	}

	e.SetMasterVolume(0)
	e.Process(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("muted sample %d = %g, want 0", i, s)
		}
	}
}

func TestPanBalancesChannels(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)
	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 1, Duration: 4800, Gate: 1})
	e.Do(func(e *Engine) { e.tr.Play() })

	buf := make([]float32, 128)
	e.SetPan(1)
	e.Process(buf)
	if buf[0] != 0 || buf[1] != 0.5 {
		t.Fatalf("hard right frame = (%g, %g), want (0, 0.5)", buf[0], buf[1])
	}

	e.SetPan(-0.5)
	e.Process(buf)
	if buf[0] != 0.5 || buf[1] != 0.25 {
		t.Fatalf("half left frame = (%g, %g), want (0.5, 0.25)", buf[0], buf[1])
	}

	e.SetPan(-3)
	if e.Pan() != -1 {
		t.Fatalf("pan clamp = %g, want -1", e.Pan())
	}
}

func TestMetronomeClickAudible(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Metronome = transport.DefaultMetronomeSettings()
	cfg.Metronome.Enabled = true
	e := mustEngine(t, cfg, newStubInstrument(0))
	e.Do(func(e *Engine) { e.tr.Play() })

	buf := make([]float32, 512*2)
	e.Process(buf)
	var peak float32
	for _, s := range buf {
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("expected the downbeat click in the first block")
	}
}

func TestSampleTapSeesRenderedBuffer(t *testing.T) {
	inst := newStubInstrument(0.5)
	e := mustEngine(t, DefaultEngineConfig(), inst)
	e.ScheduleNote(0, NoteEvent{Key: 60, Velocity: 1, Duration: 4800, Gate: 1})

	var tapped []float32
	e.SetSampleTap(func(buf []float32) {
		tapped = append(tapped[:0], buf...)
	})
	e.Do(func(e *Engine) { e.tr.Play() })

	buf := make([]float32, 128)
	e.Process(buf)
	if len(tapped) != len(buf) {
		t.Fatalf("tap saw %d samples, want %d", len(tapped), len(buf))
	}
	if tapped[10] != buf[10] {
		t.Fatalf("tap sample = %g, output sample = %g", tapped[10], buf[10])
	}
}
