// Package transport drives playback position through musical time. It owns
// the transport state machine, the loop and marker logic, tempo selection
// (manual or automated) and the schedule queue lookahead used by instrument
// code.
package transport

import (
	"fmt"
	"sort"

	"github.com/cvail/tempogrid-go/internal/schedule"
	"github.com/cvail/tempogrid-go/internal/tempomap"
	"github.com/cvail/tempogrid-go/internal/timebase"
)

// State is the transport state machine state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
	StateRecording
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateRecording:
		return "recording"
	default:
		return "stopped"
	}
}

// Tempo bounds for manual tempo changes; SetTempo saturates, never errors.
const (
	MinTempo = 20.0
	MaxTempo = 300.0
)

// Config is the scheduler configuration surface.
type Config struct {
	SampleRate         int
	TicksPerBeat       int
	LookaheadMs        float64
	ScheduleIntervalMs float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:         48000,
		TicksPerBeat:       timebase.DefaultTicksPerBeat,
		LookaheadMs:        50,
		ScheduleIntervalMs: 25,
	}
}

// LoopRegion repeats [Start, End) in ticks. Count 0 loops forever.
type LoopRegion struct {
	Start float64
	End   float64
	Count int
}

// Marker is a named tick annotation. Markers have no behavioral effect
// beyond the OnMarker callback.
type Marker struct {
	ID    int
	Name  string
	Tick  float64
	Color string
}

// Position is the derived playback position. It is always recomputed from
// ticks plus the current tempo and time signature, never cached.
type Position struct {
	Ticks     float64
	Bar       int
	Beat      int
	Sixteenth int
	Samples   int64
	Seconds   float64
}

// Snapshot is an immutable composite of the transport state for host/UI
// polling.
type Snapshot struct {
	State         State
	Position      Position
	Tempo         float64
	TimeSignature timebase.TimeSignature
	Loop          LoopRegion
	LoopSet       bool
	LoopActive    bool
	LoopIteration int
	PendingEvents int
}

// Callbacks fire synchronously from the transport methods that trigger
// them; keep them brief and non-blocking, they run on the render path.
type Callbacks struct {
	OnPlay   func()
	OnPause  func()
	OnStop   func()
	OnBeat   func(beat, bar int)
	OnBar    func(bar int)
	OnLoop   func(iteration int)
	OnMarker func(m Marker)
}

// Transport is the audio scheduler. T is the payload type of scheduled
// events. All methods are single-goroutine; the engine serializes control
// commands onto the render goroutine at block boundaries.
type Transport[T any] struct {
	cfg Config
	cb  Callbacks

	state State
	ticks float64
	tempo float64
	tmap  tempomap.Map
	sig   timebase.TimeSignature

	loop          LoopRegion
	loopSet       bool
	loopActive    bool
	loopIteration int

	markers      []Marker
	nextMarkerID int

	queue *schedule.Queue[T]

	// Boundary-detection baseline, refreshed on seek/stop/advance.
	prevBar  int
	prevBeat int
}

// New validates the configuration and returns a stopped transport at tick
// zero, 120 BPM, common time.
func New[T any](cfg Config, cb Callbacks) (*Transport[T], error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("transport: sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.TicksPerBeat <= 0 {
		return nil, fmt.Errorf("transport: ticks per beat must be positive, got %d", cfg.TicksPerBeat)
	}
	if cfg.LookaheadMs < 0 {
		return nil, fmt.Errorf("transport: lookahead must not be negative, got %g", cfg.LookaheadMs)
	}
	t := &Transport[T]{
		cfg:          cfg,
		cb:           cb,
		tempo:        tempomap.DefaultBPM,
		sig:          timebase.CommonTime,
		queue:        schedule.New[T](),
		nextMarkerID: 1,
	}
	t.prevBar, t.prevBeat, _ = timebase.TicksToPosition(0, t.sig, cfg.TicksPerBeat)
	return t, nil
}

// Config returns the configuration the transport was built with.
func (t *Transport[T]) Config() Config { return t.cfg }

// State returns the current transport state.
func (t *Transport[T]) State() State { return t.state }

// Ticks returns the current playback position in ticks.
func (t *Transport[T]) Ticks() float64 { return t.ticks }

// Play starts playback from the current position. Starting from paused
// resumes; play while already playing is a no-op.
func (t *Transport[T]) Play() {
	if t.state == StatePlaying {
		return
	}
	t.state = StatePlaying
	if t.cb.OnPlay != nil {
		t.cb.OnPlay()
	}
}

// Record starts playback in recording state. Like Play, it fires OnPlay:
// recording is playback plus capture.
func (t *Transport[T]) Record() {
	if t.state == StateRecording {
		return
	}
	t.state = StateRecording
	if t.cb.OnPlay != nil {
		t.cb.OnPlay()
	}
}

// Pause suspends playback, keeping the position. Only valid while playing
// or recording; otherwise a no-op.
func (t *Transport[T]) Pause() {
	if t.state != StatePlaying && t.state != StateRecording {
		return
	}
	t.state = StatePaused
	if t.cb.OnPause != nil {
		t.cb.OnPause()
	}
}

// Stop halts playback and resets the position and loop iteration to zero.
// A loop disabled by reaching its finite count is re-armed.
func (t *Transport[T]) Stop() {
	t.state = StateStopped
	t.ticks = 0
	t.loopIteration = 0
	t.loopActive = t.loopSet
	t.prevBar, t.prevBeat, _ = timebase.TicksToPosition(0, t.sig, t.cfg.TicksPerBeat)
	if t.cb.OnStop != nil {
		t.cb.OnStop()
	}
}

// Seek moves the position without changing the transport state. Negative
// ticks clamp to zero. The beat/bar boundary baseline is refreshed so the
// next Advance does not fire stale callbacks.
func (t *Transport[T]) Seek(ticks float64) {
	if ticks < 0 {
		ticks = 0
	}
	t.ticks = ticks
	t.prevBar, t.prevBeat, _ = timebase.TicksToPosition(ticks, t.sig, t.cfg.TicksPerBeat)
}

// SetTempo sets the manual tempo, saturating to [MinTempo, MaxTempo]. It is
// ignored while a tempo map is installed.
func (t *Transport[T]) SetTempo(bpm float64) {
	if bpm < MinTempo {
		bpm = MinTempo
	}
	if bpm > MaxTempo {
		bpm = MaxTempo
	}
	t.tempo = bpm
}

// Tempo returns the manual tempo.
func (t *Transport[T]) Tempo() float64 { return t.tempo }

// SetTempoMap installs tempo automation. A nil or empty map reverts to the
// manual tempo.
func (t *Transport[T]) SetTempoMap(m tempomap.Map) { t.tmap = m }

// EffectiveTempo returns the tempo governing the current position: the
// automation value when a map is installed, the manual tempo otherwise.
func (t *Transport[T]) EffectiveTempo() float64 {
	if len(t.tmap) > 0 {
		return t.tmap.TempoAt(t.ticks)
	}
	return t.tempo
}

// SetTimeSignature changes the meter. Invalid signatures are rejected.
func (t *Transport[T]) SetTimeSignature(sig timebase.TimeSignature) error {
	if sig.Numerator <= 0 || sig.Denominator <= 0 {
		return fmt.Errorf("transport: invalid time signature %d/%d", sig.Numerator, sig.Denominator)
	}
	t.sig = sig
	t.prevBar, t.prevBeat, _ = timebase.TicksToPosition(t.ticks, sig, t.cfg.TicksPerBeat)
	return nil
}

// TimeSignature returns the current meter.
func (t *Transport[T]) TimeSignature() timebase.TimeSignature { return t.sig }

// SetLoop configures and arms the loop region.
func (t *Transport[T]) SetLoop(region LoopRegion) error {
	if region.End <= region.Start || region.Start < 0 {
		return fmt.Errorf("transport: invalid loop region [%g, %g)", region.Start, region.End)
	}
	t.loop = region
	t.loopSet = true
	t.loopActive = true
	t.loopIteration = 0
	return nil
}

// ClearLoop removes the loop region.
func (t *Transport[T]) ClearLoop() {
	t.loop = LoopRegion{}
	t.loopSet = false
	t.loopActive = false
	t.loopIteration = 0
}

// AddMarker inserts a marker and returns its identity. Markers are kept
// sorted by tick.
func (t *Transport[T]) AddMarker(name string, tick float64, color string) int {
	id := t.nextMarkerID
	t.nextMarkerID++
	m := Marker{ID: id, Name: name, Tick: tick, Color: color}
	i := sort.Search(len(t.markers), func(i int) bool { return t.markers[i].Tick > tick })
	t.markers = append(t.markers, Marker{})
	copy(t.markers[i+1:], t.markers[i:])
	t.markers[i] = m
	return id
}

// RemoveMarker deletes a marker by identity, reporting whether it existed.
func (t *Transport[T]) RemoveMarker(id int) bool {
	for i := range t.markers {
		if t.markers[i].ID == id {
			t.markers = append(t.markers[:i], t.markers[i+1:]...)
			return true
		}
	}
	return false
}

// Markers returns the markers in ascending tick order.
func (t *Transport[T]) Markers() []Marker {
	out := make([]Marker, len(t.markers))
	copy(out, t.markers)
	return out
}

// Schedule enqueues a payload at the given tick.
func (t *Transport[T]) Schedule(tick float64, payload T, priority int) schedule.EventID {
	return t.queue.Schedule(tick, payload, priority)
}

// CancelEvent removes a scheduled event, reporting whether it existed.
func (t *Transport[T]) CancelEvent(id schedule.EventID) bool { return t.queue.Cancel(id) }

// RescheduleEvent moves a scheduled event, reporting whether it existed.
func (t *Transport[T]) RescheduleEvent(id schedule.EventID, tick float64) bool {
	return t.queue.Reschedule(id, tick)
}

// EventsInRange returns pending events with start <= tick < end.
func (t *Transport[T]) EventsInRange(start, end float64) []schedule.Event[T] {
	return t.queue.EventsInRange(start, end)
}

// ClearEvents drops all pending events.
func (t *Transport[T]) ClearEvents() { t.queue.Clear() }

// PendingEvents returns the number of queued events.
func (t *Transport[T]) PendingEvents() int { return t.queue.Len() }

// Advance moves the position forward by a sample count. It is a no-op
// unless playing or recording. Loop wrapping happens before beat/bar
// boundary detection, so a wrap can suppress an intermediate beat.
func (t *Transport[T]) Advance(samples int) {
	if samples <= 0 || (t.state != StatePlaying && t.state != StateRecording) {
		return
	}
	tps := timebase.TicksPerSecond(t.EffectiveTempo(), t.cfg.TicksPerBeat)
	delta := float64(samples) / float64(t.cfg.SampleRate) * tps
	prev := t.ticks
	pos := prev + delta

	if t.loopActive && pos >= t.loop.End {
		overrun := pos - t.loop.End
		pos = t.loop.Start + overrun
		t.loopIteration++
		if t.loop.Count > 0 && t.loopIteration >= t.loop.Count {
			// The disabling iteration plays on past the loop end without
			// firing OnLoop.
			t.loopActive = false
		} else if t.cb.OnLoop != nil {
			t.cb.OnLoop(t.loopIteration)
		}
	}
	t.ticks = pos

	bar, beat, _ := timebase.TicksToPosition(pos, t.sig, t.cfg.TicksPerBeat)
	if beat != t.prevBeat && t.cb.OnBeat != nil {
		t.cb.OnBeat(beat, bar)
	}
	if bar != t.prevBar && t.cb.OnBar != nil {
		t.cb.OnBar(bar)
	}
	t.prevBar, t.prevBeat = bar, beat

	if t.cb.OnMarker != nil {
		for _, m := range t.markers {
			if m.Tick > pos {
				break
			}
			if m.Tick > prev {
				t.cb.OnMarker(m)
			}
		}
	}
}

// ReadyEvents pops all events due within the lookahead window from the
// current position. The pop is destructive; the transport assumes a single
// exclusive consumer on the render path.
func (t *Transport[T]) ReadyEvents() []schedule.Event[T] {
	tps := timebase.TicksPerSecond(t.EffectiveTempo(), t.cfg.TicksPerBeat)
	lookahead := t.cfg.LookaheadMs / 1000.0 * tps
	return t.queue.PopUntil(t.ticks + lookahead)
}

// PositionNow derives the full position from the current tick.
func (t *Transport[T]) PositionNow() Position {
	tempo := t.EffectiveTempo()
	bar, beat, sixteenth := timebase.TicksToPosition(t.ticks, t.sig, t.cfg.TicksPerBeat)
	return Position{
		Ticks:     t.ticks,
		Bar:       bar,
		Beat:      beat,
		Sixteenth: sixteenth,
		Samples:   timebase.TicksToSamples(t.ticks, tempo, t.cfg.SampleRate, t.cfg.TicksPerBeat),
		Seconds:   timebase.TicksToSeconds(t.ticks, tempo, t.cfg.TicksPerBeat),
	}
}

// Snapshot recomputes and returns the full transport state. Nothing in the
// snapshot is cached across tempo changes.
func (t *Transport[T]) Snapshot() Snapshot {
	return Snapshot{
		State:         t.state,
		Position:      t.PositionNow(),
		Tempo:         t.EffectiveTempo(),
		TimeSignature: t.sig,
		Loop:          t.loop,
		LoopSet:       t.loopSet,
		LoopActive:    t.loopActive,
		LoopIteration: t.loopIteration,
		PendingEvents: t.queue.Len(),
	}
}

// TimeToTicks converts a wall-clock duration at the current effective tempo
// into ticks. Used for lookahead-style conversions by callers.
func (t *Transport[T]) TimeToTicks(seconds float64) float64 {
	return seconds * timebase.TicksPerSecond(t.EffectiveTempo(), t.cfg.TicksPerBeat)
}
