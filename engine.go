// Package tempogrid is a tempo-synchronized event scheduler and synthesis
// engine: a transport with loop, marker and tempo-automation support
// drives scheduled note events into instruments, whose output runs
// through an effects chain.
package tempogrid

import (
	"errors"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/cvail/tempogrid-go/internal/effects"
	"github.com/cvail/tempogrid-go/internal/groove"
	"github.com/cvail/tempogrid-go/internal/schedule"
	"github.com/cvail/tempogrid-go/internal/tempomap"
	"github.com/cvail/tempogrid-go/internal/timebase"
	"github.com/cvail/tempogrid-go/internal/transport"
)

// NoteEvent is the payload the engine schedules and hands to instruments.
// Velocity is normalized to [0, 1]; Duration and Gate shape the note-off
// tick: off = on + Duration*Gate.
type NoteEvent struct {
	Key      uint8
	Velocity float64
	Duration float64
	Gate     float64
	Channel  uint8
}

// Instrument turns note events into mono samples. Implementations are
// called only from the render goroutine.
type Instrument interface {
	NoteOn(key uint8, velocity float64) int
	NoteOff(id int)
	Render() float32
	ActiveVoices() int
	Reset()
}

// EventKind identifies engine lifecycle events delivered through Watch.
type EventKind int

const (
	EventBeat EventKind = iota
	EventBar
	EventLoop
	EventMarker
	EventPlaybackEnded
)

// Event carries one engine lifecycle event.
type Event struct {
	Kind      EventKind
	Beat      int
	Bar       int
	Iteration int
	Marker    string
}

// EngineConfig bundles the transport configuration with the expressive
// timing settings applied at schedule time.
type EngineConfig struct {
	Transport transport.Config
	Swing     groove.SwingSettings
	Humanize  groove.HumanizeSettings
	Groove    *groove.Template
	Metronome transport.MetronomeSettings
	// Seed for the humanization random source. Zero picks a fixed default
	// so renders are reproducible unless the caller opts out.
	Seed int64
}

// DefaultEngineConfig returns the documented defaults with the metronome
// disabled.
func DefaultEngineConfig() EngineConfig {
	m := transport.DefaultMetronomeSettings()
	m.Enabled = false
	return EngineConfig{
		Transport: transport.DefaultConfig(),
		Metronome: m,
		Seed:      1,
	}
}

type noteOff struct {
	tick  float64
	voice int
}

// commandQueueCap bounds the control-to-render command queue.
const commandQueueCap = 64

// Engine wires the transport, an instrument and an effects chain into a
// SampleSource. Control threads talk to the render goroutine through a
// bounded command queue drained at block boundaries; all transport and
// DSP state is owned by the render goroutine.
type Engine struct {
	cfg   EngineConfig
	tr    *transport.Transport[NoteEvent]
	inst  Instrument
	chain *effects.Chain
	rng   *rand.Rand

	commands chan func(*Engine)
	events   atomic.Pointer[chan Event]

	noteOffs []noteOff

	metro    transport.MetronomeSettings
	click    clickVoice
	clickBar int
	clicks   []transport.Click

	// Master volume and pan as float64 bits for lock-free reads on the
	// render path.
	volume uint64
	pan    uint64

	tap      func([]float32)
	finite   bool
	finished atomic.Bool
}

// NewEngine builds an engine around an instrument and an optional effects
// chain.
func NewEngine(cfg EngineConfig, inst Instrument, chain *effects.Chain) (*Engine, error) {
	if inst == nil {
		return nil, errors.New("tempogrid: instrument must not be nil")
	}
	if cfg.Seed == 0 {
		cfg.Seed = 1
	}
	e := &Engine{
		cfg:      cfg,
		inst:     inst,
		chain:    chain,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		commands: make(chan func(*Engine), commandQueueCap),
		metro:    cfg.Metronome,
		volume:   math.Float64bits(1.0),
	}
	tr, err := transport.New[NoteEvent](cfg.Transport, transport.Callbacks{
		OnBeat: func(beat, bar int) {
			e.sendEvent(Event{Kind: EventBeat, Beat: beat, Bar: bar})
		},
		OnBar: func(bar int) {
			e.sendEvent(Event{Kind: EventBar, Bar: bar})
		},
		OnLoop: func(iteration int) {
			e.sendEvent(Event{Kind: EventLoop, Iteration: iteration})
		},
		OnMarker: func(m transport.Marker) {
			e.sendEvent(Event{Kind: EventMarker, Marker: m.Name})
		},
	})
	if err != nil {
		return nil, err
	}
	e.tr = tr
	e.click.sampleRate = float64(cfg.Transport.SampleRate)
	return e, nil
}

// Transport exposes the underlying transport. Outside the render
// goroutine, mutate it only through Do.
func (e *Engine) Transport() *transport.Transport[NoteEvent] { return e.tr }

// Do queues a command for the render goroutine, applied at the next block
// boundary. It reports false when the queue is full; the command is then
// dropped, never blocked on.
func (e *Engine) Do(cmd func(*Engine)) bool {
	select {
	case e.commands <- cmd:
		return true
	default:
		return false
	}
}

// Watch returns a buffered channel receiving engine events. Only the most
// recent Watch channel receives events; events are dropped rather than
// blocking the render goroutine.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 16)
	e.events.Store(&ch)
	return ch
}

func (e *Engine) sendEvent(ev Event) {
	p := e.events.Load()
	if p == nil {
		return
	}
	select {
	case *p <- ev:
	default:
	}
}

// SetMasterVolume sets the output scalar. Safe from any goroutine.
func (e *Engine) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	atomic.StoreUint64(&e.volume, math.Float64bits(v))
}

// MasterVolume returns the output scalar.
func (e *Engine) MasterVolume() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.volume))
}

// SetPan positions the output in the stereo field, -1 hard left to +1
// hard right. Out-of-range values saturate. Safe from any goroutine.
func (e *Engine) SetPan(p float64) {
	if p < -1 {
		p = -1
	}
	if p > 1 {
		p = 1
	}
	atomic.StoreUint64(&e.pan, math.Float64bits(p))
}

// Pan returns the stereo position.
func (e *Engine) Pan() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.pan))
}

// ScheduleNote applies swing, groove and humanization to the nominal tick
// and enqueues the note. The groove template also scales velocity and
// gate. Returns the queue identity for cancel/reschedule.
func (e *Engine) ScheduleNote(tick float64, note NoteEvent) schedule.EventID {
	tpb := e.cfg.Transport.TicksPerBeat
	adjusted := groove.ApplySwing(tick, e.cfg.Swing, tpb)
	adj := groove.Apply(adjusted, e.cfg.Groove, tpb)
	adjusted += adj.Offset
	note.Velocity = clampUnit(note.Velocity * adj.Velocity)
	if note.Gate <= 0 {
		note.Gate = 1
	}
	note.Gate *= adj.Gate
	adjusted = groove.ApplyHumanize(adjusted, e.cfg.Humanize, e.rng, e.tr.EffectiveTempo(), tpb)
	note.Velocity = groove.HumanizeVelocity(note.Velocity, e.cfg.Humanize, e.rng)
	return e.tr.Schedule(adjusted, note, schedule.DefaultPriority)
}

// LoadSong schedules a song's notes and installs its tempo map and time
// signature.
func (e *Engine) LoadSong(notes []NoteEvent, ticks []float64, tmap tempomap.Map, sig timebase.TimeSignature) error {
	if len(notes) != len(ticks) {
		return errors.New("tempogrid: notes and ticks must have equal length")
	}
	if sig.Numerator > 0 && sig.Denominator > 0 {
		if err := e.tr.SetTimeSignature(sig); err != nil {
			return err
		}
	}
	e.tr.SetTempoMap(tmap)
	for i, n := range notes {
		e.ScheduleNote(ticks[i], n)
	}
	return nil
}

// SetMetronome replaces the metronome settings. Safe from any goroutine
// via Do; direct calls are render-goroutine only.
func (e *Engine) SetMetronome(s transport.MetronomeSettings) {
	e.metro = s
}

// SetSampleTap installs a callback invoked with every rendered stereo
// buffer. Runs on the render goroutine; keep it brief and non-blocking.
func (e *Engine) SetSampleTap(tap func([]float32)) {
	e.tap = tap
}

// SetFinite marks playback as ending once every scheduled event has been
// consumed and the last voice has gone silent. Live sessions leave this
// off and run until stopped. Render-goroutine only; use Do otherwise.
func (e *Engine) SetFinite(finite bool) {
	e.finite = finite
}

// Finished reports whether finite playback has ended.
func (e *Engine) Finished() bool {
	return e.finished.Load()
}

// Process renders interleaved stereo samples. It drains queued commands,
// advances the transport, dispatches due note events and mixes the
// instrument through the effects chain. It is the SampleSource contract
// and must only run on one goroutine.
func (e *Engine) Process(dst []float32) {
	e.drainCommands()

	frames := len(dst) / 2
	e.advance(frames)

	vol := float32(e.MasterVolume())
	clickGain := float32(e.metro.Volume)
	// Balance law: center passes both channels at unity, off-center
	// attenuates the far side.
	pan := e.Pan()
	gainL, gainR := float32(1), float32(1)
	if pan > 0 {
		gainL = float32(1 - pan)
	} else if pan < 0 {
		gainR = float32(1 + pan)
	}
	for f := 0; f < frames; f++ {
		s := e.inst.Render()
		if e.metro.Enabled {
			s += e.click.render() * clickGain
		}
		if e.chain != nil {
			s = e.chain.Process(s)
		}
		s *= vol
		dst[f*2] = s * gainL
		dst[f*2+1] = s * gainR
	}
	if e.tap != nil {
		e.tap(dst)
	}

	if e.finite && !e.finished.Load() &&
		e.tr.State() == transport.StatePlaying &&
		e.tr.PendingEvents() == 0 && len(e.noteOffs) == 0 && e.inst.ActiveVoices() == 0 {
		e.finished.Store(true)
		e.sendEvent(Event{Kind: EventPlaybackEnded})
	}
}

func (e *Engine) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			cmd(e)
		default:
			return
		}
	}
}

// advance moves the transport one block and dispatches everything that
// came due: scheduled notes, pending note-offs and metronome clicks.
func (e *Engine) advance(frames int) {
	if st := e.tr.State(); st != transport.StatePlaying && st != transport.StateRecording {
		return
	}
	e.tr.Advance(frames)
	pos := e.tr.Ticks()

	for _, ev := range e.tr.ReadyEvents() {
		n := ev.Payload
		voice := e.inst.NoteOn(n.Key, n.Velocity)
		gate := n.Gate
		if gate <= 0 {
			gate = 1
		}
		e.insertNoteOff(noteOff{tick: ev.Tick + n.Duration*gate, voice: voice})
	}

	fired := 0
	for fired < len(e.noteOffs) && e.noteOffs[fired].tick <= pos {
		e.inst.NoteOff(e.noteOffs[fired].voice)
		fired++
	}
	if fired > 0 {
		e.noteOffs = e.noteOffs[:copy(e.noteOffs, e.noteOffs[fired:])]
	}

	if e.metro.Enabled {
		e.advanceMetronome(pos)
	}
}

// insertNoteOff keeps the pending note-off list sorted by tick. The list
// is nearly sorted already, so insertion from the tail is cheap.
func (e *Engine) insertNoteOff(off noteOff) {
	e.noteOffs = append(e.noteOffs, off)
	for i := len(e.noteOffs) - 1; i > 0 && e.noteOffs[i-1].tick > e.noteOffs[i].tick; i-- {
		e.noteOffs[i-1], e.noteOffs[i] = e.noteOffs[i], e.noteOffs[i-1]
	}
}

// advanceMetronome generates one bar of clicks when the bar changes and
// triggers the click voice for every click at or behind the position.
func (e *Engine) advanceMetronome(pos float64) {
	tpb := e.cfg.Transport.TicksPerBeat
	sig := e.tr.TimeSignature()
	bar, _, _ := timebase.TicksToPosition(pos, sig, tpb)
	if bar != e.clickBar {
		e.clickBar = bar
		barStart := timebase.PositionToTicks(bar, 1, 1, sig, tpb)
		for _, c := range transport.MetronomeClicks(barStart, sig, tpb, e.metro) {
			if c.Tick >= pos {
				e.clicks = append(e.clicks, c)
			} else {
				// The block that crosses the bar line still sounds its
				// downbeat.
				e.click.trigger(c.Type)
			}
		}
	}
	fired := 0
	for fired < len(e.clicks) && e.clicks[fired].Tick <= pos {
		e.click.trigger(e.clicks[fired].Type)
		fired++
	}
	if fired > 0 {
		e.clicks = e.clicks[:copy(e.clicks, e.clicks[fired:])]
	}
}

// clickVoice synthesizes metronome clicks: a short exponentially decaying
// sine, higher pitched on accented downbeats.
type clickVoice struct {
	sampleRate float64
	phase      float64
	inc        float64
	env        float64
}

const (
	clickBeatHz        = 880.0
	clickDownbeatHz    = 1760.0
	clickSubdivisionHz = 660.0
	clickDecay         = 0.9985
)

func (c *clickVoice) trigger(t transport.ClickType) {
	hz := clickBeatHz
	switch t {
	case transport.ClickDownbeat:
		hz = clickDownbeatHz
	case transport.ClickSubdivision:
		hz = clickSubdivisionHz
	}
	c.phase = 0
	c.inc = hz / c.sampleRate
	c.env = 1
}

func (c *clickVoice) render() float32 {
	if c.env < 1e-4 {
		return 0
	}
	out := math.Sin(2*math.Pi*c.phase) * c.env
	c.phase += c.inc
	if c.phase >= 1 {
		c.phase -= 1
	}
	c.env *= clickDecay
	return float32(out)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
