package tempogrid

import (
	"math"

	"github.com/cvail/tempogrid-go/internal/fm"
	"github.com/cvail/tempogrid-go/internal/osc"
)

// MaxVoices bounds instrument polyphony; requests outside [1, MaxVoices]
// saturate.
const MaxVoices = 64

// midiToFreq converts a MIDI key number to Hz, A4 = 440.
func midiToFreq(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

// envStage tracks the minimal attack/release amplitude envelope the
// example instruments share.
type envStage int

const (
	envIdle envStage = iota
	envAttack
	envSustain
	envRelease
)

type ampEnv struct {
	stage       envStage
	level       float64
	attackStep  float64
	releaseStep float64
}

func newAmpEnv(sampleRate int, attackSec, releaseSec float64) ampEnv {
	if attackSec <= 0 {
		attackSec = 0.005
	}
	if releaseSec <= 0 {
		releaseSec = 0.05
	}
	return ampEnv{
		attackStep:  1.0 / (attackSec * float64(sampleRate)),
		releaseStep: 1.0 / (releaseSec * float64(sampleRate)),
	}
}

func (a *ampEnv) gateOn()  { a.stage = envAttack }
func (a *ampEnv) gateOff() { a.stage = envRelease }

func (a *ampEnv) next() float64 {
	switch a.stage {
	case envAttack:
		a.level += a.attackStep
		if a.level >= 1 {
			a.level = 1
			a.stage = envSustain
		}
	case envRelease:
		a.level -= a.releaseStep
		if a.level <= 0 {
			a.level = 0
			a.stage = envIdle
		}
	}
	return a.level
}

func (a *ampEnv) active() bool { return a.stage != envIdle }

// FMInstrumentParams configures an FMInstrument.
type FMInstrumentParams struct {
	Polyphony  int
	Topology   fm.Topology
	Operators  []fm.OperatorParams
	AttackSec  float64
	ReleaseSec float64
	Gain       float64
}

// DefaultFMInstrumentParams returns a two-operator serial patch.
func DefaultFMInstrumentParams() FMInstrumentParams {
	return FMInstrumentParams{
		Polyphony: 16,
		Topology:  fm.Serial,
		Operators: []fm.OperatorParams{
			{Ratio: 2, Level: 0.6},
			{Ratio: 1, Level: 1},
		},
		AttackSec:  0.005,
		ReleaseSec: 0.15,
		Gain:       0.4,
	}
}

type fmVoiceSlot struct {
	voice    *fm.Voice
	env      ampEnv
	id       int
	freq     float64
	velocity float64
	active   bool
}

// FMInstrument is a polyphonic FM synthesizer built from fm.Voice. Voice
// allocation steals the quietest active voice when full.
type FMInstrument struct {
	params     FMInstrumentParams
	sampleRate int
	slots      []fmVoiceSlot
	nextID     int
}

// NewFMInstrument builds the instrument at the given sample rate.
func NewFMInstrument(sampleRate int, params FMInstrumentParams) (*FMInstrument, error) {
	if params.Polyphony < 1 {
		params.Polyphony = 1
	}
	if params.Polyphony > MaxVoices {
		params.Polyphony = MaxVoices
	}
	slots := make([]fmVoiceSlot, params.Polyphony)
	for i := range slots {
		v, err := fm.NewVoice(sampleRate, params.Topology, params.Operators, nil)
		if err != nil {
			return nil, err
		}
		slots[i] = fmVoiceSlot{
			voice: v,
			env:   newAmpEnv(sampleRate, params.AttackSec, params.ReleaseSec),
		}
	}
	return &FMInstrument{params: params, sampleRate: sampleRate, slots: slots}, nil
}

func (ins *FMInstrument) NoteOn(key uint8, velocity float64) int {
	slot := ins.allocate()
	ins.nextID++
	s := &ins.slots[slot]
	s.voice.Reset()
	s.env = newAmpEnv(ins.sampleRate, ins.params.AttackSec, ins.params.ReleaseSec)
	s.env.gateOn()
	s.id = ins.nextID
	s.freq = midiToFreq(key)
	s.velocity = velocity
	s.active = true
	return s.id
}

func (ins *FMInstrument) NoteOff(id int) {
	for i := range ins.slots {
		if ins.slots[i].active && ins.slots[i].id == id {
			ins.slots[i].env.gateOff()
		}
	}
}

func (ins *FMInstrument) Render() float32 {
	var out float64
	for i := range ins.slots {
		s := &ins.slots[i]
		if !s.active {
			continue
		}
		env := s.env.next()
		if !s.env.active() {
			s.active = false
			continue
		}
		out += s.voice.Process(s.freq) * env * s.velocity
	}
	return float32(out * ins.params.Gain)
}

func (ins *FMInstrument) ActiveVoices() int {
	n := 0
	for i := range ins.slots {
		if ins.slots[i].active {
			n++
		}
	}
	return n
}

func (ins *FMInstrument) Reset() {
	for i := range ins.slots {
		ins.slots[i].voice.Reset()
		ins.slots[i].active = false
		ins.slots[i].env.stage = envIdle
		ins.slots[i].env.level = 0
	}
}

func (ins *FMInstrument) allocate() int {
	for i := range ins.slots {
		if !ins.slots[i].active {
			return i
		}
	}
	quiet := 0
	min := ins.slots[0].env.level
	for i := 1; i < len(ins.slots); i++ {
		if ins.slots[i].env.level < min {
			min = ins.slots[i].env.level
			quiet = i
		}
	}
	return quiet
}

// OscInstrumentParams configures an OscInstrument.
type OscInstrumentParams struct {
	Polyphony  int
	Waveform   osc.Waveform
	Detune     float64
	PulseWidth float64
	AttackSec  float64
	ReleaseSec float64
	Gain       float64
}

// DefaultOscInstrumentParams returns an 8-voice sawtooth.
func DefaultOscInstrumentParams() OscInstrumentParams {
	return OscInstrumentParams{
		Polyphony:  8,
		Waveform:   osc.WaveSawtooth,
		AttackSec:  0.002,
		ReleaseSec: 0.08,
		Gain:       0.3,
	}
}

type oscVoiceSlot struct {
	osc      *osc.Oscillator
	env      ampEnv
	id       int
	velocity float64
	active   bool
}

// OscInstrument is a polyphonic wavetable-oscillator instrument.
type OscInstrument struct {
	params     OscInstrumentParams
	sampleRate int
	slots      []oscVoiceSlot
	nextID     int
}

// NewOscInstrument builds the instrument at the given sample rate.
func NewOscInstrument(sampleRate int, params OscInstrumentParams) (*OscInstrument, error) {
	if params.Polyphony < 1 {
		params.Polyphony = 1
	}
	if params.Polyphony > MaxVoices {
		params.Polyphony = MaxVoices
	}
	slots := make([]oscVoiceSlot, params.Polyphony)
	for i := range slots {
		o, err := osc.NewOscillator(sampleRate, osc.Params{
			Waveform:   params.Waveform,
			Frequency:  440,
			Detune:     params.Detune,
			Gain:       1,
			PulseWidth: params.PulseWidth,
		}, nil)
		if err != nil {
			return nil, err
		}
		slots[i] = oscVoiceSlot{
			osc: o,
			env: newAmpEnv(sampleRate, params.AttackSec, params.ReleaseSec),
		}
	}
	return &OscInstrument{params: params, sampleRate: sampleRate, slots: slots}, nil
}

func (ins *OscInstrument) NoteOn(key uint8, velocity float64) int {
	slot := ins.allocate()
	ins.nextID++
	s := &ins.slots[slot]
	s.osc.SetFrequency(midiToFreq(key))
	s.osc.Reset()
	s.env = newAmpEnv(ins.sampleRate, ins.params.AttackSec, ins.params.ReleaseSec)
	s.env.gateOn()
	s.id = ins.nextID
	s.velocity = velocity
	s.active = true
	return s.id
}

func (ins *OscInstrument) NoteOff(id int) {
	for i := range ins.slots {
		if ins.slots[i].active && ins.slots[i].id == id {
			ins.slots[i].env.gateOff()
		}
	}
}

func (ins *OscInstrument) Render() float32 {
	var out float64
	for i := range ins.slots {
		s := &ins.slots[i]
		if !s.active {
			continue
		}
		env := s.env.next()
		if !s.env.active() {
			s.active = false
			continue
		}
		out += s.osc.Process() * env * s.velocity
	}
	return float32(out * ins.params.Gain)
}

func (ins *OscInstrument) ActiveVoices() int {
	n := 0
	for i := range ins.slots {
		if ins.slots[i].active {
			n++
		}
	}
	return n
}

func (ins *OscInstrument) Reset() {
	for i := range ins.slots {
		ins.slots[i].osc.Reset()
		ins.slots[i].active = false
		ins.slots[i].env.stage = envIdle
		ins.slots[i].env.level = 0
	}
}

func (ins *OscInstrument) allocate() int {
	for i := range ins.slots {
		if !ins.slots[i].active {
			return i
		}
	}
	quiet := 0
	min := ins.slots[0].env.level
	for i := 1; i < len(ins.slots); i++ {
		if ins.slots[i].env.level < min {
			min = ins.slots[i].env.level
			quiet = i
		}
	}
	return quiet
}
