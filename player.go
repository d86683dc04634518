package tempogrid

import (
	"sync"

	"github.com/cvail/tempogrid-go/internal/audio"
	"github.com/cvail/tempogrid-go/internal/effects"
	"github.com/cvail/tempogrid-go/internal/transport"
)

// PlayerOption configures a Player at construction.
type PlayerOption func(*playerConfig)

type playerConfig struct {
	engine    EngineConfig
	loop      *transport.LoopRegion
	preroll   transport.PrerollSettings
	finite    bool
	sampleTap func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		engine:  DefaultEngineConfig(),
		preroll: transport.DefaultPrerollSettings(),
	}
}

// WithEngineConfig replaces the engine configuration.
func WithEngineConfig(cfg EngineConfig) PlayerOption {
	return func(pc *playerConfig) { pc.engine = cfg }
}

// WithLoop arms a loop region before playback starts.
func WithLoop(region transport.LoopRegion) PlayerOption {
	return func(pc *playerConfig) { pc.loop = &region }
}

// WithPreroll enables a count-in before the playback start position.
func WithPreroll(s transport.PrerollSettings) PlayerOption {
	return func(pc *playerConfig) { pc.preroll = s }
}

// WithFinitePlayback ends the stream once all scheduled events have been
// consumed and the last voice is silent.
func WithFinitePlayback() PlayerOption {
	return func(pc *playerConfig) { pc.finite = true }
}

// WithSampleTap installs a callback invoked with each rendered stereo
// buffer. The callback runs on the audio thread; keep work brief and
// non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(pc *playerConfig) { pc.sampleTap = tap }
}

// Player drives an Engine through the platform audio output.
type Player struct {
	mu      sync.Mutex
	engine  *Engine
	backend *audio.Player
	cfg     playerConfig
	done    chan struct{}
}

// NewPlayer builds a player around an instrument and an optional effects
// chain.
func NewPlayer(inst Instrument, chain *effects.Chain, opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := NewEngine(cfg.engine, inst, chain)
	if err != nil {
		return nil, err
	}
	e.SetFinite(cfg.finite)
	e.SetSampleTap(cfg.sampleTap)
	if cfg.loop != nil {
		if err := e.Transport().SetLoop(*cfg.loop); err != nil {
			return nil, err
		}
	}
	return &Player{engine: e, cfg: cfg}, nil
}

// Engine returns the player's engine for scheduling and configuration.
// Once playback has started, mutate it only through Engine.Do.
func (p *Player) Engine() *Engine { return p.engine }

// Watch returns the engine's event channel.
func (p *Player) Watch() <-chan Event { return p.engine.Watch() }

// Play starts (or resumes) playback. With preroll enabled the transport
// seeks back by the configured count-in bars and enables the metronome
// for the count-in span.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.backend == nil {
		backend, err := audio.NewPlayer(p.cfg.engine.Transport.SampleRate, p.engine)
		if err != nil {
			return err
		}
		p.backend = backend
		p.done = make(chan struct{})
		if p.cfg.finite {
			go p.watchDone()
		}
	}

	tr := p.engine.Transport()
	if p.cfg.preroll.Enabled && tr.State() == transport.StateStopped {
		start := transport.PrerollStart(
			tr.Ticks(), p.cfg.preroll.Bars, tr.TimeSignature(), p.cfg.engine.Transport.TicksPerBeat)
		p.engine.Do(func(e *Engine) {
			e.tr.Seek(start)
			if p.cfg.preroll.Metronome {
				m := e.metro
				m.Enabled = true
				e.SetMetronome(m)
			}
			e.tr.Play()
		})
	} else {
		p.engine.Do(func(e *Engine) { e.tr.Play() })
	}
	p.backend.Play()
	return nil
}

// Record starts playback in recording state.
func (p *Player) Record() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend == nil {
		backend, err := audio.NewPlayer(p.cfg.engine.Transport.SampleRate, p.engine)
		if err != nil {
			return err
		}
		p.backend = backend
		p.done = make(chan struct{})
	}
	p.engine.Do(func(e *Engine) { e.tr.Record() })
	p.backend.Play()
	return nil
}

// Pause suspends playback, keeping the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Do(func(e *Engine) { e.tr.Pause() })
	if p.backend != nil {
		p.backend.Pause()
	}
}

// Stop halts playback and releases the audio output.
func (p *Player) Stop() error {
	p.mu.Lock()
	backend := p.backend
	p.backend = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()

	p.engine.Do(func(e *Engine) { e.tr.Stop() })
	p.engine.sendEvent(Event{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	if backend != nil {
		return backend.Stop()
	}
	return nil
}

// Wait blocks until finite playback ends or Stop is called. With an
// infinite session it blocks until Stop.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Player) watchDone() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return
	}
	ch := p.engine.Watch()
	for ev := range ch {
		if ev.Kind == EventPlaybackEnded {
			p.mu.Lock()
			if p.done == done {
				p.done = nil
				close(done)
			}
			p.mu.Unlock()
			return
		}
	}
}
