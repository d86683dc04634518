package tempogrid

import (
	"testing"

	"github.com/cvail/tempogrid-go/internal/transport"
)

func TestNewPlayerDefaults(t *testing.T) {
	p, err := NewPlayer(newStubInstrument(0), nil)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if p.Engine() == nil {
		t.Fatal("player has no engine")
	}
	if p.engine.finite {
		t.Fatal("default player should be an open-ended session")
	}
}

func TestNewPlayerOptions(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Transport.SampleRate = 44100

	var tapped bool
	p, err := NewPlayer(newStubInstrument(0), nil,
		WithEngineConfig(cfg),
		WithFinitePlayback(),
		WithLoop(transport.LoopRegion{Start: 0, End: 1920}),
		WithPreroll(transport.PrerollSettings{Enabled: true, Bars: 2, Metronome: true}),
		WithSampleTap(func([]float32) { tapped = true }),
	)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if !p.engine.finite {
		t.Fatal("WithFinitePlayback not applied")
	}
	if got := p.engine.cfg.Transport.SampleRate; got != 44100 {
		t.Fatalf("sample rate = %d, want 44100", got)
	}
	snap := p.Engine().Transport().Snapshot()
	if !snap.LoopSet || snap.Loop.End != 1920 {
		t.Fatalf("loop not armed: %+v", snap.Loop)
	}
	if !p.cfg.preroll.Enabled || p.cfg.preroll.Bars != 2 {
		t.Fatalf("preroll = %+v", p.cfg.preroll)
	}

	buf := make([]float32, 64)
	p.engine.Process(buf)
	if !tapped {
		t.Fatal("sample tap not installed")
	}
}

func TestNewPlayerRejectsInvalidLoop(t *testing.T) {
	_, err := NewPlayer(newStubInstrument(0), nil,
		WithLoop(transport.LoopRegion{Start: 960, End: 480}))
	if err == nil {
		t.Fatal("expected error for inverted loop region")
	}
}

func TestPlayerWatchForwardsEngineEvents(t *testing.T) {
	p, err := NewPlayer(newStubInstrument(0), nil)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	ch := p.Watch()
	p.engine.sendEvent(Event{Kind: EventMarker, Marker: "verse"})
	select {
	case ev := <-ch:
		if ev.Kind != EventMarker || ev.Marker != "verse" {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("no event on watch channel")
	}
}
