// Command tempogrid-play plays a Standard MIDI File, or a built-in demo
// pattern, through the system audio output.
package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"

	tempogrid "github.com/cvail/tempogrid-go"
	"github.com/cvail/tempogrid-go/internal/midifile"
)

// demoPattern is a one-bar arpeggio in sixteenths, scheduled when no
// input file is given.
var demoPattern = []struct {
	tick float64
	key  uint8
}{
	{0, 60}, {120, 64}, {240, 67}, {360, 72},
	{480, 60}, {600, 64}, {720, 67}, {840, 72},
	{960, 59}, {1080, 62}, {1200, 67}, {1320, 71},
	{1440, 60}, {1560, 64}, {1680, 67}, {1800, 76},
}

func main() {
	var (
		inPath     = flag.StringP("in", "i", "", "input SMF path (default: demo pattern)")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		tempo      = flag.Float64("tempo", 0, "override tempo in BPM (0 = keep the song's)")
		swing      = flag.Float64("swing", 0, "swing amount 0..1")
		metronome  = flag.Bool("metronome", false, "enable the metronome click")
		preroll    = flag.Int("preroll", 0, "count-in bars before playback")
		loops      = flag.Int("loop", 0, "repeat the material N times (demo pattern only)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
	)
	flag.Parse()

	cfg := tempogrid.DefaultEngineConfig()
	cfg.Transport.SampleRate = *sampleRate
	cfg.Swing.Amount = *swing
	if *metronome {
		cfg.Metronome.Enabled = true
	}

	inst, err := tempogrid.NewFMInstrument(*sampleRate, tempogrid.DefaultFMInstrumentParams())
	if err != nil {
		log.Fatal(err)
	}

	opts := []tempogrid.PlayerOption{
		tempogrid.WithEngineConfig(cfg),
		tempogrid.WithFinitePlayback(),
	}
	if *preroll > 0 {
		opts = append(opts, tempogrid.WithPreroll(tempogrid.PrerollSettings{
			Enabled: true, Bars: *preroll, Metronome: true,
		}))
	}
	pl, err := tempogrid.NewPlayer(inst, nil, opts...)
	if err != nil {
		log.Fatal(err)
	}
	e := pl.Engine()
	e.SetMasterVolume(*volume)

	if *inPath != "" {
		song, err := midifile.ReadFile(*inPath, cfg.Transport.TicksPerBeat)
		if err != nil {
			log.Fatal(err)
		}
		if err := loadSong(e, song); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("playing %s (%d notes)\n", *inPath, len(song.Notes))
	} else {
		scheduleDemo(e, 1+max(*loops, 0))
		fmt.Println("playing demo pattern")
	}
	if *tempo > 0 {
		e.Do(func(e *tempogrid.Engine) { e.Transport().SetTempo(*tempo) })
	}

	ch := pl.Watch()
	if err := pl.Play(); err != nil {
		log.Fatal(err)
	}
	for event := range ch {
		switch event.Kind {
		case tempogrid.EventBar:
			fmt.Printf("bar %d\n", event.Bar)
		case tempogrid.EventMarker:
			fmt.Printf("marker %q\n", event.Marker)
		case tempogrid.EventPlaybackEnded:
			fmt.Println("playback completed")
			pl.Stop()
			os.Exit(0)
		}
	}
}

func loadSong(e *tempogrid.Engine, song *midifile.Song) error {
	notes := make([]tempogrid.NoteEvent, len(song.Notes))
	ticks := make([]float64, len(song.Notes))
	for i, n := range song.Notes {
		notes[i] = tempogrid.NoteEvent{
			Key: n.Key, Velocity: n.Velocity, Duration: n.Duration, Gate: 1, Channel: n.Channel,
		}
		ticks[i] = n.Tick
	}
	return e.LoadSong(notes, ticks, song.Tempo, song.Signature)
}

func scheduleDemo(e *tempogrid.Engine, repeats int) {
	const barTicks = 1920.0
	for r := 0; r < repeats; r++ {
		base := float64(r) * barTicks
		for _, n := range demoPattern {
			e.ScheduleNote(base+n.tick, tempogrid.NoteEvent{
				Key: n.key, Velocity: 0.8, Duration: 110, Gate: 0.9,
			})
		}
	}
}
