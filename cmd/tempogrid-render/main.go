// Command tempogrid-render renders a Standard MIDI File to a WAV file
// offline and reports the output level.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	flag "github.com/spf13/pflag"

	tempogrid "github.com/cvail/tempogrid-go"
	"github.com/cvail/tempogrid-go/internal/meter"
	"github.com/cvail/tempogrid-go/internal/midifile"
)

func main() {
	var (
		inPath     = flag.StringP("in", "i", "", "input SMF path (required)")
		outPath    = flag.StringP("out", "o", "out.wav", "output WAV path")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		ticksPer   = flag.Int("ticks-per-beat", 480, "internal tick resolution")
		maxSecs    = flag.Float64("max-seconds", 600, "hard cap on render length")
		tailSecs   = flag.Float64("tail", 1.0, "seconds rendered after the last note")
		swing      = flag.Float64("swing", 0, "swing amount 0..1")
		humanize   = flag.Float64("humanize", 0, "timing jitter in milliseconds")
		seed       = flag.Int64("seed", 1, "humanization random seed")
		groovePath = flag.String("groove", "", "YAML groove template file")
		grooveName = flag.String("groove-name", "", "template to use from the groove file (default: first)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		reverbMix  = flag.Float64("reverb", 0, "reverb wet mix 0..1")
		dump       = flag.Bool("dump", false, "dump the imported song and engine config")
	)
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	song, err := midifile.ReadFile(*inPath, *ticksPer)
	if err != nil {
		log.Fatal(err)
	}

	cfg := tempogrid.DefaultEngineConfig()
	cfg.Transport.SampleRate = *sampleRate
	cfg.Transport.TicksPerBeat = *ticksPer
	cfg.Swing.Amount = *swing
	cfg.Humanize.TimingMs = *humanize
	cfg.Seed = *seed
	if *groovePath != "" {
		tmpl, err := pickGroove(*groovePath, *grooveName)
		if err != nil {
			log.Fatal(err)
		}
		cfg.Groove = tmpl
	}

	if *dump {
		spew.Fdump(os.Stderr, song.Signature, song.Tempo, cfg)
		fmt.Fprintf(os.Stderr, "notes: %d\n", len(song.Notes))
	}

	inst, err := tempogrid.NewFMInstrument(*sampleRate, tempogrid.DefaultFMInstrumentParams())
	if err != nil {
		log.Fatal(err)
	}
	var chain *tempogrid.Chain
	if *reverbMix > 0 {
		rv, err := tempogrid.NewReverb(*sampleRate, tempogrid.ReverbParams{
			RoomSize: 0.6, Damping: 0.4, Mix: *reverbMix,
		})
		if err != nil {
			log.Fatal(err)
		}
		chain = tempogrid.NewChain(rv)
	}

	e, err := tempogrid.NewEngine(cfg, inst, chain)
	if err != nil {
		log.Fatal(err)
	}
	e.SetMasterVolume(*volume)
	notes := make([]tempogrid.NoteEvent, len(song.Notes))
	ticks := make([]float64, len(song.Notes))
	for i, n := range song.Notes {
		notes[i] = tempogrid.NoteEvent{
			Key: n.Key, Velocity: n.Velocity, Duration: n.Duration, Gate: 1, Channel: n.Channel,
		}
		ticks[i] = n.Tick
	}
	if err := e.LoadSong(notes, ticks, song.Tempo, song.Signature); err != nil {
		log.Fatal(err)
	}

	samples, err := tempogrid.Render(e, tempogrid.RenderOptions{
		MaxSeconds:  *maxSecs,
		TailSeconds: *tailSecs,
	})
	if err != nil {
		log.Fatal(err)
	}

	levels := meter.New().Analyze(samples)
	fmt.Printf("rendered %.2f s  peak %.2f dBFS  rms %.2f dBFS\n",
		float64(len(samples)/2)/float64(*sampleRate), levels.PeakDB, levels.RMSDB)

	wav := tempogrid.EncodeWAVFloat32LE(samples, *sampleRate, 2)
	if err := os.WriteFile(*outPath, wav, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *outPath, len(wav))
}

func pickGroove(path, name string) (*tempogrid.GrooveTemplate, error) {
	templates, err := tempogrid.LoadGrooveTemplates(path)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("no templates in %s", path)
	}
	if name == "" {
		return &templates[0], nil
	}
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("template %q not found in %s", name, path)
}
