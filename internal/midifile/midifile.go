// Package midifile imports Standard MIDI Files: note events become
// schedulable payloads and tempo/meter meta events become a tempo map and
// time signature. Tick values are rescaled from the file's resolution to
// the caller's ticks-per-beat.
package midifile

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cvail/tempogrid-go/internal/tempomap"
	"github.com/cvail/tempogrid-go/internal/timebase"
)

// Note is one imported note with tick values in the target resolution.
// Velocity is normalized to [0, 1].
type Note struct {
	Tick     float64
	Duration float64
	Channel  uint8
	Key      uint8
	Velocity float64
}

// Song is the import result. Tempo holds every tempo meta event as a step
// breakpoint; Signature is the first meter event, common time when the
// file has none.
type Song struct {
	Notes        []Note
	Tempo        tempomap.Map
	Signature    timebase.TimeSignature
	TicksPerBeat int
}

// ReadFile imports the SMF at path.
func ReadFile(path string, ticksPerBeat int) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	defer f.Close()
	return Read(f, ticksPerBeat)
}

// Read imports an SMF from r.
func Read(r io.Reader, ticksPerBeat int) (*Song, error) {
	if ticksPerBeat <= 0 {
		return nil, fmt.Errorf("midifile: ticks per beat must be positive, got %d", ticksPerBeat)
	}
	data, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("midifile: %w", err)
	}
	metric, ok := data.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("midifile: unsupported time format %v", data.TimeFormat)
	}
	scale := float64(ticksPerBeat) / float64(metric.Resolution())

	song := &Song{
		Signature:    timebase.CommonTime,
		TicksPerBeat: ticksPerBeat,
	}
	haveMeter := false

	// Note-ons awaiting their note-off, keyed by channel and key. Stacked
	// so overlapping same-key notes pair first-on with first-off.
	type pending struct {
		tick     float64
		velocity float64
	}
	open := make(map[[2]uint8][]pending)

	for _, track := range data.Tracks {
		var abs uint64
		for _, ev := range track {
			abs += uint64(ev.Delta)
			tick := float64(abs) * scale
			msg := ev.Message

			var ch, key, vel uint8
			var bpm float64
			var num, denom uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := [2]uint8{ch, key}
				open[k] = append(open[k], pending{tick: tick, velocity: float64(vel) / 127.0})
			case msg.GetNoteEnd(&ch, &key):
				k := [2]uint8{ch, key}
				if stack := open[k]; len(stack) > 0 {
					on := stack[0]
					open[k] = stack[1:]
					song.Notes = append(song.Notes, Note{
						Tick:     on.tick,
						Duration: tick - on.tick,
						Channel:  ch,
						Key:      key,
						Velocity: on.velocity,
					})
				}
			case msg.GetMetaTempo(&bpm):
				song.Tempo = append(song.Tempo, tempomap.Point{Tick: tick, BPM: bpm, Curve: tempomap.CurveStep})
			case msg.GetMetaMeter(&num, &denom):
				if !haveMeter {
					song.Signature = timebase.TimeSignature{Numerator: int(num), Denominator: int(denom)}
					haveMeter = true
				}
			}
		}
		// Dangling note-ons reset between tracks.
		for k := range open {
			delete(open, k)
		}
	}

	sort.SliceStable(song.Notes, func(i, j int) bool {
		return song.Notes[i].Tick < song.Notes[j].Tick
	})
	sort.SliceStable(song.Tempo, func(i, j int) bool {
		return song.Tempo[i].Tick < song.Tempo[j].Tick
	})
	return song, nil
}
