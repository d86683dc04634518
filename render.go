package tempogrid

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/cvail/tempogrid-go/internal/effects"
	"github.com/cvail/tempogrid-go/internal/midifile"
)

// renderBlockFrames is the block size offline rendering advances by.
const renderBlockFrames = 512

// RenderOptions configures offline rendering.
type RenderOptions struct {
	// MaxSeconds caps the render length as a safety net for runaway
	// feedback or endless release tails. Zero means 10 minutes.
	MaxSeconds float64
	// TailSeconds keeps rendering after the last voice goes silent so
	// effect tails (reverb, delay) ring out.
	TailSeconds float64
}

// Render runs the engine offline until playback finishes, returning
// interleaved stereo samples. The engine must be freshly constructed or
// stopped; Render starts and stops the transport itself.
func Render(e *Engine, opts RenderOptions) ([]float32, error) {
	if e == nil {
		return nil, errors.New("tempogrid: engine must not be nil")
	}
	maxSeconds := opts.MaxSeconds
	if maxSeconds <= 0 {
		maxSeconds = 600
	}
	sr := e.cfg.Transport.SampleRate
	maxFrames := int(maxSeconds * float64(sr))
	tailFrames := int(opts.TailSeconds * float64(sr))

	e.SetFinite(true)
	e.tr.Play()

	out := make([]float32, 0, renderBlockFrames*2*64)
	block := make([]float32, renderBlockFrames*2)
	rendered := 0
	tail := -1
	for rendered < maxFrames {
		e.Process(block)
		out = append(out, block...)
		rendered += renderBlockFrames
		if tail < 0 && e.Finished() {
			tail = tailFrames
		}
		if tail >= 0 {
			tail -= renderBlockFrames
			if tail <= 0 {
				break
			}
		}
	}
	e.tr.Stop()
	return out, nil
}

// RenderSong schedules an imported song on a fresh engine and renders it
// offline.
func RenderSong(song *midifile.Song, cfg EngineConfig, inst Instrument, chain *effects.Chain, opts RenderOptions) ([]float32, error) {
	if song == nil {
		return nil, errors.New("tempogrid: song must not be nil")
	}
	e, err := NewEngine(cfg, inst, chain)
	if err != nil {
		return nil, err
	}
	notes := make([]NoteEvent, len(song.Notes))
	ticks := make([]float64, len(song.Notes))
	for i, n := range song.Notes {
		notes[i] = NoteEvent{
			Key:      n.Key,
			Velocity: n.Velocity,
			Duration: n.Duration,
			Gate:     1,
			Channel:  n.Channel,
		}
		ticks[i] = n.Tick
	}
	if err := e.LoadSong(notes, ticks, song.Tempo, song.Signature); err != nil {
		return nil, err
	}
	return Render(e, opts)
}

// EncodeWAVFloat32LE encodes interleaved samples as an IEEE-float WAV
// file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
