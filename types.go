package tempogrid

import (
	"github.com/cvail/tempogrid-go/internal/groove"
	"github.com/cvail/tempogrid-go/internal/tempomap"
	"github.com/cvail/tempogrid-go/internal/timebase"
	"github.com/cvail/tempogrid-go/internal/transport"
)

// Aliases for the internal types that appear in the public configuration
// surface, so callers outside the module can construct them.
type (
	TransportConfig   = transport.Config
	LoopRegion        = transport.LoopRegion
	Marker            = transport.Marker
	TransportSnapshot = transport.Snapshot
	MetronomeSettings = transport.MetronomeSettings
	PrerollSettings   = transport.PrerollSettings

	SwingSettings    = groove.SwingSettings
	HumanizeSettings = groove.HumanizeSettings
	GrooveTemplate   = groove.Template
	GrooveEntry      = groove.Entry

	TempoMap   = tempomap.Map
	TempoPoint = tempomap.Point

	TimeSignature = timebase.TimeSignature
	QuantizeMode  = timebase.QuantizeMode
	NoteValue     = timebase.NoteValue
)

// Tempo curve shapes for TempoPoint.
const (
	CurveStep        = tempomap.CurveStep
	CurveLinear      = tempomap.CurveLinear
	CurveExponential = tempomap.CurveExponential
)

// Quantization modes and note values.
const (
	QuantizeNearest = timebase.QuantizeNearest
	QuantizeFloor   = timebase.QuantizeFloor
	QuantizeCeil    = timebase.QuantizeCeil

	Whole     = timebase.Whole
	Half      = timebase.Half
	Quarter   = timebase.Quarter
	Eighth    = timebase.Eighth
	Sixteenth = timebase.Sixteenth
)

// Quantize snaps ticks onto a grid; a non-positive grid is an error.
func Quantize(ticks, grid float64, mode QuantizeMode) (float64, error) {
	return timebase.Quantize(ticks, grid, mode)
}

// TicksPerNote returns the duration of a note value in ticks.
func TicksPerNote(value NoteValue, ticksPerBeat int) (float64, error) {
	return timebase.TicksPerNote(value, ticksPerBeat)
}

// LoadGrooveTemplates reads a YAML groove template collection from a
// file.
func LoadGrooveTemplates(path string) ([]GrooveTemplate, error) {
	return groove.LoadTemplates(path)
}
