// Package meter analyzes rendered sample buffers: peak and RMS levels,
// in linear scale and dBFS.
package meter

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Levels holds one buffer's measurements. Peak and RMS are linear; the dB
// fields are dBFS with silence reported as -inf.
type Levels struct {
	Peak   float32
	RMS    float32
	PeakDB float64
	RMSDB  float64
}

// Meter analyzes buffers into Levels, reusing scratch space across calls.
type Meter struct {
	scratch []float32
}

func New() *Meter {
	return &Meter{}
}

// Analyze measures buf. Empty input reports silence.
func (m *Meter) Analyze(buf []float32) Levels {
	if len(buf) == 0 {
		return Levels{PeakDB: math.Inf(-1), RMSDB: math.Inf(-1)}
	}
	if cap(m.scratch) < len(buf) {
		m.scratch = make([]float32, len(buf))
	}
	sq := vek32.Mul_Into(m.scratch[:len(buf)], buf, buf)
	rms := float32(math.Sqrt(float64(vek32.Mean(sq))))
	// sq holds squares, so its max is the squared peak.
	peak := float32(math.Sqrt(float64(vek32.Max(sq))))
	return Levels{
		Peak:   peak,
		RMS:    rms,
		PeakDB: toDB(peak),
		RMSDB:  toDB(rms),
	}
}

func toDB(v float32) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(float64(v))
}
