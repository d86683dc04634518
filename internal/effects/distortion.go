package effects

import "math"

// Distortion implements waveshaping distortion with pre/post gain and an
// optional one-pole lowpass to tame the added harmonics.
type Distortion struct {
	preGain  float32
	postGain float32
	lpfAlpha float32
	lpf      float32
}

// NewDistortion creates a distortion effect. lpfCutoff is in Hz; zero
// disables the filter.
func NewDistortion(sampleRate int, preGain, postGain, lpfCutoff float32) *Distortion {
	d := &Distortion{
		preGain:  preGain,
		postGain: postGain,
	}
	if lpfCutoff > 0 && lpfCutoff < float32(sampleRate)/2 {
		rc := 1.0 / (2.0 * math.Pi * float64(lpfCutoff))
		dt := 1.0 / float64(sampleRate)
		d.lpfAlpha = float32(dt / (rc + dt))
	}
	return d
}

func (d *Distortion) Process(in float32) float32 {
	out := float32(math.Tanh(float64(in*d.preGain))) * d.postGain
	if d.lpfAlpha > 0 {
		d.lpf += d.lpfAlpha * (out - d.lpf)
		out = d.lpf
	}
	return out
}

func (d *Distortion) Reset() {
	d.lpf = 0
}
