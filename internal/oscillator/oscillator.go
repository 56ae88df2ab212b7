// Package oscillator implements the band-limited waveform generators that
// make up a voice's oscillator bank: saw, triangle, and square use
// PolyBLEP/PolyBLAMP edge correction to suppress aliasing; sub is a pure
// sine; noise is a uniform white-noise generator.
package oscillator

import "math"

// Waveform selects which generator Oscillator.Render produces.
type Waveform int

const (
	Saw Waveform = iota
	Triangle
	Square
	Sub
	Noise
)

// Oscillator is a single phase accumulator shared by all waveform kinds.
// Each voice owns one or more of these (spec.md's oscillator bank).
type Oscillator struct {
	phase float64 // [0, 1)
	rng   uint32  // xorshift32 state, used only by the Noise waveform
}

// NewOscillator creates an oscillator with an optional start phase in
// [0, 1) — passing a non-zero phase spreads unison voices and avoids
// correlated zero-crossings, mirroring the teacher's randomized note-on
// phase.
func NewOscillator(startPhase float64) *Oscillator {
	o := &Oscillator{phase: startPhase, rng: 0x9e3779b9}
	return o
}

// SetPhase forces the phase accumulator to an arbitrary value in [0, 1).
func (o *Oscillator) SetPhase(p float64) {
	o.phase = p - math.Floor(p)
}

// Phase returns the current phase in [0, 1).
func (o *Oscillator) Phase() float64 {
	return o.phase
}

// Render advances the oscillator by one sample at frequency freqHz and
// sample rate sampleRate, and returns the waveform's value in [-1, 1].
// duty is only consulted for Square (valid range [0.05, 0.95]).
func (o *Oscillator) Render(waveform Waveform, freqHz, sampleRate, duty float64) float64 {
	dt := freqHz / sampleRate
	var out float64

	switch waveform {
	case Saw:
		out = 2*o.phase - 1
		out -= polyBLEP(o.phase, dt)
	case Triangle:
		out = 2*math.Abs(2*o.phase-1) - 1
		out += 4 * dt * polyBLAMP(o.phase, dt)
		out -= 4 * dt * polyBLAMP(wrap(o.phase-0.5), dt)
	case Square:
		if duty < 0.05 {
			duty = 0.05
		} else if duty > 0.95 {
			duty = 0.95
		}
		if o.phase < duty {
			out = 1
		} else {
			out = -1
		}
		out += polyBLEP(o.phase, dt)
		out -= polyBLEP(wrap(o.phase-duty), dt)
	case Sub:
		out = math.Sin(o.phase * 2 * math.Pi)
	case Noise:
		out = o.nextNoise()
	}

	o.phase += dt
	if o.phase >= 1 {
		o.phase -= 1
	}
	return out
}

// nextNoise produces one uniform white-noise sample in [-1, 1] using an
// xorshift32 generator.
func (o *Oscillator) nextNoise() float64 {
	x := o.rng
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	o.rng = x
	return float64(x)/float64(1<<31) - 1
}

// polyBLEP returns the band-limited step correction for a discontinuity at
// t=0 (and, via the wrap trick, any other point): t is the phase position
// [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// polyBLAMP returns the band-limited correction for a discontinuity in the
// first derivative (a corner, e.g. the triangle wave's turning points) at
// t=0.
func polyBLAMP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t = t/dt - 1
		return -t * t * t / 3
	}
	if t > 1-dt {
		t = (t-1)/dt + 1
		return t * t * t / 3
	}
	return 0
}

func wrap(t float64) float64 {
	t -= math.Floor(t)
	return t
}
