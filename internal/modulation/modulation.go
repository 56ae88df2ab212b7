// Package modulation implements the per-voice modulation matrix: up to one
// modulator per modulated parameter, each computing offset + depth*shape(t)
// and writing the result into the voice's parameter override slot once per
// sample. Six shapes are supported: LFO, RND, ENV, EF, TM, SEQ.
package modulation

import (
	"math"

	"github.com/nexlab/polysynth-go/internal/envelope"
	"github.com/nexlab/polysynth-go/internal/lfo"
)

// Shape selects which generator drives a Modulator.
type Shape int

const (
	ShapeLFO Shape = iota
	ShapeRND
	ShapeENV
	ShapeEF
	ShapeTM
	ShapeSEQ
)

// ResetOn selects which transport event clears a modulator back to its
// start phase/state.
type ResetOn int

const (
	ResetNever ResetOn = iota
	ResetStepBoundary
	ResetAccent
	ResetBar
)

// LFOWaveform mirrors internal/lfo's waveform constants so callers
// configuring a ShapeLFO/ShapeRND modulator don't need to import lfo
// directly.
type LFOWaveform int

const (
	WaveSaw LFOWaveform = iota
	WaveSquare
	WaveTriangle
	WaveRandom
	WaveSine
	WaveSampleHold
)

// Config describes one modulator slot. Only the fields relevant to Shape
// are consulted.
type Config struct {
	Shape Shape
	Reset ResetOn

	Offset float64
	Depth  float64

	// LFO / RND
	RateHz   float64
	Waveform LFOWaveform

	// ENV (free-running attack/release loop)
	AttackSec, ReleaseSec float64

	// EF (envelope follower of an external input signal)
	FollowerTauSec float64

	// TM (Turing-machine-style shift register)
	StepRateHz  float64
	RegisterLen int     // number of bits consulted when forming the output value, 1-16
	FlipProb    float64 // probability [0,1] the fed-back bit is flipped each step

	// SEQ (short step sequence)
	Steps []float64
}

// Modulator is one live instance of a Config, with whatever per-sample
// state its shape needs. It is owned by a single voice and stepped from
// the audio thread only.
type Modulator struct {
	cfg Config

	osc      lfo.LFO            // ShapeLFO / ShapeRND
	env      *envelope.Envelope // ShapeENV
	envPhase bool               // true while env is in its "rising" (attack) half

	followerState float64 // ShapeEF

	tmRegister uint32 // ShapeTM
	tmRNG      uint32
	tmPhase    float64

	seqPhase float64
	seqIndex int
}

// New creates a Modulator from cfg. Shapes that need a concrete sample
// rate (ShapeENV) finish initializing lazily on the first Advance call.
func New(cfg Config) *Modulator {
	m := &Modulator{cfg: cfg, tmRNG: 0xcafef00d}
	switch cfg.Shape {
	case ShapeLFO:
		m.osc.Set(1.0, cfg.RateHz, int(cfg.Waveform))
	case ShapeRND:
		m.osc.Set(1.0, cfg.RateHz, int(WaveSampleHold))
	}
	return m
}

// Advance steps the modulator by one sample and returns offset +
// depth*shape(t). input is only consulted by ShapeEF.
func (m *Modulator) Advance(sampleRate, input float64) float64 {
	var shapeVal float64
	switch m.cfg.Shape {
	case ShapeLFO, ShapeRND:
		shapeVal = m.osc.Sample(sampleRate) // depth baked into osc as 1.0, scaled below
	case ShapeENV:
		if m.env == nil {
			m.env = envelope.New(envelope.Amplitude, sampleRate)
			m.env.Trigger(m.cfg.AttackSec, 0, 1.0, false)
			m.envPhase = true
		}
		shapeVal = m.advanceEnv(sampleRate)
	case ShapeEF:
		shapeVal = m.advanceFollower(sampleRate, input)
	case ShapeTM:
		shapeVal = m.advanceTM(sampleRate)
	case ShapeSEQ:
		shapeVal = m.advanceSeq(sampleRate)
	}
	return m.cfg.Offset + m.cfg.Depth*shapeVal
}

// advanceEnv free-runs an attack/release envelope: on reaching its release
// floor it re-triggers, producing a repeating ramp-up/ramp-down shape.
func (m *Modulator) advanceEnv(sampleRate float64) float64 {
	switch m.env.CurrentStage() {
	case envelope.Sustain:
		m.env.Release(m.cfg.ReleaseSec)
		m.envPhase = false
	case envelope.Idle:
		m.env.Trigger(m.cfg.AttackSec, 0, 1.0, false)
		m.envPhase = true
	}
	return m.env.Tick()
}

// advanceFollower rectifies and one-pole smooths input, tracking its
// envelope the way a side-chain or input-follower patch would.
func (m *Modulator) advanceFollower(sampleRate, input float64) float64 {
	tau := m.cfg.FollowerTauSec
	if tau <= 0 {
		tau = 0.01
	}
	alpha := 1.0 / (tau * sampleRate)
	if alpha > 1 {
		alpha = 1
	}
	rectified := math.Abs(input)
	m.followerState += (rectified - m.followerState) * alpha
	return m.followerState
}

// advanceTM implements a Turing-machine-style shift register: each step it
// shifts in a bit equal to the previous output bit, optionally flipped
// with probability FlipProb, then reads RegisterLen bits as an unsigned
// integer normalized to [-1, 1].
func (m *Modulator) advanceTM(sampleRate float64) float64 {
	rate := m.cfg.StepRateHz
	if rate <= 0 {
		rate = 4
	}
	m.tmPhase += rate / sampleRate
	if m.tmPhase >= 1 {
		m.tmPhase -= 1
		feedback := m.tmRegister & 1
		if m.nextUniform() < m.cfg.FlipProb {
			feedback ^= 1
		}
		m.tmRegister = (m.tmRegister << 1) | feedback
	}
	bits := m.cfg.RegisterLen
	if bits <= 0 || bits > 16 {
		bits = 8
	}
	mask := uint32(1<<uint(bits)) - 1
	val := float64(m.tmRegister&mask) / float64(mask)
	return val*2 - 1
}

func (m *Modulator) nextUniform() float64 {
	x := m.tmRNG
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	m.tmRNG = x
	return float64(x) / float64(1<<32)
}

// advanceSeq indexes Steps by elapsed time at StepRateHz, wrapping back to
// the first step once the end is reached (the loop point).
func (m *Modulator) advanceSeq(sampleRate float64) float64 {
	if len(m.cfg.Steps) == 0 {
		return 0
	}
	rate := m.cfg.StepRateHz
	if rate <= 0 {
		rate = 4
	}
	m.seqPhase += rate / sampleRate
	if m.seqPhase >= 1 {
		m.seqPhase -= 1
		m.seqIndex = (m.seqIndex + 1) % len(m.cfg.Steps)
	}
	return m.cfg.Steps[m.seqIndex]
}

// Reset restores the modulator to its initial phase/state if its
// configured reset policy matches reason.
func (m *Modulator) Reset(reason ResetOn) {
	if m.cfg.Reset != reason {
		return
	}
	switch m.cfg.Shape {
	case ShapeLFO, ShapeRND:
		m.osc.Reset()
	case ShapeENV:
		if m.env != nil {
			m.env.Trigger(m.cfg.AttackSec, 0, 1.0, false)
			m.envPhase = true
		}
	case ShapeEF:
		m.followerState = 0
	case ShapeTM:
		m.tmRegister = 0
		m.tmPhase = 0
	case ShapeSEQ:
		m.seqPhase = 0
		m.seqIndex = 0
	}
}
