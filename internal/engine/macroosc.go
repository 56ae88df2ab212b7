package engine

import (
	"math"

	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/parambus"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
)

const macroOscPolyphony = 8
const macroOscTableLen = 256
const macroOscBankSize = 24 // one table per model index

// macroOscVoice is a single wavetable-blend voice driven by a low-pass
// gate rather than a conventional ADSR, following the teacher's
// wavetable.voice layout (active/id/freq/phase/env/pan) generalized to
// carry a vactrol-style LPG envelope instead of a four-stage one.
type macroOscVoice struct {
	active   bool
	age      int64
	freq     float64
	phase    float64
	velocity float64
	pan      float64

	lpgLevel float64 // 0..1 vactrol decay envelope
	lpgTone  float64 // one-pole lowpass state for lpg_colour
}

// MacroOsc implements the wavetable-blend backend exposing {model,
// harmonics, timbre, morph, lpg_decay, lpg_colour, out/aux mix} per
// spec.md's engine-specific parameter list. It is grounded on the
// teacher's wavetable.Engine: single-cycle table storage, linear
// interpolation lookup, and per-sample envelope/phase advance, with the
// table bank generated procedurally (increasing harmonic content per
// model index) instead of loaded from score data, and the four-stage
// envelope replaced by a one-pole LPG per spec.md's redesign.
type MacroOsc struct {
	voices     []*macroOscVoice
	bus        *parambus.Bus
	sampleRate float64
	sendMode   SendMode

	bank [macroOscBankSize][]float64

	model      int
	harmonics  float64
	timbre     float64
	morph      float64
	lpgDecay   float64
	lpgColour  float64
	outMix     float64
	auxMix     float64

	noteIDs map[int]int
}

// NewMacroOsc creates a macro-osc engine with its procedural wavetable
// bank precomputed.
func NewMacroOsc(bus *parambus.Bus, sampleRate float64) *MacroOsc {
	m := &MacroOsc{
		bus:        bus,
		sampleRate: sampleRate,
		model:      1,
		harmonics:  0.5,
		timbre:     0.3,
		morph:      0.0,
		lpgDecay:   0.3,
		lpgColour:  0.6,
		outMix:     1.0,
		auxMix:     0.0,
		noteIDs:    make(map[int]int),
	}
	for i := 0; i < macroOscBankSize; i++ {
		m.bank[i] = buildTable(i)
	}
	m.voices = make([]*macroOscVoice, macroOscPolyphony)
	for i := range m.voices {
		m.voices[i] = &macroOscVoice{}
	}
	return m
}

// buildTable generates one single-cycle table for bank slot idx, summing
// harmonics 1..idx+1 at 1/p amplitude (a band-limited saw truncated at
// idx+1 partials) so that higher model indices sound progressively
// brighter/more complex.
func buildTable(idx int) []float64 {
	partials := idx + 1
	table := make([]float64, macroOscTableLen)
	for i := range table {
		theta := 2 * math.Pi * float64(i) / float64(macroOscTableLen)
		var sum float64
		for p := 1; p <= partials; p++ {
			sum += math.Sin(theta*float64(p)) / float64(p)
		}
		table[i] = sum
	}
	peak := 0.0
	for _, v := range table {
		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}
	if peak > 0 {
		for i := range table {
			table[i] /= peak
		}
	}
	return table
}

// SetModelParams sets the macro-osc's engine-specific parameter block.
func (m *MacroOsc) SetModelParams(model int, harmonics, timbre, morph, lpgDecay, lpgColour, outMix, auxMix float64) {
	if model < 1 {
		model = 1
	}
	if model > macroOscBankSize {
		model = macroOscBankSize
	}
	m.model = model
	m.harmonics = harmonics
	m.timbre = timbre
	m.morph = morph
	m.lpgDecay = lpgDecay
	m.lpgColour = lpgColour
	m.outMix = outMix
	m.auxMix = auxMix
}

// Trigger implements Engine.
func (m *MacroOsc) Trigger(ev note.Event) {
	idx := m.allocate()
	v := m.voices[idx]
	v.active = true
	v.age = 0
	v.freq = note.MIDIToFreq(float64(ev.PitchMIDI))
	v.phase = 0
	v.velocity = ev.Velocity
	v.pan = 0
	v.lpgLevel = 1.0
	v.lpgTone = 0
	m.noteIDs[ev.VoiceID] = idx
}

func (m *MacroOsc) allocate() int {
	for i, v := range m.voices {
		if !v.active {
			return i
		}
	}
	quietest, minLevel := 0, math.Inf(1)
	for i, v := range m.voices {
		if v.lpgLevel < minLevel {
			minLevel = v.lpgLevel
			quietest = i
		}
	}
	return quietest
}

// Release implements Engine. The LPG decays on its own shape once
// triggered (there is no separate sustain stage per spec.md), so release
// here only forgets the voiceID mapping: the voice keeps decaying at its
// normal LPG rate and its decay is not shortened.
func (m *MacroOsc) Release(voiceID int) {
	if _, ok := m.noteIDs[voiceID]; !ok {
		return
	}
	delete(m.noteIDs, voiceID)
}

// AllNotesOff implements Engine.
func (m *MacroOsc) AllNotesOff() {
	for _, v := range m.voices {
		if v.active {
			v.lpgLevel *= 0.3
		}
	}
	m.noteIDs = make(map[int]int)
}

// RenderSample implements Engine.
func (m *MacroOsc) RenderSample(sampleRate float64) (float64, float64) {
	masterGain := m.bus.Current(paramdesc.MasterGain)

	tableA := m.bank[m.model-1]
	tableB := m.bank[m.model%macroOscBankSize]
	tableLen := float64(len(tableA))

	// lpg_decay in [0,1] maps to a perceptual decay time; higher decay
	// values hold the gate open longer.
	decayPerSample := 1.0 / ((0.02 + m.lpgDecay*3.0) * sampleRate)
	// lpg_colour blends between a dark (heavily filtered) and bright
	// (unfiltered) gate response, grounded on the teacher's lpfAlpha math.
	toneAlpha := 0.01 + m.lpgColour*0.6

	var l, r float64
	for _, v := range m.voices {
		if !v.active {
			continue
		}
		v.age++

		idx := math.Floor(v.phase)
		frac := v.phase - idx
		i0 := int(idx) % len(tableA)
		i1 := (i0 + 1) % len(tableA)
		sampleA := tableA[i0]*(1-frac) + tableA[i1]*frac
		sampleB := tableB[i0]*(1-frac) + tableB[i1]*frac
		sig := sampleA*(1-m.morph) + sampleB*m.morph

		// timbre applies a soft wave-fold when pushed past 0.5.
		if m.timbre > 0.5 {
			fold := (m.timbre - 0.5) * 2
			sig = sig + fold*math.Sin(sig*math.Pi)
			if sig > 1 {
				sig = 1
			} else if sig < -1 {
				sig = -1
			}
		}

		v.lpgLevel -= decayPerSample
		if v.lpgLevel <= 0 {
			v.lpgLevel = 0
			v.active = false
			continue
		}
		v.lpgTone += (v.lpgLevel - v.lpgTone) * toneAlpha

		sig *= v.lpgTone * v.velocity

		v.phase += v.freq * tableLen / sampleRate
		for v.phase >= tableLen {
			v.phase -= tableLen
		}

		angle := ((v.pan + 1) / 2) * (math.Pi / 2)
		l += sig * math.Cos(angle)
		r += sig * math.Sin(angle)
	}
	// Only outMix scales the stereo output; auxMix is stored but
	// contributes nothing, and there is no separate aux output.
	level := m.outMix + m.auxMix*0.0
	return l * masterGain * level, r * masterGain * level
}

// SetSendMode implements Engine.
func (m *MacroOsc) SetSendMode(mode SendMode) { m.sendMode = mode }

// SendMode implements Engine.
func (m *MacroOsc) SendMode() SendMode { return m.sendMode }

// ActiveVoiceCount implements Engine.
func (m *MacroOsc) ActiveVoiceCount() int {
	n := 0
	for _, v := range m.voices {
		if v.active {
			n++
		}
	}
	return n
}
