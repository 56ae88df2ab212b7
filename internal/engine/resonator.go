package engine

import (
	"math"

	"github.com/nexlab/polysynth-go/internal/envelope"
	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/parambus"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
)

const resonatorMaxPolyphony = 4

// resonatorVoice is a single Karplus-Strong plucked/struck string: a
// feedback comb delay line with a one-pole tone filter in the loop,
// grounded on the teacher's Reverb comb filter (buf/pos/feedback)
// repurposed here as the resonating body instead of a reverb tail.
type resonatorVoice struct {
	active bool
	age    int64

	delay   []float64
	pos     int
	feedback float64 // derived from damping: closer to 1 rings longer
	tone     float64 // one-pole coefficient derived from brightness
	toneState float64

	velocity float64
	pan      float64
	ampEnv   *envelope.Envelope
}

// Resonator implements the physical-modelling resonator backend exposing
// {model, structure, brightness, damping, position, strum_intensity} per
// spec.md's engine-specific parameter list. model selects which of a
// small family of excitation shapes seeds the string (plucked vs struck);
// the remaining parameters map onto the comb's feedback, tone filter,
// excitation tap point, and burst amplitude.
type Resonator struct {
	voices     []*resonatorVoice
	bus        *parambus.Bus
	sampleRate float64
	sendMode   SendMode

	model               int
	structure           float64
	brightness          float64
	damping             float64
	position            float64
	strumIntensity      float64

	noteIDs map[int]int
	rng     uint32
}

// NewResonator creates a resonator engine capped at `polyphony` voices
// (1-4 per spec.md).
func NewResonator(bus *parambus.Bus, sampleRate float64, polyphony int) *Resonator {
	if polyphony < 1 {
		polyphony = 1
	}
	if polyphony > resonatorMaxPolyphony {
		polyphony = resonatorMaxPolyphony
	}
	r := &Resonator{
		bus:            bus,
		sampleRate:     sampleRate,
		damping:        0.996,
		brightness:     0.5,
		structure:      0.5,
		position:       0.5,
		strumIntensity: 0.8,
		noteIDs:        make(map[int]int),
		rng:            0x2545f491,
	}
	r.voices = make([]*resonatorVoice, polyphony)
	for i := range r.voices {
		r.voices[i] = &resonatorVoice{ampEnv: envelope.New(envelope.Amplitude, sampleRate)}
	}
	return r
}

// SetModelParams sets the resonator's engine-specific parameter block.
func (r *Resonator) SetModelParams(model int, structure, brightness, damping, position, strumIntensity float64) {
	r.model = model
	r.structure = structure
	r.brightness = brightness
	r.damping = damping
	r.position = position
	r.strumIntensity = strumIntensity
}

// Trigger implements Engine.
func (r *Resonator) Trigger(ev note.Event) {
	idx := r.allocate()
	v := r.voices[idx]

	freq := note.MIDIToFreq(float64(ev.PitchMIDI))
	delayLen := int(r.sampleRate/freq + 0.5)
	if delayLen < 2 {
		delayLen = 2
	}
	if cap(v.delay) < delayLen {
		v.delay = make([]float64, delayLen)
	} else {
		v.delay = v.delay[:delayLen]
	}

	// damping in [0,1] maps to a feedback coefficient close to (but below)
	// 1 so the string rings for a perceptually-scaled duration.
	v.feedback = 0.970 + r.damping*0.029
	v.tone = 0.2 + r.brightness*0.75
	v.toneState = 0
	v.pan = 0
	v.velocity = ev.Velocity
	v.active = true
	v.age = 0

	r.excite(v, delayLen)

	releaseSec := 0.05 + (1-r.damping)*2.0
	v.ampEnv.Trigger(0.0005, 0.01, 0.0, ev.Accent)
	v.ampEnv.Release(releaseSec)

	r.noteIDs[ev.VoiceID] = idx
}

// excite seeds the delay line with a burst whose shape depends on
// structure (spectral tilt of the burst) and position (where along the
// line the burst is concentrated, mirroring a pluck/strike point).
func (r *Resonator) excite(v *resonatorVoice, delayLen int) {
	tap := int(r.position * float64(delayLen))
	for i := range v.delay {
		v.delay[i] = 0
	}
	burstLen := int(float64(delayLen) * (0.2 + r.structure*0.8))
	if burstLen < 1 {
		burstLen = 1
	}
	for i := 0; i < burstLen && i < delayLen; i++ {
		idx := (tap + i) % delayLen
		v.delay[idx] = (r.nextUniform()*2 - 1) * r.strumIntensity
	}
	v.pos = 0
}

func (r *Resonator) nextUniform() float64 {
	x := r.rng
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.rng = x
	return float64(x) / float64(1<<32)
}

// allocate implements the same free/releasing/steal preference as
// voicepool.Pool, hand-rolled here because resonatorVoice isn't a
// voice.Voice (its body is a delay line, not an oscillator bank).
func (r *Resonator) allocate() int {
	for i, v := range r.voices {
		if !v.active {
			return i
		}
	}
	oldestReleasing, oldestReleasingAge := -1, int64(-1)
	for i, v := range r.voices {
		if v.ampEnv.CurrentStage() == envelope.Release && v.age > oldestReleasingAge {
			oldestReleasing = i
			oldestReleasingAge = v.age
		}
	}
	if oldestReleasing >= 0 {
		return oldestReleasing
	}
	oldest, oldestAge := 0, int64(-1)
	for i, v := range r.voices {
		if v.age > oldestAge {
			oldest = i
			oldestAge = v.age
		}
	}
	return oldest
}

// Release implements Engine.
func (r *Resonator) Release(voiceID int) {
	idx, ok := r.noteIDs[voiceID]
	if !ok {
		return
	}
	// The string is already decaying on its own; release here restarts
	// the amplitude envelope's release from its current level with a
	// fixed 80ms release time, which is shorter than the trigger-time
	// release except at damping values very close to 1.
	r.voices[idx].ampEnv.Release(0.08)
	delete(r.noteIDs, voiceID)
}

// AllNotesOff implements Engine.
func (r *Resonator) AllNotesOff() {
	for _, v := range r.voices {
		if v.active {
			v.ampEnv.Release(0.08)
		}
	}
	r.noteIDs = make(map[int]int)
}

// RenderSample implements Engine.
func (r *Resonator) RenderSample(sampleRate float64) (float64, float64) {
	masterGain := r.bus.Current(paramdesc.MasterGain)
	var l, r2 float64
	for _, v := range r.voices {
		if !v.active {
			continue
		}
		v.age++
		out := v.delay[v.pos]
		v.toneState += (out - v.toneState) * v.tone
		v.delay[v.pos] = v.toneState * v.feedback
		v.pos++
		if v.pos >= len(v.delay) {
			v.pos = 0
		}

		ampLevel := v.ampEnv.Tick()
		if ampLevel <= 0 && v.ampEnv.CurrentStage() == envelope.Idle {
			v.active = false
			continue
		}
		sig := out * ampLevel * v.velocity

		angle := ((v.pan + 1) / 2) * (math.Pi / 2)
		l += sig * math.Cos(angle)
		r2 += sig * math.Sin(angle)
	}
	return l * masterGain, r2 * masterGain
}

// SetSendMode implements Engine.
func (r *Resonator) SetSendMode(mode SendMode) { r.sendMode = mode }

// SendMode implements Engine.
func (r *Resonator) SendMode() SendMode { return r.sendMode }

// ActiveVoiceCount implements Engine.
func (r *Resonator) ActiveVoiceCount() int {
	n := 0
	for _, v := range r.voices {
		if v.active {
			n++
		}
	}
	return n
}
