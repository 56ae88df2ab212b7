// Package voice implements the per-voice synthesis aggregate: two
// band-limited oscillators plus sub and noise, a ZDF filter, independent
// amplitude and filter envelopes, a set of modulators, and the
// articulation sub-state-machine that drives glide/slide/trill pitch
// behavior. It is the unit the subtractive engine's voice pool allocates
// and steals.
package voice

import (
	"math"

	"github.com/nexlab/polysynth-go/internal/envelope"
	"github.com/nexlab/polysynth-go/internal/modulation"
	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/oscillator"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
	"github.com/nexlab/polysynth-go/internal/zdf"
)

// Params bundles the per-trigger synthesis parameters a voice needs that
// aren't carried by the shared parameter bus (i.e. the ones latched once
// at note-on rather than continuously smoothed).
type Params struct {
	OscAWave, OscBWave oscillator.Waveform
	OscALevel, OscBLevel, SubLevel, NoiseLevel float64
	OscBDetuneSemi                             float64
	AmpAttackSec, AmpDecaySec, AmpSustain, AmpReleaseSec       float64
	FilterAttackSec, FilterDecaySec, FilterSustain, FilterReleaseSec float64
	FilterEnvAmountSemi float64 // how many semitones of cutoff shift the filter envelope contributes at full level (Render applies amount/12 octaves)
}

// Voice is one polyphonic voice slot. The voice pool owns its lifecycle;
// Render/Trigger/Release are called from the audio thread only.
type Voice struct {
	ID         int // pool-assigned handle index
	Generation uint32
	Active     bool
	AgeSamples int64 // elapsed samples since last trigger, used for steal-oldest ordering

	Velocity float64
	Pan      float64
	Accented bool

	artic *Articulation

	oscA, oscB, oscSub, oscNoise *oscillator.Oscillator
	params                       Params

	hpFilter  zdf.Filter
	filter    zdf.Filter
	ampEnv    *envelope.Envelope
	filterEnv *envelope.Envelope

	Modulators map[paramdesc.ID]*modulation.Modulator
}

// New creates an idle voice slot for the given handle index.
func New(id int, sampleRate float64) *Voice {
	return &Voice{
		ID:         id,
		oscA:       oscillator.NewOscillator(0),
		oscB:       oscillator.NewOscillator(0),
		oscSub:     oscillator.NewOscillator(0),
		oscNoise:   oscillator.NewOscillator(0),
		ampEnv:     envelope.New(envelope.Amplitude, sampleRate),
		filterEnv:  envelope.New(envelope.Filter, sampleRate),
		artic:      NewArticulation(60),
		Modulators: make(map[paramdesc.ID]*modulation.Modulator),
	}
}

// Trigger (re)activates the voice for a new note. startPhase spreads
// unison/noise phase across voices to avoid correlated zero-crossings.
func (v *Voice) Trigger(pitchMIDI float64, velocity float64, accented bool, p Params, startPhase float64) {
	v.Active = true
	v.Generation++
	v.AgeSamples = 0
	v.Velocity = velocity
	v.Accented = accented
	v.params = p
	v.artic.Retrigger(pitchMIDI)
	v.oscA.SetPhase(startPhase)
	v.oscB.SetPhase(startPhase)
	v.oscSub.SetPhase(startPhase)
	v.hpFilter.Reset()
	v.filter.Reset()
	v.ampEnv.Trigger(p.AmpAttackSec, p.AmpDecaySec, p.AmpSustain, accented)
	v.filterEnv.Trigger(p.FilterAttackSec, p.FilterDecaySec, p.FilterSustain, accented)
}

// Glide starts a mono-mode portamento ramp to a new pitch.
func (v *Voice) Glide(toPitchMIDI float64, durationSamples int64) {
	v.artic.StartGlide(toPitchMIDI, durationSamples)
}

// Slide starts a legato slide ramp to a new pitch, keeping the envelopes
// running (no retrigger).
func (v *Voice) Slide(toPitchMIDI float64, durationSamples int64) {
	v.artic.StartSlide(toPitchMIDI, durationSamples)
}

// Trill starts a rectangular-wave trill between the current pitch and a
// neighbor, settling on finalPitchMIDI.
func (v *Voice) Trill(basePitchMIDI, neighborPitchMIDI, finalPitchMIDI float64, stepDurationSamples int64) {
	v.artic.StartTrill(basePitchMIDI, neighborPitchMIDI, finalPitchMIDI, stepDurationSamples)
}

// Release begins the release stage of both envelopes and the
// articulation state machine. The voice stays Active (and therefore
// eligible for the pool's releasing-tier steal preference) until Idle
// reports true.
func (v *Voice) Release() {
	v.artic.Release()
	v.ampEnv.Release(v.params.AmpReleaseSec)
	v.filterEnv.Release(v.params.FilterReleaseSec)
}

// FastRelease forces an abbreviated (~25ms) release, used when the voice
// pool steals this slot out from under a still-sounding note.
func (v *Voice) FastRelease() {
	v.artic.Release()
	v.ampEnv.Release(0.025)
	v.filterEnv.Release(0.025)
}

// CurrentArticulationState exposes the voice's articulation state, used
// by the pool's steal-tier preference (oldest releasing before oldest
// active).
func (v *Voice) CurrentArticulationState() State {
	return v.artic.CurrentState()
}

// Idle reports whether the voice has fully released and can be reused by
// the pool without an audible click.
func (v *Voice) Idle() bool {
	return v.Active && !v.ampEnv.Active() && v.artic.CurrentState() != Gliding && v.artic.CurrentState() != Sliding
}

// Deactivate marks the slot as free; called once Idle() has been
// observed true and the pool reclaims the slot.
func (v *Voice) Deactivate() {
	v.Active = false
	v.Generation++
}

// Render renders one sample of this voice's output. cutoffHz and
// resonance are the smoothed, pre-modulation base lowpass filter settings
// (from the parameter bus); hpfCutoffHz is the static highpass stage's
// cutoff, run ahead of the lowpass per spec.md §4.4(d); driftSemi,
// vibratoSemi and extraPitchSemi are additional modulator contributions
// already summed by the caller. Returns (left, right).
func (v *Voice) Render(sampleRate, cutoffHz, resonance, oscMix, driftSemi, vibratoSemi, extraPitchSemi, hpfCutoffHz float64) (float64, float64) {
	v.AgeSamples++

	basePitch := v.artic.Tick()
	totalSemi := basePitch + driftSemi + vibratoSemi + extraPitchSemi
	freq := note.MIDIToFreq(totalSemi)
	detuneFreq := note.MIDIToFreq(totalSemi + v.params.OscBDetuneSemi)

	a := v.oscA.Render(v.params.OscAWave, freq, sampleRate, 0.5)
	b := v.oscB.Render(v.params.OscBWave, detuneFreq, sampleRate, 0.5)
	sub := v.oscSub.Render(oscillator.Sub, freq/2, sampleRate, 0.5)
	noise := v.oscNoise.Render(oscillator.Noise, freq, sampleRate, 0.5)

	mix := a*v.params.OscALevel*oscMix + b*v.params.OscBLevel*(1-oscMix)
	mix += sub * v.params.SubLevel
	mix += noise * v.params.NoiseLevel

	filterEnvLevel := v.filterEnv.Tick()
	modulatedCutoff := cutoffHz * math.Pow(2, filterEnvLevel*v.params.FilterEnvAmountSemi/12)

	hpfOut := v.hpFilter.Process(mix, hpfCutoffHz, 0, sampleRate)
	out := v.filter.Process(hpfOut.Highpass, modulatedCutoff, resonance, sampleRate)

	ampLevel := v.ampEnv.Tick()
	sig := out.Lowpass * ampLevel * v.Velocity

	angle := ((v.Pan + 1) / 2) * (math.Pi / 2)
	l := sig * math.Cos(angle)
	r := sig * math.Sin(angle)
	return l, r
}
