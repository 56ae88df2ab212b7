package engine

import (
	"math"

	"github.com/nexlab/polysynth-go/internal/lfo"
	"github.com/nexlab/polysynth-go/internal/modulation"
	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/oscillator"
	"github.com/nexlab/polysynth-go/internal/parambus"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
	"github.com/nexlab/polysynth-go/internal/voice"
	"github.com/nexlab/polysynth-go/internal/voicepool"
)

const subtractivePolyphony = 8
const defaultSlideDurationSeconds = 0.080
const defaultGlideSlideMultiplier = 0.5

// Subtractive is the classic two-oscillator-plus-filter engine: an
// 8-voice pool of voice.Voice, reading the shared parameter bus for
// continuous controls and driving three engine-level modulators (pitch,
// amp, filter) the way the teacher's per-engine LFOs do.
type Subtractive struct {
	pool       *voicepool.Pool
	bus        *parambus.Bus
	sampleRate float64
	sendMode   SendMode

	pitchLFO  lfo.LFO
	ampLFO    lfo.LFO
	filterLFO lfo.LFO

	voiceParams voice.Params

	// modTemplates holds a per-parameter modulator configuration applied
	// to every voice of this engine at trigger time (configure_modulator
	// with engine-wide voice_scope), per spec.md §6.
	modTemplates map[paramdesc.ID]modulation.Config
}

// NewSubtractive creates a subtractive engine sharing bus for its
// continuous parameters.
func NewSubtractive(bus *parambus.Bus, sampleRate float64, mono bool) *Subtractive {
	return &Subtractive{
		pool:       voicepool.New(subtractivePolyphony, sampleRate, mono),
		bus:        bus,
		sampleRate: sampleRate,
		voiceParams: voice.Params{
			OscAWave:  oscillator.Saw,
			OscBWave:  oscillator.Square,
			OscALevel: 0.7,
			OscBLevel: 0.3,
			SubLevel:  0.15,
		},
	}
}

// SetOscillators configures the two main oscillator waveforms/levels and
// the sub/noise mix latched at each voice's next trigger.
func (s *Subtractive) SetOscillators(p voice.Params) {
	s.voiceParams = p
}

// SetPitchLFO configures the shared vibrato LFO (depth in semitones).
func (s *Subtractive) SetPitchLFO(depth, rateHz float64, waveform int) {
	s.pitchLFO.Set(depth, rateHz, waveform)
}

// SetAmpLFO configures the shared tremolo LFO (depth is a gain multiplier
// amount).
func (s *Subtractive) SetAmpLFO(depth, rateHz float64, waveform int) {
	s.ampLFO.Set(depth, rateHz, waveform)
}

// SetFilterLFO configures the shared filter-cutoff LFO (depth in octaves).
func (s *Subtractive) SetFilterLFO(depth, rateHz float64, waveform int) {
	s.filterLFO.Set(depth, rateHz, waveform)
}

// SetModulatorTemplate installs a modulator configuration that every
// subsequently triggered voice picks up for the given parameter, if it
// doesn't already carry one (voice_scope = this engine, per spec.md §6's
// configure_modulator).
func (s *Subtractive) SetModulatorTemplate(id paramdesc.ID, cfg modulation.Config) {
	if s.modTemplates == nil {
		s.modTemplates = make(map[paramdesc.ID]modulation.Config)
	}
	s.modTemplates[id] = cfg
}

// ClearModulatorTemplate removes a previously installed template; voices
// already carrying that modulator keep it running until released.
func (s *Subtractive) ClearModulatorTemplate(id paramdesc.ID) {
	delete(s.modTemplates, id)
}

// Trigger implements Engine.
func (s *Subtractive) Trigger(ev note.Event) {
	pitch := float64(ev.PitchMIDI)
	params := s.voiceParams
	params.AmpAttackSec = s.bus.Current(paramdesc.AmpAttack)
	params.AmpDecaySec = s.bus.Current(paramdesc.AmpDecay)
	params.AmpSustain = s.bus.Current(paramdesc.AmpSustain)
	params.AmpReleaseSec = s.bus.Current(paramdesc.AmpRelease)
	params.FilterAttackSec = s.bus.Current(paramdesc.FilterAttack)
	params.FilterDecaySec = s.bus.Current(paramdesc.FilterDecay)
	params.FilterSustain = s.bus.Current(paramdesc.FilterSustain)
	params.FilterReleaseSec = s.bus.Current(paramdesc.FilterRelease)
	params.FilterEnvAmountSemi = s.bus.Current(paramdesc.FilterEnvAmount) * 48 // +/-1 knob -> +/-4 octaves

	glideSamples := int64(s.bus.Current(paramdesc.GlideTime) * s.sampleRate)
	useGlide := s.pool.Mono() && !ev.Trill && !ev.Slide && glideSamples > 0

	h := s.pool.NoteOn(ev.VoiceID, pitch, ev.Velocity, ev.Accent, params, 0, ev.Slide, ev.Trill, useGlide)
	if !s.pool.Valid(h) {
		return
	}

	if len(s.modTemplates) > 0 {
		v := s.pool.Voices()[h.Index]
		for id, cfg := range s.modTemplates {
			if _, exists := v.Modulators[id]; !exists {
				v.Modulators[id] = modulation.New(cfg)
			}
		}
	}

	switch {
	case ev.Trill:
		stepSamples := int64(defaultSlideDurationSeconds * 3 * s.sampleRate)
		s.pool.Trill(ev.VoiceID, pitch, pitch+1, pitch, stepSamples)
	case ev.Slide:
		durSamples := int64(glideSlideDuration(float64(glideSamples)/s.sampleRate) * s.sampleRate)
		s.pool.Slide(ev.VoiceID, pitch, durSamples)
	case useGlide:
		s.pool.Glide(ev.VoiceID, pitch, glideSamples)
	}
}

// Release implements Engine.
func (s *Subtractive) Release(voiceID int) {
	s.pool.NoteOff(voiceID)
}

// AllNotesOff implements Engine.
func (s *Subtractive) AllNotesOff() {
	s.pool.AllNotesOff()
}

// RenderSample implements Engine.
func (s *Subtractive) RenderSample(sampleRate float64) (float64, float64) {
	cutoff := s.bus.Advance(paramdesc.FilterCutoff, sampleRate)
	hpfCutoff := s.bus.Advance(paramdesc.FilterHighpass, sampleRate)
	resonance := s.bus.Advance(paramdesc.FilterResonance, sampleRate)
	oscMix := s.bus.Advance(paramdesc.OscMix, sampleRate)
	masterGain := s.bus.Advance(paramdesc.MasterGain, sampleRate)

	vibrato := s.pitchLFO.Sample(sampleRate)
	ampMod := 1.0 + s.ampLFO.Sample(sampleRate)
	filterModOctaves := s.filterLFO.Sample(sampleRate)
	modulatedCutoff := cutoff * math.Pow(2, filterModOctaves)

	var l, r float64
	for _, v := range s.pool.Voices() {
		if !v.Active {
			continue
		}
		mod := sampleVoiceModulators(v, sampleRate)
		voiceCutoff := clampParam(paramdesc.FilterCutoff, modulatedCutoff*math.Pow(2, mod.cutoffOctaves))
		voiceHpf := clampParam(paramdesc.FilterHighpass, hpfCutoff*math.Pow(2, mod.hpfOctaves))
		voiceResonance := clampParam(paramdesc.FilterResonance, resonance+mod.resonanceAdd)
		voiceOscMix := clampParam(paramdesc.OscMix, oscMix+mod.oscMixAdd)

		vl, vr := v.Render(sampleRate, voiceCutoff, voiceResonance, voiceOscMix, 0, vibrato, mod.pitchAddSemi, voiceHpf)
		l += vl * ampMod * mod.gainMul
		r += vr * ampMod * mod.gainMul
	}
	return l * masterGain, r * masterGain
}

// voiceModulation collects one sample's worth of every configured
// modulator on a voice, converted into the units RenderSample's base
// parameters are already expressed in.
type voiceModulation struct {
	pitchAddSemi  float64
	cutoffOctaves float64
	hpfOctaves    float64
	resonanceAdd  float64
	oscMixAdd     float64
	gainMul       float64
}

// sampleVoiceModulators advances every modulator installed on v and folds
// its output into the target it was configured for, per spec.md §4.9 —
// a modulator targeting anything other than voice_tune previously had no
// effect on the render loop at all.
func sampleVoiceModulators(v *voice.Voice, sampleRate float64) voiceModulation {
	mod := voiceModulation{gainMul: 1}
	for id, m := range v.Modulators {
		val := m.Advance(sampleRate, 0)
		switch id {
		case paramdesc.VoiceTune:
			mod.pitchAddSemi += val
		case paramdesc.FilterCutoff:
			mod.cutoffOctaves += val
		case paramdesc.FilterHighpass:
			mod.hpfOctaves += val
		case paramdesc.FilterResonance:
			mod.resonanceAdd += val
		case paramdesc.OscMix:
			mod.oscMixAdd += val
		case paramdesc.MasterGain:
			mod.gainMul *= 1 + val
		}
	}
	return mod
}

// clampParam constrains v to id's catalogue range, leaving it untouched if
// id is somehow unknown rather than panicking on a bad modulator target.
func clampParam(id paramdesc.ID, v float64) float64 {
	if d, ok := paramdesc.Lookup(id); ok {
		return d.Clamp(v)
	}
	return v
}

// SetSendMode implements Engine.
func (s *Subtractive) SetSendMode(mode SendMode) { s.sendMode = mode }

// SendMode implements Engine.
func (s *Subtractive) SendMode() SendMode { return s.sendMode }

// ActiveVoiceCount implements Engine.
func (s *Subtractive) ActiveVoiceCount() int {
	n := 0
	for _, v := range s.pool.Voices() {
		if v.Active {
			n++
		}
	}
	return n
}

// glideSlideDuration returns the configured slide duration, honoring the
// glide*0.5s convention when glideSeconds is non-zero.
func glideSlideDuration(glideSeconds float64) float64 {
	if glideSeconds > 0 {
		return glideSeconds * defaultGlideSlideMultiplier
	}
	return defaultSlideDurationSeconds
}
