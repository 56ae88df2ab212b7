// Package paramdesc holds the process-wide, immutable catalogue of
// automatable and modulatable parameters. It exists so the control thread,
// the parameter bus, and the modulation matrix all address a parameter by
// the same stable integer ID instead of a string.
package paramdesc

// ID identifies one automatable parameter slot.
type ID int

// Parameter IDs. The numeric values are part of the wire contract between
// the control thread and the audio thread (they are stored in the
// parameter bus ring), so new IDs are appended, never inserted.
const (
	MasterGain ID = iota
	VoicePan
	VoiceTune
	FilterCutoff
	FilterResonance
	FilterEnvAmount
	AmpAttack
	AmpDecay
	AmpSustain
	AmpRelease
	FilterAttack
	FilterDecay
	FilterSustain
	FilterRelease
	OscMix
	OscDetune
	GlideTime
	FilterHighpass
	count
)

// Descriptor describes one parameter's range, default, and whether the
// modulation matrix may target it.
type Descriptor struct {
	ID           ID
	Name         string
	Min, Max     float64
	Default      float64
	Modulatable  bool
	SmoothSecond float64 // one-pole smoothing time constant applied on the audio thread
}

// catalogue is the static, process-wide parameter table. It is built once
// at init and never mutated, so concurrent reads from either thread are
// race-free without synchronization.
var catalogue = [count]Descriptor{
	MasterGain:      {MasterGain, "master_gain", 0, 1.5, 0.8, true, 0.015},
	VoicePan:        {VoicePan, "voice_pan", -1, 1, 0, true, 0.015},
	VoiceTune:       {VoiceTune, "voice_tune", -24, 24, 0, true, 0.015},
	FilterCutoff:    {FilterCutoff, "filter_cutoff", 20, 18000, 2000, true, 0.015},
	FilterResonance: {FilterResonance, "filter_resonance", 0, 1, 0.2, true, 0.015},
	FilterEnvAmount: {FilterEnvAmount, "filter_env_amount", -1, 1, 0.5, true, 0.015},
	AmpAttack:       {AmpAttack, "amp_attack", 0.0001, 10, 0.005, false, 0},
	AmpDecay:        {AmpDecay, "amp_decay", 0.0001, 10, 0.1, false, 0},
	AmpSustain:      {AmpSustain, "amp_sustain", 0, 1, 0.7, false, 0},
	AmpRelease:      {AmpRelease, "amp_release", 0.0001, 10, 0.2, false, 0},
	FilterAttack:    {FilterAttack, "filter_attack", 0.0001, 10, 0.01, false, 0},
	FilterDecay:     {FilterDecay, "filter_decay", 0.0001, 10, 0.2, false, 0},
	FilterSustain:   {FilterSustain, "filter_sustain", 0, 1, 0.3, false, 0},
	FilterRelease:   {FilterRelease, "filter_release", 0.0001, 10, 0.3, false, 0},
	OscMix:          {OscMix, "osc_mix", 0, 1, 0.5, true, 0.015},
	OscDetune:       {OscDetune, "osc_detune", -50, 50, 0, true, 0.015},
	GlideTime:       {GlideTime, "glide_time", 0, 5, 0.08, false, 0},
	FilterHighpass:  {FilterHighpass, "filter_highpass", 20, 2000, 20, true, 0.015},
}

// Lookup returns the descriptor for id and whether id is known.
func Lookup(id ID) (Descriptor, bool) {
	if id < 0 || int(id) >= len(catalogue) {
		return Descriptor{}, false
	}
	return catalogue[id], true
}

// Count returns the number of registered parameter IDs.
func Count() int {
	return int(count)
}

// Clamp constrains v to the descriptor's [Min, Max] range.
func (d Descriptor) Clamp(v float64) float64 {
	if v < d.Min {
		return d.Min
	}
	if v > d.Max {
		return d.Max
	}
	return v
}
