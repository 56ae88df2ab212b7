package polysynth

import (
	"github.com/nexlab/polysynth-go/internal/engine"
	"github.com/nexlab/polysynth-go/internal/modulation"
	"github.com/nexlab/polysynth-go/internal/oscillator"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
	"github.com/nexlab/polysynth-go/internal/sendfx"
	"github.com/nexlab/polysynth-go/internal/voice"
)

// EngineKind identifies one of the three synthesis backends a caller can
// select, route, or reconfigure.
type EngineKind = engine.Kind

const (
	Subtractive = engine.Subtractive
	Resonator   = engine.Resonator
	MacroOsc    = engine.MacroOsc
)

// SendBus identifies one of the two send buses an engine's output can be
// routed to.
type SendBus = engine.SendMode

const (
	SendClassical = engine.SendClassical
	SendGranular  = engine.SendGranular
)

// ParamID identifies one automatable parameter.
type ParamID = paramdesc.ID

const (
	MasterGain      = paramdesc.MasterGain
	VoicePan        = paramdesc.VoicePan
	VoiceTune       = paramdesc.VoiceTune
	FilterCutoff    = paramdesc.FilterCutoff
	FilterResonance = paramdesc.FilterResonance
	FilterEnvAmount = paramdesc.FilterEnvAmount
	AmpAttack       = paramdesc.AmpAttack
	AmpDecay        = paramdesc.AmpDecay
	AmpSustain      = paramdesc.AmpSustain
	AmpRelease      = paramdesc.AmpRelease
	FilterAttack    = paramdesc.FilterAttack
	FilterDecay     = paramdesc.FilterDecay
	FilterSustain   = paramdesc.FilterSustain
	FilterRelease   = paramdesc.FilterRelease
	OscMix          = paramdesc.OscMix
	OscDetune       = paramdesc.OscDetune
	GlideTime       = paramdesc.GlideTime
	FilterHighpass  = paramdesc.FilterHighpass
)

// Waveform selects a subtractive-engine oscillator's shape.
type Waveform = oscillator.Waveform

const (
	WaveSaw      = oscillator.Saw
	WaveTriangle = oscillator.Triangle
	WaveSquare   = oscillator.Square
	WaveNoise    = oscillator.Noise
)

// OscillatorParams configures the subtractive engine's two main
// oscillators plus sub/noise mix. Its envelope and filter-envelope-amount
// fields are not used: each trigger takes those values from the parameter
// bus instead.
type OscillatorParams = voice.Params

// ModulatorConfig describes one modulator slot installed via
// (*Engine).ConfigureModulator.
type ModulatorConfig = modulation.Config

// ModulatorShape selects which generator drives a modulator.
type ModulatorShape = modulation.Shape

const (
	ModShapeLFO = modulation.ShapeLFO
	ModShapeRND = modulation.ShapeRND
	ModShapeENV = modulation.ShapeENV
	ModShapeEF  = modulation.ShapeEF
	ModShapeTM  = modulation.ShapeTM
	ModShapeSEQ = modulation.ShapeSEQ
)

// ModulatorReset selects which transport event resets a modulator.
type ModulatorReset = modulation.ResetOn

const (
	ModResetNever        = modulation.ResetNever
	ModResetStepBoundary = modulation.ResetStepBoundary
	ModResetAccent       = modulation.ResetAccent
	ModResetBar          = modulation.ResetBar
)

// ModulatorLFOWaveform selects the waveform for a ShapeLFO/ShapeRND
// modulator.
type ModulatorLFOWaveform = modulation.LFOWaveform

const (
	ModWaveSaw        = modulation.WaveSaw
	ModWaveSquare     = modulation.WaveSquare
	ModWaveTriangle   = modulation.WaveTriangle
	ModWaveRandom     = modulation.WaveRandom
	ModWaveSine       = modulation.WaveSine
	ModWaveSampleHold = modulation.WaveSampleHold
)

// SendEffector is the interface an externally-installed send-bus effect
// must implement: pull the bus's summed tap, return its processed value.
type SendEffector = sendfx.Effector
