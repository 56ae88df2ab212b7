package voice

import "math"

// State is the per-voice articulation sub-state-machine. It runs alongside
// (but independent of) the amplitude/filter envelope stage.
type State int

const (
	Steady State = iota
	Gliding
	Sliding
	Trilling
	Releasing
)

const defaultSlideSeconds = 0.080

// segment is one hold-then-exponential-ramp leg of a scheduled pitch
// transition, expressed in absolute semitone pitch.
type segment struct {
	fromSemi, toSemi float64
	holdSamples      int64
	rampSamples      int64
	tau              float64 // exponential time constant, in samples
}

// Articulation tracks the currently sounding pitch, including any
// in-flight glide/slide/trill ramp. It is owned by a single voice and
// advanced from the audio thread only, one sample at a time.
type Articulation struct {
	state State

	steadyPitch float64 // authoritative pitch once no ramp is active

	segments         []segment
	segIndex         int
	samplesInSegment int64
	finalTrillTarget float64
}

// NewArticulation creates an articulation state machine parked in Steady at
// the given starting pitch (absolute semitones, e.g. MIDI note number).
func NewArticulation(startPitch float64) *Articulation {
	return &Articulation{state: Steady, steadyPitch: startPitch}
}

// CurrentState reports the active articulation state.
func (a *Articulation) CurrentState() State {
	return a.state
}

// Pitch returns the current absolute semitone pitch without advancing.
func (a *Articulation) Pitch() float64 {
	if len(a.segments) == 0 {
		return a.steadyPitch
	}
	return a.currentSegmentValue()
}

// StartGlide schedules a mono-mode portamento ramp from the currently
// sounding pitch to toSemi over durationSamples, canceling any ramp
// already in flight.
func (a *Articulation) StartGlide(toSemi float64, durationSamples int64) {
	a.scheduleSingleRamp(Gliding, a.Pitch(), toSemi, durationSamples)
}

// StartSlide schedules a legato slide ramp from the currently sounding
// pitch to toSemi. durationSamples should already encode the 80ms default
// or glide*0.5s convention the caller chose.
func (a *Articulation) StartSlide(toSemi float64, durationSamples int64) {
	a.scheduleSingleRamp(Sliding, a.Pitch(), toSemi, durationSamples)
}

func (a *Articulation) scheduleSingleRamp(state State, fromSemi, toSemi float64, durationSamples int64) {
	a.cancelRamps()
	if durationSamples <= 0 {
		a.state = Steady
		a.steadyPitch = toSemi
		return
	}
	a.state = state
	a.segments = []segment{{
		fromSemi:    fromSemi,
		toSemi:      toSemi,
		holdSamples: 0,
		rampSamples: durationSamples,
		tau:         float64(durationSamples) / 3,
	}}
	a.segIndex = 0
	a.samplesInSegment = 0
}

// StartTrill schedules a rectangular-wave trill: hold at base, ramp to
// neighborSemi, hold, ramp back to base, hold, ramp to finalTargetSemi —
// three equal segments, each 25% hold followed by a 70% ramp (the
// remaining 5% is absorbed as extra hold once the ramp settles).
// stepDurationSamples is the duration of the whole trill gesture.
func (a *Articulation) StartTrill(baseSemi, neighborSemi, finalTargetSemi float64, stepDurationSamples int64) {
	a.cancelRamps()
	a.state = Trilling
	a.finalTrillTarget = finalTargetSemi
	if stepDurationSamples <= 0 {
		a.state = Steady
		a.steadyPitch = finalTargetSemi
		return
	}
	segLen := stepDurationSamples / 3
	hold := int64(float64(segLen) * 0.25)
	ramp := int64(float64(segLen) * 0.70)
	settle := segLen - hold - ramp
	a.segments = nil
	for _, leg := range [][2]float64{{baseSemi, neighborSemi}, {neighborSemi, baseSemi}, {baseSemi, finalTargetSemi}} {
		a.segments = append(a.segments,
			segment{fromSemi: leg[0], toSemi: leg[1], holdSamples: hold, rampSamples: ramp, tau: float64(ramp) / 3},
			segment{fromSemi: leg[1], toSemi: leg[1], holdSamples: settle})
	}
	a.segIndex = 0
	a.samplesInSegment = 0
}

// Release cancels any in-flight trill/slide/glide ramp, restoring the
// authoritative (un-ramped) pitch — the note's true target, not wherever
// the cosmetic ramp happened to be — then enters Releasing.
func (a *Articulation) Release() {
	if len(a.segments) > 0 {
		last := a.segments[len(a.segments)-1]
		a.steadyPitch = last.toSemi
		if a.state == Trilling {
			a.steadyPitch = a.finalTrillTarget
		}
	}
	a.segments = nil
	a.segIndex = 0
	a.samplesInSegment = 0
	a.state = Releasing
}

// Retrigger returns the state machine to Steady at the given pitch,
// canceling any ramp, for use when a new note-on reuses this slot.
func (a *Articulation) Retrigger(pitch float64) {
	a.cancelRamps()
	a.state = Steady
	a.steadyPitch = pitch
}

func (a *Articulation) cancelRamps() {
	if len(a.segments) > 0 {
		a.steadyPitch = a.Pitch()
	}
	a.segments = nil
	a.segIndex = 0
	a.samplesInSegment = 0
}

// Tick advances the articulation state by one sample and returns the
// resulting absolute semitone pitch.
func (a *Articulation) Tick() float64 {
	if len(a.segments) == 0 {
		return a.steadyPitch
	}
	val := a.currentSegmentValue()
	a.samplesInSegment++

	seg := a.segments[a.segIndex]
	if a.samplesInSegment >= seg.holdSamples+seg.rampSamples {
		a.segIndex++
		a.samplesInSegment = 0
		if a.segIndex >= len(a.segments) {
			// Deadline expiry: force the authoritative pitch to the final
			// target exactly, correcting any drift in the exponential
			// approach.
			a.steadyPitch = seg.toSemi
			a.segments = nil
			a.segIndex = 0
			if a.state == Trilling {
				a.steadyPitch = a.finalTrillTarget
			}
			if a.state != Releasing {
				a.state = Steady
			}
			return a.steadyPitch
		}
	}
	return val
}

func (a *Articulation) currentSegmentValue() float64 {
	seg := a.segments[a.segIndex]
	if a.samplesInSegment < seg.holdSamples {
		return seg.fromSemi
	}
	rampElapsed := a.samplesInSegment - seg.holdSamples
	if rampElapsed >= seg.rampSamples {
		return seg.toSemi
	}
	tau := seg.tau
	if tau <= 0 {
		return seg.toSemi
	}
	return seg.toSemi + (seg.fromSemi-seg.toSemi)*math.Exp(-float64(rampElapsed)/tau)
}
