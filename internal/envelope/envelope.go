// Package envelope implements the five-stage (plus retrigger-fade) ADSR
// state machine shared by a voice's amplitude and filter envelope slots.
package envelope

import "math"

// Stage identifies which segment of the envelope is currently running.
type Stage int

const (
	Idle Stage = iota
	RetriggerFade
	Attack
	Decay
	Sustain
	Release
)

// Kind distinguishes the amplitude envelope's release time constant
// (release_s/4) from the filter envelope's (release_s/5, floored at 10ms),
// per the divisor spec.md's release tail calls for.
type Kind int

const (
	Amplitude Kind = iota
	Filter
)

const retriggerFadeSeconds = 0.002 // 2ms linear fade-to-zero before a retrigger's attack
const shortReleaseThreshold = 0.002 // releases at or below this use a linear ramp, not exponential
const shortReleaseRampSeconds = 0.005
const accentOvershootSeconds = 0.003
const accentOvershootFraction = 0.10 // +10% peak during attack when accented
const minFilterReleaseSeconds = 0.010

// Envelope is a single ADSR+retrigger-fade generator. It is owned
// exclusively by the audio thread; trigger/release/tick are never called
// concurrently.
type Envelope struct {
	kind       Kind
	sampleRate float64

	stage Stage
	level float64

	// attack/decay/sustain parameters latched at trigger time
	attackSamples   int64
	decaySamples    int64
	sustainLevel    float64
	accented        bool
	overshootSample int64 // sample count within attack during which overshoot applies
	peak            float64

	stageSample int64 // samples elapsed within the current stage

	// retrigger fade bookkeeping
	fadeFromLevel float64
	fadeSamples   int64
	pending       pendingTrigger
	hasPending    bool

	// release bookkeeping, snapshotted at the moment release() is called
	releaseFrom    float64
	releaseTau     float64 // exponential time constant in samples
	releaseLinear  bool
	releaseSamples int64 // only used for the linear short-release ramp
}

type pendingTrigger struct {
	attackSec, decaySec, sustainLevel float64
	accented                          bool
}

// New creates an envelope of the given kind for a fixed sample rate.
func New(kind Kind, sampleRate float64) *Envelope {
	return &Envelope{kind: kind, sampleRate: sampleRate, stage: Idle}
}

// Level returns the current output level without advancing the envelope.
func (e *Envelope) Level() float64 {
	return e.level
}

// CurrentStage returns the envelope's current stage.
func (e *Envelope) CurrentStage() Stage {
	return e.stage
}

// Trigger starts (or restarts) the envelope. If the envelope's level is
// already above 0.01 this is a retrigger: the envelope first fades
// linearly to zero over 2ms, then begins the attack with the new
// parameters. accented halves the decay time and adds a 3ms, +10% peak
// overshoot during attack.
func (e *Envelope) Trigger(attackSec, decaySec, sustainLevel float64, accented bool) {
	if e.level > 0.01 {
		e.pending = pendingTrigger{attackSec, decaySec, sustainLevel, accented}
		e.hasPending = true
		e.stage = RetriggerFade
		e.fadeFromLevel = e.level
		e.fadeSamples = 0
		e.stageSample = 0
		return
	}
	e.startAttack(attackSec, decaySec, sustainLevel, accented)
}

func (e *Envelope) startAttack(attackSec, decaySec, sustainLevel float64, accented bool) {
	e.hasPending = false
	e.accented = accented
	e.sustainLevel = sustainLevel
	if accented {
		decaySec *= 0.5
	}
	e.decaySamples = secondsToSamples(decaySec, e.sampleRate)
	e.peak = 1.0
	if accented {
		e.peak = 1.0 + accentOvershootFraction
		e.overshootSample = secondsToSamples(accentOvershootSeconds, e.sampleRate)
	} else {
		e.overshootSample = 0
	}
	e.stageSample = 0

	if attackSec <= 0.001 {
		// attack <= 1ms: skip the ramp entirely.
		e.attackSamples = 0
		e.level = e.peak
		e.stage = Decay
		return
	}
	e.attackSamples = secondsToSamples(attackSec, e.sampleRate)
	e.stage = Attack
}

// Release snapshots the current level and requested release time; later
// changes to the release parameter do not affect an in-flight release.
func (e *Envelope) Release(releaseSec float64) {
	divisor := 4.0
	if e.kind == Filter {
		divisor = 5.0
		if releaseSec < minFilterReleaseSeconds {
			releaseSec = minFilterReleaseSeconds
		}
	}
	e.releaseFrom = e.level
	e.stage = Release
	e.stageSample = 0
	if releaseSec <= shortReleaseThreshold {
		e.releaseLinear = true
		e.releaseSamples = secondsToSamples(shortReleaseRampSeconds, e.sampleRate)
		return
	}
	e.releaseLinear = false
	e.releaseTau = float64(secondsToSamples(releaseSec/divisor, e.sampleRate))
	if e.releaseTau < 1 {
		e.releaseTau = 1
	}
}

// Tick advances the envelope by one sample and returns the new level.
func (e *Envelope) Tick() float64 {
	switch e.stage {
	case Idle:
		e.level = 0
	case RetriggerFade:
		e.stageSample++
		n := secondsToSamples(retriggerFadeSeconds, e.sampleRate)
		if n <= 0 {
			n = 1
		}
		frac := float64(e.stageSample) / float64(n)
		if frac >= 1 {
			e.level = 0
			if e.hasPending {
				e.startAttack(e.pending.attackSec, e.pending.decaySec, e.pending.sustainLevel, e.pending.accented)
			} else {
				e.stage = Idle
			}
		} else {
			e.level = e.fadeFromLevel * (1 - frac)
		}
	case Attack:
		e.stageSample++
		var base float64
		if e.attackSamples <= 0 {
			base = e.peak
		} else {
			frac := float64(e.stageSample) / float64(e.attackSamples)
			if frac > 1 {
				frac = 1
			}
			base = frac
		}
		e.level = base
		if e.accented && e.stageSample <= e.overshootSample {
			e.level = base * e.peak
		}
		if e.stageSample >= e.attackSamples {
			e.level = e.peak
			e.stage = Decay
			e.stageSample = 0
		}
	case Decay:
		e.stageSample++
		if e.decaySamples <= 0 {
			e.level = e.sustainLevel
			e.stage = Sustain
			e.stageSample = 0
		} else {
			frac := float64(e.stageSample) / float64(e.decaySamples)
			if frac >= 1 {
				e.level = e.sustainLevel
				e.stage = Sustain
				e.stageSample = 0
			} else {
				e.level = 1.0 + (e.sustainLevel-1.0)*frac
			}
		}
	case Sustain:
		e.level = e.sustainLevel
	case Release:
		e.stageSample++
		if e.releaseLinear {
			frac := float64(e.stageSample) / float64(e.releaseSamples)
			if frac >= 1 {
				e.level = 0
				e.stage = Idle
			} else {
				e.level = e.releaseFrom * (1 - frac)
			}
		} else {
			e.level = e.releaseFrom * math.Exp(-float64(e.stageSample)/e.releaseTau)
			if e.level < 0.0005 {
				e.level = 0
				e.stage = Idle
			}
		}
	}
	return e.level
}

// Active reports whether the envelope has not yet returned to idle.
func (e *Envelope) Active() bool {
	return e.stage != Idle
}

func secondsToSamples(sec, sampleRate float64) int64 {
	if sec <= 0 {
		return 0
	}
	return int64(sec*sampleRate + 0.5)
}
