// Package note defines the note-event value object consumed by the
// scheduler and voice pool. Note events are produced by an external
// sequencer or MIDI layer (out of scope here, see spec.md §1) and are
// consumed exactly once by the voice pool.
package note

import "math"

// Event is a value object describing a single note-on request. The
// scheduler and voice pool never mutate an Event after it is enqueued.
type Event struct {
	VoiceID       int // caller-supplied handle used to address note-off / slide / trill
	PitchMIDI     int // 0-127
	Velocity      float64
	Accent        bool
	Slide         bool
	Trill         bool
	TriggerSample int64 // sample index at which this event should take effect
	ArrivalOrder  int64 // monotonically increasing enqueue sequence, for stable ordering
}

// OffEvent addresses a note-off by VoiceID (caller-assigned handle) at a
// given sample.
type OffEvent struct {
	VoiceID       int
	TriggerSample int64
	ArrivalOrder  int64
}

// MIDIToFreq converts a MIDI note number (possibly fractional, to allow
// detune/drift arithmetic before conversion) to a frequency in Hz using
// A4 = MIDI 69 = 440 Hz equal temperament.
func MIDIToFreq(pitch float64) float64 {
	return 440.0 * math.Pow(2, (pitch-69.0)/12.0)
}

// ValidPitch reports whether a MIDI pitch lies in the valid 0-127 range
// (spec.md §7: invalid note events are dropped with a counter increment).
func ValidPitch(pitch int) bool {
	return pitch >= 0 && pitch <= 127
}
