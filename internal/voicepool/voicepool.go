// Package voicepool implements the three-tier voice allocator (free,
// releasing, steal) plus mono-mode legato handling (retrigger, slide,
// trill). Voices are addressed by an arena Handle — a slot index plus a
// generation counter — rather than a pointer or an id looked up in a
// slice each time, so a stale handle from an already-stolen voice can be
// detected instead of silently mutating the wrong note.
package voicepool

import (
	"github.com/nexlab/polysynth-go/internal/voice"
)

// Handle addresses one voice slot. Generation changes every time the slot
// is reused (trigger or steal), so a Handle captured before a steal no
// longer matches once Valid is checked.
type Handle struct {
	Index      int
	Generation uint32
}

// Pool owns a fixed-size arena of voices for one engine instance.
type Pool struct {
	voices     []*voice.Voice
	sampleRate float64

	// noteIDs maps the caller-supplied VoiceID (mono keyboard key, or a
	// poly-mode logical note id) to the arena slot currently sounding it,
	// so NoteOff/Slide/Trill addressed by VoiceID can find their voice in
	// O(1) instead of scanning.
	noteIDs map[int]int

	mono          bool
	monoSlot      int
	monoHasVoice  bool
	monoSoundingID int
	monoPitch     float64
}

// New creates a pool of `polyphony` voice slots (subtractive: 8,
// resonator: 1-4, macro-osc: 8, per spec.md's per-engine maximums).
func New(polyphony int, sampleRate float64, mono bool) *Pool {
	p := &Pool{
		sampleRate: sampleRate,
		noteIDs:    make(map[int]int),
		mono:       mono,
	}
	if polyphony < 1 {
		polyphony = 1
	}
	p.voices = make([]*voice.Voice, polyphony)
	for i := range p.voices {
		p.voices[i] = voice.New(i, sampleRate)
	}
	return p
}

// Voices exposes the underlying slot array for the engine's render loop to
// sum. Callers must not retain it across a NoteOn/NoteOff call (slots may
// be retriggered in place).
func (p *Pool) Voices() []*voice.Voice {
	return p.voices
}

// Handle returns the Handle currently addressing voiceID, and whether one
// exists.
func (p *Pool) Handle(voiceID int) (Handle, bool) {
	idx, ok := p.noteIDs[voiceID]
	if !ok {
		return Handle{}, false
	}
	return Handle{Index: idx, Generation: p.voices[idx].Generation}, true
}

// Valid reports whether h still addresses the voice it was issued for
// (i.e. the slot hasn't since been stolen and retriggered for someone
// else).
func (p *Pool) Valid(h Handle) bool {
	if h.Index < 0 || h.Index >= len(p.voices) {
		return false
	}
	return p.voices[h.Index].Generation == h.Generation
}

// Mono reports whether this pool enforces the single-voice legato
// discipline (monoNoteOn) rather than ordinary polyphonic allocation.
func (p *Pool) Mono() bool {
	return p.mono
}

// NoteOn allocates a voice for ev and triggers it with params, returning
// the Handle for later NoteOff/Slide/Trill/Glide addressing. slide,
// trill and glide tell a mono pool that the caller will immediately
// follow up with the matching ramp call (Slide/Trill/Glide) rather than
// wanting an instant retrigger onto the new pitch.
func (p *Pool) NoteOn(voiceID int, pitchMIDI float64, velocity float64, accented bool, params voice.Params, startPhase float64, slide, trill, glide bool) Handle {
	if p.mono {
		return p.monoNoteOn(voiceID, pitchMIDI, velocity, accented, params, startPhase, slide, trill, glide)
	}
	if existingIdx, ok := p.noteIDs[voiceID]; ok {
		v := p.voices[existingIdx]
		if v.Active {
			v.Trigger(pitchMIDI, velocity, accented, params, startPhase)
			return Handle{Index: existingIdx, Generation: v.Generation}
		}
	}
	idx := p.allocate()
	v := p.voices[idx]
	v.Trigger(pitchMIDI, velocity, accented, params, startPhase)
	p.noteIDs[voiceID] = idx
	return Handle{Index: idx, Generation: v.Generation}
}

// monoNoteOn implements the mono-mode legato rules: same pitch retriggers
// in place; a different pitch with slide, trill or glide requested keeps
// the old note sounding so the caller's follow-up ramp call has a
// starting point to ramp from; anything else is a hard retrigger onto
// the new pitch.
func (p *Pool) monoNoteOn(voiceID int, pitchMIDI, velocity float64, accented bool, params voice.Params, startPhase float64, slide, trill, glide bool) Handle {
	v := p.voices[p.monoSlot]
	if !p.monoHasVoice || !v.Active {
		v.Trigger(pitchMIDI, velocity, accented, params, startPhase)
		p.monoHasVoice = true
		p.monoSoundingID = voiceID
		p.monoPitch = pitchMIDI
		p.noteIDs[voiceID] = p.monoSlot
		return Handle{Index: p.monoSlot, Generation: v.Generation}
	}
	if pitchMIDI == p.monoPitch {
		// Retrigger in place, no new voice allocation.
		v.Trigger(pitchMIDI, velocity, accented, params, startPhase)
		p.monoSoundingID = voiceID
		p.noteIDs[voiceID] = p.monoSlot
		return Handle{Index: p.monoSlot, Generation: v.Generation}
	}
	p.monoPitch = pitchMIDI
	p.monoSoundingID = voiceID
	p.noteIDs[voiceID] = p.monoSlot
	if !slide && !trill && !glide {
		v.Trigger(pitchMIDI, velocity, accented, params, startPhase)
	}
	return Handle{Index: p.monoSlot, Generation: v.Generation}
}

// Glide schedules a mono-mode portamento ramp to a new pitch on the
// currently sounding mono voice.
func (p *Pool) Glide(voiceID int, toPitchMIDI float64, durationSamples int64) {
	idx, ok := p.noteIDs[voiceID]
	if !ok {
		return
	}
	p.voices[idx].Glide(toPitchMIDI, durationSamples)
	if p.mono {
		p.monoPitch = toPitchMIDI
	}
}

// Slide transfers the sounding voice to a new pitch with a legato ramp
// (80ms default, or glide*0.5s in glide mode — durationSamples already
// encodes the caller's chosen duration).
func (p *Pool) Slide(voiceID int, toPitchMIDI float64, durationSamples int64) {
	idx, ok := p.noteIDs[voiceID]
	if !ok {
		return
	}
	p.voices[idx].Slide(toPitchMIDI, durationSamples)
	if p.mono {
		p.monoPitch = toPitchMIDI
	}
}

// Trill schedules a trill gesture on the sounding voice, overriding any
// in-flight slide.
func (p *Pool) Trill(voiceID int, basePitchMIDI, neighborPitchMIDI, finalPitchMIDI float64, stepDurationSamples int64) {
	idx, ok := p.noteIDs[voiceID]
	if !ok {
		return
	}
	p.voices[idx].Trill(basePitchMIDI, neighborPitchMIDI, finalPitchMIDI, stepDurationSamples)
	if p.mono {
		p.monoPitch = finalPitchMIDI
	}
}

// NoteOff releases the voice addressed by voiceID, if any.
func (p *Pool) NoteOff(voiceID int) {
	idx, ok := p.noteIDs[voiceID]
	if !ok {
		return
	}
	p.voices[idx].Release()
	delete(p.noteIDs, voiceID)
	if p.mono && p.monoSoundingID == voiceID {
		p.monoHasVoice = false
	}
}

// AllNotesOff sends every currently sounding voice into fast release.
func (p *Pool) AllNotesOff() {
	for _, v := range p.voices {
		if v.Active {
			v.FastRelease()
		}
	}
	p.noteIDs = make(map[int]int)
	p.monoHasVoice = false
}

// allocate implements the three-tier preference: free, then oldest
// releasing, then steal the oldest active voice (which is given a fast
// release before being retriggered on the new note).
func (p *Pool) allocate() int {
	for i, v := range p.voices {
		if v.Idle() {
			v.Deactivate()
		}
		if !v.Active {
			return i
		}
	}

	oldestReleasingIdx, oldestReleasingAge := -1, int64(-1)
	for i, v := range p.voices {
		if v.CurrentArticulationState() == voice.Releasing && v.AgeSamples > oldestReleasingAge {
			oldestReleasingIdx = i
			oldestReleasingAge = v.AgeSamples
		}
	}
	if oldestReleasingIdx >= 0 {
		return oldestReleasingIdx
	}

	oldestIdx, oldestAge := 0, int64(-1)
	for i, v := range p.voices {
		if v.AgeSamples > oldestAge {
			oldestIdx = i
			oldestAge = v.AgeSamples
		}
	}
	p.voices[oldestIdx].FastRelease()
	return oldestIdx
}
