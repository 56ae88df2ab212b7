package voicepool

import (
	"testing"

	"github.com/nexlab/polysynth-go/internal/oscillator"
	"github.com/nexlab/polysynth-go/internal/voice"
)

func testParams() voice.Params {
	return voice.Params{
		OscAWave: oscillator.Saw, OscBWave: oscillator.Square,
		OscALevel: 0.7, OscBLevel: 0.3,
		AmpAttackSec: 0.001, AmpDecaySec: 0.05, AmpSustain: 0.6, AmpReleaseSec: 0.1,
		FilterAttackSec: 0.001, FilterDecaySec: 0.05, FilterSustain: 0.5, FilterReleaseSec: 0.1,
		FilterEnvAmountSemi: 24,
	}
}

func TestNoteOnAllocatesDistinctVoices(t *testing.T) {
	p := New(4, 48000, false)
	h1 := p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	h2 := p.NoteOn(2, 64, 0.8, false, testParams(), 0, false, false, false)
	if h1.Index == h2.Index {
		t.Errorf("two distinct note IDs should get distinct voice slots")
	}
}

func TestPolyphonyLimitSteals(t *testing.T) {
	p := New(2, 48000, false)
	p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	p.NoteOn(2, 64, 0.8, false, testParams(), 0, false, false, false)
	h3 := p.NoteOn(3, 67, 0.8, false, testParams(), 0, false, false, false) // should steal one of the two
	if !p.Valid(h3) {
		t.Errorf("stolen voice handle should be valid immediately after steal")
	}
	active := 0
	for _, v := range p.Voices() {
		if v.Active {
			active++
		}
	}
	if active > 2 {
		t.Errorf("active voice count should stay within polyphony limit: got %d", active)
	}
}

func TestNoteOffReleasesVoice(t *testing.T) {
	p := New(2, 48000, false)
	p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	p.NoteOff(1)
	for _, v := range p.Voices() {
		if v.Active && v.CurrentArticulationState() != voice.Releasing {
			t.Errorf("voice should be in Releasing state after NoteOff")
		}
	}
}

func TestAllNotesOffReleasesEverything(t *testing.T) {
	p := New(4, 48000, false)
	p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	p.NoteOn(2, 64, 0.8, false, testParams(), 0, false, false, false)
	p.AllNotesOff()
	for _, v := range p.Voices() {
		if v.Active && v.CurrentArticulationState() != voice.Releasing {
			t.Errorf("all voices should be releasing after AllNotesOff")
		}
	}
}

func TestMonoSamePitchRetriggersInPlace(t *testing.T) {
	p := New(1, 48000, true)
	h1 := p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	h2 := p.NoteOn(2, 60, 0.9, false, testParams(), 0, false, false, false) // same pitch
	if h1.Index != h2.Index {
		t.Errorf("mono same-pitch retrigger should reuse the same slot")
	}
}

func TestMonoDifferentPitchReusesSlot(t *testing.T) {
	p := New(1, 48000, true)
	h1 := p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	h2 := p.NoteOn(2, 67, 0.8, false, testParams(), 0, false, false, false)
	if h1.Index != h2.Index {
		t.Errorf("mono mode should always reuse its single slot")
	}
}

func TestMonoDifferentPitchWithoutRampHardRetriggers(t *testing.T) {
	p := New(1, 48000, true)
	p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	h2 := p.NoteOn(2, 67, 0.8, false, testParams(), 0, false, false, false)
	v := p.Voices()[h2.Index]
	if state := v.CurrentArticulationState(); state != voice.Steady {
		t.Errorf("a plain mono legato note with no slide/trill/glide should hard-retrigger to Steady, got state %v", state)
	}
}

func TestMonoGlideRequestLeavesOldNoteSoundingForGlide(t *testing.T) {
	p := New(1, 48000, true)
	p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	h2 := p.NoteOn(2, 67, 0.8, false, testParams(), 0, false, false, true) // glide requested
	p.Glide(2, 67, 4000)
	v := p.Voices()[h2.Index]
	if state := v.CurrentArticulationState(); state != voice.Gliding {
		t.Errorf("requesting glide should leave the voice ramping (Gliding), got state %v", state)
	}
}

func TestInvalidHandleAfterSteal(t *testing.T) {
	p := New(1, 48000, false)
	h1 := p.NoteOn(1, 60, 0.8, false, testParams(), 0, false, false, false)
	p.NoteOn(2, 64, 0.8, false, testParams(), 0, false, false, false) // steals the only slot
	if p.Valid(h1) {
		t.Errorf("handle from a stolen voice should no longer be valid")
	}
}
