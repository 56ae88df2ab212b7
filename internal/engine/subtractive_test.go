package engine

import (
	"math"
	"testing"

	"github.com/nexlab/polysynth-go/internal/modulation"
	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/parambus"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
	"github.com/nexlab/polysynth-go/internal/voice"
)

func newTestSubtractive(mono bool) (*Subtractive, *parambus.Bus) {
	bus := parambus.New()
	return NewSubtractive(bus, 48000, mono), bus
}

func TestSubtractiveTriggerProducesSound(t *testing.T) {
	s, _ := newTestSubtractive(false)
	s.Trigger(note.Event{VoiceID: 1, PitchMIDI: 60, Velocity: 0.8})

	sawNonZero := false
	for i := 0; i < 200; i++ {
		l, r := s.RenderSample(48000)
		if math.IsNaN(l) || math.IsNaN(r) {
			t.Fatalf("subtractive output diverged at sample %d: %f %f", i, l, r)
		}
		if l != 0 || r != 0 {
			sawNonZero = true
		}
	}
	if !sawNonZero {
		t.Errorf("triggered voice should produce nonzero output")
	}
}

func TestModulatorOnFilterCutoffAffectsRenderedOutput(t *testing.T) {
	without, _ := newTestSubtractive(false)
	without.Trigger(note.Event{VoiceID: 1, PitchMIDI: 36, Velocity: 1.0})

	withMod, _ := newTestSubtractive(false)
	withMod.SetModulatorTemplate(paramdesc.FilterCutoff, modulation.Config{
		Shape: modulation.ShapeLFO, RateHz: 5, Depth: 3, Waveform: modulation.WaveSine,
	})
	withMod.Trigger(note.Event{VoiceID: 1, PitchMIDI: 36, Velocity: 1.0})

	var sumDiff float64
	for i := 0; i < 2000; i++ {
		l1, r1 := without.RenderSample(48000)
		l2, r2 := withMod.RenderSample(48000)
		sumDiff += math.Abs(l1-l2) + math.Abs(r1-r2)
	}
	if sumDiff == 0 {
		t.Errorf("a filter_cutoff modulator should change the rendered signal versus an unmodulated voice")
	}
}

func TestMonoLegatoDifferentPitchWithNoGlideHardRetriggers(t *testing.T) {
	s, bus := newTestSubtractive(true)
	bus.PushImmediate(paramdesc.GlideTime, 0)
	bus.Drain()

	s.Trigger(note.Event{VoiceID: 1, PitchMIDI: 60, Velocity: 1.0})
	for i := 0; i < 500; i++ {
		s.RenderSample(48000)
	}
	s.Trigger(note.Event{VoiceID: 2, PitchMIDI: 72, Velocity: 1.0})

	active := 0
	var state voice.State
	for _, v := range s.pool.Voices() {
		if v.Active {
			active++
			state = v.CurrentArticulationState()
		}
	}
	if active != 1 {
		t.Fatalf("mono pool should keep exactly one active voice, got %d", active)
	}
	if state != voice.Steady {
		t.Errorf("a plain mono legato note with glide_time=0 should hard-retrigger to Steady, got state %v", state)
	}
}

func TestMonoLegatoWithDefaultGlideTimeGlidesInsteadOfDropping(t *testing.T) {
	// glide_time defaults to 0.08s (nonzero), so a mono pool should glide
	// onto the new pitch rather than hard-retrigger or silently drop it.
	s, _ := newTestSubtractive(true)

	s.Trigger(note.Event{VoiceID: 1, PitchMIDI: 60, Velocity: 1.0})
	for i := 0; i < 500; i++ {
		s.RenderSample(48000)
	}
	s.Trigger(note.Event{VoiceID: 2, PitchMIDI: 72, Velocity: 1.0})

	var state voice.State
	for _, v := range s.pool.Voices() {
		if v.Active {
			state = v.CurrentArticulationState()
		}
	}
	if state != voice.Gliding {
		t.Errorf("a mono legato note with a nonzero glide_time should be Gliding right after trigger, got state %v", state)
	}

	sawNonZero := false
	for i := 0; i < 2000; i++ {
		l, r := s.RenderSample(48000)
		if l != 0 || r != 0 {
			sawNonZero = true
		}
	}
	if !sawNonZero {
		t.Errorf("a gliding mono note should still render audible output, not silence")
	}
}
