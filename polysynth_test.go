package polysynth

import "testing"

func TestNewRejectsNonPositiveSampleRate(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("New(0) should return an error")
	}
	if _, err := New(-48000); err == nil {
		t.Fatalf("New(-48000) should return an error")
	}
}

func TestNoteOnThenRenderProducesSound(t *testing.T) {
	eng, err := New(48000)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := eng.NoteOn(1, 60, 0.9, false, false, false, 0); err != nil {
		t.Fatalf("note on: %v", err)
	}

	outL := make([]float32, 256)
	outR := make([]float32, 256)
	eng.Render(outL, outR)

	var peak float32
	for i := range outL {
		if outL[i] > peak {
			peak = outL[i]
		}
		if -outL[i] > peak {
			peak = -outL[i]
		}
	}
	if peak == 0 {
		t.Fatalf("expected nonzero output after note on, got silence")
	}
}

func TestNoteOnWithInvalidPitchIsDroppedNotErrored(t *testing.T) {
	eng, _ := New(48000)
	if err := eng.NoteOn(1, 200, 0.9, false, false, false, 0); err != nil {
		t.Fatalf("invalid pitch should be dropped silently, got error: %v", err)
	}
	if got := eng.DroppedEvents(); got != 1 {
		t.Fatalf("dropped event counter = %d, want 1", got)
	}
}

func TestSetParameterRejectsUnknownID(t *testing.T) {
	eng, _ := New(48000)
	if err := eng.SetParameter(ParamID(9999), 0.5); err != ErrUnknownParameter {
		t.Fatalf("got %v, want ErrUnknownParameter", err)
	}
}

func TestSetParameterRejectsOutOfRangeValue(t *testing.T) {
	eng, _ := New(48000)
	if err := eng.SetParameter(FilterResonance, 5.0); err != ErrInvalidParameterRange {
		t.Fatalf("got %v, want ErrInvalidParameterRange", err)
	}
}

func TestAllNotesOffEventuallySilencesOutput(t *testing.T) {
	eng, _ := New(48000)
	eng.NoteOn(1, 60, 0.9, false, false, false, 0)

	warm := make([]float32, 64)
	eng.Render(warm, make([]float32, 64))

	eng.AllNotesOff()

	// Fast release still has a short tail; render well past it.
	for i := 0; i < 50; i++ {
		eng.Render(make([]float32, 512), make([]float32, 512))
	}

	outL := make([]float32, 256)
	outR := make([]float32, 256)
	eng.Render(outL, outR)
	for i := range outL {
		if outL[i] != 0 || outR[i] != 0 {
			t.Fatalf("expected silence long after all notes off, got nonzero at sample %d", i)
		}
	}
}

func TestSelectEngineRoutesTriggerToChosenBackend(t *testing.T) {
	eng, _ := New(48000)
	eng.SelectEngine(MacroOsc)
	if err := eng.NoteOn(1, 60, 0.9, false, false, false, 0); err != nil {
		t.Fatalf("note on: %v", err)
	}

	outL := make([]float32, 256)
	outR := make([]float32, 256)
	eng.Render(outL, outR)

	var peak float32
	for i := range outL {
		if outL[i] > peak || -outL[i] > peak {
			peak = outL[i]
		}
	}
	if peak == 0 {
		t.Fatalf("expected macro-osc engine to produce sound when selected")
	}
}

type passthroughEffect struct{}

func (passthroughEffect) Process(l, r float32) (float32, float32) { return l * 2, r * 2 }
func (passthroughEffect) Reset()                                  {}

func TestSendBusEffectContributesToMasterOutput(t *testing.T) {
	eng, _ := New(48000)
	eng.SetFXRoute(Subtractive, SendClassical)
	eng.SetSendBusEffect(SendClassical, passthroughEffect{})
	eng.SetSendGain(SendClassical, 1.0)
	eng.SetReturnGain(SendClassical, 1.0)

	eng.NoteOn(1, 60, 0.9, false, false, false, 0)

	outL := make([]float32, 256)
	outR := make([]float32, 256)
	eng.Render(outL, outR)

	var peak float32
	for i := range outL {
		if outL[i] > peak || -outL[i] > peak {
			peak = outL[i]
		}
	}
	if peak == 0 {
		t.Fatalf("expected amplified output with a send effect doubling the bus signal")
	}
}

func TestSetPolyphonyModeClampsResonatorVoiceCount(t *testing.T) {
	eng, _ := New(48000)
	eng.SetPolyphonyMode(Resonator, false, 99)
	eng.SelectEngine(Resonator)
	for i := 0; i < 6; i++ {
		eng.NoteOn(i, 48+i, 0.9, false, false, false, 0)
	}
	outL := make([]float32, 16)
	outR := make([]float32, 16)
	eng.Render(outL, outR)
	if eng.resonator.ActiveVoiceCount() > 4 {
		t.Fatalf("resonator polyphony should cap at 4, got %d active voices", eng.resonator.ActiveVoiceCount())
	}
}
