package parambus

import (
	"math"
	"testing"

	"github.com/nexlab/polysynth-go/internal/paramdesc"
)

func TestNewUsesCatalogueDefaults(t *testing.T) {
	b := New()
	d, _ := paramdesc.Lookup(paramdesc.FilterCutoff)
	if got := b.Current(paramdesc.FilterCutoff); got != d.Default {
		t.Errorf("FilterCutoff default: got %f, want %f", got, d.Default)
	}
}

func TestPushClampsToRange(t *testing.T) {
	b := New()
	b.Push(paramdesc.FilterResonance, 5.0) // max is 1
	b.Drain()
	if got := b.Target(paramdesc.FilterResonance); got != 1.0 {
		t.Errorf("clamped target: got %f, want 1.0", got)
	}
}

func TestAdvanceSmoothsTowardTarget(t *testing.T) {
	b := New()
	b.Push(paramdesc.MasterGain, 1.0)
	b.Drain()

	sr := 48000.0
	var v float64
	for i := 0; i < int(sr); i++ { // one full second, should fully settle
		v = b.Advance(paramdesc.MasterGain, sr)
	}
	if math.Abs(v-1.0) > 0.01 {
		t.Errorf("after 1s smoothing: got %f, want ~1.0", v)
	}
}

func TestAdvanceFirstStepIsGradualNotInstant(t *testing.T) {
	b := New()
	start := b.Current(paramdesc.MasterGain)
	b.Push(paramdesc.MasterGain, 1.0)
	b.Drain()

	v := b.Advance(paramdesc.MasterGain, 48000.0)
	if v == 1.0 {
		t.Errorf("first smoothing step jumped straight to target, want gradual approach from %f", start)
	}
	if v <= start {
		t.Errorf("first smoothing step should move toward target: got %f, start %f", v, start)
	}
}

func TestNonSmoothedParameterJumpsImmediately(t *testing.T) {
	b := New()
	b.Push(paramdesc.AmpSustain, 0.9) // SmoothSecond == 0
	b.Drain()
	if got := b.Advance(paramdesc.AmpSustain, 48000.0); got != 0.9 {
		t.Errorf("unsmoothed parameter: got %f, want 0.9", got)
	}
}

func TestPushImmediateSnapsCurrentOnDrainEvenForSmoothedParam(t *testing.T) {
	b := New()
	b.PushImmediate(paramdesc.MasterGain, 1.2)
	b.Drain()
	if got := b.Current(paramdesc.MasterGain); got != 1.2 {
		t.Errorf("PushImmediate should snap current without waiting for Advance: got %f, want 1.2", got)
	}
}

func TestPushImmediateFlagIsOneShot(t *testing.T) {
	b := New()
	b.PushImmediate(paramdesc.MasterGain, 1.2)
	b.Drain()
	b.Push(paramdesc.MasterGain, 0.1) // ordinary smoothed push
	b.Drain()
	if got := b.Current(paramdesc.MasterGain); got != 1.2 {
		t.Errorf("a later ordinary Push should not be snapped by a stale immediate flag: got %f, want 1.2 still", got)
	}
}
