package zdf

import (
	"math"
	"testing"
)

func TestDCInputPassesLowpassUnattenuated(t *testing.T) {
	f := &Filter{}
	var lp float64
	for i := 0; i < 5000; i++ {
		lp = f.Process(1.0, 200, 5, 48000).Lowpass
	}
	if math.Abs(lp-1.0) > 0.05 {
		t.Errorf("settled DC lowpass: got %f, want ~1.0", lp)
	}
}

func TestDCInputBlockedByHighpass(t *testing.T) {
	f := &Filter{}
	var hp float64
	for i := 0; i < 5000; i++ {
		hp = f.Process(1.0, 200, 5, 48000).Highpass
	}
	if math.Abs(hp) > 0.05 {
		t.Errorf("settled DC highpass: got %f, want ~0", hp)
	}
}

func TestCutoffClampedToRange(t *testing.T) {
	f := &Filter{}
	// Should not panic or produce NaN/Inf even with out-of-range cutoffs.
	out := f.Process(0.5, -100, 5, 48000)
	if math.IsNaN(out.Lowpass) || math.IsInf(out.Lowpass, 0) {
		t.Errorf("negative cutoff produced invalid output: %v", out)
	}
	out = f.Process(0.5, 50000, 5, 48000)
	if math.IsNaN(out.Lowpass) || math.IsInf(out.Lowpass, 0) {
		t.Errorf("excessive cutoff produced invalid output: %v", out)
	}
}

func TestHighResonanceStaysStable(t *testing.T) {
	f := &Filter{}
	for i := 0; i < 48000; i++ {
		out := f.Process(math.Sin(float64(i)*0.05), 1000, 24.9, 48000)
		if math.IsNaN(out.Lowpass) || math.Abs(out.Lowpass) > 1000 {
			t.Fatalf("filter diverged at sample %d: %f", i, out.Lowpass)
		}
	}
}

func TestResetClearsState(t *testing.T) {
	f := &Filter{}
	for i := 0; i < 100; i++ {
		f.Process(1.0, 500, 5, 48000)
	}
	f.Reset()
	out := f.Process(0, 500, 5, 48000)
	if out.Lowpass != 0 {
		t.Errorf("after reset, filtering silence should yield 0: got %f", out.Lowpass)
	}
}
