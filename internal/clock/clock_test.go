package clock

import "testing"

func TestAdvanceReturnsPriorPositionAndMovesForward(t *testing.T) {
	c := New(48000)
	start := c.Advance(256)
	if start != 0 {
		t.Errorf("first Advance should return 0, got %d", start)
	}
	if got := c.Now(); got != 256 {
		t.Errorf("Now() after advancing 256 = %d, want 256", got)
	}
	start = c.Advance(256)
	if start != 256 {
		t.Errorf("second Advance should return prior position 256, got %d", start)
	}
}

func TestSecondsToSamplesRounds(t *testing.T) {
	c := New(48000)
	if got := c.SecondsToSamples(0.5); got != 24000 {
		t.Errorf("SecondsToSamples(0.5) at 48kHz = %d, want 24000", got)
	}
}

func TestDeadlineIsRelativeToCurrentPosition(t *testing.T) {
	c := New(48000)
	c.Advance(1000)
	d := c.Deadline(1.0)
	if d != 1000+48000 {
		t.Errorf("Deadline(1.0) = %d, want %d", d, 1000+48000)
	}
}
