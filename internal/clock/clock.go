// Package clock provides a sample-accurate monotonic counter used by the
// scheduler and by per-voice articulation deadlines. It never drifts
// against wall time: it only advances when the audio thread renders
// samples, so every deadline it measures against is expressed in the same
// unit the render loop consumes.
package clock

// Clock counts samples rendered since the engine was created. It is
// advanced exclusively by the audio thread; the control thread only reads
// it to timestamp newly scheduled events.
type Clock struct {
	sampleRate int
	current    int64
}

// New creates a Clock for the given sample rate. sampleRate must be > 0.
func New(sampleRate int) *Clock {
	return &Clock{sampleRate: sampleRate}
}

// SampleRate returns the fixed sample rate this clock was created with.
func (c *Clock) SampleRate() int {
	return c.sampleRate
}

// Now returns the current sample index.
func (c *Clock) Now() int64 {
	return c.current
}

// Advance moves the clock forward by n rendered samples and returns the
// sample index of the first sample in the block that was just advanced
// past (i.e. the value Now() held before the call).
func (c *Clock) Advance(n int) int64 {
	start := c.current
	c.current += int64(n)
	return start
}

// SecondsToSamples converts a duration in seconds to a sample count at
// this clock's rate, rounding to the nearest sample.
func (c *Clock) SecondsToSamples(seconds float64) int64 {
	return int64(seconds*float64(c.sampleRate) + 0.5)
}

// Deadline returns the absolute sample index `seconds` in the future from
// the clock's current position.
func (c *Clock) Deadline(seconds float64) int64 {
	return c.current + c.SecondsToSamples(seconds)
}
