package polysynth

import "errors"

// Error kinds observable at the core boundary, per spec.md §7. All are
// reported via the control-thread return path; the audio thread never
// throws — internal failures there degrade silently (NaN voices reset,
// denormals flushed, ramps fall back to an immediate set) instead of
// propagating an error value.
var (
	ErrInvalidParameterRange      = errors.New("polysynth: invalid parameter range")
	ErrUnknownParameter           = errors.New("polysynth: unknown parameter")
	ErrVoiceLimitExhaustedNoSteal = errors.New("polysynth: voice limit exhausted, no steal possible")
	ErrEngineNotInitialised       = errors.New("polysynth: engine not initialised")
	ErrEventQueueFull             = errors.New("polysynth: event queue full")
)
