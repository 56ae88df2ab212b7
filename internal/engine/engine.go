// Package engine implements the multi-engine dispatcher and its three
// voice-rendering backends (subtractive, resonator, macro-osc), all
// behind one uniform trigger/release API. It is grounded directly on the
// module-routing MultiEngine pattern: a map of interchangeable engines,
// a current-selection pointer for control calls, and summed rendering
// across every registered engine.
package engine

import (
	"sync"

	"github.com/nexlab/polysynth-go/internal/note"
)

// Kind identifies one of the three synthesis backends.
type Kind int

const (
	Subtractive Kind = iota
	Resonator
	MacroOsc
)

// SendMode selects which effect bus an engine's dry output is routed to.
// The bus implementations themselves (reverb/delay vs. granular) are out
// of scope here — this only selects the routing.
type SendMode int

const (
	SendClassical SendMode = iota // reverb + delay bus
	SendGranular
)

// Engine is the uniform surface every synthesis backend implements.
type Engine interface {
	Trigger(ev note.Event)
	Release(voiceID int)
	AllNotesOff()
	RenderSample(sampleRate float64) (float64, float64)
	SetSendMode(mode SendMode)
	SendMode() SendMode
	ActiveVoiceCount() int
}

// Dispatcher routes trigger/release calls to the currently selected
// engine and mixes every registered engine's rendered output — mirroring
// the teacher's MultiEngine, generalized from a module-number key to the
// three named EngineKinds spec.md requires.
type Dispatcher struct {
	mu      sync.Mutex
	engines map[Kind]Engine
	current Kind
}

// NewDispatcher creates an empty dispatcher defaulting current selection
// to defaultKind.
func NewDispatcher(defaultKind Kind) *Dispatcher {
	return &Dispatcher{engines: make(map[Kind]Engine), current: defaultKind}
}

// Register installs e as the backend for kind.
func (d *Dispatcher) Register(kind Kind, e Engine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.engines[kind] = e
}

// SelectEngine changes which engine subsequent Trigger calls with an
// engine-unqualified routing go to.
func (d *Dispatcher) SelectEngine(kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = kind
}

func (d *Dispatcher) currentEngine() Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engines[d.current]
}

// Trigger forwards a trigger to the currently selected engine.
func (d *Dispatcher) Trigger(ev note.Event) {
	if e := d.currentEngine(); e != nil {
		e.Trigger(ev)
	}
}

// TriggerOn forwards a trigger to a specific engine kind, bypassing the
// current-selection pointer — used when the caller already knows which
// engine a note should sound on (e.g. starting a note on an engine that
// is not the current selection).
func (d *Dispatcher) TriggerOn(kind Kind, ev note.Event) {
	d.mu.Lock()
	e := d.engines[kind]
	d.mu.Unlock()
	if e != nil {
		e.Trigger(ev)
	}
}

// Release releases voiceID on every registered engine (cheap: engines
// that never allocated that id simply no-op).
func (d *Dispatcher) Release(voiceID int) {
	d.mu.Lock()
	engines := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		engines = append(engines, e)
	}
	d.mu.Unlock()
	for _, e := range engines {
		e.Release(voiceID)
	}
}

// AllNotesOff flushes every registered engine's voices.
func (d *Dispatcher) AllNotesOff() {
	d.mu.Lock()
	engines := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		engines = append(engines, e)
	}
	d.mu.Unlock()
	for _, e := range engines {
		e.AllNotesOff()
	}
}

// RenderSample renders and sums every registered engine's output for one
// sample.
func (d *Dispatcher) RenderSample(sampleRate float64) (float64, float64) {
	d.mu.Lock()
	engines := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		engines = append(engines, e)
	}
	d.mu.Unlock()

	var l, r float64
	for _, e := range engines {
		el, er := e.RenderSample(sampleRate)
		l += el
		r += er
	}
	return l, r
}

// SetSendMode sets the send-bus routing for a specific engine kind.
func (d *Dispatcher) SetSendMode(kind Kind, mode SendMode) {
	d.mu.Lock()
	e := d.engines[kind]
	d.mu.Unlock()
	if e != nil {
		e.SetSendMode(mode)
	}
}

// RegisteredKinds returns the kinds currently registered, in no
// particular order — used by the mixer to render and route each
// engine's output independently instead of only the pre-summed total.
func (d *Dispatcher) RegisteredKinds() []Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]Kind, 0, len(d.engines))
	for k := range d.engines {
		kinds = append(kinds, k)
	}
	return kinds
}

// RenderKind renders one sample from a single registered engine kind,
// without summing in any other engine's output.
func (d *Dispatcher) RenderKind(kind Kind, sampleRate float64) (float64, float64) {
	d.mu.Lock()
	e := d.engines[kind]
	d.mu.Unlock()
	if e == nil {
		return 0, 0
	}
	return e.RenderSample(sampleRate)
}

// KindSendMode reports the send-bus routing currently configured on the
// given engine kind.
func (d *Dispatcher) KindSendMode(kind Kind) SendMode {
	d.mu.Lock()
	e := d.engines[kind]
	d.mu.Unlock()
	if e == nil {
		return SendClassical
	}
	return e.SendMode()
}

// ActiveVoiceCount sums active voices across every registered engine.
func (d *Dispatcher) ActiveVoiceCount() int {
	d.mu.Lock()
	engines := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		engines = append(engines, e)
	}
	d.mu.Unlock()
	n := 0
	for _, e := range engines {
		n += e.ActiveVoiceCount()
	}
	return n
}
