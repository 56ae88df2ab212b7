// Package polysynth is the engine façade: the one public entry point a
// host (UI, sequencer, audio driver) talks to. It owns the parameter bus,
// the event scheduler, the three-engine dispatcher, and the mixer, and
// exposes spec.md §6's external interface (note on/off, parameter sets,
// engine selection, fx routing, modulator configuration, and the
// sample-accurate render callback) without leaking any internal package
// type into the public surface beyond what's re-exported in types.go.
//
// Grounded on the teacher's root-package façade (player.go): functional
// setup, a sync.Mutex-guarded control-thread API, and a render path that
// ultimately feeds a liveaudio.SampleSource, generalized from one fixed
// synth mode to the three-engine dispatch this spec requires.
package polysynth

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/nexlab/polysynth-go/internal/clock"
	"github.com/nexlab/polysynth-go/internal/engine"
	"github.com/nexlab/polysynth-go/internal/mixer"
	"github.com/nexlab/polysynth-go/internal/note"
	"github.com/nexlab/polysynth-go/internal/parambus"
	"github.com/nexlab/polysynth-go/internal/paramdesc"
	"github.com/nexlab/polysynth-go/internal/scheduler"
)

// Engine is the top-level synthesizer instance. One Engine owns one
// parameter bus, one event queue, and one instance each of the three
// synthesis backends; it is sample-rate-fixed for its lifetime.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	clk        *clock.Clock

	bus        *parambus.Bus
	sched      *scheduler.Scheduler
	dispatcher *engine.Dispatcher
	mix        *mixer.Mixer

	subtractive *engine.Subtractive
	resonator   *engine.Resonator
	macroOsc    *engine.MacroOsc

	droppedEvents uint64 // atomic

	scratchL, scratchR []float32
	timeline           []timelineEvent
}

// New creates an engine fixed at sampleRate (Hz), with the subtractive
// engine selected by default, 8-voice poly on all applicable engines, and
// classical fx routing.
func New(sampleRate int) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("polysynth: sampleRate must be positive")
	}

	bus := parambus.New()
	sr := float64(sampleRate)

	sub := engine.NewSubtractive(bus, sr, false)
	res := engine.NewResonator(bus, sr, 4)
	mac := engine.NewMacroOsc(bus, sr)

	disp := engine.NewDispatcher(engine.Subtractive)
	disp.Register(engine.Subtractive, sub)
	disp.Register(engine.Resonator, res)
	disp.Register(engine.MacroOsc, mac)

	return &Engine{
		sampleRate:  sampleRate,
		clk:         clock.New(sampleRate),
		bus:         bus,
		sched:       scheduler.New(),
		dispatcher:  disp,
		mix:         mixer.New(disp, sr),
		subtractive: sub,
		resonator:   res,
		macroOsc:    mac,
	}, nil
}

// SampleRate returns the fixed sample rate this engine was created with.
func (e *Engine) SampleRate() int { return e.sampleRate }

// DroppedEvents returns the running count of events dropped because the
// scheduler's ring was full or a note event carried an out-of-range
// pitch, per spec.md §7's back-pressure/drop-counter policy.
func (e *Engine) DroppedEvents() uint64 {
	return atomic.LoadUint64(&e.droppedEvents)
}

// NoteOn schedules a note-on. Invalid pitches (outside 0-127) are
// silently dropped with the counter incremented, per spec.md §7; a full
// event queue returns ErrEventQueueFull so the control thread can apply
// back pressure.
func (e *Engine) NoteOn(voiceID, pitchMIDI int, velocity float64, accent, slide, trill bool, atSample int64) error {
	if !note.ValidPitch(pitchMIDI) {
		atomic.AddUint64(&e.droppedEvents, 1)
		return nil
	}
	ev := note.Event{
		VoiceID:       voiceID,
		PitchMIDI:     pitchMIDI,
		Velocity:      velocity,
		Accent:        accent,
		Slide:         slide,
		Trill:         trill,
		TriggerSample: atSample,
	}
	if !e.sched.PushNoteOn(ev) {
		atomic.AddUint64(&e.droppedEvents, 1)
		return ErrEventQueueFull
	}
	return nil
}

// NoteOff schedules a note-off for voiceID.
func (e *Engine) NoteOff(voiceID int, atSample int64) error {
	ev := note.OffEvent{VoiceID: voiceID, TriggerSample: atSample}
	if !e.sched.PushNoteOff(ev) {
		atomic.AddUint64(&e.droppedEvents, 1)
		return ErrEventQueueFull
	}
	return nil
}

// AllNotesOff discards every pending scheduled event and immediately
// transitions every currently active voice, on every engine, to fast
// release, per spec.md §5's cancellation semantics. Unlike NoteOn/NoteOff
// this bypasses the scheduler's timing entirely — it takes effect at the
// moment it's called, not at some future sample.
func (e *Engine) AllNotesOff() {
	e.sched.PushAllNotesOff()
	e.dispatcher.AllNotesOff()
}

// SetParameter publishes a smoothed parameter change. Returns
// ErrUnknownParameter or ErrInvalidParameterRange if id or value is bad;
// the bus still clamps defensively even after a successful validation.
func (e *Engine) SetParameter(id ParamID, value float64) error {
	d, ok := paramdesc.Lookup(paramdesc.ID(id))
	if !ok {
		return ErrUnknownParameter
	}
	if value < d.Min || value > d.Max {
		return ErrInvalidParameterRange
	}
	e.bus.Push(paramdesc.ID(id), value)
	return nil
}

// SetParameterImmediate publishes a parameter change that skips
// smoothing entirely — for discrete switches (waveform select, filter
// type) where a one-pole glide would read as a glitch rather than a
// clean change.
func (e *Engine) SetParameterImmediate(id ParamID, value float64) error {
	d, ok := paramdesc.Lookup(paramdesc.ID(id))
	if !ok {
		return ErrUnknownParameter
	}
	if value < d.Min || value > d.Max {
		return ErrInvalidParameterRange
	}
	e.bus.PushImmediate(paramdesc.ID(id), value)
	return nil
}

// SelectEngine changes which engine kind subsequent unqualified triggers
// route to (spec.md §6's select_engine). Scheduled note-on events already
// queued route according to whichever engine is selected at the moment
// they actually fire, not the moment they were enqueued.
func (e *Engine) SelectEngine(kind EngineKind) {
	e.dispatcher.SelectEngine(kind)
}

// SetFXRoute selects which send bus an engine's output feeds (spec.md
// §6's set_fx_route).
func (e *Engine) SetFXRoute(kind EngineKind, bus SendBus) {
	e.dispatcher.SetSendMode(kind, bus)
}

// SetPolyphonyMode reconfigures the subtractive engine's mono/poly mode,
// or the resonator engine's voice count (capped at 4 per spec.md §6).
// Rebuilding an engine drops its currently sounding voices — callers
// that want a graceful transition should call AllNotesOff and let the
// release tails finish first.
func (e *Engine) SetPolyphonyMode(kind EngineKind, mono bool, voices int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sr := float64(e.sampleRate)
	switch kind {
	case Subtractive:
		e.subtractive = engine.NewSubtractive(e.bus, sr, mono)
		e.dispatcher.Register(engine.Subtractive, e.subtractive)
	case Resonator:
		if voices < 1 {
			voices = 1
		}
		if voices > 4 {
			voices = 4
		}
		e.resonator = engine.NewResonator(e.bus, sr, voices)
		e.dispatcher.Register(engine.Resonator, e.resonator)
	case MacroOsc:
		// Fixed 8-voice polyphony, no mono mode; nothing to reconfigure.
	}
}

// SetOscillators configures the subtractive engine's two main oscillator
// waveforms/levels and sub/noise mix, latched by each voice at its next
// trigger.
func (e *Engine) SetOscillators(p OscillatorParams) {
	e.subtractive.SetOscillators(p)
}

// SetSubtractiveLFOs configures the subtractive engine's three shared
// modulation LFOs (pitch in semitones, amp as a gain multiplier, filter
// in octaves).
func (e *Engine) SetSubtractiveLFOs(pitchDepth, pitchRateHz float64, pitchWave int, ampDepth, ampRateHz float64, ampWave int, filterDepth, filterRateHz float64, filterWave int) {
	e.subtractive.SetPitchLFO(pitchDepth, pitchRateHz, pitchWave)
	e.subtractive.SetAmpLFO(ampDepth, ampRateHz, ampWave)
	e.subtractive.SetFilterLFO(filterDepth, filterRateHz, filterWave)
}

// SetResonatorParams configures the resonator engine's {model, structure,
// brightness, damping, position, strum_intensity} surface.
func (e *Engine) SetResonatorParams(model int, structure, brightness, damping, position, strumIntensity float64) {
	e.resonator.SetModelParams(model, structure, brightness, damping, position, strumIntensity)
}

// SetMacroOscParams configures the macro-osc engine's {model, harmonics,
// timbre, morph, lpg_decay, lpg_colour, out/aux mix} surface.
func (e *Engine) SetMacroOscParams(model int, harmonics, timbre, morph, lpgDecay, lpgColour, outMix, auxMix float64) {
	e.macroOsc.SetModelParams(model, harmonics, timbre, morph, lpgDecay, lpgColour, outMix, auxMix)
}

// ConfigureModulator installs a modulator template on the subtractive
// engine: every voice triggered after this call carries a running
// modulator for the given parameter (spec.md §6's configure_modulator).
func (e *Engine) ConfigureModulator(id ParamID, cfg ModulatorConfig) {
	e.subtractive.SetModulatorTemplate(paramdesc.ID(id), cfg)
}

// ClearModulator removes a previously installed modulator template.
func (e *Engine) ClearModulator(id ParamID) {
	e.subtractive.ClearModulatorTemplate(paramdesc.ID(id))
}

// SetSendBusEffect installs the external effect object that processes a
// send bus's tap each sample (spec.md §6's get_send_tap, concretely
// realized as the mixer pulling from and pushing back into this object).
func (e *Engine) SetSendBusEffect(bus SendBus, fx SendEffector) {
	e.mix.SetBusEffect(bus, fx)
}

// SetSendGain sets how much of each routed engine's signal reaches bus.
func (e *Engine) SetSendGain(bus SendBus, gain float64) {
	e.mix.SetSendGain(bus, gain)
}

// SetReturnGain sets how much of bus's processed return reaches master.
func (e *Engine) SetReturnGain(bus SendBus, gain float64) {
	e.mix.SetReturnGain(bus, gain)
}

type timelineEvent struct {
	sample int64
	isOn   bool
	on     note.Event
	off    note.OffEvent
}

// mergeDue drains the scheduler and merges its two independently sorted
// due-event lists into one sample-ordered timeline, reusing e.timeline's
// backing array across calls the way the scheduler reuses its own
// pending slices.
func (e *Engine) mergeDue(blockStart, blockEnd int64) []timelineEvent {
	dueOn, dueOff := e.sched.Advance(blockStart, blockEnd)
	e.timeline = e.timeline[:0]
	i, j := 0, 0
	for i < len(dueOn) || j < len(dueOff) {
		if i < len(dueOn) && (j >= len(dueOff) || dueOn[i].TriggerSample <= dueOff[j].TriggerSample) {
			e.timeline = append(e.timeline, timelineEvent{sample: dueOn[i].TriggerSample, isOn: true, on: dueOn[i]})
			i++
		} else {
			e.timeline = append(e.timeline, timelineEvent{sample: dueOff[j].TriggerSample, isOn: false, off: dueOff[j]})
			j++
		}
	}
	return e.timeline
}

func (e *Engine) applyTimelineEvent(te timelineEvent) {
	if te.isOn {
		e.dispatcher.Trigger(te.on)
	} else {
		e.dispatcher.Release(te.off.VoiceID)
	}
}

func (e *Engine) renderSpan(outLeft, outRight []float32, from, to int) {
	for i := from; i < to; i++ {
		l, r := e.mix.RenderSample()
		outLeft[i] = float32(l)
		outRight[i] = float32(r)
	}
}

// Render produces one block of stereo audio, applying every scheduled
// event at its exact sample offset within the block (spec.md §6's
// render(out_left, out_right, sample_time_at_block_start)). len(outLeft)
// must equal len(outRight); the shorter length is used if they differ.
func (e *Engine) Render(outLeft, outRight []float32) {
	n := len(outLeft)
	if len(outRight) < n {
		n = len(outRight)
	}

	e.bus.Drain()
	blockStart := e.clk.Now()
	blockEnd := blockStart + int64(n)

	cursor := 0
	for _, te := range e.mergeDue(blockStart, blockEnd) {
		offset := int(te.sample - blockStart)
		if offset < cursor {
			offset = cursor
		}
		if offset > n {
			offset = n
		}
		e.renderSpan(outLeft, outRight, cursor, offset)
		e.applyTimelineEvent(te)
		cursor = offset
	}
	e.renderSpan(outLeft, outRight, cursor, n)

	e.clk.Advance(n)
}

// Process implements liveaudio.SampleSource, producing an interleaved
// stereo buffer by rendering into (and reusing) a pair of scratch
// deinterleaved buffers.
func (e *Engine) Process(dst []float32) {
	frames := len(dst) / 2
	if cap(e.scratchL) < frames {
		e.scratchL = make([]float32, frames)
		e.scratchR = make([]float32, frames)
	}
	outL := e.scratchL[:frames]
	outR := e.scratchR[:frames]
	e.Render(outL, outR)
	for i := 0; i < frames; i++ {
		dst[2*i] = outL[i]
		dst[2*i+1] = outR[i]
	}
}
