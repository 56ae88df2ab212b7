// Package mixer implements the per-engine dry mix and the gain-controlled
// send-bus taps external effect objects read from and write back into,
// per spec.md's get_send_tap interface.
package mixer

import (
	"math"
	"sync/atomic"

	"github.com/nexlab/polysynth-go/internal/engine"
	"github.com/nexlab/polysynth-go/internal/sendfx"
)

const busCount = 2 // indexed by engine.SendMode: SendClassical, SendGranular

// Mixer sums every registered engine's dry output to master while also
// feeding each engine's signal, scaled by its bus's send gain, into the
// send bus its SendMode selects. A borrowed sendfx.Effector installed on
// a bus (SetBusEffect) is "pulled" from that bus's tap once per sample
// and its processed return is summed back into master at the bus's
// return gain — the concrete shape of spec.md's get_send_tap: the tap
// itself is a plain per-sample value, owned by the mixer and read
// by whichever external object is attached.
//
// Grounded on the equal-power pan/mix summation pattern repeated in the
// teacher's per-engine RenderFrame methods, generalized here from
// per-voice panning to per-engine bus routing.
type Mixer struct {
	dispatcher *engine.Dispatcher
	sampleRate float64

	sendGain   [busCount]uint64 // atomic float64 bits
	returnGain [busCount]uint64

	busFX [busCount]sendfx.Effector // borrowed, never owned

	tapL, tapR [busCount]float64 // last-rendered tap values, for manual pull
}

// New creates a mixer reading from dispatcher, with unity send and return
// gain on both busses and no installed effects.
func New(dispatcher *engine.Dispatcher, sampleRate float64) *Mixer {
	m := &Mixer{dispatcher: dispatcher, sampleRate: sampleRate}
	for bus := 0; bus < busCount; bus++ {
		atomic.StoreUint64(&m.sendGain[bus], math.Float64bits(1.0))
		atomic.StoreUint64(&m.returnGain[bus], math.Float64bits(1.0))
	}
	return m
}

// SetSendGain sets how much of a routed engine's signal reaches bus's
// tap. Safe to call from the control thread at any time.
func (m *Mixer) SetSendGain(bus engine.SendMode, gain float64) {
	atomic.StoreUint64(&m.sendGain[bus], math.Float64bits(gain))
}

// SetReturnGain sets how much of bus's processed return is summed back
// into master.
func (m *Mixer) SetReturnGain(bus engine.SendMode, gain float64) {
	atomic.StoreUint64(&m.returnGain[bus], math.Float64bits(gain))
}

func (m *Mixer) sendGainValue(bus engine.SendMode) float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.sendGain[bus]))
}

func (m *Mixer) returnGainValue(bus engine.SendMode) float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.returnGain[bus]))
}

// SetBusEffect installs (or, passing nil, clears) the external effect
// object processing bus's tap each sample. The mixer never constructs or
// closes it; per spec.md §1 the reverb/delay/granular busses themselves
// are external collaborators specified only at this send-gain interface.
func (m *Mixer) SetBusEffect(bus engine.SendMode, fx sendfx.Effector) {
	m.busFX[bus] = fx
}

// GetSendTap returns the most recently accumulated dry signal routed
// into bus, letting a caller pull from the tap manually instead of (or
// in addition to) an installed SetBusEffect.
func (m *Mixer) GetSendTap(bus engine.SendMode) (float64, float64) {
	return m.tapL[bus], m.tapR[bus]
}

// RenderSample renders one sample of the full mix: every registered
// engine's dry output, plus each bus's processed return.
func (m *Mixer) RenderSample() (float64, float64) {
	var dryL, dryR float64
	var busL, busR [busCount]float64

	for _, kind := range m.dispatcher.RegisteredKinds() {
		l, r := m.dispatcher.RenderKind(kind, m.sampleRate)
		dryL += l
		dryR += r

		bus := m.dispatcher.KindSendMode(kind)
		sg := m.sendGainValue(bus)
		busL[bus] += l * sg
		busR[bus] += r * sg
	}
	m.tapL = busL
	m.tapR = busR

	var wetL, wetR float64
	for bus := 0; bus < busCount; bus++ {
		fx := m.busFX[bus]
		if fx == nil {
			continue
		}
		pl, pr := fx.Process(float32(busL[bus]), float32(busR[bus]))
		rg := m.returnGainValue(engine.SendMode(bus))
		wetL += float64(pl) * rg
		wetR += float64(pr) * rg
	}

	return dryL + wetL, dryR + wetR
}
