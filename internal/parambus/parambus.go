// Package parambus is the lock-free handoff between the control thread and
// the audio thread for continuous parameter changes. The control thread
// pushes (param_id, new_target) records; the audio thread drains them once
// per callback and one-pole smooths its way toward each new target so
// parameter changes never click.
package parambus

import (
	"math"
	"sync/atomic"

	"github.com/nexlab/polysynth-go/internal/paramdesc"
)

func float64bits(v float64) uint64     { return math.Float64bits(v) }
func float64frombits(b uint64) float64 { return math.Float64frombits(b) }

const ringCapacity = 256 // power of two, generous for one callback's worth of writes
const maxParams = 64     // headroom above paramdesc.Count() for future parameter IDs

// write is one queued parameter change. new_target is stored as raw
// float64 bits so the slot can be read/written with plain atomics.
type write struct {
	id     paramdesc.ID
	target uint64
}

// Bus is a single-producer/single-consumer ring buffer of parameter writes
// plus the smoothed current value for every known parameter. The control
// thread is the sole producer (Push); the audio thread is the sole
// consumer (Drain) and the sole reader/writer of current. targetBits is
// written by Push and read atomically by the audio thread.
type Bus struct {
	ring [ringCapacity]write
	head uint64 // next write slot, advanced only by the producer
	tail uint64 // next read slot, advanced only by the consumer

	targetBits [maxParams]uint64 // atomic float64 bits per parameter, sized generously
	current    [maxParams]float64 // audio-thread-owned smoothed value, not atomic

	immediate [maxParams]uint32 // atomic dirty flag: 1 means Drain should snap current to target
}

// New creates a Bus with every parameter initialized to its catalogue
// default.
func New() *Bus {
	b := &Bus{}
	for i := 0; i < paramdesc.Count(); i++ {
		d, _ := paramdesc.Lookup(paramdesc.ID(i))
		bits := float64bits(d.Default)
		atomic.StoreUint64(&b.targetBits[i], bits)
		b.current[i] = d.Default
	}
	return b
}

// Push publishes a new target value for id (stored atomically in
// targetBits, where the audio thread reads it) and enqueues a record of
// the write. Called only from the control thread. If the ring is full
// only the record is dropped; the new target has already been stored and
// still takes effect. Nothing here blocks or waits.
func (b *Bus) Push(id paramdesc.ID, value float64) {
	d, ok := paramdesc.Lookup(id)
	if !ok {
		return
	}
	value = d.Clamp(value)
	atomic.StoreUint64(&b.targetBits[id], float64bits(value))

	head := atomic.LoadUint64(&b.head)
	tail := atomic.LoadUint64(&b.tail)
	if head-tail >= ringCapacity {
		return
	}
	b.ring[head%ringCapacity] = write{id: id, target: float64bits(value)}
	atomic.StoreUint64(&b.head, head+1)
}

// PushImmediate sets id's target exactly like Push, but flags it so the
// next Drain snaps current straight to the new value with no smoothing
// ramp — for discrete switches (e.g. waveform select) where a one-pole
// glide would be audibly wrong.
func (b *Bus) PushImmediate(id paramdesc.ID, value float64) {
	b.Push(id, value)
	if int(id) < 0 || int(id) >= len(b.immediate) {
		return
	}
	atomic.StoreUint32(&b.immediate[id], 1)
}

// Drain consumes every queued record since the last call (the targets
// they carry are already visible through targetBits, so the records
// themselves are not read) and snaps any parameter flagged by
// PushImmediate straight to its target. Called only from the audio
// thread, once per callback, before rendering.
func (b *Bus) Drain() {
	head := atomic.LoadUint64(&b.head)
	tail := atomic.LoadUint64(&b.tail)
	for tail < head {
		tail++
	}
	atomic.StoreUint64(&b.tail, tail)

	for id := 0; id < paramdesc.Count(); id++ {
		if atomic.SwapUint32(&b.immediate[id], 0) == 1 {
			b.current[id] = float64frombits(atomic.LoadUint64(&b.targetBits[id]))
		}
	}
}

// Advance smooths id's current value one step toward its target using a one-pole coefficient derived from the parameter's
// configured time constant, and returns the updated current value for id.
// Called once per sample, per parameter that's actually read that sample,
// from the audio thread only.
func (b *Bus) Advance(id paramdesc.ID, sampleRate float64) float64 {
	d, ok := paramdesc.Lookup(id)
	if !ok {
		return 0
	}
	target := float64frombits(atomic.LoadUint64(&b.targetBits[id]))
	if d.SmoothSecond <= 0 || sampleRate <= 0 {
		b.current[id] = target
		return target
	}
	alpha := 1.0 / (d.SmoothSecond * sampleRate)
	if alpha > 1 {
		alpha = 1
	}
	b.current[id] += (target - b.current[id]) * alpha
	return b.current[id]
}

// Current returns the last-smoothed value without advancing it, for
// callers that only read a parameter intermittently (e.g. at voice
// trigger time) rather than every sample.
func (b *Bus) Current(id paramdesc.ID) float64 {
	if int(id) < 0 || int(id) >= len(b.current) {
		return 0
	}
	return b.current[id]
}

// Target returns the raw target value most recently pushed, bypassing
// smoothing — used when a consumer wants the instantaneous value (e.g. a
// voice reading a mod-matrix depth set moments before trigger).
func (b *Bus) Target(id paramdesc.ID) float64 {
	if int(id) < 0 || int(id) >= len(b.targetBits) {
		return 0
	}
	return float64frombits(atomic.LoadUint64(&b.targetBits[id]))
}
