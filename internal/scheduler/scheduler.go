// Package scheduler implements the sample-accurate note/automation event
// queue: a lock-free SPSC ring fed by the control thread and drained once
// per audio block into a stable, trigger-sample-ordered pending list.
package scheduler

import (
	"sync/atomic"

	"github.com/nexlab/polysynth-go/internal/note"
)

const ringCapacity = 512

type entryKind uint8

const (
	kindNoteOn entryKind = iota
	kindNoteOff
	kindAllNotesOff
)

type entry struct {
	kind entryKind
	on   note.Event
	off  note.OffEvent
}

// Scheduler is the SPSC event queue described by spec.md's scheduling
// model: the control thread is the sole writer (Push*), the audio thread
// is the sole reader (Advance). It is grounded on
// sequencer.Sequencer.dispatchTick's per-block draining of due events and
// compactNoteOffs's insertion sort of a nearly-sorted pending list, with
// the ring-buffer handoff itself built from scratch on sync/atomic since
// no ring-buffer library appears anywhere in the retrieval pack.
type Scheduler struct {
	ring [ringCapacity]entry
	head uint64 // atomic; advanced by the control thread
	tail uint64 // atomic; advanced by the audio thread

	arrivalCounter int64 // atomic; assigns stable tie-break ordering

	pendingOn  []note.Event   // audio-thread-owned only
	pendingOff []note.OffEvent
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// PushNoteOn enqueues a future (or immediate, if TriggerSample is already
// past) note-on event. Safe to call only from the control thread. Returns
// false if the ring is full, in which case the event is dropped rather
// than blocking the caller.
func (s *Scheduler) PushNoteOn(ev note.Event) bool {
	ev.ArrivalOrder = atomic.AddInt64(&s.arrivalCounter, 1)
	return s.push(entry{kind: kindNoteOn, on: ev})
}

// PushNoteOff enqueues a future note-off event. Control thread only.
func (s *Scheduler) PushNoteOff(ev note.OffEvent) bool {
	ev.ArrivalOrder = atomic.AddInt64(&s.arrivalCounter, 1)
	return s.push(entry{kind: kindNoteOff, off: ev})
}

// PushAllNotesOff enqueues a cancellation marker that, once drained,
// discards every pending event ahead of it. Control thread only.
func (s *Scheduler) PushAllNotesOff() bool {
	return s.push(entry{kind: kindAllNotesOff})
}

func (s *Scheduler) push(e entry) bool {
	head := atomic.LoadUint64(&s.head)
	tail := atomic.LoadUint64(&s.tail)
	if head-tail >= ringCapacity {
		return false
	}
	s.ring[head%ringCapacity] = e
	atomic.StoreUint64(&s.head, head+1)
	return true
}

// drainRing moves every ring entry published since the last drain into
// the audio-thread-owned pending lists. Audio thread only.
func (s *Scheduler) drainRing() {
	tail := atomic.LoadUint64(&s.tail)
	head := atomic.LoadUint64(&s.head)
	for tail != head {
		e := s.ring[tail%ringCapacity]
		switch e.kind {
		case kindNoteOn:
			insertNoteOn(&s.pendingOn, e.on)
		case kindNoteOff:
			insertNoteOff(&s.pendingOff, e.off)
		case kindAllNotesOff:
			s.pendingOn = s.pendingOn[:0]
			s.pendingOff = s.pendingOff[:0]
		}
		tail++
	}
	atomic.StoreUint64(&s.tail, tail)
}

// insertNoteOn inserts ev into a slice kept sorted by (TriggerSample,
// ArrivalOrder). An insertion sort is used rather than sort.Slice because
// the slice is already nearly sorted (events mostly arrive in the order
// their trigger samples occur) and this avoids both a closure allocation
// and an O(n log n) pass every block.
func insertNoteOn(list *[]note.Event, ev note.Event) {
	*list = append(*list, ev)
	i := len(*list) - 1
	for i > 0 && noteOnLess(ev, (*list)[i-1]) {
		(*list)[i] = (*list)[i-1]
		i--
	}
	(*list)[i] = ev
}

func insertNoteOff(list *[]note.OffEvent, ev note.OffEvent) {
	*list = append(*list, ev)
	i := len(*list) - 1
	for i > 0 && noteOffLess(ev, (*list)[i-1]) {
		(*list)[i] = (*list)[i-1]
		i--
	}
	(*list)[i] = ev
}

func noteOnLess(a, b note.Event) bool {
	if a.TriggerSample != b.TriggerSample {
		return a.TriggerSample < b.TriggerSample
	}
	return a.ArrivalOrder < b.ArrivalOrder
}

func noteOffLess(a, b note.OffEvent) bool {
	if a.TriggerSample != b.TriggerSample {
		return a.TriggerSample < b.TriggerSample
	}
	return a.ArrivalOrder < b.ArrivalOrder
}

// Advance drains the ring and removes every event due before blockEnd,
// returning them in stable trigger-sample/arrival order. Events whose
// trigger sample already lies before blockStart (late events) are
// clamped to fire at blockStart, the first sample of the current block,
// per spec.md's ordering guarantees. Audio thread only.
func (s *Scheduler) Advance(blockStart, blockEnd int64) ([]note.Event, []note.OffEvent) {
	s.drainRing()

	due := 0
	for due < len(s.pendingOn) && s.pendingOn[due].TriggerSample < blockEnd {
		due++
	}
	var dueOn []note.Event
	if due > 0 {
		dueOn = make([]note.Event, due)
		copy(dueOn, s.pendingOn[:due])
		for i := range dueOn {
			if dueOn[i].TriggerSample < blockStart {
				dueOn[i].TriggerSample = blockStart
			}
		}
		remaining := copy(s.pendingOn, s.pendingOn[due:])
		s.pendingOn = s.pendingOn[:remaining]
	}

	due = 0
	for due < len(s.pendingOff) && s.pendingOff[due].TriggerSample < blockEnd {
		due++
	}
	var dueOff []note.OffEvent
	if due > 0 {
		dueOff = make([]note.OffEvent, due)
		copy(dueOff, s.pendingOff[:due])
		for i := range dueOff {
			if dueOff[i].TriggerSample < blockStart {
				dueOff[i].TriggerSample = blockStart
			}
		}
		remaining := copy(s.pendingOff, s.pendingOff[due:])
		s.pendingOff = s.pendingOff[:remaining]
	}

	return dueOn, dueOff
}

// Pending reports how many already-drained note-on and note-off events
// are still waiting for their trigger sample, useful for diagnostics.
func (s *Scheduler) Pending() (noteOns, noteOffs int) {
	return len(s.pendingOn), len(s.pendingOff)
}
