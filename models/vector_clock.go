package models

// ClockOrder is the result of comparing two vector clocks.
type ClockOrder string

const (
	// ClockIdentical means both clocks carry the same counters.
	ClockIdentical ClockOrder = "identical"
	// ClockBefore means the receiver causally precedes the other clock.
	ClockBefore ClockOrder = "before"
	// ClockAfter means the receiver causally follows the other clock.
	ClockAfter ClockOrder = "after"
	// ClockConcurrent means neither clock precedes the other: the two
	// versions were produced by independent edits.
	ClockConcurrent ClockOrder = "concurrent"
)

// VectorClock maps a device ID to the number of edits that device has made to
// a record. It establishes a partial causal order between two versions of the
// record without relying on wall-clock time.
//
// Counters only ever increase, and a device increments only its own entry.
// All operations are value-returning: the receiver is never mutated, so a
// clock snapshot stored on a queue entry stays stable after later edits.
type VectorClock map[string]int64

// Clone returns an independent copy of the clock. A nil clock clones to an
// empty non-nil clock.
func (c VectorClock) Clone() VectorClock {
	out := make(VectorClock, len(c))
	for device, counter := range c {
		out[device] = counter
	}
	return out
}

// Increment returns a copy of the clock with the counter for deviceID
// raised by one, creating the entry at 1 if absent. Safe on a nil clock.
func (c VectorClock) Increment(deviceID string) VectorClock {
	out := c.Clone()
	out[deviceID]++
	return out
}

// Merge returns the entrywise maximum of the two clocks over the union of
// their keys. Merge is commutative, associative, and idempotent.
func (c VectorClock) Merge(other VectorClock) VectorClock {
	out := c.Clone()
	for device, counter := range other {
		if counter > out[device] {
			out[device] = counter
		}
	}
	return out
}

// Compare establishes the causal relation between the receiver and other.
// Missing entries count as zero, so an empty clock is before any non-empty
// clock. If each clock holds at least one counter the other lacks, the two
// are concurrent.
func (c VectorClock) Compare(other VectorClock) ClockOrder {
	var receiverAhead, otherAhead bool

	for device, counter := range c {
		if counter > other[device] {
			receiverAhead = true
		}
	}
	for device, counter := range other {
		if counter > c[device] {
			otherAhead = true
		}
	}

	switch {
	case receiverAhead && otherAhead:
		return ClockConcurrent
	case receiverAhead:
		return ClockAfter
	case otherAhead:
		return ClockBefore
	default:
		return ClockIdentical
	}
}
