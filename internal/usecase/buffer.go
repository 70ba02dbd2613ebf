package usecase

import "StockPulse/internal/domain/models"

// LiveUpdateBuffer keeps the most recent ticks of the selected instrument in
// a fixed-capacity ring. When full, appending evicts the oldest entry. It is
// owned by the session loop and never accessed concurrently.
type LiveUpdateBuffer struct {
	ring  []models.LiveTick
	head  int // index of oldest entry
	count int
}

// NewLiveUpdateBuffer creates a buffer holding at most capacity ticks.
func NewLiveUpdateBuffer(capacity int) *LiveUpdateBuffer {
	if capacity <= 0 {
		capacity = 100
	}
	return &LiveUpdateBuffer{ring: make([]models.LiveTick, capacity)}
}

// Append adds a tick, evicting the oldest when full.
func (b *LiveUpdateBuffer) Append(t models.LiveTick) {
	if b.count < len(b.ring) {
		b.ring[(b.head+b.count)%len(b.ring)] = t
		b.count++
		return
	}
	b.ring[b.head] = t
	b.head = (b.head + 1) % len(b.ring)
}

// Len returns the number of buffered ticks.
func (b *LiveUpdateBuffer) Len() int { return b.count }

// Cap returns the buffer capacity.
func (b *LiveUpdateBuffer) Cap() int { return len(b.ring) }

// Clear drops all buffered ticks.
func (b *LiveUpdateBuffer) Clear() {
	b.head = 0
	b.count = 0
}

// Last returns the most recent tick, if any.
func (b *LiveUpdateBuffer) Last() (models.LiveTick, bool) {
	if b.count == 0 {
		return models.LiveTick{}, false
	}
	return b.ring[(b.head+b.count-1)%len(b.ring)], true
}

// Snapshot returns buffered ticks oldest first. The result is a copy.
func (b *LiveUpdateBuffer) Snapshot() []models.LiveTick {
	out := make([]models.LiveTick, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	return out
}
