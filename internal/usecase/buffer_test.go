package usecase

import (
	"testing"

	"StockPulse/internal/domain/models"
)

func tick(sym string, ts int64, price float64) models.LiveTick {
	return models.LiveTick{Symbol: sym, Timestamp: ts, Price: price}
}

func TestBufferAppendBelowCapacity(t *testing.T) {
	b := NewLiveUpdateBuffer(100)
	for i := 1; i <= 10; i++ {
		b.Append(tick("AAPL", int64(i), float64(i)))
	}
	if b.Len() != 10 {
		t.Fatalf("expected 10 buffered, got %d", b.Len())
	}
	snap := b.Snapshot()
	if snap[0].Timestamp != 1 || snap[9].Timestamp != 10 {
		t.Fatalf("unexpected order: first=%d last=%d", snap[0].Timestamp, snap[9].Timestamp)
	}
}

func TestBufferEvictsOldestAtCapacity(t *testing.T) {
	b := NewLiveUpdateBuffer(100)
	for i := 1; i <= 150; i++ {
		b.Append(tick("AAPL", int64(i), float64(i)))
	}
	if b.Len() != 100 {
		t.Fatalf("expected capacity 100, got %d", b.Len())
	}
	snap := b.Snapshot()
	if snap[0].Timestamp != 51 {
		t.Fatalf("expected oldest tick 51, got %d", snap[0].Timestamp)
	}
	if snap[99].Timestamp != 150 {
		t.Fatalf("expected newest tick 150, got %d", snap[99].Timestamp)
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp != snap[i-1].Timestamp+1 {
			t.Fatalf("gap in snapshot at %d", i)
		}
	}
}

func TestBufferClear(t *testing.T) {
	b := NewLiveUpdateBuffer(5)
	for i := 0; i < 7; i++ {
		b.Append(tick("AAPL", int64(i+1), 1))
	}
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("expected empty after clear, got %d", b.Len())
	}
	if _, ok := b.Last(); ok {
		t.Fatalf("expected no last tick after clear")
	}
	b.Append(tick("AAPL", 99, 1))
	last, ok := b.Last()
	if !ok || last.Timestamp != 99 {
		t.Fatalf("unexpected last after re-append: %v", last)
	}
}

func TestBufferSnapshotIsCopy(t *testing.T) {
	b := NewLiveUpdateBuffer(4)
	b.Append(tick("AAPL", 1, 10))
	snap := b.Snapshot()
	snap[0].Price = 999
	again := b.Snapshot()
	if again[0].Price != 10 {
		t.Fatalf("snapshot mutated buffer state")
	}
}
