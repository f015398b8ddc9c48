package metrics

import (
	"context"
	"sync"
	"time"
)

// journalCapacity bounds the in-memory fallback journal used when Sink
// writes fail (spec §4.1 "Failure").
const journalCapacity = 10000

// retryBaseDelay/retryMaxAttempts define the journal's exponential backoff
// before a record is considered for shedding.
const (
	retryBaseDelay   = 50 * time.Millisecond
	retryMaxAttempts = 5
)

// Sink durably persists records; implementations live behind database/sql
// (sqlite/postgres/mysql) or a relational store per spec §6.
type Sink interface {
	WriteInteraction(ctx context.Context, r InteractionRecord) error
	WriteInsight(ctx context.Context, i LearningInsight) error
}

// journal buffers records the sink has rejected, retrying them with
// exponential backoff on each drain pass (Store.DrainJournal) and shedding
// the oldest non-critical entries once full (never blocking the recording
// caller).
type journal struct {
	mu      sync.Mutex
	pending []pendingRecord
	onShed  func()
}

type pendingRecord struct {
	record  InteractionRecord
	attempt int
	nextTry time.Time
}

func newJournal(onShed func()) *journal {
	return &journal{onShed: onShed}
}

func (j *journal) enqueue(r InteractionRecord, now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.pending) >= journalCapacity {
		// Drop the oldest non-critical (non-error) record to make room.
		dropped := false
		for i, p := range j.pending {
			if p.record.Success {
				j.pending = append(j.pending[:i], j.pending[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			j.pending = j.pending[1:]
		}
		if j.onShed != nil {
			j.onShed()
		}
	}

	j.pending = append(j.pending, pendingRecord{
		record:  r,
		attempt: 0,
		nextTry: now.Add(retryBaseDelay),
	})
}

// drain attempts to flush due entries through sink, requeuing failures with
// doubled backoff up to retryMaxAttempts before giving up on that record.
func (j *journal) drain(ctx context.Context, sink Sink, now time.Time) {
	j.mu.Lock()
	due := j.pending[:0:0]
	remaining := make([]pendingRecord, 0, len(j.pending))
	for _, p := range j.pending {
		if now.Before(p.nextTry) {
			remaining = append(remaining, p)
			continue
		}
		due = append(due, p)
	}
	j.pending = remaining
	j.mu.Unlock()

	for _, p := range due {
		if err := sink.WriteInteraction(ctx, p.record); err != nil {
			p.attempt++
			if p.attempt >= retryMaxAttempts {
				continue // give up; the record is dropped without a metrics_shedding insight
			}
			p.nextTry = now.Add(retryBaseDelay * time.Duration(1<<uint(p.attempt)))
			j.mu.Lock()
			j.pending = append(j.pending, p)
			j.mu.Unlock()
			continue
		}
	}
}

func (j *journal) len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}
