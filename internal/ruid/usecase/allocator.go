package usecase

import (
	"fmt"
	"sync"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

// DefaultSkewTolerance is the largest backward clock step, in milliseconds,
// that is absorbed by reusing the last timestamp.
const DefaultSkewTolerance uint64 = 1000

type AllocatorConfig struct {
	Layout entity.Layout
	Suffix entity.Suffix
	// SkewToleranceMs of zero rejects any backward step.
	SkewToleranceMs uint64
	// Start seeds the last issued timestamp.
	Start uint64
}

// Allocator issues strictly increasing ids for one (cluster, node) suffix.
//
// All reads and writes of the last (timestamp, sequence) pair happen under mu.
// The critical section never reads the clock: callers sample now beforehand.
type Allocator struct {
	layout    entity.Layout
	suffix    entity.Suffix
	tolerance uint64

	mu            sync.Mutex
	lastTimestamp uint64
	lastSequence  uint64
}

func NewAllocator(cfg AllocatorConfig) (*Allocator, error) {
	if uint64(cfg.Suffix) >= 1<<cfg.Layout.SequenceShift {
		return nil, fmt.Errorf("%w: suffix %d does not fit %d bits", entity.ErrConfig, cfg.Suffix, cfg.Layout.SequenceShift)
	}
	if cfg.Start > cfg.Layout.MaxTimestamp {
		return nil, fmt.Errorf("%w: start timestamp %d exceeds %d", entity.ErrConfig, cfg.Start, cfg.Layout.MaxTimestamp)
	}

	return &Allocator{
		layout:        cfg.Layout,
		suffix:        cfg.Suffix,
		tolerance:     cfg.SkewToleranceMs,
		lastTimestamp: cfg.Start,
	}, nil
}

// Allocate returns the next id for a clock reading of now milliseconds.
func (a *Allocator) Allocate(now uint64) (uint64, error) {
	ids, _, err := a.allocate(now, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// AllocateN returns n consecutive ids stamped with the same millisecond.
// Nothing is issued when the millisecond cannot hold all n.
func (a *Allocator) AllocateN(now uint64, n int) ([]uint64, error) {
	ids, _, err := a.allocate(now, n)
	return ids, err
}

// Last returns the most recently committed timestamp and sequence.
func (a *Allocator) Last() (uint64, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastTimestamp, a.lastSequence
}

func (a *Allocator) Layout() entity.Layout {
	return a.layout
}

func (a *Allocator) Suffix() entity.Suffix {
	return a.suffix
}

func (a *Allocator) allocate(now uint64, n int) ([]uint64, bool, error) {
	if n < 1 {
		return nil, false, fmt.Errorf("%w: batch size %d", entity.ErrConfig, n)
	}
	if now > a.layout.MaxTimestamp {
		return nil, false, fmt.Errorf("%w: %dms exceeds %dms", entity.ErrTimestampOverflow, now, a.layout.MaxTimestamp)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	t := now
	clamped := false
	if now < a.lastTimestamp {
		delta := a.lastTimestamp - now
		if delta > a.tolerance {
			return nil, false, &entity.RegressionError{Delta: delta}
		}
		t = a.lastTimestamp
		clamped = true
	}

	var first uint64
	if t == a.lastTimestamp {
		first = a.lastSequence + 1
	}

	// first may already be past the end; compare without overflowing.
	if first > a.layout.MaxSequence || uint64(n-1) > a.layout.MaxSequence-first {
		return nil, clamped, entity.ErrSequenceExhausted
	}

	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = a.layout.Pack(t, first+uint64(i), a.suffix)
	}

	a.lastTimestamp = t
	a.lastSequence = first + uint64(n-1)

	return ids, clamped, nil
}
