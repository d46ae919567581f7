package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/statsig-io/ruid/internal/pkg/pkgerror"
	"github.com/statsig-io/ruid/internal/ruid/entity"
)

// DefaultBatchMax caps GenerateBatch when no limit is configured.
const DefaultBatchMax = 1000

type Stats interface {
	Record(ctx context.Context, outcome entity.Outcome, n int, err error)
	Snapshot(ctx context.Context) (map[entity.Outcome]uint64, string)
}

type Dependency struct {
	Allocator *Allocator
	Clock     *ClockAdapter
	Stats     Stats
	Identity  entity.Identity
	BatchMax  int
	// WatchInterval is how often Watch samples the clock.
	WatchInterval time.Duration
	// OnHalt is called once, outside any lock, when a fatal error stops the generator.
	OnHalt func(err error)
}

type Usecase struct {
	allocator     *Allocator
	clock         *ClockAdapter
	stats         Stats
	identity      entity.Identity
	batchMax      int
	watchInterval time.Duration

	onHalt   func(err error)
	haltOnce sync.Once
	haltErr  atomic.Pointer[error]
}

func New(dep Dependency) *Usecase {
	batchMax := dep.BatchMax
	if batchMax < 1 {
		batchMax = DefaultBatchMax
	}

	watchInterval := dep.WatchInterval
	if watchInterval <= 0 {
		watchInterval = time.Second
	}

	return &Usecase{
		allocator:     dep.Allocator,
		clock:         dep.Clock,
		stats:         dep.Stats,
		identity:      dep.Identity,
		batchMax:      batchMax,
		watchInterval: watchInterval,
		onHalt:        dep.OnHalt,
	}
}

// Generate issues a single id.
func (u *Usecase) Generate(ctx context.Context) (uint64, error) {
	ids, err := u.generate(ctx, 1)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// GenerateBatch issues count consecutive ids from one millisecond.
func (u *Usecase) GenerateBatch(ctx context.Context, count int) ([]uint64, error) {
	if count < 1 || count > u.batchMax {
		return nil, pkgerror.NewInvalidInput(fmt.Errorf("count must be between 1 and %d", u.batchMax))
	}
	return u.generate(ctx, count)
}

func (u *Usecase) generate(ctx context.Context, n int) ([]uint64, error) {
	if err := u.Halted(); err != nil {
		return nil, mapErr(err)
	}

	now, err := u.clock.NowMs()
	if err != nil {
		u.halt(ctx, err)
		return nil, mapErr(err)
	}

	ids, clamped, err := u.allocator.allocate(now, n)
	switch {
	case err == nil && clamped:
		u.record(ctx, entity.OutcomeClamped, n, nil)
		u.record(ctx, entity.OutcomeIssued, n, nil)
	case err == nil:
		u.record(ctx, entity.OutcomeIssued, n, nil)
	case errors.Is(err, entity.ErrClockRegression):
		slog.WarnContext(ctx, "clock regression beyond tolerance", "now_ms", now, "error", err)
		u.record(ctx, entity.OutcomeRegression, 1, err)
	case errors.Is(err, entity.ErrSequenceExhausted):
		slog.WarnContext(ctx, "sequence exhausted", "now_ms", now, "requested", n)
		u.record(ctx, entity.OutcomeExhausted, 1, err)
	case entity.IsFatal(err):
		u.halt(ctx, err)
	}
	if err != nil {
		return nil, mapErr(err)
	}

	return ids, nil
}

// Decode splits an id into its fields. It fails only on malformed input;
// an id that could not have been issued yet is reported through Valid and Reason.
func (u *Usecase) Decode(ctx context.Context, raw string) (DecodeResult, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return DecodeResult{}, pkgerror.NewInvalidInput(fmt.Errorf("id %q is not an unsigned 64-bit integer", raw))
	}

	fields := u.allocator.Layout().Unpack(id)
	result := DecodeResult{
		ID:     id,
		Fields: fields,
		Time:   u.clock.Time(fields.Timestamp),
		Valid:  true,
	}

	now, err := u.clock.NowMs()
	if err == nil && fields.Timestamp > now+u.allocator.tolerance {
		result.Valid = false
		result.Reason = "timestamp is in the future"
	}

	return result, nil
}

func (u *Usecase) Info(ctx context.Context) InfoResult {
	return InfoResult{
		Layout:          u.allocator.Layout(),
		Epoch:           u.clock.Epoch(),
		SkewToleranceMs: u.allocator.tolerance,
		Identity:        u.identity,
		Suffix:          u.allocator.Suffix(),
		BatchMax:        u.batchMax,
	}
}

func (u *Usecase) Stats(ctx context.Context) StatsResult {
	result := StatsResult{Counts: map[entity.Outcome]uint64{}}
	if u.stats != nil {
		result.Counts, result.LastError = u.stats.Snapshot(ctx)
	}

	result.LastTimestamp, result.LastSequence = u.allocator.Last()
	if err := u.Halted(); err != nil {
		result.Halted = true
		result.HaltReason = err.Error()
	}

	return result
}

// Watch samples the clock every watch interval until ctx is done. A fatal
// reading halts the generator even when no requests are arriving.
func (u *Usecase) Watch(ctx context.Context) error {
	ticker := time.NewTicker(u.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		now, err := u.clock.NowMs()
		if err != nil {
			u.halt(ctx, err)
			return err
		}

		last, _ := u.allocator.Last()
		if now < last && last-now > u.allocator.tolerance {
			slog.WarnContext(ctx, "clock is behind last issued timestamp", "now_ms", now, "last_ms", last, "behind_ms", last-now)
		}
	}
}

// Halted returns the error that stopped the generator, or nil.
func (u *Usecase) Halted() error {
	if p := u.haltErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (u *Usecase) halt(ctx context.Context, err error) {
	u.haltOnce.Do(func() {
		u.haltErr.Store(&err)
		u.record(ctx, entity.OutcomeFatal, 1, err)
		slog.ErrorContext(ctx, "generator halted", "error", err)

		if u.onHalt != nil {
			u.onHalt(err)
		}
	})
}

func (u *Usecase) record(ctx context.Context, outcome entity.Outcome, n int, err error) {
	if u.stats != nil {
		u.stats.Record(ctx, outcome, n, err)
	}
}

func mapErr(err error) error {
	var rerr *entity.RegressionError
	switch {
	case errors.Is(err, entity.ErrSequenceExhausted):
		return pkgerror.NewTooManyRequests(err, "id capacity for this millisecond is exhausted, retry shortly", time.Millisecond)
	case errors.As(err, &rerr):
		return pkgerror.NewUnavailable(err, "clock moved backwards, retry shortly", time.Duration(rerr.Delta)*time.Millisecond)
	case errors.Is(err, entity.ErrClockRegression):
		return pkgerror.NewUnavailable(err, "clock moved backwards, retry shortly", time.Second)
	case entity.IsFatal(err):
		return pkgerror.NewUnavailable(err, "id generator is halted", 0)
	default:
		return pkgerror.NewServer(err)
	}
}
