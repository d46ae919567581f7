package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statsig-io/ruid/internal/pkg/pkgerror"
	"github.com/statsig-io/ruid/internal/ruid/entity"
)

type testStats struct {
	mu     sync.Mutex
	counts map[entity.Outcome]uint64
	last   string
}

func (s *testStats) Record(ctx context.Context, outcome entity.Outcome, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[entity.Outcome]uint64)
	}
	s.counts[outcome] += uint64(n)
	if err != nil {
		s.last = err.Error()
	}
}

func (s *testStats) Snapshot(ctx context.Context) (map[entity.Outcome]uint64, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[entity.Outcome]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out, s.last
}

type fixture struct {
	uc     *Usecase
	clock  *manualClock
	stats  *testStats
	halted chan error
}

func newFixture(t *testing.T, layout entity.Layout, at time.Time) *fixture {
	t.Helper()

	clock := &manualClock{now: at}
	identity := entity.Identity{ClusterID: 2, NodeID: 5}
	suffix, err := layout.Suffix(identity)
	require.NoError(t, err)

	allocator, err := NewAllocator(AllocatorConfig{
		Layout:          layout,
		Suffix:          suffix,
		SkewToleranceMs: DefaultSkewTolerance,
	})
	require.NoError(t, err)

	f := &fixture{
		clock:  clock,
		stats:  &testStats{},
		halted: make(chan error, 1),
	}
	f.uc = New(Dependency{
		Allocator:     allocator,
		Clock:         NewClockAdapter(clock, testEpoch, layout),
		Stats:         f.stats,
		Identity:      identity,
		BatchMax:      100,
		WatchInterval: time.Millisecond,
		OnHalt: func(err error) {
			f.halted <- err
		},
	})

	return f
}

func requireCode(t *testing.T, err error, code pkgerror.Code) *pkgerror.Error {
	t.Helper()

	var perr *pkgerror.Error
	require.True(t, errors.As(err, &perr), "expected *pkgerror.Error, got %T", err)
	require.Equal(t, code, perr.Code())
	return perr
}

func TestUsecase_Generate(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(1000*time.Millisecond))
	ctx := context.Background()

	first, err := f.uc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000<<23|37), first)

	second, err := f.uc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+512, second)

	assert.Equal(t, uint64(2), f.stats.counts[entity.OutcomeIssued])
}

func TestUsecase_ClampedRegression(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(10*time.Second))
	ctx := context.Background()

	first, err := f.uc.Generate(ctx)
	require.NoError(t, err)

	f.clock.Set(testEpoch.Add(9500 * time.Millisecond))
	second, err := f.uc.Generate(ctx)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	assert.Equal(t, uint64(1), f.stats.counts[entity.OutcomeClamped])
	assert.Equal(t, uint64(2), f.stats.counts[entity.OutcomeIssued])
}

func TestUsecase_RegressionIsPerCall(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(10*time.Second))
	ctx := context.Background()

	_, err := f.uc.Generate(ctx)
	require.NoError(t, err)

	f.clock.Set(testEpoch.Add(5 * time.Second))
	_, err = f.uc.Generate(ctx)
	perr := requireCode(t, err, pkgerror.CodeUnavailable)
	assert.ErrorIs(t, err, entity.ErrClockRegression)
	assert.Equal(t, 5*time.Second, perr.RetryAfter())
	assert.NoError(t, f.uc.Halted())

	f.clock.Set(testEpoch.Add(10*time.Second + time.Millisecond))
	_, err = f.uc.Generate(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), f.stats.counts[entity.OutcomeRegression])
	select {
	case err := <-f.halted:
		t.Fatalf("unexpected halt: %v", err)
	default:
	}
}

func TestUsecase_SequenceExhaustedIsPerCall(t *testing.T) {
	layout := entity.MustLayout(51, 5, 4, 4) // 16 ids per millisecond
	f := newFixture(t, layout, testEpoch.Add(time.Second))
	ctx := context.Background()

	for i := 0; i < 16; i++ {
		_, err := f.uc.Generate(ctx)
		require.NoError(t, err)
	}

	_, err := f.uc.Generate(ctx)
	perr := requireCode(t, err, pkgerror.CodeTooManyRequests)
	assert.ErrorIs(t, err, entity.ErrSequenceExhausted)
	assert.Greater(t, perr.RetryAfter(), time.Duration(0))
	assert.NoError(t, f.uc.Halted())

	f.clock.Set(testEpoch.Add(time.Second + time.Millisecond))
	id, err := f.uc.Generate(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), layout.Unpack(id).Sequence)
}

func TestUsecase_FatalHalts(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(-time.Second))
	ctx := context.Background()

	_, err := f.uc.Generate(ctx)
	requireCode(t, err, pkgerror.CodeUnavailable)
	assert.ErrorIs(t, err, entity.ErrClockBeforeEpoch)

	select {
	case got := <-f.halted:
		assert.ErrorIs(t, got, entity.ErrClockBeforeEpoch)
	default:
		t.Fatal("expected OnHalt to be called")
	}

	// A healthy clock does not resume a halted generator.
	f.clock.Set(testEpoch.Add(time.Second))
	_, err = f.uc.Generate(ctx)
	assert.ErrorIs(t, err, entity.ErrClockBeforeEpoch)

	stats := f.uc.Stats(ctx)
	assert.True(t, stats.Halted)
	assert.Contains(t, stats.HaltReason, "before epoch")
	assert.Equal(t, uint64(1), stats.Counts[entity.OutcomeFatal])
}

func TestUsecase_GenerateBatch(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(time.Second))
	ctx := context.Background()

	ids, err := f.uc.GenerateBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ids, 10)
	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[i-1]+512, ids[i])
	}

	for _, count := range []int{0, -1, 101} {
		_, err := f.uc.GenerateBatch(ctx, count)
		requireCode(t, err, pkgerror.CodeInvalidInput)
	}
	assert.NoError(t, f.uc.Halted())
}

func TestUsecase_Decode(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(time.Hour))
	ctx := context.Background()

	id, err := f.uc.Generate(ctx)
	require.NoError(t, err)

	result, err := f.uc.Decode(ctx, " "+strconv.FormatUint(id, 10)+" ")
	require.NoError(t, err)
	assert.Equal(t, id, result.ID)
	assert.Equal(t, entity.Fields{Timestamp: 3_600_000, Sequence: 0, ClusterID: 2, NodeID: 5}, result.Fields)
	assert.True(t, result.Time.Equal(testEpoch.Add(time.Hour)))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Reason)

	future := entity.DefaultLayout.Pack(7_200_000, 0, 37)
	result, err = f.uc.Decode(ctx, strconv.FormatUint(future, 10))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "timestamp is in the future", result.Reason)

	for _, raw := range []string{"", "abc", "-1", "18446744073709551616"} {
		_, err := f.uc.Decode(ctx, raw)
		requireCode(t, err, pkgerror.CodeInvalidInput)
	}
}

func TestUsecase_Info(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(time.Second))

	info := f.uc.Info(context.Background())
	assert.Equal(t, entity.DefaultLayout, info.Layout)
	assert.True(t, info.Epoch.Equal(testEpoch))
	assert.Equal(t, DefaultSkewTolerance, info.SkewToleranceMs)
	assert.Equal(t, entity.Identity{ClusterID: 2, NodeID: 5}, info.Identity)
	assert.Equal(t, entity.Suffix(37), info.Suffix)
	assert.Equal(t, 100, info.BatchMax)
}

func TestUsecase_WatchHaltsOnOverflow(t *testing.T) {
	layout := entity.MustLayout(20, 10, 10, 24)
	f := newFixture(t, layout, testEpoch.Add(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.uc.Watch(ctx) }()

	f.clock.Set(testEpoch.Add(time.Hour))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, entity.ErrTimestampOverflow)
	case <-ctx.Done():
		t.Fatal("watch did not stop")
	}

	assert.ErrorIs(t, f.uc.Halted(), entity.ErrTimestampOverflow)
	assert.ErrorIs(t, <-f.halted, entity.ErrTimestampOverflow)
}

func TestUsecase_WatchStopsOnCancel(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.uc.Watch(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.NoError(t, f.uc.Halted())
}

func TestUsecase_ConcurrentGenerate(t *testing.T) {
	f := newFixture(t, entity.DefaultLayout, testEpoch.Add(time.Second))
	ctx := context.Background()

	const workers, perWorker = 8, 200
	var mu sync.Mutex
	seen := make(map[uint64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := f.uc.Generate(ctx)
				if err != nil {
					t.Errorf("Generate() err = %v", err)
					return
				}
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
