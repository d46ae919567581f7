package ruid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statsig-io/ruid/internal/pkg/pkgconfig"
	"github.com/statsig-io/ruid/internal/pkg/pkgrouter"
	"github.com/statsig-io/ruid/internal/pkg/pkgroutine"
	"github.com/statsig-io/ruid/internal/pkg/pkguid"
	"github.com/statsig-io/ruid/internal/ruid/entity"
	"github.com/statsig-io/ruid/internal/ruid/identity"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newConfig(t *testing.T, overrides map[string]any) pkgconfig.Config {
	t.Helper()

	values := Defaults()
	for k, v := range overrides {
		values[k] = v
	}

	cfg, err := pkgconfig.NewViper(filepath.Join(t.TempDir(), "config.yaml"),
		pkgconfig.WithOptionalFile(),
		pkgconfig.WithDefaults(values),
	)
	require.NoError(t, err)

	return cfg
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(newConfig(t, nil))
	require.NoError(t, err)

	assert.Equal(t, entity.DefaultLayout, s.Layout)
	assert.Equal(t, DefaultEpochMs, s.Epoch.UnixMilli())
	assert.Equal(t, uint64(1000), s.SkewToleranceMs)
	assert.True(t, s.Calibrate)
	assert.Equal(t, 1000, s.BatchMax)
	assert.Equal(t, time.Second, s.WatchInterval)
	assert.Equal(t, identity.Config{
		Strategy:      identity.StrategyStatic,
		LookupTimeout: 5 * time.Second,
		NodeBits:      4,
	}, s.Identity)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := map[string]map[string]any{
		"sum is not 64":      {"ruid.layout.timestamp_bits": 40},
		"zero width":         {"ruid.layout.cluster_bits": 0, "ruid.layout.timestamp_bits": 46},
		"negative width":     {"ruid.layout.node_bits": -4},
		"width too large":    {"ruid.layout.sequence_bits": 300},
		"negative epoch":     {"ruid.epoch_ms": -1},
		"negative tolerance": {"ruid.skew_tolerance_ms": -1},
		"negative cluster":   {"ruid.identity.cluster_id": -2},
	}

	for name, overrides := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSettings(newConfig(t, overrides))
			assert.ErrorIs(t, err, entity.ErrConfig)
		})
	}
}

func TestNew_ServesIDs(t *testing.T) {
	epoch := time.UnixMilli(DefaultEpochMs).UTC()
	cfg := newConfig(t, map[string]any{
		"ruid.calibrate":           false,
		"ruid.identity.cluster_id": 2,
		"ruid.identity.node_id":    5,
	})

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	runner := pkgroutine.NewManager(2)

	closer, err := New(Dependency{
		Config:    cfg,
		Goroutine: runner,
		Router:    router,
		Context:   context.Background(),
		Clock:     fixedClock{now: epoch.Add(time.Second)},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	id, err := strconv.ParseUint(rec.Body.String(), 10, 64)
	require.NoError(t, err)
	// The start millisecond is already taken, so the first id uses sequence 1.
	assert.Equal(t, entity.Fields{Timestamp: 1000, Sequence: 1, ClusterID: 2, NodeID: 5}, entity.DefaultLayout.Unpack(id))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, closer(context.Background()))
	assert.NoError(t, runner.Wait())
}

func TestNew_Calibrates(t *testing.T) {
	epoch := time.UnixMilli(DefaultEpochMs).UTC()
	cfg := newConfig(t, map[string]any{"ruid.skew_tolerance_ms": 0})

	closer, err := New(Dependency{
		Config:    cfg,
		Goroutine: pkgroutine.NewManager(2),
		Router:    pkgrouter.NewRouter(pkguid.NewUUID()),
		Clock:     fixedClock{now: epoch.Add(time.Minute)},
	})
	require.NoError(t, err)
	require.NoError(t, closer(context.Background()))
}

func TestNew_Failures(t *testing.T) {
	epoch := time.UnixMilli(DefaultEpochMs).UTC()

	tests := []struct {
		name      string
		overrides map[string]any
		clock     fixedClock
		resolver  identity.Resolver
		wantErr   error
	}{
		{
			name:      "cluster out of range",
			overrides: map[string]any{"ruid.calibrate": false, "ruid.identity.cluster_id": 32},
			clock:     fixedClock{now: epoch.Add(time.Second)},
			wantErr:   entity.ErrConfig,
		},
		{
			name:      "node out of range from resolver",
			overrides: map[string]any{"ruid.calibrate": false},
			clock:     fixedClock{now: epoch.Add(time.Second)},
			resolver:  identity.Static{Identity: entity.Identity{NodeID: 16}},
			wantErr:   entity.ErrConfig,
		},
		{
			name:      "unknown identity strategy",
			overrides: map[string]any{"ruid.identity.strategy": "dns"},
			clock:     fixedClock{now: epoch.Add(time.Second)},
			wantErr:   entity.ErrConfig,
		},
		{
			name:      "clock before epoch",
			overrides: map[string]any{"ruid.calibrate": false},
			clock:     fixedClock{now: epoch.Add(-time.Second)},
			wantErr:   entity.ErrClockBeforeEpoch,
		},
		{
			name:      "stalled clock fails calibration",
			overrides: map[string]any{"ruid.skew_tolerance_ms": 5},
			clock:     fixedClock{now: epoch.Add(time.Second)},
			wantErr:   entity.ErrClockRegression,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Dependency{
				Config:    newConfig(t, tt.overrides),
				Goroutine: pkgroutine.NewManager(2),
				Router:    pkgrouter.NewRouter(pkguid.NewUUID()),
				Clock:     tt.clock,
				Resolver:  tt.resolver,
			})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
