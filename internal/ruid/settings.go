package ruid

import (
	"fmt"
	"time"

	"github.com/statsig-io/ruid/internal/pkg/pkgconfig"
	"github.com/statsig-io/ruid/internal/ruid/entity"
	"github.com/statsig-io/ruid/internal/ruid/identity"
	"github.com/statsig-io/ruid/internal/ruid/usecase"
)

// DefaultEpochMs is 2008-01-31T00:00:00Z.
const DefaultEpochMs int64 = 1201737600000

// Settings is the startup configuration of the generator.
type Settings struct {
	Layout          entity.Layout
	Epoch           time.Time
	SkewToleranceMs uint64
	Calibrate       bool
	BatchMax        int
	WatchInterval   time.Duration
	Identity        identity.Config
}

// Defaults returns the values used for keys missing from the config file.
func Defaults() map[string]any {
	l := entity.DefaultLayout

	return map[string]any{
		"tz":                              "UTC",
		"log.level":                       "info",
		"server.address.http":             ":8080",
		"modules.ruid.enabled":            true,
		"ruid.epoch_ms":                   DefaultEpochMs,
		"ruid.layout.timestamp_bits":      l.TimestampBits,
		"ruid.layout.cluster_bits":        l.ClusterBits,
		"ruid.layout.node_bits":           l.NodeBits,
		"ruid.layout.sequence_bits":       l.SequenceBits,
		"ruid.skew_tolerance_ms":          usecase.DefaultSkewTolerance,
		"ruid.calibrate":                  true,
		"ruid.batch_max":                  usecase.DefaultBatchMax,
		"ruid.watchdog_interval_ms":       1000,
		"ruid.identity.strategy":          identity.StrategyStatic,
		"ruid.identity.cluster_id":        0,
		"ruid.identity.node_id":           0,
		"ruid.identity.lookup_timeout_ms": 5000,
		"ruid.identity.lookup_url":        "",
		"ruid.identity.interface":         "",
	}
}

// LoadSettings reads and validates the ruid.* keys.
func LoadSettings(cfg pkgconfig.Config) (Settings, error) {
	widths := make([]uint8, 0, 4)
	for _, key := range []string{"timestamp_bits", "cluster_bits", "node_bits", "sequence_bits"} {
		v := cfg.GetInt("ruid.layout." + key)
		if v < 0 || v > entity.IDBits {
			return Settings{}, fmt.Errorf("%w: ruid.layout.%s=%d is out of range", entity.ErrConfig, key, v)
		}
		widths = append(widths, uint8(v))
	}

	layout, err := entity.NewLayout(widths[0], widths[1], widths[2], widths[3])
	if err != nil {
		return Settings{}, err
	}

	epochMs := cfg.GetInt("ruid.epoch_ms")
	if epochMs < 0 {
		return Settings{}, fmt.Errorf("%w: ruid.epoch_ms must not be negative", entity.ErrConfig)
	}

	tolerance := cfg.GetInt("ruid.skew_tolerance_ms")
	if tolerance < 0 {
		return Settings{}, fmt.Errorf("%w: ruid.skew_tolerance_ms must not be negative", entity.ErrConfig)
	}

	clusterID := cfg.GetInt("ruid.identity.cluster_id")
	nodeID := cfg.GetInt("ruid.identity.node_id")
	if clusterID < 0 || nodeID < 0 {
		return Settings{}, fmt.Errorf("%w: cluster and node ids must not be negative", entity.ErrConfig)
	}

	return Settings{
		Layout:          layout,
		Epoch:           time.UnixMilli(epochMs).UTC(),
		SkewToleranceMs: uint64(tolerance),
		Calibrate:       cfg.GetBool("ruid.calibrate"),
		BatchMax:        int(cfg.GetInt("ruid.batch_max")),
		WatchInterval:   time.Duration(cfg.GetInt("ruid.watchdog_interval_ms")) * time.Millisecond,
		Identity: identity.Config{
			Strategy:      cfg.GetString("ruid.identity.strategy"),
			ClusterID:     uint64(clusterID),
			NodeID:        uint64(nodeID),
			LookupURL:     cfg.GetString("ruid.identity.lookup_url"),
			LookupTimeout: time.Duration(cfg.GetInt("ruid.identity.lookup_timeout_ms")) * time.Millisecond,
			Interface:     cfg.GetString("ruid.identity.interface"),
			NodeBits:      layout.NodeBits,
		},
	}, nil
}
