package usecase

import (
	"time"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

type DecodeResult struct {
	ID     uint64
	Fields entity.Fields
	Time   time.Time
	Valid  bool
	Reason string
}

type InfoResult struct {
	Layout          entity.Layout
	Epoch           time.Time
	SkewToleranceMs uint64
	Identity        entity.Identity
	Suffix          entity.Suffix
	BatchMax        int
}

type StatsResult struct {
	Counts        map[entity.Outcome]uint64
	LastError     string
	LastTimestamp uint64
	LastSequence  uint64
	Halted        bool
	HaltReason    string
}
