package ruid

import (
	"context"
	"log/slog"
	"time"

	"github.com/statsig-io/ruid/internal/pkg/pkgconfig"
	"github.com/statsig-io/ruid/internal/pkg/pkgrouter"
	"github.com/statsig-io/ruid/internal/pkg/pkgroutine"
	"github.com/statsig-io/ruid/internal/ruid/identity"
	"github.com/statsig-io/ruid/internal/ruid/inbound"
	"github.com/statsig-io/ruid/internal/ruid/store"
	"github.com/statsig-io/ruid/internal/ruid/usecase"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	// OnHalt is told about the fatal error that stopped the generator.
	OnHalt func(err error)

	// Clock and Resolver override the system clock and the configured
	// identity strategy.
	Clock    usecase.Clock
	Resolver identity.Resolver
}

func New(dep Dependency) (func(context.Context) error, error) {
	ctx := dep.Context
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := LoadSettings(dep.Config)
	if err != nil {
		return nil, err
	}

	resolver := dep.Resolver
	if resolver == nil {
		resolver, err = identity.New(settings.Identity)
		if err != nil {
			return nil, err
		}
	}

	id, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	suffix, err := settings.Layout.Suffix(id)
	if err != nil {
		return nil, err
	}

	clock := usecase.NewClockAdapter(dep.Clock, settings.Epoch, settings.Layout)

	var start uint64
	if settings.Calibrate {
		start, err = usecase.Calibrate(ctx, clock, time.Duration(settings.SkewToleranceMs)*time.Millisecond)
	} else {
		start, err = clock.NowMs()
	}
	if err != nil {
		return nil, err
	}

	allocator, err := usecase.NewAllocator(usecase.AllocatorConfig{
		Layout:          settings.Layout,
		Suffix:          suffix,
		SkewToleranceMs: settings.SkewToleranceMs,
		Start:           start,
	})
	if err != nil {
		return nil, err
	}

	uc := usecase.New(usecase.Dependency{
		Allocator:     allocator,
		Clock:         clock,
		Stats:         store.NewInMemoryStats(),
		Identity:      id,
		BatchMax:      settings.BatchMax,
		WatchInterval: settings.WatchInterval,
		OnHalt:        dep.OnHalt,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	dep.Router.AddHealthCheck(func(context.Context) error {
		return uc.Halted()
	})

	watchCtx, cancel := context.WithCancel(ctx)
	dep.Goroutine.Go(watchCtx, "clock watchdog", uc.Watch)

	slog.InfoContext(ctx, "id generator ready",
		"cluster_id", id.ClusterID,
		"node_id", id.NodeID,
		"suffix", uint64(suffix),
		"start_ms", start,
		"layout", settings.Layout.String(),
	)

	return func(context.Context) error {
		cancel()
		return nil
	}, nil
}
