package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/statsig-io/ruid/internal/ruid"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.ruid.enabled") {
		closer, err := ruid.New(ruid.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			OnHalt:    a.halt,
		})
		if err != nil {
			slog.Error("failed to init module ruid", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Ruid"] = closer
		}
	}
}

// halt records the first fatal error; Start shuts the application down on it.
func (a *App) halt(err error) {
	select {
	case a.halted <- err:
	default:
	}
}
