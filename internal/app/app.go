package app

import (
	"context"
	"net/http"

	"github.com/spf13/pflag"

	"github.com/statsig-io/ruid/internal/pkg/pkgconfig"
	"github.com/statsig-io/ruid/internal/pkg/pkglog"
	"github.com/statsig-io/ruid/internal/pkg/pkgrouter"
	"github.com/statsig-io/ruid/internal/pkg/pkgroutine"
	"github.com/statsig-io/ruid/internal/pkg/pkguid"
)

// Options come from the command line.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string
	// Flags, when set, may override config keys (see FlagKeys).
	Flags *pflag.FlagSet
}

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	options Options

	// configuration
	config pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	goroutine *pkgroutine.Manager

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	// halted receives the fatal error that stopped a module
	halted chan error

	//
	closerFn map[string]func(context.Context) error
}

func New(opts Options) *App {
	pkglog.InitLogging()

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:     ctx,
		cancel:  cancel,
		options: opts,
		halted:  make(chan error, 1),
	}

	app.initConfig()
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
