package app

import (
	"os"

	"github.com/statsig-io/ruid/internal/pkg/pkgconfig"
	"github.com/statsig-io/ruid/internal/ruid"
)

// FlagKeys maps config keys to the command line flags that may override them.
var FlagKeys = map[string]string{
	"ruid.identity.cluster_id": "cluster",
}

// LoadConfig reads the config file with environment overrides (ruid.batch_max
// is RUID_BATCH_MAX) and the module defaults. An explicit path must exist; the default one may not.
func LoadConfig(opts Options) (pkgconfig.Config, error) {
	path := opts.ConfigPath
	optional := path == ""
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	vopts := []pkgconfig.Option{
		pkgconfig.WithEnv(""),
		pkgconfig.WithDefaults(ruid.Defaults()),
	}
	if opts.Flags != nil {
		keys := map[string]string{}
		for key, name := range FlagKeys {
			if opts.Flags.Lookup(name) != nil {
				keys[key] = name
			}
		}
		vopts = append(vopts, pkgconfig.WithFlags(opts.Flags, keys))
	}
	if optional {
		vopts = append(vopts, pkgconfig.WithOptionalFile())
	}

	return pkgconfig.NewViper(path, vopts...)
}
