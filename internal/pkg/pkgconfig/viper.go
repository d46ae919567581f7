package pkgconfig

import (
	"encoding/base64"
	"errors"
	"path"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var _ Config = (*Viper)(nil)

// Option customizes how NewViper resolves values.
type Option func(*options)

type options struct {
	env          bool
	envPrefix    string
	defaults     map[string]any
	flags        *pflag.FlagSet
	flagKeys     map[string]string
	optionalFile bool
}

// WithEnv lets environment variables override file values. The key "a.b_c"
// is read from A_B_C, or PREFIX_A_B_C when prefix is not empty.
func WithEnv(prefix string) Option {
	return func(o *options) {
		o.env = true
		o.envPrefix = prefix
	}
}

// WithDefaults sets values used when neither the file, the environment nor a
// flag provides the key.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}

// WithFlags binds config keys to command line flags. keys maps config key to
// flag name. A flag only wins when it was set explicitly.
func WithFlags(fs *pflag.FlagSet, keys map[string]string) Option {
	return func(o *options) {
		o.flags = fs
		o.flagKeys = keys
	}
}

// WithOptionalFile tolerates a missing config file.
func WithOptionalFile() Option {
	return func(o *options) {
		o.optionalFile = true
	}
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper loads configuration from the given file path and returns a Viper-backed Config.
//
// The config file type is inferred by Viper from the filename extension.
func NewViper(pathFile string, opts ...Option) (*Viper, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()

	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}

	if o.env {
		if o.envPrefix != "" {
			v.SetEnvPrefix(o.envPrefix)
		}
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}

	if o.flags != nil {
		for key, name := range o.flagKeys {
			flag := o.flags.Lookup(name)
			if flag == nil {
				return nil, errors.New("pkgconfig: unknown flag " + name)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	filename := path.Base(pathFile)
	filePath := path.Dir(pathFile)

	configName := path.Base(filename[:len(filename)-len(path.Ext(filename))])

	v.AddConfigPath(filePath)
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !o.optionalFile || !errors.As(err, &notFound) {
			return nil, err
		}
		return &Viper{v: v}, nil
	}

	v.WatchConfig()

	return &Viper{v: v}, nil
}

// GetInt returns the value for key as int64.
func (vc *Viper) GetInt(key string) int64 {
	return vc.v.GetInt64(key)
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetFloat returns the value for key as float64.
func (vc *Viper) GetFloat(key string) float64 {
	return vc.v.GetFloat64(key)
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetBinary returns the value for key decoded from base64.
func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.v.GetString(key))
	if err != nil {
		return nil
	}

	return data
}

// GetArray returns the value for key split by commas.
func (vc *Viper) GetArray(key string) []string {
	return strings.Split(vc.v.GetString(key), ",")
}

// GetMap returns the value for key parsed from "k:v,k:v" pairs.
func (vc *Viper) GetMap(key string) map[string]string {
	pairs := strings.Split(vc.v.GetString(key), ",")
	m := make(map[string]string)

	for _, pair := range pairs {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) == 2 {
			m[kv[0]] = kv[1]
		}
	}

	return m
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	// No resources to close for ViperConfig; this is just for interface completeness.
	return nil
}
