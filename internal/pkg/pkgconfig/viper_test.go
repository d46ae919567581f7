package pkgconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestViperConfigValues(t *testing.T) {
	path := writeConfigFile(t, "int: 42\nbool: true\nfloat: 3.14\nstring: hi\nbinary: aGVsbG8=\narray: a,b,c\nmap: k1:v1,k2:v2\n")

	cfg, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}
	defer func() {
		if err := cfg.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	if got := cfg.GetInt("int"); got != 42 {
		t.Fatalf("GetInt: expected 42, got %d", got)
	}
	if got := cfg.GetBool("bool"); got != true {
		t.Fatalf("GetBool: expected true, got %v", got)
	}
	if got := cfg.GetFloat("float"); got != 3.14 {
		t.Fatalf("GetFloat: expected 3.14, got %v", got)
	}
	if got := cfg.GetString("string"); got != "hi" {
		t.Fatalf("GetString: expected hi, got %q", got)
	}
	if got := string(cfg.GetBinary("binary")); got != "hello" {
		t.Fatalf("GetBinary: expected hello, got %q", got)
	}
	if got := cfg.GetArray("array"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("GetArray: unexpected value: %#v", got)
	}
	if got := cfg.GetMap("map"); !reflect.DeepEqual(got, map[string]string{"k1": "v1", "k2": "v2"}) {
		t.Fatalf("GetMap: unexpected value: %#v", got)
	}
}

func TestViperGetBinaryInvalid(t *testing.T) {
	path := writeConfigFile(t, "binary: not-base64\n")
	cfg, err := NewViper(path)
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}

	if got := cfg.GetBinary("binary"); got != nil {
		t.Fatalf("expected nil for invalid base64, got %v", got)
	}
}

func TestViperEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "ruid:\n  epoch_ms: 1000\n  identity:\n    cluster_id: 3\n")
	t.Setenv("RUIDTEST_RUID_IDENTITY_CLUSTER_ID", "9")

	cfg, err := NewViper(path, WithEnv("RUIDTEST"))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}

	if got := cfg.GetInt("ruid.identity.cluster_id"); got != 9 {
		t.Fatalf("expected env override 9, got %d", got)
	}
	if got := cfg.GetInt("ruid.epoch_ms"); got != 1000 {
		t.Fatalf("expected file value 1000, got %d", got)
	}
}

func TestViperEnvWithoutPrefix(t *testing.T) {
	path := writeConfigFile(t, "ruid:\n  batch_max: 10\n")
	t.Setenv("RUID_BATCH_MAX", "20")

	cfg, err := NewViper(path, WithEnv(""))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}
	if got := cfg.GetInt("ruid.batch_max"); got != 20 {
		t.Fatalf("expected env override 20, got %d", got)
	}
}

func TestViperDefaults(t *testing.T) {
	path := writeConfigFile(t, "ruid:\n  calibrate: false\n")

	cfg, err := NewViper(path, WithDefaults(map[string]any{
		"ruid.calibrate":         true,
		"ruid.skew_tolerance_ms": 1000,
	}))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}

	if got := cfg.GetBool("ruid.calibrate"); got {
		t.Fatalf("expected file value to win over default")
	}
	if got := cfg.GetInt("ruid.skew_tolerance_ms"); got != 1000 {
		t.Fatalf("expected default 1000, got %d", got)
	}
}

func TestViperFlags(t *testing.T) {
	path := writeConfigFile(t, "ruid:\n  identity:\n    cluster_id: 3\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("cluster", 0, "")
	keys := map[string]string{"ruid.identity.cluster_id": "cluster"}

	cfg, err := NewViper(path, WithFlags(fs, keys))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}
	if got := cfg.GetInt("ruid.identity.cluster_id"); got != 3 {
		t.Fatalf("unset flag must not override file, got %d", got)
	}

	if err := fs.Parse([]string{"--cluster", "7"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if got := cfg.GetInt("ruid.identity.cluster_id"); got != 7 {
		t.Fatalf("expected flag override 7, got %d", got)
	}

	if _, err := NewViper(path, WithFlags(fs, map[string]string{"x": "missing"})); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}

func TestViperMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	if _, err := NewViper(path); err == nil {
		t.Fatal("expected error for missing file")
	}

	cfg, err := NewViper(path, WithOptionalFile(), WithDefaults(map[string]any{"tz": "UTC"}))
	if err != nil {
		t.Fatalf("NewViper: %v", err)
	}
	if got := cfg.GetString("tz"); got != "UTC" {
		t.Fatalf("expected default tz, got %q", got)
	}
}
