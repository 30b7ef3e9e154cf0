// Package config loads and validates the application's runtime
// configuration from environment variables, in the teacher's
// koanf+validator idiom.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the network port the DNS server will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// ZoneDir is the directory LoadZoneDirectory walks for zone files.
	ZoneDir string `koanf:"zone_dir" validate:"required"`

	// SnapshotDB is the bbolt file path backing repos/zonetable's zone
	// snapshot cache. Empty disables the snapshot cache; LoadZoneDirectory
	// is then called directly instead of LoadZoneDirectoryCached.
	SnapshotDB string `koanf:"snapshot_db"`

	// MaxAdditionalRecords is loaded and validated but not read by any
	// other package: resolver.Options has no cap, and the resolver attaches
	// every glue/MX-target RRset it finds to the additional section.
	MaxAdditionalRecords uint `koanf:"max_additional_records" validate:"gte=0"`

	// StrictGlue is loaded and validated but not read by any other
	// package: the resolver sets FindOptions.FindGlueOK itself, and only
	// for its NS-target glue lookups.
	StrictGlue bool `koanf:"strict_glue"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                  "prod",
	LogLevel:             "info",
	Port:                 53,
	ZoneDir:              "/etc/authdns/zone.d/",
	SnapshotDB:           "/var/lib/authdns/zones.bolt",
	MaxAdditionalRecords: 0,
	StrictGlue:           true,
}

// envLoader loads environment variables with the prefix "DNS_", lower-
// cased and with the prefix stripped. Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "DNS_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "DNS_")), value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into k. Mockable in tests.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
