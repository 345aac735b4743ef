// Package config holds the tunables the core leaves to its caller:
// whether new tables persist by default and how often the GC loop runs.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the ambient configuration surface around the core: nothing in
// jsonrow/expindex/dbrow/dbpartition/dbtable reads it directly, but a
// caller wiring up dbtable.New and gc.Service needs it from somewhere.
type Config struct {
	DefaultPersist bool
	GCInterval     time.Duration
}

// Default returns the configuration a fresh table/GC loop should start
// with absent any overrides.
func Default() Config {
	return Config{
		DefaultPersist: true,
		GCInterval:     30 * time.Second,
	}
}

// Load reads DefaultPersist/GCInterval out of v, falling back to Default()
// for any key v does not have set.
func Load(v *viper.Viper) Config {
	cfg := Default()

	if v.IsSet("default_persist") {
		cfg.DefaultPersist = v.GetBool("default_persist")
	}
	if v.IsSet("gc_interval") {
		cfg.GCInterval = v.GetDuration("gc_interval")
	}

	return cfg
}
