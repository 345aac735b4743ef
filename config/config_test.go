package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/MyJetTools/my-no-sql-core/config"
)

func TestDefaultHasPersistOnAndThirtySecondInterval(t *testing.T) {
	cfg := config.Default()
	require.True(t, cfg.DefaultPersist)
	require.Equal(t, 30*time.Second, cfg.GCInterval)
}

func TestLoadFallsBackToDefaultsWhenUnset(t *testing.T) {
	cfg := config.Load(viper.New())
	require.Equal(t, config.Default(), cfg)
}

func TestLoadOverridesFromViper(t *testing.T) {
	v := viper.New()
	v.Set("default_persist", false)
	v.Set("gc_interval", "5s")

	cfg := config.Load(v)
	require.False(t, cfg.DefaultPersist)
	require.Equal(t, 5*time.Second, cfg.GCInterval)
}
