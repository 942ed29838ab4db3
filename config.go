package weavedi

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// OptimizerConfig tunes the usage tracker and hot-path cache.
type OptimizerConfig struct {
	// Enabled turns hot-path promotion on. Usage counting stays on either
	// way so Stats keeps reporting per-key resolutions.
	Enabled bool `envconfig:"WEAVEDI_OPTIMIZER_ENABLED" default:"true"`
	// PromotionThreshold is the number of resolutions within one sweep
	// window after which a non-shared binding's factory is mirrored into
	// the hot cache.
	PromotionThreshold int64 `envconfig:"WEAVEDI_PROMOTION_THRESHOLD" default:"10"`
	// DemotionFloor demotes a hot entry whose window count fell below it
	// by the time a sweep runs.
	DemotionFloor int64 `envconfig:"WEAVEDI_DEMOTION_FLOOR" default:"5"`
	// SweepEvery triggers a demotion sweep opportunistically every Nth
	// counted resolution rather than from a dedicated scheduler.
	SweepEvery int64 `envconfig:"WEAVEDI_SWEEP_EVERY" default:"100"`
	// CooldownInterval rate-limits sweeps regardless of resolution volume.
	CooldownInterval time.Duration `envconfig:"WEAVEDI_COOLDOWN_INTERVAL" default:"5m"`
	// MaxHotEntries bounds the hot cache.
	MaxHotEntries int64 `envconfig:"WEAVEDI_MAX_HOT_ENTRIES" default:"1024"`
}

// DefaultOptimizerConfig returns the reference tuning.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		Enabled:            true,
		PromotionThreshold: 10,
		DemotionFloor:      5,
		SweepEvery:         100,
		CooldownInterval:   5 * time.Minute,
		MaxHotEntries:      1024,
	}
}

// OptimizerConfigFromEnv reads the WEAVEDI_* variables, honoring a .env file
// outside production.
func OptimizerConfigFromEnv() (OptimizerConfig, error) {
	env := os.Getenv("ENV")
	if env != "production" && env != "prod" {
		if err := godotenv.Load(".env"); err != nil {
			logger().Debug("no .env file loaded", "error", err)
		}
	}

	var cfg OptimizerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return OptimizerConfig{}, err
	}

	return cfg, nil
}
