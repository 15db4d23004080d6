package points

import (
	"time"

	"github.com/mira-amm/pointsx/pkg/utils"
)

type Config struct {
	// Epochs pins the epoch numbers to aggregate. Empty selects every epoch
	// rewarding RewardAssetID.
	Epochs        []int
	RewardAssetID string

	EpochTTL       time.Duration
	TotalTTL       time.Duration
	RefreshTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RewardAssetID:  "Points",
		EpochTTL:       20 * time.Minute,
		TotalTTL:       30 * time.Minute,
		RefreshTimeout: 10 * time.Minute,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Epochs:         utils.EnvInts("POINTS_EPOCHS"),
		RewardAssetID:  utils.Env("POINTS_REWARD_ASSET", def.RewardAssetID),
		EpochTTL:       utils.EnvDuration("POINTS_EPOCH_TTL", def.EpochTTL),
		TotalTTL:       utils.EnvDuration("POINTS_TOTAL_TTL", def.TotalTTL),
		RefreshTimeout: utils.EnvDuration("POINTS_REFRESH_TIMEOUT", def.RefreshTimeout),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RewardAssetID == "" {
		c.RewardAssetID = def.RewardAssetID
	}
	if c.EpochTTL <= 0 {
		c.EpochTTL = def.EpochTTL
	}
	if c.TotalTTL <= 0 {
		c.TotalTTL = def.TotalTTL
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = def.RefreshTimeout
	}
	return c
}
