package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RewardsConfig is the runtime-tunable policy for referral bonuses, wallet
// usage, and live order feeds. Amounts are in minor currency units.
type RewardsConfig struct {
	ReferrerBonus        int64         `mapstructure:"referrerBonus"`
	NewUserBonus         int64         `mapstructure:"newUserBonus"`
	MinQualifyingTotal   int64         `mapstructure:"minQualifyingTotal"`
	WalletMaxPercent     int           `mapstructure:"walletMaxPercent"`
	TaxPercent           int           `mapstructure:"taxPercent"`
	DeliveryFee          int64         `mapstructure:"deliveryFee"`
	LiveFeedCapacity     int           `mapstructure:"liveFeedCapacity"`
	LiveFeedHeartbeat    time.Duration `mapstructure:"liveFeedHeartbeat"`
	DuplicateOrderWindow time.Duration `mapstructure:"duplicateOrderWindow"`
}

func DefaultRewardsConfig() RewardsConfig {
	return RewardsConfig{
		ReferrerBonus:        5000,
		NewUserBonus:         2500,
		MinQualifyingTotal:   20000,
		WalletMaxPercent:     50,
		TaxPercent:           8,
		DeliveryFee:          1500,
		LiveFeedCapacity:     100,
		LiveFeedHeartbeat:    30 * time.Second,
		DuplicateOrderWindow: 30 * time.Second,
	}
}

// RewardsConfigHolder serves the current RewardsConfig and hot-reloads it
// when the backing file changes. Invalid reloads are ignored.
type RewardsConfigHolder struct {
	current atomic.Value // holds RewardsConfig
}

func NewRewardsConfigHolder() (*RewardsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rewards")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/plateful/config")
	v.AddConfigPath("/etc/plateful")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PLATEFUL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRewardsConfig()
	v.SetDefault("rewards.referrerBonus", defaults.ReferrerBonus)
	v.SetDefault("rewards.newUserBonus", defaults.NewUserBonus)
	v.SetDefault("rewards.minQualifyingTotal", defaults.MinQualifyingTotal)
	v.SetDefault("rewards.walletMaxPercent", defaults.WalletMaxPercent)
	v.SetDefault("rewards.taxPercent", defaults.TaxPercent)
	v.SetDefault("rewards.deliveryFee", defaults.DeliveryFee)
	v.SetDefault("rewards.liveFeedCapacity", defaults.LiveFeedCapacity)
	v.SetDefault("rewards.liveFeedHeartbeat", defaults.LiveFeedHeartbeat)
	v.SetDefault("rewards.duplicateOrderWindow", defaults.DuplicateOrderWindow)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg RewardsConfig
	if err := v.UnmarshalKey("rewards", &cfg); err != nil {
		return nil, err
	}
	if err := validateRewardsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RewardsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RewardsConfig
		if err := v.UnmarshalKey("rewards", &updated); err != nil {
			log.Printf("[rewards-config] reload failed: %v", err)
			return
		}
		if err := validateRewardsConfig(updated); err != nil {
			log.Printf("[rewards-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rewards-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RewardsConfigHolder) Get() RewardsConfig {
	return h.current.Load().(RewardsConfig)
}

// NewStaticRewardsConfigHolder returns a holder pinned to cfg, for tests and
// embedded callers that do not want file watching.
func NewStaticRewardsConfigHolder(cfg RewardsConfig) *RewardsConfigHolder {
	holder := &RewardsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateRewardsConfig(cfg RewardsConfig) error {
	if cfg.ReferrerBonus < 0 || cfg.NewUserBonus < 0 {
		return errors.New("rewards bonuses cannot be negative")
	}
	if cfg.WalletMaxPercent < 0 || cfg.WalletMaxPercent > 100 {
		return errors.New("rewards.walletMaxPercent must be within [0,100]")
	}
	if cfg.TaxPercent < 0 || cfg.TaxPercent > 100 {
		return errors.New("rewards.taxPercent must be within [0,100]")
	}
	if cfg.DeliveryFee < 0 {
		return errors.New("rewards.deliveryFee cannot be negative")
	}
	if cfg.LiveFeedCapacity <= 0 {
		return errors.New("rewards.liveFeedCapacity must be positive")
	}
	if cfg.LiveFeedHeartbeat <= 0 {
		return errors.New("rewards.liveFeedHeartbeat must be positive")
	}
	return nil
}
