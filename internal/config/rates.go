package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RateEntry is one service-type rate seeded into the rate card on startup.
type RateEntry struct {
	Code        int     `mapstructure:"code"`
	Description string  `mapstructure:"description"`
	UnitRate    float64 `mapstructure:"unitRate"`
}

// RatesConfig holds the default per-service-type unit rates.
type RatesConfig struct {
	Defaults []RateEntry `mapstructure:"defaults"`
}

// DefaultRatesConfig mirrors the carrier's standard rate sheet.
func DefaultRatesConfig() RatesConfig {
	return RatesConfig{
		Defaults: []RateEntry{
			{Code: 0, Description: "Standard delivery", UnitRate: 3.50},
			{Code: 6, Description: "Bulk leg", UnitRate: 0.50},
			{Code: 8, Description: "Return leg", UnitRate: 0.50},
			{Code: 9, Description: "Express delivery", UnitRate: 2.00},
		},
	}
}

// RatesConfigHolder exposes the current rates config and hot-reloads it on file change.
type RatesConfigHolder struct {
	current atomic.Value // holds RatesConfig
}

func NewRatesConfigHolder() (*RatesConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rates")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/payroll")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &RatesConfigHolder{}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultRatesConfig())
		return holder, nil
	}

	var cfg RatesConfig
	if err := v.UnmarshalKey("rates", &cfg); err != nil {
		return nil, err
	}
	if err := validateRatesConfig(cfg); err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RatesConfig
		if err := v.UnmarshalKey("rates", &updated); err != nil {
			log.Printf("[rates-config] reload failed: %v", err)
			return
		}
		if err := validateRatesConfig(updated); err != nil {
			log.Printf("[rates-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rates-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RatesConfigHolder) Get() RatesConfig {
	return h.current.Load().(RatesConfig)
}

func validateRatesConfig(cfg RatesConfig) error {
	if len(cfg.Defaults) == 0 {
		return errors.New("rates.defaults cannot be empty")
	}
	seen := make(map[int]bool, len(cfg.Defaults))
	for _, entry := range cfg.Defaults {
		if entry.UnitRate < 0 {
			return errors.New("rates.defaults unitRate cannot be negative")
		}
		if seen[entry.Code] {
			return errors.New("rates.defaults contains a duplicate code")
		}
		seen[entry.Code] = true
	}
	return nil
}
