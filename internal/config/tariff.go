package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ConsumptionTier reserves room for tiered pricing. Invoice computation
// uses only the flat rate; tiers are carried through config and the
// document but never evaluated.
type ConsumptionTier struct {
	MinUnits     float64 `mapstructure:"minUnits" json:"min_units"`
	MaxUnits     float64 `mapstructure:"maxUnits" json:"max_units"`
	PricePerUnit float64 `mapstructure:"pricePerUnit" json:"price_per_unit"`
}

// TariffConfig is the pricing and reminder schedule configuration.
type TariffConfig struct {
	UnitPrice  float64           `mapstructure:"unitPrice"`
	MonthlyFee float64           `mapstructure:"monthlyFee"`
	Currency   string            `mapstructure:"currency"`
	Tiers      []ConsumptionTier `mapstructure:"tiers"`

	ReminderDay       int `mapstructure:"reminderDay"`
	ReminderHour      int `mapstructure:"reminderHour"`
	ReminderMinute    int `mapstructure:"reminderMinute"`
	SecondReminderDay int `mapstructure:"secondReminderDay"`
}

func DefaultTariffConfig() TariffConfig {
	return TariffConfig{
		UnitPrice:         700,
		MonthlyFee:        250,
		Currency:          "﷼",
		ReminderDay:       1,
		ReminderHour:      13,
		ReminderMinute:    55,
		SecondReminderDay: 25,
	}
}

// TariffHolder hands out the current tariff and hot-reloads it when the
// config file changes on disk.
type TariffHolder struct {
	current atomic.Value // holds TariffConfig
}

// NewStaticTariffHolder wraps a fixed tariff, for tests and for deployments
// without a tariff file.
func NewStaticTariffHolder(cfg TariffConfig) *TariffHolder {
	holder := &TariffHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewTariffHolder(cfg Config) (*TariffHolder, error) {
	if cfg.TariffFile == "" {
		return NewStaticTariffHolder(DefaultTariffConfig()), nil
	}

	v := viper.New()
	v.SetConfigFile(cfg.TariffFile)

	v.SetEnvPrefix("WATERBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultTariffConfig()
		v.SetDefault("tariff.unitPrice", defaults.UnitPrice)
		v.SetDefault("tariff.monthlyFee", defaults.MonthlyFee)
		v.SetDefault("tariff.currency", defaults.Currency)
		v.SetDefault("tariff.reminderDay", defaults.ReminderDay)
		v.SetDefault("tariff.reminderHour", defaults.ReminderHour)
		v.SetDefault("tariff.reminderMinute", defaults.ReminderMinute)
		v.SetDefault("tariff.secondReminderDay", defaults.SecondReminderDay)
	}

	var tariff TariffConfig
	if err := v.UnmarshalKey("tariff", &tariff); err != nil {
		return nil, err
	}
	if err := validateTariffConfig(tariff); err != nil {
		return nil, err
	}

	holder := &TariffHolder{}
	holder.current.Store(tariff)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TariffConfig
		if err := v.UnmarshalKey("tariff", &updated); err != nil {
			log.Printf("[tariff-config] reload failed: %v", err)
			return
		}
		if err := validateTariffConfig(updated); err != nil {
			log.Printf("[tariff-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[tariff-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *TariffHolder) Get() TariffConfig {
	return h.current.Load().(TariffConfig)
}

func validateTariffConfig(cfg TariffConfig) error {
	if cfg.UnitPrice <= 0 {
		return errors.New("tariff.unitPrice must be positive")
	}
	if cfg.MonthlyFee < 0 {
		return errors.New("tariff.monthlyFee cannot be negative")
	}
	if cfg.ReminderDay < 1 || cfg.ReminderDay > 28 {
		return errors.New("tariff.reminderDay must be within 1..28")
	}
	if cfg.SecondReminderDay < 1 || cfg.SecondReminderDay > 28 {
		return errors.New("tariff.secondReminderDay must be within 1..28")
	}
	if cfg.ReminderHour < 0 || cfg.ReminderHour > 23 {
		return errors.New("tariff.reminderHour must be within 0..23")
	}
	if cfg.ReminderMinute < 0 || cfg.ReminderMinute > 59 {
		return errors.New("tariff.reminderMinute must be within 0..59")
	}
	return nil
}
