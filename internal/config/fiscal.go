package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CountryDefault is a suggested standard rate for a country, offered to
// operators when they configure a fiscal region.
type CountryDefault struct {
	Country      string  `mapstructure:"country"`
	TaxType      string  `mapstructure:"taxType"`
	StandardRate float64 `mapstructure:"standardRate"`
}

// FiscalDefaults holds the reloadable fiscal seed data.
type FiscalDefaults struct {
	CountryDefaults []CountryDefault `mapstructure:"countryDefaults"`
}

func DefaultFiscalDefaults() FiscalDefaults {
	return FiscalDefaults{
		CountryDefaults: []CountryDefault{
			{Country: "Peru", TaxType: "vat", StandardRate: 18},
			{Country: "Germany", TaxType: "vat", StandardRate: 19},
			{Country: "Canada", TaxType: "gst", StandardRate: 5},
			{Country: "Singapore", TaxType: "gst", StandardRate: 9},
			{Country: "United States", TaxType: "sales_tax", StandardRate: 0},
		},
	}
}

// FiscalDefaultsHolder hot-reloads fiscal defaults from fiscal.yml.
type FiscalDefaultsHolder struct {
	current atomic.Value // holds FiscalDefaults
}

func NewFiscalDefaultsHolder() (*FiscalDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("fiscal")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/mercato/config") // Volume-mounted config
	v.AddConfigPath("/etc/mercato")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("MERCATO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultFiscalDefaults()
		v.SetDefault("fiscal.countryDefaults", defaults.CountryDefaults)
	}

	var cfg FiscalDefaults
	if err := v.UnmarshalKey("fiscal", &cfg); err != nil {
		return nil, err
	}
	if err := validateFiscalDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &FiscalDefaultsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FiscalDefaults
		if err := v.UnmarshalKey("fiscal", &updated); err != nil {
			log.Printf("[fiscal-config] reload failed: %v", err)
			return
		}
		if err := validateFiscalDefaults(updated); err != nil {
			log.Printf("[fiscal-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fiscal-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FiscalDefaultsHolder) Get() FiscalDefaults {
	return h.current.Load().(FiscalDefaults)
}

// SuggestedRate returns the configured default standard rate for a
// country, if one is known.
func (h *FiscalDefaultsHolder) SuggestedRate(country string) (float64, bool) {
	for _, def := range h.Get().CountryDefaults {
		if strings.EqualFold(strings.TrimSpace(def.Country), strings.TrimSpace(country)) {
			return def.StandardRate, true
		}
	}
	return 0, false
}

func validateFiscalDefaults(cfg FiscalDefaults) error {
	for _, def := range cfg.CountryDefaults {
		if strings.TrimSpace(def.Country) == "" {
			return errors.New("fiscal.countryDefaults entries require a country")
		}
		if def.StandardRate < 0 || def.StandardRate > 100 {
			return errors.New("fiscal.countryDefaults rates must be within [0,100]")
		}
	}
	return nil
}
