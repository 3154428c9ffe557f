package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/orderdesk/internal/freight"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CommerceConfig holds the commercial parameters editable at runtime through
// commerce.yml. Amounts are decimal strings.
type CommerceConfig struct {
	OriginPostalCode string            `mapstructure:"origin_postal_code"`
	Freight          FreightConfig     `mapstructure:"freight"`
	Insurance        InsuranceConfig   `mapstructure:"insurance"`
	DiscountCodes    map[string]string `mapstructure:"discount_codes"`
	Branding         BrandingConfig    `mapstructure:"branding"`
}

type FreightConfig struct {
	BasePrice       string `mapstructure:"base_price"`
	PerKgRate       string `mapstructure:"per_kg_rate"`
	PerRegionRate   string `mapstructure:"per_region_rate"`
	DefaultWeightKg string `mapstructure:"default_weight_kg"`
}

type InsuranceConfig struct {
	Rate     string   `mapstructure:"rate"`
	Carriers []string `mapstructure:"carriers"`
}

type BrandingConfig struct {
	SiteName string `mapstructure:"site_name"`
	Address  string `mapstructure:"address"`
	Phone    string `mapstructure:"phone"`
	Email    string `mapstructure:"email"`
	LogoPath string `mapstructure:"logo_path"`
}

func DefaultCommerceConfig() CommerceConfig {
	return CommerceConfig{
		OriginPostalCode: "01310100",
		Freight: FreightConfig{
			BasePrice:       "18.50",
			PerKgRate:       "4.20",
			PerRegionRate:   "2.50",
			DefaultWeightKg: "0.5",
		},
		Insurance: InsuranceConfig{
			Rate:     "0.01",
			Carriers: []string{"sedex", "sedex_10", "transportadora"},
		},
		DiscountCodes: map[string]string{"DESCONTO10": "0.10"},
		Branding: BrandingConfig{
			SiteName: "Orderdesk",
		},
	}
}

// Rules converts the config into the aggregate's pricing rules.
func (c CommerceConfig) Rules() (orderdomain.Rules, error) {
	parse := func(field, raw string) (decimal.Decimal, error) {
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, fmt.Errorf("commerce.%s: %w", field, err)
		}
		if v.Sign() < 0 {
			return decimal.Zero, fmt.Errorf("commerce.%s cannot be negative", field)
		}
		return v, nil
	}

	var (
		rules orderdomain.Rules
		err   error
	)
	if rules.Freight.BasePrice, err = parse("freight.base_price", c.Freight.BasePrice); err != nil {
		return rules, err
	}
	if rules.Freight.PerKgRate, err = parse("freight.per_kg_rate", c.Freight.PerKgRate); err != nil {
		return rules, err
	}
	if rules.Freight.PerRegionRate, err = parse("freight.per_region_rate", c.Freight.PerRegionRate); err != nil {
		return rules, err
	}
	if rules.Freight.DefaultWeightKg, err = parse("freight.default_weight_kg", c.Freight.DefaultWeightKg); err != nil {
		return rules, err
	}
	if rules.InsuranceRate, err = parse("insurance.rate", c.Insurance.Rate); err != nil {
		return rules, err
	}

	origin := freight.CleanPostalCode(c.OriginPostalCode)
	if len(origin) != freight.PostalCodeLength {
		return rules, fmt.Errorf("commerce.origin_postal_code must have %d digits", freight.PostalCodeLength)
	}
	rules.OriginPostalCode = origin
	rules.InsuredCarriers = append([]string(nil), c.Insurance.Carriers...)

	rules.DiscountCodes = make(map[string]decimal.Decimal, len(c.DiscountCodes))
	for code, raw := range c.DiscountCodes {
		rate, err := parse("discount_codes."+code, raw)
		if err != nil {
			return rules, err
		}
		if rate.GreaterThan(decimal.NewFromInt(1)) {
			return rules, fmt.Errorf("commerce.discount_codes.%s must be a fraction of 1", code)
		}
		rules.DiscountCodes[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rules, nil
}

func validateCommerceConfig(cfg CommerceConfig) error {
	if strings.TrimSpace(cfg.Branding.SiteName) == "" {
		return errors.New("commerce.branding.site_name cannot be empty")
	}
	_, err := cfg.Rules()
	return err
}

type commerceSnapshot struct {
	config CommerceConfig
	rules  orderdomain.Rules
}

// CommerceConfigHolder serves the latest valid commerce.yml. Invalid reloads
// are logged and ignored.
type CommerceConfigHolder struct {
	current atomic.Value // holds commerceSnapshot
}

func NewCommerceConfigHolder(appCfg Config, log *zap.Logger) (*CommerceConfigHolder, error) {
	log = log.Named("commerce.config")
	v := viper.New()

	if appCfg.CommerceFile != "" {
		v.SetConfigFile(appCfg.CommerceFile)
	} else {
		v.SetConfigName("commerce")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/orderdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ORDERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setCommerceDefaults(v, DefaultCommerceConfig())

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
		log.Info("commerce.yml not found, using defaults")
	}

	snapshot, err := readCommerce(v)
	if err != nil {
		return nil, err
	}
	holder := &CommerceConfigHolder{}
	holder.current.Store(snapshot)

	if found {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readCommerce(v)
			if err != nil {
				log.Warn("invalid commerce config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("commerce config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// NewStaticCommerceConfigHolder serves cfg without watching any file.
func NewStaticCommerceConfigHolder(cfg CommerceConfig) (*CommerceConfigHolder, error) {
	if err := validateCommerceConfig(cfg); err != nil {
		return nil, err
	}
	rules, _ := cfg.Rules()
	holder := &CommerceConfigHolder{}
	holder.current.Store(commerceSnapshot{config: cfg, rules: rules})
	return holder, nil
}

func (h *CommerceConfigHolder) Get() CommerceConfig {
	return h.current.Load().(commerceSnapshot).config
}

// Rules returns the pricing rules derived from the current config.
func (h *CommerceConfigHolder) Rules() orderdomain.Rules {
	return h.current.Load().(commerceSnapshot).rules
}

// commerceFile unmarshals from the root so defaults merge with partial files.
type commerceFile struct {
	Commerce CommerceConfig `mapstructure:"commerce"`
}

func readCommerce(v *viper.Viper) (commerceSnapshot, error) {
	var file commerceFile
	if err := v.Unmarshal(&file); err != nil {
		return commerceSnapshot{}, err
	}
	cfg := file.Commerce
	if err := validateCommerceConfig(cfg); err != nil {
		return commerceSnapshot{}, err
	}
	rules, err := cfg.Rules()
	if err != nil {
		return commerceSnapshot{}, err
	}
	return commerceSnapshot{config: cfg, rules: rules}, nil
}

func setCommerceDefaults(v *viper.Viper, d CommerceConfig) {
	v.SetDefault("commerce.origin_postal_code", d.OriginPostalCode)
	v.SetDefault("commerce.freight.base_price", d.Freight.BasePrice)
	v.SetDefault("commerce.freight.per_kg_rate", d.Freight.PerKgRate)
	v.SetDefault("commerce.freight.per_region_rate", d.Freight.PerRegionRate)
	v.SetDefault("commerce.freight.default_weight_kg", d.Freight.DefaultWeightKg)
	v.SetDefault("commerce.insurance.rate", d.Insurance.Rate)
	v.SetDefault("commerce.insurance.carriers", d.Insurance.Carriers)
	v.SetDefault("commerce.discount_codes", d.DiscountCodes)
	v.SetDefault("commerce.branding.site_name", d.Branding.SiteName)
}
