// Package config loads the run configuration: the two store connections
// and the exception tables that steer the variant and cart stages. The
// exception lists used to be literals baked into the engine; keeping them
// in the operator's config file makes the policy auditable and testable on
// its own.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full run configuration.
type Config struct {
	Source      Store      `yaml:"source"`
	Destination Store      `yaml:"destination"`
	Exceptions  Exceptions `yaml:"exceptions"`
}

// Store names a database/sql driver and its DSN.
type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Exceptions are the known-odd legacy product IDs and how each resolves.
type Exceptions struct {
	// RecreatedProducts are legacy IDs whose product was soft-deleted and
	// recreated under another ID. Each aliases onto the already-inserted
	// variant located by base SKU and suffix.
	RecreatedProducts []RecreatedProduct `yaml:"recreated_products"`

	// DeletedProducts are legacy IDs with no surviving product at all.
	// Each gets a freshly inserted inactive placeholder product and
	// variant so old references keep resolving.
	DeletedProducts []DeletedProduct `yaml:"deleted_products"`

	// IgnoredCartProducts are legacy product IDs silently dropped from
	// saved baskets, with no warning. Permanently deleted products whose
	// basket rows are expected noise.
	IgnoredCartProducts []int64 `yaml:"ignored_cart_products"`
}

// RecreatedProduct aliases one legacy product ID onto an existing variant.
type RecreatedProduct struct {
	LegacyID int64  `yaml:"legacy_id"`
	BaseSKU  string `yaml:"base_sku"`
	Suffix   string `yaml:"suffix"`
}

// DeletedProduct describes the placeholder a vanished legacy product gets.
type DeletedProduct struct {
	LegacyID int64  `yaml:"legacy_id"`
	SKU      string `yaml:"sku"`
	Name     string `yaml:"name"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Source.Driver == "" {
		cfg.Source.Driver = "mysql"
	}
	if cfg.Destination.Driver == "" {
		cfg.Destination.Driver = "pgx"
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Source.DSN == "" {
		return fmt.Errorf("source.dsn is required")
	}
	if c.Destination.DSN == "" {
		return fmt.Errorf("destination.dsn is required")
	}
	for i, r := range c.Exceptions.RecreatedProducts {
		if r.LegacyID == 0 || r.BaseSKU == "" {
			return fmt.Errorf("recreated_products[%d]: legacy_id and base_sku are required", i)
		}
	}
	for i, p := range c.Exceptions.DeletedProducts {
		if p.LegacyID == 0 || p.SKU == "" {
			return fmt.Errorf("deleted_products[%d]: legacy_id and sku are required", i)
		}
	}
	return nil
}
