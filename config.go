package carealloc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/carealloc/internal/expr"
	"github.com/viant/carealloc/service/allocator"
	"github.com/viant/carealloc/service/dao/sql"
	"github.com/viant/carealloc/service/event"
	"github.com/viant/carealloc/service/scheduler"
	"github.com/viant/carealloc/tracing"
	"gopkg.in/yaml.v3"
)

// Store vendors
const (
	StoreMemory = "memory"
	StoreFs     = "fs"
	StoreMySQL  = "mysql"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON; cmd/carealloc overlays flags and
// environment variables on top.
type Config struct {
	HTTP      HTTPConfig        `json:"http" yaml:"http"`
	Scheduler scheduler.Config  `json:"scheduler" yaml:"scheduler"`
	Aging     AgingConfig       `json:"aging" yaml:"aging"`
	Inventory []allocator.Stock `json:"inventory" yaml:"inventory"`
	Store     StoreConfig       `json:"store" yaml:"store"`
	Events    *event.Config     `json:"events,omitempty" yaml:"events,omitempty"`
	Tracing   *tracing.Config   `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// HTTPConfig represents the API listener
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// AgingConfig controls priority aging
type AgingConfig struct {
	// Interval is the wait that improves effective priority by one point.
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Vendor string `json:"vendor" yaml:"vendor"`
	// BaseURL is the afs location of the fs store.
	BaseURL string      `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	MySQL   *sql.Config `json:"mysql,omitempty" yaml:"mysql,omitempty"`
}

// DefaultConfig returns a Config with in-memory storage, the default
// inventory and the default scheduling cadence.
func DefaultConfig() *Config {
	return &Config{
		HTTP:      HTTPConfig{Addr: ":8080"},
		Scheduler: scheduler.DefaultConfig(),
		Aging:     AgingConfig{Interval: allocator.DefaultConfig().AgingInterval},
		Inventory: allocator.DefaultInventory(),
		Store:     StoreConfig{Vendor: StoreMemory},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Aging.Interval <= 0 {
		errs = append(errs, fmt.Errorf("aging interval must be positive, got %v", c.Aging.Interval))
	}
	if err := allocator.ValidateInventory(c.Inventory); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Vendor {
	case StoreMemory:
	case StoreFs:
		if c.Store.BaseURL == "" {
			errs = append(errs, fmt.Errorf("fs store requires baseURL"))
		}
	case StoreMySQL:
		if c.Store.MySQL == nil {
			errs = append(errs, fmt.Errorf("mysql store requires mysql settings"))
		} else if err := c.Store.MySQL.Validate(); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store vendor: %q", c.Store.Vendor))
	}
	if c.Events != nil {
		if err := c.Events.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML config from URL, expanding ${env.KEY} references.
// Unset sections keep their defaults.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	return DecodeConfig([]byte(expr.ExpandEnv(string(data))))
}

// DecodeConfig decodes YAML over DefaultConfig and validates the result
func DecodeConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
