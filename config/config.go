// Package config loads the server configuration from an optional file and DSP_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cloudx-io/opendsp/bidsource"
	"github.com/cloudx-io/opendsp/reqcontext"
)

// EnvPrefix prefixes every environment override, e.g. DSP_SERVER_MAX_WORKERS.
const EnvPrefix = "DSP"

const (
	CatalogFile  = "file"
	CatalogRedis = "redis"

	BidSourceStatic = "static"
	BidSourceHTTP   = "http"
)

// Configuration is the complete server configuration, assembled by SetupViper from
// defaults, an optional file and DSP_ environment variables.
type Configuration struct {
	Server    Server    `mapstructure:"server"`
	Auction   Auction   `mapstructure:"auction"`
	Catalog   Catalog   `mapstructure:"catalog"`
	BidSource BidSource `mapstructure:"bid_source"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

type Server struct {
	Port int `mapstructure:"port"`
	// VsockPort switches the listener to AF_VSOCK when non-zero
	VsockPort       uint32        `mapstructure:"vsock_port"`
	MaxWorkers      int           `mapstructure:"max_workers"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// ValidateResponses checks every outgoing bid response against the OpenRTB schema
	ValidateResponses bool `mapstructure:"validate_responses"`
}

type Auction struct {
	DefaultRequestTimeoutMS int `mapstructure:"default_request_timeout_ms"`
	OfferTimeoutMS          int `mapstructure:"offer_timeout_ms"`
	// MaxRequestTimeoutMS caps the tmax a request may ask for
	MaxRequestTimeoutMS int    `mapstructure:"max_request_timeout_ms"`
	Currency            string `mapstructure:"currency"`
}

// Timeouts converts the configured milliseconds for request contexts.
func (a Auction) Timeouts() reqcontext.Timeouts {
	return reqcontext.Timeouts{
		DefaultRequest: time.Duration(a.DefaultRequestTimeoutMS) * time.Millisecond,
		Offer:          time.Duration(a.OfferTimeoutMS) * time.Millisecond,
		MaxRequest:     time.Duration(a.MaxRequestTimeoutMS) * time.Millisecond,
	}
}

type Catalog struct {
	Type        string `mapstructure:"type"`
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type BidSource struct {
	Type    string               `mapstructure:"type"`
	URL     string               `mapstructure:"url"`
	Offers  []bidsource.Campaign `mapstructure:"offers"`
	Timeout time.Duration        `mapstructure:"timeout"`
}

type Metrics struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// SetupViper registers defaults and environment overrides on v. If filename is not empty
// it is read as the configuration file.
func SetupViper(v *viper.Viper, filename string) error {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.vsock_port", 0)
	v.SetDefault("server.max_workers", 64)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.validate_responses", false)

	v.SetDefault("auction.default_request_timeout_ms", 250)
	v.SetDefault("auction.offer_timeout_ms", 100)
	v.SetDefault("auction.max_request_timeout_ms", 1000)
	v.SetDefault("auction.currency", "USD")

	v.SetDefault("catalog.type", CatalogFile)
	v.SetDefault("catalog.path", "catalog.yaml")
	v.SetDefault("catalog.redis_addr", "localhost:6379")
	v.SetDefault("catalog.redis_prefix", "dsp:catalog")

	v.SetDefault("bid_source.type", BidSourceStatic)
	v.SetDefault("bid_source.url", "")
	v.SetDefault("bid_source.timeout", "1s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "opendsp")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename == "" {
		return nil
	}
	v.SetConfigFile(filename)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", filename, err)
	}
	return nil
}

// New unmarshals and validates the configuration held by v.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.Auction.Currency = strings.ToUpper(c.Auction.Currency)
	c.Catalog.Type = strings.ToLower(c.Catalog.Type)
	c.BidSource.Type = strings.ToLower(c.BidSource.Type)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load is SetupViper followed by New on a fresh viper instance.
func Load(filename string) (*Configuration, error) {
	v := viper.New()
	if err := SetupViper(v, filename); err != nil {
		return nil, err
	}
	return New(v)
}

// Validate reports every invalid setting at once.
func (cfg *Configuration) Validate() error {
	var errs []error

	if cfg.Server.VsockPort == 0 && (cfg.Server.Port <= 0 || cfg.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.MaxWorkers <= 0 {
		errs = append(errs, fmt.Errorf("server.max_workers must be positive, got %d", cfg.Server.MaxWorkers))
	}
	if cfg.Auction.DefaultRequestTimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("auction.default_request_timeout_ms must be positive, got %d", cfg.Auction.DefaultRequestTimeoutMS))
	}
	if cfg.Auction.OfferTimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("auction.offer_timeout_ms must be positive, got %d", cfg.Auction.OfferTimeoutMS))
	}
	if cfg.Auction.MaxRequestTimeoutMS < cfg.Auction.DefaultRequestTimeoutMS {
		errs = append(errs, fmt.Errorf("auction.max_request_timeout_ms (%d) must not be below auction.default_request_timeout_ms (%d)",
			cfg.Auction.MaxRequestTimeoutMS, cfg.Auction.DefaultRequestTimeoutMS))
	}
	if len(cfg.Auction.Currency) != 3 {
		errs = append(errs, fmt.Errorf("auction.currency must be an ISO-4217 code, got %q", cfg.Auction.Currency))
	}

	switch cfg.Catalog.Type {
	case CatalogFile:
		if cfg.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for a file catalog"))
		}
	case CatalogRedis:
		if cfg.Catalog.RedisAddr == "" {
			errs = append(errs, errors.New("catalog.redis_addr is required for a redis catalog"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.type %q is not one of %s, %s", cfg.Catalog.Type, CatalogFile, CatalogRedis))
	}

	switch cfg.BidSource.Type {
	case BidSourceStatic:
	case BidSourceHTTP:
		if cfg.BidSource.URL == "" {
			errs = append(errs, errors.New("bid_source.url is required for an http bid source"))
		}
	default:
		errs = append(errs, fmt.Errorf("bid_source.type %q is not one of %s, %s", cfg.BidSource.Type, BidSourceStatic, BidSourceHTTP))
	}

	return errors.Join(errs...)
}
