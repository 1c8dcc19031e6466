package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	assert.NoError(t, err)

	check.Equal(t, 8080, cfg.Server.Port)
	check.Equal(t, 64, cfg.Server.MaxWorkers)
	check.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	check.Equal(t, "USD", cfg.Auction.Currency)
	check.Equal(t, CatalogFile, cfg.Catalog.Type)
	check.Equal(t, BidSourceStatic, cfg.BidSource.Type)
	check.True(t, cfg.Metrics.Enabled)
	check.False(t, cfg.Server.ValidateResponses)

	timeouts := cfg.Auction.Timeouts()
	check.Equal(t, 250*time.Millisecond, timeouts.DefaultRequest)
	check.Equal(t, 100*time.Millisecond, timeouts.Offer)
	check.Equal(t, time.Second, timeouts.MaxRequest)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dsp.yaml")
	content := `
server:
  port: 9000
  max_workers: 8
auction:
  currency: eur
catalog:
  type: redis
  redis_addr: redis:6379
bid_source:
  type: static
  offers:
    - landing_page: a.example
      price: 1.25
      creative_id: cr-1
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DSP_SERVER_MAX_WORKERS", "16")
	t.Setenv("DSP_AUCTION_OFFER_TIMEOUT_MS", "40")
	t.Setenv("DSP_SERVER_VALIDATE_RESPONSES", "true")

	cfg, err := Load(path)
	assert.NoError(t, err)

	check.Equal(t, 9000, cfg.Server.Port)
	check.Equal(t, 16, cfg.Server.MaxWorkers)
	check.Equal(t, 40, cfg.Auction.OfferTimeoutMS)
	check.True(t, cfg.Server.ValidateResponses)
	check.Equal(t, "EUR", cfg.Auction.Currency)
	check.Equal(t, CatalogRedis, cfg.Catalog.Type)
	check.Equal(t, "redis:6379", cfg.Catalog.RedisAddr)
	assert.Equal(t, 1, len(cfg.BidSource.Offers))
	check.Equal(t, "a.example", cfg.BidSource.Offers[0].LandingPage)
	check.Equal(t, 1.25, cfg.BidSource.Offers[0].Price)
	check.Equal(t, "cr-1", cfg.BidSource.Offers[0].CreativeID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	check.Error(t, err)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := &Configuration{
		Server:    Server{Port: 0, MaxWorkers: 0},
		Auction:   Auction{Currency: "US"},
		Catalog:   Catalog{Type: "sql"},
		BidSource: BidSource{Type: BidSourceHTTP},
	}

	err := cfg.Validate()
	assert.Error(t, err)

	msg := err.Error()
	for _, key := range []string{
		"server.port", "server.max_workers", "auction.default_request_timeout_ms",
		"auction.offer_timeout_ms", "auction.currency", "catalog.type", "bid_source.url",
	} {
		check.True(t, strings.Contains(msg, key))
	}
}

func TestValidate_MaxRequestTimeoutBelowDefault(t *testing.T) {
	t.Setenv("DSP_AUCTION_MAX_REQUEST_TIMEOUT_MS", "100")

	_, err := Load("")
	assert.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "auction.max_request_timeout_ms"))
}

func TestValidate_VsockSkipsPort(t *testing.T) {
	cfg := &Configuration{
		Server:    Server{VsockPort: 5000, MaxWorkers: 4},
		Auction:   Auction{DefaultRequestTimeoutMS: 100, OfferTimeoutMS: 50, MaxRequestTimeoutMS: 500, Currency: "USD"},
		Catalog:   Catalog{Type: CatalogFile, Path: "catalog.yaml"},
		BidSource: BidSource{Type: BidSourceStatic},
	}
	check.NoError(t, cfg.Validate())
}
