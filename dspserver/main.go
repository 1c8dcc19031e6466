package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/cloudx-io/opendsp/bidsource"
	"github.com/cloudx-io/opendsp/catalog"
	"github.com/cloudx-io/opendsp/config"
	"github.com/cloudx-io/opendsp/metrics"
	"github.com/cloudx-io/opendsp/txn"
	"github.com/cloudx-io/opendsp/validation"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file (optional)")
	flag.Parse()
	defer glog.Flush()

	if err := run(*configPath); err != nil {
		glog.Exitf("opendsp failed: %v", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cat, err := buildCatalog(cfg.Catalog)
	if err != nil {
		return err
	}

	var (
		recorder metrics.Recorder = metrics.NilRecorder{}
		gatherer prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		pm := metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		recorder, gatherer = pm, pm.Registry
	}

	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return fmt.Errorf("failed to load request schema: %w", err)
	}

	engine := txn.NewEngine(validator, buildBidSource(cfg),
		txn.WithRecorder(recorder),
		txn.WithCurrency(cfg.Auction.Currency),
	)

	server := NewServer(cat, engine, recorder, gatherer, cfg.Auction.Timeouts(), cfg.Server.MaxWorkers)
	if cfg.Server.ValidateResponses {
		responseValidator, err := validation.NewResponseSchemaValidator()
		if err != nil {
			return fmt.Errorf("failed to load response schema: %w", err)
		}
		server.CheckResponses(responseValidator)
	}

	listener, err := Listen(cfg.Server)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fileCatalog, ok := cat.(*catalog.FileCatalog); ok {
		go reloadOnHangup(ctx, fileCatalog)
	}

	return server.Serve(ctx, listener, cfg.Server)
}

func buildCatalog(cfg config.Catalog) (catalog.Catalog, error) {
	switch cfg.Type {
	case config.CatalogRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach catalog redis at %s: %w", cfg.RedisAddr, err)
		}
		glog.Infof("Using redis catalog at %s (prefix %s)", cfg.RedisAddr, cfg.RedisPrefix)
		return catalog.NewRedisCatalog(client, cfg.RedisPrefix), nil
	default:
		return catalog.NewFileCatalog(cfg.Path)
	}
}

func buildBidSource(cfg *config.Configuration) txn.BidSource {
	if cfg.BidSource.Type == config.BidSourceHTTP {
		glog.Infof("Soliciting bids from %s", cfg.BidSource.URL)
		return bidsource.NewHTTP(&http.Client{Timeout: cfg.BidSource.Timeout}, cfg.BidSource.URL)
	}
	glog.Infof("Serving %d static campaigns", len(cfg.BidSource.Offers))
	return bidsource.NewStatic(cfg.BidSource.Offers, cfg.Auction.Currency)
}

func reloadOnHangup(ctx context.Context, c *catalog.FileCatalog) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := c.Reload(); err != nil {
				glog.Errorf("Catalog reload failed, keeping previous catalog: %v", err)
			}
		}
	}
}
