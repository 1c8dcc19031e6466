package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/cloudx-io/opendsp/dspapi"
)

// DefaultRedisPrefix namespaces catalog keys when no prefix is configured.
const DefaultRedisPrefix = "dsp:catalog"

// redisReader is the subset of redis.Cmdable the catalog needs.
type redisReader interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// RedisCatalog resolves exchanges from Redis. Each exchange is a JSON document under
// <prefix>:exchange:<org_name>; the advertiser list is a JSON array under
// <prefix>:advertisers. Both are read in a single MGET.
type RedisCatalog struct {
	client redisReader
	prefix string

	mu         sync.Mutex
	lastRaw    string
	lastRoster *dspapi.Roster
}

var _ Catalog = (*RedisCatalog)(nil)

func NewRedisCatalog(client redisReader, prefix string) *RedisCatalog {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCatalog{client: client, prefix: prefix}
}

func (c *RedisCatalog) exchangeKey(orgName string) string {
	return fmt.Sprintf("%s:exchange:%s", c.prefix, orgName)
}

func (c *RedisCatalog) advertisersKey() string {
	return c.prefix + ":advertisers"
}

func (c *RedisCatalog) Resolve(ctx context.Context, orgName string) (*dspapi.Exchange, *dspapi.Roster, error) {
	vals, err := c.client.MGet(ctx, c.exchangeKey(orgName), c.advertisersKey()).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read catalog for %q: %w", orgName, err)
	}
	if len(vals) != 2 {
		return nil, nil, fmt.Errorf("unexpected catalog reply of %d values", len(vals))
	}

	rawExchange, ok := vals[0].(string)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExchange, orgName)
	}

	var exchange dspapi.Exchange
	if err := json.Unmarshal([]byte(rawExchange), &exchange); err != nil {
		return nil, nil, fmt.Errorf("failed to decode exchange %q: %w", orgName, err)
	}
	if exchange.OrgName == "" {
		exchange.OrgName = orgName
	}

	rawAdvertisers, _ := vals[1].(string)
	roster, err := c.roster(rawAdvertisers)
	if err != nil {
		return nil, nil, err
	}
	return &exchange, roster, nil
}

// roster rebuilds the roster only when the stored advertiser list changed.
func (c *RedisCatalog) roster(raw string) (*dspapi.Roster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastRoster != nil && raw == c.lastRaw {
		return c.lastRoster, nil
	}

	var advertisers []dspapi.Advertiser
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &advertisers); err != nil {
			return nil, fmt.Errorf("failed to decode advertisers: %w", err)
		}
	}

	roster, err := dspapi.NewRoster(advertisers)
	if err != nil {
		return nil, fmt.Errorf("advertisers under %s rejected: %w", c.advertisersKey(), err)
	}

	c.lastRaw = raw
	c.lastRoster = roster
	return roster, nil
}
