package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/redis/go-redis/v9"
)

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	err    error
	keys   [][]string
}

func (f *fakeRedis) MGet(_ context.Context, keys ...string) *redis.SliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys)

	vals := make([]interface{}, len(keys))
	for i, key := range keys {
		if v, ok := f.values[key]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, f.err)
}

func TestRedisCatalog_Resolve(t *testing.T) {
	client := &fakeRedis{values: map[string]string{
		"dsp:catalog:exchange:ssp1": `{"display_name":"Supply One","adjustment_factors":{"s1":1.5}}`,
		"dsp:catalog:advertisers":   `[{"landing_page":"a.example","seats":{"ssp1":"s1"}}]`,
	}}
	c := NewRedisCatalog(client, "")

	exchange, roster, err := c.Resolve(context.Background(), "ssp1")
	assert.NoError(t, err)
	check.Equal(t, "ssp1", exchange.OrgName)
	check.Equal(t, 1.5, exchange.AdjustmentFactors["s1"])
	check.Equal(t, 1, roster.Len())
	check.Equal(t, []string{"dsp:catalog:exchange:ssp1", "dsp:catalog:advertisers"}, client.keys[0])

	_, again, err := c.Resolve(context.Background(), "ssp1")
	assert.NoError(t, err)
	check.True(t, roster == again)
}

func TestRedisCatalog_UnknownExchange(t *testing.T) {
	c := NewRedisCatalog(&fakeRedis{values: map[string]string{}}, "custom")

	_, _, err := c.Resolve(context.Background(), "ssp1")
	check.True(t, errors.Is(err, ErrUnknownExchange))
}

func TestRedisCatalog_Errors(t *testing.T) {
	c := NewRedisCatalog(&fakeRedis{err: errors.New("connection refused")}, "")
	_, _, err := c.Resolve(context.Background(), "ssp1")
	check.Error(t, err)
	check.False(t, errors.Is(err, ErrUnknownExchange))

	c = NewRedisCatalog(&fakeRedis{values: map[string]string{
		"dsp:catalog:exchange:ssp1": `{}`,
		"dsp:catalog:advertisers":   `[{"landing_page":"a.example","seats":{"ssp1":"s1"}},{"landing_page":"b.example","seats":{"ssp1":"s1"}}]`,
	}}, "")
	_, _, err = c.Resolve(context.Background(), "ssp1")
	check.Error(t, err)
}
