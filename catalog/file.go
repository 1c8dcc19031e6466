package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/cloudx-io/opendsp/dspapi"
)

// FileCatalog serves a catalog read from a YAML (or JSON) file. Reload swaps in a new
// snapshot atomically; requests already holding a roster keep the old one.
type FileCatalog struct {
	path string

	mu       sync.RWMutex
	snapshot *Snapshot
}

var _ Catalog = (*FileCatalog)(nil)

// NewFileCatalog loads path and fails if it cannot be parsed or validated.
func NewFileCatalog(path string) (*FileCatalog, error) {
	c := &FileCatalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On error the current snapshot stays in service.
func (c *FileCatalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", c.path, err)
	}

	snapshot, err := ParseDocument(data)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	glog.Infof("Loaded catalog %s: %d exchanges, %d advertisers", c.path, snapshot.Exchanges(), snapshot.Roster().Len())
	return nil
}

func (c *FileCatalog) Resolve(ctx context.Context, orgName string) (*dspapi.Exchange, *dspapi.Roster, error) {
	c.mu.RLock()
	snapshot := c.snapshot
	c.mu.RUnlock()
	return snapshot.Resolve(ctx, orgName)
}

// ParseDocument decodes and validates a serialized catalog.
func ParseDocument(data []byte) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return NewSnapshot(doc)
}
