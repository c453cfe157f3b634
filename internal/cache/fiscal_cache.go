package cache

import (
	"time"

	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
)

const defaultFiscalTTL = 30 * time.Second

// FiscalConfigCache fronts hot read-path lookups of a store's fiscal
// configuration. Mutating use cases invalidate the store's entry.
type FiscalConfigCache interface {
	Get(storeID string) (*fiscaldomain.Response, bool)
	Set(storeID string, resp *fiscaldomain.Response)
	Invalidate(storeID string)
}

type fiscalConfigCache struct {
	entries Cache[string, *fiscaldomain.Response]
	ttl     time.Duration
}

// NewFiscalConfigCache returns an in-memory cache tuned for the
// tax-calculation read path.
func NewFiscalConfigCache() FiscalConfigCache {
	return &fiscalConfigCache{
		entries: NewTTLCache[string, *fiscaldomain.Response](),
		ttl:     defaultFiscalTTL,
	}
}

func (c *fiscalConfigCache) Get(storeID string) (*fiscaldomain.Response, bool) {
	return c.entries.Get(storeID)
}

func (c *fiscalConfigCache) Set(storeID string, resp *fiscaldomain.Response) {
	if resp == nil {
		return
	}
	c.entries.Set(storeID, resp, c.ttl)
}

func (c *fiscalConfigCache) Invalidate(storeID string) {
	c.entries.Delete(storeID)
}
