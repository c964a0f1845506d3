package fetcher

import "sync"

// Cache holds fetched entry documents keyed by remote name and URL.
type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key string) (*Document, bool) {
	v, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Document), true
}

func (c *Cache) Set(key string, doc *Document) {
	c.data.Store(key, doc)
}

// Clear drops every cached document.
func (c *Cache) Clear() {
	c.data.Range(func(k, _ any) bool {
		c.data.Delete(k)
		return true
	})
}
