package models

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"kws_lib/nn"
)

// Cache memoizes built topologies. Topologies are immutable, so a hit hands
// out the shared instance. Failed builds are not cached.
type Cache struct {
	*lru.Cache[string, *nn.Topology]
	opts []Option
}

// NewCache creates a Cache holding up to size topologies. opts apply to
// every build made through it.
func NewCache(size int, opts ...Option) (*Cache, error) {
	c, err := lru.New[string, *nn.Topology](size)
	if err != nil {
		return nil, err
	}
	return &Cache{Cache: c, opts: opts}, nil
}

// Build returns the cached topology for the inputs or builds it.
func (c *Cache) Build(ms nn.ModelSettings, arch Architecture, info SizeInfo) (*nn.Topology, error) {
	key := cacheKey(ms, arch, info)
	if t, ok := c.Cache.Get(key); ok {
		return t, nil
	}
	t, err := Build(ms, arch, info, c.opts...)
	if err != nil {
		return nil, err
	}
	c.Cache.Add(key, t)
	return t, nil
}

func cacheKey(ms nn.ModelSettings, arch Architecture, info SizeInfo) string {
	if arch != DSCNN {
		info = nil
	}
	return fmt.Sprintf("%s|%+v|%v", arch, ms, []int(info))
}
