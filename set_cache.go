package resources

import (
	"sync"

	"go.uber.org/zap"
)

// lastUsed is the single slot fast path in front of the set map.
type lastUsed struct {
	locale string
	set    *ResourceSet
}

// setCache maps locale names to resource sets. One set may be registered under
// several names when a locale falls back to a less specific container.
type setCache struct {
	mu   sync.Mutex
	sets map[string]*ResourceSet

	lastMu sync.Mutex
	last   lastUsed

	logger *zap.Logger
}

func newSetCache(logger *zap.Logger) *setCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &setCache{
		sets:   make(map[string]*ResourceSet),
		logger: logger,
	}
}

// fast returns the set in the last used slot when it belongs to locale. A
// slot holding a closed set is cleared instead.
func (c *setCache) fast(locale string) *ResourceSet {
	c.lastMu.Lock()
	last := c.last
	c.lastMu.Unlock()

	if last.set == nil || last.locale != locale {
		return nil
	}
	if last.set.isClosed() {
		c.lastMu.Lock()
		if c.last.set == last.set {
			c.last = lastUsed{}
		}
		c.lastMu.Unlock()
		return nil
	}
	return last.set
}

// remember points the fast slot at set, only while the map still registers
// set under locale. The check and the write happen under the map lock so a
// concurrent releaseAll either clears the slot afterwards or is seen here.
func (c *setCache) remember(locale string, set *ResourceSet) {
	if set == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets[locale] != set {
		return
	}
	c.lastMu.Lock()
	c.last = lastUsed{locale: locale, set: set}
	c.lastMu.Unlock()
}

// get reads the map only; the fast slot is never a source of truth.
func (c *setCache) get(locale string) *ResourceSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[locale]
}

// snapshot copies the map for grovelers that check existing registrations.
func (c *setCache) snapshot() map[string]*ResourceSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*ResourceSet, len(c.sets))
	for name, set := range c.sets {
		out[name] = set
	}
	return out
}

// put registers set under locale and returns the set that ends up registered.
// The first writer wins: when a different set is already present the argument
// is closed, unless it is still registered under another name, and the
// existing set is returned.
func (c *setCache) put(locale string, set *ResourceSet) *ResourceSet {
	if set == nil {
		return nil
	}

	c.mu.Lock()
	existing, ok := c.sets[locale]
	if !ok {
		c.sets[locale] = set
		c.mu.Unlock()
		c.logger.Debug("resource set registered", zap.String("locale", locale), zap.String("set", set.Locale()))
		return set
	}
	if existing == set {
		c.mu.Unlock()
		return set
	}
	stillUsed := false
	for _, other := range c.sets {
		if other == set {
			stillUsed = true
			break
		}
	}
	c.mu.Unlock()

	if !stillUsed {
		if err := set.Close(); err != nil {
			c.logger.Warn("close losing resource set", zap.String("locale", locale), zap.Error(err))
		}
	}
	c.logger.Debug("resource set lost registration race", zap.String("locale", locale))
	return existing
}

// releaseAll empties the cache and closes every set it held. Sets are closed
// after the lock is released.
func (c *setCache) releaseAll() error {
	c.mu.Lock()
	old := c.sets
	c.sets = make(map[string]*ResourceSet)
	c.mu.Unlock()

	c.lastMu.Lock()
	c.last = lastUsed{}
	c.lastMu.Unlock()

	var firstErr error
	closed := make(map[*ResourceSet]struct{}, len(old))
	for locale, set := range old {
		if _, done := closed[set]; done {
			continue
		}
		closed[set] = struct{}{}
		if err := set.Close(); err != nil {
			c.logger.Warn("close resource set", zap.String("locale", locale), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *setCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}
