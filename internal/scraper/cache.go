package scraper

import (
	"unsafe"

	"github.com/coocood/freecache"
)

// detailTTL is how long a fetched detail page description stays cached, in seconds.
const detailTTL = 6 * 60 * 60

// Cache holds event detail descriptions keyed by URL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
}

type freeCache struct {
	cache *freecache.Cache
}

// NewCache returns a freecache-backed Cache of sizeMB, or a no-op when sizeMB <= 0.
func NewCache(sizeMB int) Cache {
	if sizeMB <= 0 {
		return noopCache{}
	}
	return &freeCache{cache: freecache.NewCache(sizeMB * 1024 * 1024)}
}

// unsafeStringToBytes converts without allocating. freecache copies keys internally.
func unsafeStringToBytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (c *freeCache) Get(key string) ([]byte, bool) {
	val, err := c.cache.Get(unsafeStringToBytes(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *freeCache) Set(key string, value []byte) {
	_ = c.cache.Set(unsafeStringToBytes(key), value, detailTTL)
}

type noopCache struct{}

func (noopCache) Get(string) ([]byte, bool) { return nil, false }
func (noopCache) Set(string, []byte)        {}
