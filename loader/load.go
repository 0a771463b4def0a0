package loader

import (
	"encoding/base64"
	"os"
	"sync"

	"golang.org/x/crypto/blake2b"

	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"

	"github.com/evanphx/atlantis/log"
)

// Cache holds parsed images keyed by blob digest, so spawning the same
// app twice parses it once.
type Cache struct {
	mu sync.RWMutex

	cache *lru.ARCCache
}

func NewCache() *Cache {
	cache, err := lru.NewARC(64)
	if err != nil {
		panic(err)
	}

	return &Cache{cache: cache}
}

func (c *Cache) Lookup(key string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	val, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}

	return val.(*Image), true
}

func (c *Cache) Set(key string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(key, img)
}

func NewLoader(cache *Cache) *Loader {
	return &Loader{
		L:     hclog.L(),
		cache: cache,
	}
}

type Loader struct {
	L     hclog.Logger
	cache *Cache
}

// Load parses blob, going through the cache when one is attached.
func (l *Loader) Load(blob []byte) (*Image, error) {
	var cacheKey string

	if l.cache != nil {
		digest := blake2b.Sum256(blob)
		cacheKey = base64.URLEncoding.EncodeToString(digest[:])

		log.L.Debug("looking for cached image", "key", cacheKey)

		if img, ok := l.cache.Lookup(cacheKey); ok {
			return img, nil
		}
	}

	img, err := Parse(blob)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		log.L.Debug("cached image", "key", cacheKey)
		l.cache.Set(cacheKey, img)
	}

	return img, nil
}

func (l *Loader) LoadFile(path string) (*Image, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return l.Load(blob)
}
