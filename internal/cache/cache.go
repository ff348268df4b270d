package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache defines the interface for byte caches
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key. Parts are hashed together so that
// URLs, prompts and file digests all produce short file-safe keys.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "coinsight:v1:" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// CacheKey keys a fetched URL
func CacheKey(url string) string {
	return Key("http", url)
}

// GetJSON decodes a cached JSON value into out
func GetJSON(c Cache, key string, out any) bool {
	raw, ok := c.Get(key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

// SetJSON stores v as JSON
func SetJSON(c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(key, raw, ttl)
}
