package storage

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
)

var _ fiber.Storage = (*RistrettoStorage)(nil)

// RistrettoStorage implements fiber.Storage on a ristretto cache so
// middlewares such as the limiter keep their state in process memory.
type RistrettoStorage struct {
	cache *ristretto.Cache[string, []byte]
}

// NewRistrettoStorage creates a storage sized for small middleware entries.
func NewRistrettoStorage(maxCost int64) (*RistrettoStorage, error) {
	if maxCost <= 0 {
		maxCost = 64 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoStorage{cache: cache}, nil
}

// Get returns nil without error for missing keys, as fiber.Storage requires.
func (r *RistrettoStorage) Get(key string) ([]byte, error) {
	if value, found := r.cache.Get(key); found {
		return value, nil
	}
	return nil, nil
}

// Set stores val. A zero expiration keeps the entry until evicted.
func (r *RistrettoStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	r.cache.SetWithTTL(key, val, int64(len(val)), exp)
	// make the write visible to the next Get
	r.cache.Wait()
	return nil
}

func (r *RistrettoStorage) Delete(key string) error {
	r.cache.Del(key)
	return nil
}

func (r *RistrettoStorage) Reset() error {
	r.cache.Clear()
	return nil
}

func (r *RistrettoStorage) Close() error {
	r.cache.Close()
	return nil
}
