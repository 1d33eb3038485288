package wb

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("wb_cache")

// BoltCache is a bbolt-backed Cache that survives process restarts, so a
// redeploy right after a balance fetch does not cost another WB call.
// Errors are swallowed: a cache that cannot read or write behaves as empty.
type BoltCache struct {
	db *bolt.DB
}

type boltEntry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OpenBoltCache opens (creating if needed) the cache database at path.
func OpenBoltCache(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) Get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(cacheBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var e boltEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil
		}
		if time.Now().After(e.ExpiresAt) {
			return nil
		}
		value = append([]byte(nil), e.Value...)
		return nil
	})
	if err != nil || value == nil {
		return nil, false
	}
	return value, true
}

func (c *BoltCache) Set(key string, value []byte, ttl time.Duration) {
	raw, err := json.Marshal(boltEntry{Value: value, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return
	}
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), raw)
	})
}

var _ Cache = (*BoltCache)(nil)
