package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// SettlementCache deduplicates settlement of the same signed transaction.
// A client that retries after a timeout resubmits an identical raw
// transaction; without this cache the gate would broadcast it twice and
// the second attempt would fail as a duplicate while the record write
// had already happened once.
//
// In-memory, so it only covers a single instance. For a load-balanced
// deployment the ledger itself rejecting duplicate signatures is the
// backstop.
type SettlementCache struct {
	mu       sync.Mutex
	receipts map[string]*Receipt
	expiry   map[string]time.Time
	inFlight map[string]chan struct{}
	ttl      time.Duration
}

const defaultCacheTTL = 10 * time.Minute

// NewSettlementCache creates a cache whose entries live for ttl.
func NewSettlementCache(ttl time.Duration) *SettlementCache {
	return &SettlementCache{
		receipts: make(map[string]*Receipt),
		expiry:   make(map[string]time.Time),
		inFlight: make(map[string]chan struct{}),
		ttl:      ttl,
	}
}

// SettlementKey derives the cache key from raw transaction bytes. The
// bytes include the client's signature, so distinct payment attempts
// never collide.
func SettlementKey(rawTx []byte) string {
	sum := sha256.Sum256(rawTx)
	return hex.EncodeToString(sum[:])
}

// SettlementStatus is the result of a cache lookup.
type SettlementStatus int

const (
	// StatusNotFound means this request should settle (now marked in-flight).
	StatusNotFound SettlementStatus = iota
	// StatusSettled means a cached receipt exists.
	StatusSettled
	// StatusInFlight means another request is settling the same transaction.
	StatusInFlight
)

// CheckAndMark atomically looks up the key and marks it in-flight when
// absent. Exactly one caller per key receives StatusNotFound and is
// responsible for calling Complete or Fail with the returned channel.
func (c *SettlementCache) CheckAndMark(key string) (SettlementStatus, *Receipt, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, ok := c.expiry[key]; ok {
		if time.Now().Before(expiry) {
			if receipt, ok := c.receipts[key]; ok {
				return StatusSettled, receipt, nil
			}
		}
		delete(c.receipts, key)
		delete(c.expiry, key)
	}

	if done, ok := c.inFlight[key]; ok {
		return StatusInFlight, nil, done
	}

	done := make(chan struct{})
	c.inFlight[key] = done
	return StatusNotFound, nil, done
}

// Wait blocks until the in-flight settlement finishes or ctx is done,
// then returns the cached receipt. A nil receipt means the settlement
// failed and was not cached.
func (c *SettlementCache) Wait(ctx context.Context, key string, done chan struct{}) (*Receipt, error) {
	select {
	case <-done:
		return c.get(key), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *SettlementCache) get(key string) *Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.expiry[key]
	if !ok || time.Now().After(expiry) {
		delete(c.receipts, key)
		delete(c.expiry, key)
		return nil
	}
	return c.receipts[key]
}

// Complete caches the receipt, clears the in-flight marker and wakes any
// waiters.
func (c *SettlementCache) Complete(key string, receipt *Receipt, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.receipts[key] = receipt
	c.expiry[key] = time.Now().Add(c.ttl)
	delete(c.inFlight, key)
	close(done)

	c.evictExpiredLocked()
}

// Fail clears the in-flight marker without caching, so a later attempt
// may settle again.
func (c *SettlementCache) Fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
	close(done)
}

func (c *SettlementCache) evictExpiredLocked() {
	now := time.Now()
	for key, expiry := range c.expiry {
		if now.After(expiry) {
			delete(c.receipts, key)
			delete(c.expiry, key)
		}
	}
}
