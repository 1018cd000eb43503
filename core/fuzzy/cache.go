package fuzzy

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

type evalKey struct {
	service float64
	price   float64
}

// CachedEvaluator memoizes evaluations of repeated (service, price) pairs.
type CachedEvaluator struct {
	next   Evaluator
	cache  *lru.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedEvaluator wraps next with an LRU cache holding up to size entries
func NewCachedEvaluator(next Evaluator, size int) (*CachedEvaluator, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &CachedEvaluator{next: next, cache: cache}, nil
}

// Evaluate returns the cached evaluation or computes and stores it
func (c *CachedEvaluator) Evaluate(service, price float64) Evaluation {
	key := evalKey{service: service, price: price}
	if v, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return v.(Evaluation)
	}
	c.misses.Add(1)
	ev := c.next.Evaluate(service, price)
	c.cache.Add(key, ev)
	return ev
}

// Stats returns cache hit and miss counts
func (c *CachedEvaluator) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

var _ Evaluator = (*CachedEvaluator)(nil)
