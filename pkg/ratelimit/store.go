// Package ratelimit provides an in-memory token bucket store keyed by
// (bucket class, client identity). It is the only state shared across
// concurrent requests in the gateway; all methods are safe for concurrent
// use. There is no cross-process coordination: horizontal scaling needs an
// external shared store, which is out of scope here.
package ratelimit

import (
	"sync"
	"time"
)

// Class is a named rate-limit policy applied to a category of endpoint.
type Class struct {
	// Capacity is the bucket size: the maximum burst an idle identity may
	// spend at once.
	Capacity float64

	// RefillPerSecond is the sustained token refill rate.
	RefillPerSecond float64

	// IdleTTL is how long an untouched bucket survives before the sweeper
	// may evict it. Zero disables eviction for the class.
	IdleTTL time.Duration
}

// Decision is the outcome of a TryConsume call.
type Decision struct {
	Allowed bool

	// RetryAfter is how long the caller should wait before the deficit
	// refills. Zero when Allowed.
	RetryAfter time.Duration
}

// key identifies one bucket. Distinct classes for the same identity never
// share token budget.
type key struct {
	class    string
	identity string
}

// bucket is the per-key mutable record. All fields are guarded by mu;
// refill-then-charge happens as one critical section so concurrent callers
// can never double-spend freshly refilled tokens.
type bucket struct {
	mu      sync.Mutex
	tokens  float64
	last    time.Time
	evicted bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSweepInterval overrides how often the idle sweeper runs.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		s.sweepEvery = d
	}
}

// Store owns one refillable bucket per (class, identity) pair. Buckets are
// created lazily with a full burst allowance on first sight of an identity
// and evicted again after sitting idle past their class TTL.
type Store struct {
	mu      sync.RWMutex
	buckets map[key]*bucket

	classes    map[string]Class
	now        func() time.Time
	sweepEvery time.Duration

	stop      chan struct{}
	stopOnce  sync.Once
	sweeperWG sync.WaitGroup
}

const defaultSweepInterval = time.Minute

// NewStore creates a Store with the given bucket classes and starts its idle
// sweeper. Call Close to stop the sweeper.
func NewStore(classes map[string]Class, opts ...Option) *Store {
	s := &Store{
		buckets:    make(map[key]*bucket),
		classes:    make(map[string]Class, len(classes)),
		now:        time.Now,
		sweepEvery: defaultSweepInterval,
		stop:       make(chan struct{}),
	}
	for name, c := range classes {
		s.classes[name] = c
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sweeperWG.Add(1)
	go s.sweeper()

	return s
}

// Close stops the idle sweeper. The store remains usable afterwards; only
// eviction ceases.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.sweeperWG.Wait()
}

// TryConsume refills the identity's bucket for the elapsed time and charges
// cost from it, as a single atomic unit. When denied, RetryAfter reports the
// time needed to accumulate the deficit at the class refill rate.
//
// Unknown classes allow: admission policy belongs to configuration, and a
// missing class must not brick an endpoint.
func (s *Store) TryConsume(class, identity string, cost float64) Decision {
	c, ok := s.classes[class]
	if !ok {
		return Decision{Allowed: true}
	}

	k := key{class: class, identity: identity}
	for {
		b := s.lookupOrCreate(k, c)

		b.mu.Lock()
		if b.evicted {
			// Lost a race with the sweeper; the key no longer maps to
			// this bucket. Charge a live one instead.
			b.mu.Unlock()
			continue
		}

		now := s.now()
		if elapsed := now.Sub(b.last); elapsed > 0 {
			b.tokens = min(c.Capacity, b.tokens+elapsed.Seconds()*c.RefillPerSecond)
		}
		b.last = now

		if b.tokens >= cost {
			b.tokens -= cost
			b.mu.Unlock()
			return Decision{Allowed: true}
		}

		deficit := cost - b.tokens
		b.mu.Unlock()

		if c.RefillPerSecond <= 0 {
			return Decision{Allowed: false, RetryAfter: c.IdleTTL}
		}
		retry := time.Duration(deficit / c.RefillPerSecond * float64(time.Second))
		return Decision{Allowed: false, RetryAfter: retry}
	}
}

// Len reports the number of live buckets across all classes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buckets)
}

// lookupOrCreate returns the bucket for k, creating it with a full burst
// allowance on first observation.
func (s *Store) lookupOrCreate(k key, c Class) *bucket {
	s.mu.RLock()
	b, ok := s.buckets[k]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[k]; ok {
		return b
	}
	b = &bucket{tokens: c.Capacity, last: s.now()}
	s.buckets[k] = b
	return b
}

// sweeper periodically evicts buckets idle past their class TTL.
func (s *Store) sweeper() {
	defer s.sweeperWG.Done()

	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep evicts stale buckets. Eviction takes both the map lock and the
// bucket lock, and marks the bucket evicted under its own lock, so an
// in-flight TryConsume that fetched the bucket pointer earlier observes the
// flag and retries against a fresh bucket; no charge is lost or duplicated.
func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.buckets {
		ttl := s.classes[k.class].IdleTTL
		if ttl <= 0 {
			continue
		}

		b.mu.Lock()
		if now.Sub(b.last) > ttl {
			b.evicted = true
			delete(s.buckets, k)
		}
		b.mu.Unlock()
	}
}
