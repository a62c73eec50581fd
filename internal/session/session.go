// Package session implements cursor pagination: a server-held page of
// un-consumed results keyed by an opaque cursor, with a time-to-live
// refreshed on access and a background sweep that evicts stale sessions.
// Eviction is a periodic sweep that drops sessions past their TTL, plus
// a cap on the number of sessions held. LRU capping is via
// github.com/hashicorp/golang-lru/v2, cursor identity via
// github.com/google/uuid.
package session

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// DefaultTTL is the inactivity window after which an unconsumed session
// is evicted. The TTL is refreshed on each access.
const DefaultTTL = 60 * time.Second

// SweepInterval is how often the background cleaner scans for expired
// sessions.
const SweepInterval = 30 * time.Second

// MaxPageSize and MinPageSize bound the page_size parameter accepted by
// Store.Create.
const (
	MinPageSize = 1
	MaxPageSize = 200
)

// MaxSessions is the soft cap on concurrently held sessions; past this,
// the least-recently-used session is evicted to make room regardless of
// its remaining TTL.
const MaxSessions = 10000

// Session holds one query's un-consumed result tail.
type Session struct {
	mu           sync.Mutex
	cursor       string
	results      []any
	pageSize     int
	createdAt    time.Time
	lastAccessed time.Time
	ttl          time.Duration
}

// Cursor returns the opaque identifier clients pass back to fetch the
// next page.
func (s *Session) Cursor() string {
	return s.cursor
}

// Remaining reports how many results are left unconsumed.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// NextPage pops up to pageSize results (falling back to the session's
// configured page size when pageSize <= 0) and refreshes the session's
// TTL clock.
func (s *Session) NextPage(pageSize int) []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	if pageSize > len(s.results) {
		pageSize = len(s.results)
	}

	page := s.results[:pageSize]
	s.results = s.results[pageSize:]
	s.lastAccessed = time.Now()
	return page
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastAccessed) > s.ttl
}

// Store holds live sessions, capped by MaxSessions via LRU eviction and
// swept for TTL expiry on a fixed interval.
type Store struct {
	cache *lru.Cache[string, *Session]
	ttl   time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore starts a session store and its background sweeper. Call
// Close to stop the sweeper goroutine.
func NewStore(ttl time.Duration) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	cache, err := lru.New[string, *Session](MaxSessions)
	if err != nil {
		return nil, coreerr.IoError("session store", err)
	}

	st := &Store{cache: cache, ttl: ttl, stop: make(chan struct{})}
	go st.sweepLoop()
	return st, nil
}

// Create materializes a new session over results, validating page_size
// against the [1, 200] bound.
func (st *Store) Create(results []any, pageSize int) (*Session, error) {
	if pageSize < MinPageSize || pageSize > MaxPageSize {
		return nil, coreerr.InvalidInput("page_size", "must be between 1 and 200")
	}

	now := time.Now()
	s := &Session{
		cursor:       uuid.NewString(),
		results:      results,
		pageSize:     pageSize,
		createdAt:    now,
		lastAccessed: now,
		ttl:          st.ttl,
	}
	st.cache.Add(s.cursor, s)
	return s, nil
}

// Get retrieves a live session by cursor.
func (st *Store) Get(cursor string) (*Session, error) {
	s, ok := st.cache.Get(cursor)
	if !ok {
		return nil, coreerr.InvalidInput("cursor", "unknown or expired session")
	}
	return s, nil
}

// Close stops the background sweeper.
func (st *Store) Close() {
	st.stopOnce.Do(func() { close(st.stop) })
}

func (st *Store) sweepLoop() {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-st.stop:
			return
		case now := <-ticker.C:
			st.sweep(now)
		}
	}
}

// sweep evicts sessions whose TTL has lapsed since the last access.
func (st *Store) sweep(now time.Time) {
	for _, cursor := range st.cache.Keys() {
		s, ok := st.cache.Peek(cursor)
		if !ok {
			continue
		}
		if s.expired(now) {
			st.cache.Remove(cursor)
		}
	}
}
