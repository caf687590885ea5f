// Package storage persists the entity tree in SQLite and answers criteria
// searches against it.
//
// The write path upserts whole Patient subtrees by natural key inside one
// transaction. The read path compiles a criteria tree into a single SELECT
// over the patient/study/series/instance tables and rebuilds an entity tree
// from the rows.
//
// A store serves one writer at a time. Callers serialise writes themselves.
package storage

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"

	"github.com/teranos/dcmindex/entity"
	"github.com/teranos/dcmindex/errors"
	"github.com/teranos/dcmindex/logger"
)

// SQLStore is the SQLite-backed index.
type SQLStore struct {
	db      *sql.DB
	factory *entity.Factory
	logger  *zap.SugaredLogger
	strict  bool

	ids *idCache

	observerMu     sync.RWMutex
	observers      []registeredObserver
	nextObserverID int
}

// Option configures an SQLStore.
type Option func(*SQLStore)

// WithStrictAttributes makes searches fail with invalid-argument on
// attributes that have no compile rule, instead of ignoring them.
func WithStrictAttributes(strict bool) Option {
	return func(s *SQLStore) { s.strict = strict }
}

// NewSQLStore creates a store over a migrated database. The factory rebuilds
// instances read back by queries with lazily loaded payloads; it may be nil,
// in which case those instances carry no payload.
func NewSQLStore(db *sql.DB, factory *entity.Factory, log *zap.SugaredLogger, opts ...Option) *SQLStore {
	s := &SQLStore{
		db:      db,
		factory: factory,
		logger:  logger.OrNop(log),
		ids:     newIDCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strict reports whether unknown attributes fail compilation.
func (s *SQLStore) Strict() bool { return s.strict }

// InstanceExists reports whether an instance with uid is indexed.
func (s *SQLStore) InstanceExists(ctx context.Context, uid string) (bool, error) {
	if _, ok := s.ids.get(tableInstance, uid); ok {
		return true, nil
	}
	var id int64
	err := s.db.QueryRowContext(ctx, lookupQueries[tableInstance], uid).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.WithDetail(errors.WrapStorage(err, "failed to look up instance"), "Operation: InstanceExists")
	}
	s.ids.publish(map[cacheKey]int64{{tableInstance, uid}: id})
	return true, nil
}

// StoreStats counts rows per table.
type StoreStats struct {
	Patients   int64 `json:"patients"`
	Studies    int64 `json:"studies"`
	Series     int64 `json:"series"`
	Instances  int64 `json:"instances"`
	References int64 `json:"references"`
}

// Stats returns row counts.
func (s *SQLStore) Stats(ctx context.Context) (StoreStats, error) {
	var st StoreStats
	err := s.db.QueryRowContext(ctx, statsQuery).Scan(
		&st.Patients, &st.Studies, &st.Series, &st.Instances, &st.References)
	if err != nil {
		return StoreStats{}, errors.WithDetail(errors.WrapStorage(err, "failed to count rows"), "Operation: Stats")
	}
	return st, nil
}

// idCache maps natural keys to surrogate ids. Only committed ids are cached.
type idCache struct {
	mu  sync.RWMutex
	ids map[cacheKey]int64
}

type cacheKey struct {
	table string
	key   string
}

func newIDCache() *idCache {
	return &idCache{ids: make(map[cacheKey]int64)}
}

func (c *idCache) get(table, key string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[cacheKey{table, key}]
	return id, ok
}

func (c *idCache) publish(learned map[cacheKey]int64) {
	if len(learned) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, id := range learned {
		c.ids[k] = id
	}
}

func (c *idCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}
