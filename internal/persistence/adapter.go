// Package persistence mirrors store collections into a key-value store. Each
// collection is one JSON array under its storage key, written whole.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"deskcore/internal/kv"
	"deskcore/internal/seed"
	"deskcore/pkg/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SeedFunc produces the fallback dataset used for missing or malformed collections.
type SeedFunc func() (domain.Snapshot, error)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithSeed overrides the fallback dataset.
func WithSeed(fn SeedFunc) Option {
	return func(a *Adapter) { a.seed = fn }
}

// Adapter reads and writes the collections of one catalog.
type Adapter struct {
	store   kv.Store
	catalog *domain.Catalog
	logger  *zap.Logger
	seed    SeedFunc

	seedOnce sync.Once
	seeded   domain.Snapshot
	seedErr  error
}

// NewAdapter binds store to catalog. The default seed is the embedded dataset
// of the catalog's app.
func NewAdapter(store kv.Store, catalog *domain.Catalog, opts ...Option) *Adapter {
	a := &Adapter{
		store:   store,
		catalog: catalog,
		logger:  zap.NewNop(),
		seed: func() (domain.Snapshot, error) {
			return seed.Load(catalog, time.Now())
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the underlying key-value store.
func (a *Adapter) Store() kv.Store { return a.store }

// Catalog returns the bound catalog.
func (a *Adapter) Catalog() *domain.Catalog { return a.catalog }

func (a *Adapter) seedSnapshot() (domain.Snapshot, error) {
	a.seedOnce.Do(func() {
		if a.seed == nil {
			a.seeded = domain.Snapshot{}
			return
		}
		a.seeded, a.seedErr = a.seed()
	})
	return a.seeded, a.seedErr
}

// Hydrate loads every collection of the catalog.
func (a *Adapter) Hydrate(ctx context.Context) (domain.Snapshot, error) {
	return a.Load(ctx, a.catalog.Entities()...)
}

// Load reads the named collections concurrently. A missing key yields the
// seed collection; an undecodable payload is logged and also replaced by seed.
func (a *Adapter) Load(ctx context.Context, entities ...domain.EntityType) (domain.Snapshot, error) {
	descriptors := make([]domain.Descriptor, len(entities))
	for i, entity := range entities {
		d, ok := a.catalog.Descriptor(entity)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
		}
		descriptors[i] = d
	}

	loaded := make([][]domain.Record, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		g.Go(func() error {
			records, err := a.loadOne(gctx, d)
			if err != nil {
				return err
			}
			loaded[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(domain.Snapshot, len(descriptors))
	for i, d := range descriptors {
		out[d.Entity()] = loaded[i]
	}
	return out, nil
}

func (a *Adapter) loadOne(ctx context.Context, d domain.Descriptor) ([]domain.Record, error) {
	payload, err := a.store.Get(ctx, d.Key())
	switch {
	case errors.Is(err, kv.ErrNotFound):
		a.logger.Debug("collection not stored, using seed", zap.String("key", d.Key()))
		return a.seedCollection(d)
	case err != nil:
		return nil, fmt.Errorf("load %s: %w", d.Key(), err)
	}
	records, err := d.Decode(payload)
	if err != nil {
		a.logger.Warn("malformed collection payload, using seed",
			zap.String("key", d.Key()),
			zap.Int("bytes", len(payload)),
			zap.Error(err),
		)
		return a.seedCollection(d)
	}
	return records, nil
}

func (a *Adapter) seedCollection(d domain.Descriptor) ([]domain.Record, error) {
	snapshot, err := a.seedSnapshot()
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", d.Key(), err)
	}
	records := domain.CloneRecords(snapshot[d.Entity()])
	return records, nil
}

// Persist writes the given collections of snapshot, or every catalog
// collection when none are named.
func (a *Adapter) Persist(ctx context.Context, snapshot domain.Snapshot, entities ...domain.EntityType) error {
	if len(entities) == 0 {
		entities = a.catalog.Entities()
	}
	entries := make([]kv.Entry, 0, len(entities))
	for _, entity := range entities {
		d, ok := a.catalog.Descriptor(entity)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
		}
		records := snapshot[entity]
		if records == nil {
			records = []domain.Record{}
		}
		payload, err := d.Encode(records)
		if err != nil {
			return fmt.Errorf("encode %s: %w", d.Key(), err)
		}
		entries = append(entries, kv.Entry{Key: d.Key(), Value: payload})
	}
	if err := kv.PutAll(ctx, a.store, entries); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	a.logger.Debug("persisted collections", zap.Int("count", len(entries)))
	return nil
}

// Reset removes every stored collection so the next load falls back to seed.
func (a *Adapter) Reset(ctx context.Context) error {
	for _, d := range a.catalog.Descriptors() {
		if err := a.store.Delete(ctx, d.Key()); err != nil {
			return fmt.Errorf("reset %s: %w", d.Key(), err)
		}
	}
	return nil
}
