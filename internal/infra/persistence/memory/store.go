// Package memory provides the in-memory transactional collection store that
// backs every application. Durable backends persist its snapshots.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"deskcore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Record aliases domain.Record.
	Record = domain.Record
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	collections map[domain.EntityType][]Record
}

func newMemoryState(entities []domain.EntityType) memoryState {
	state := memoryState{collections: make(map[domain.EntityType][]Record, len(entities))}
	for _, e := range entities {
		state.collections[e] = []Record{}
	}
	return state
}

func (s memoryState) clone() memoryState {
	out := memoryState{collections: make(map[domain.EntityType][]Record, len(s.collections))}
	for entity, records := range s.collections {
		out.collections[entity] = domain.CloneRecords(records)
	}
	return out
}

func (s memoryState) indexOf(entity domain.EntityType, id string) int {
	return slices.IndexFunc(s.collections[entity], func(r Record) bool { return r.Meta().ID == id })
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Times are converted to UTC.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = func() time.Time { return now().UTC() }
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(next func() string) Option {
	return func(s *Store) { s.idFn = next }
}

// Store provides an in-memory transactional store for one catalog.
type Store struct {
	mu      sync.RWMutex
	catalog *domain.Catalog
	state   memoryState
	engine  *RulesEngine
	nowFn   func() time.Time
	idFn    func() string
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(catalog *domain.Catalog, engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		catalog: catalog,
		state:   newMemoryState(catalog.Entities()),
		engine:  engine,
		nowFn:   func() time.Time { return time.Now().UTC() },
		idFn:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the schemas and cascade rules served by the store.
func (s *Store) Catalog() *domain.Catalog { return s.catalog }

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Snapshot(s.state.clone().collections)
}

// ImportState replaces the store state with the provided snapshot. Entities
// outside the catalog are ignored and missing collections start empty.
func (s *Store) ImportState(snapshot domain.Snapshot) {
	state := newMemoryState(s.catalog.Entities())
	for entity := range state.collections {
		if records, ok := snapshot[entity]; ok {
			state.collections[entity] = domain.CloneRecords(records)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// ReplaceCollection swaps one collection wholesale, as loaded from storage.
func (s *Store) ReplaceCollection(entity domain.EntityType, records []Record) error {
	return s.ReplaceCollections(domain.Snapshot{entity: records}, entity)
}

// ReplaceCollections swaps every listed collection with its records from
// snapshot, all or none. A listed entity missing from snapshot becomes empty.
func (s *Store) ReplaceCollections(snapshot domain.Snapshot, entities ...domain.EntityType) error {
	for _, entity := range entities {
		if err := s.checkCollection(entity, snapshot[entity]); err != nil {
			return err
		}
	}
	replaced := make(map[domain.EntityType][]Record, len(entities))
	for _, entity := range entities {
		replaced[entity] = domain.CloneRecords(snapshot[entity])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for entity, records := range replaced {
		s.state.collections[entity] = records
	}
	return nil
}

func (s *Store) checkCollection(entity domain.EntityType, records []Record) error {
	if _, ok := s.catalog.Descriptor(entity); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
	}
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.EntityType() != entity {
			return fmt.Errorf("%w: %s record in %s collection", domain.ErrValidation, rec.EntityType(), entity)
		}
		id := rec.Meta().ID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s %q", domain.ErrAlreadyExists, entity, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// List returns clones of every record of entity in insertion order.
func (s *Store) List(entity domain.EntityType) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRecords(s.state.collections[entity])
}

// Get returns a clone of one record.
func (s *Store) Get(entity domain.EntityType, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.state.indexOf(entity, id)
	if i < 0 {
		return nil, false
	}
	return s.state.collections[entity][i].Clone(), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy is committed only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, []Change, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return Result{}, nil, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, nil, err
		}
		result = res
		if res.HasBlocking() {
			return res, nil, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, tx.changes, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) List(entity domain.EntityType) []Record {
	return domain.CloneRecords(v.state.collections[entity])
}

func (v transactionView) Find(entity domain.EntityType, id string) (Record, bool) {
	i := v.state.indexOf(entity, id)
	if i < 0 {
		return nil, false
	}
	return v.state.collections[entity][i].Clone(), true
}

func (v transactionView) Entities() []domain.EntityType {
	out := make([]domain.EntityType, 0, len(v.state.collections))
	for entity := range v.state.collections {
		out = append(out, entity)
	}
	slices.Sort(out)
	return out
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// Find looks up a record within the transaction scope.
func (tx *transaction) Find(entity domain.EntityType, id string) (Record, bool) {
	return newTransactionView(&tx.state).Find(entity, id)
}

func (tx *transaction) descriptor(entity domain.EntityType) (domain.Descriptor, error) {
	d, ok := tx.store.catalog.Descriptor(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, entity)
	}
	return d, nil
}

// Create stores a new record, assigning an id when empty.
func (tx *transaction) Create(rec Record) (Record, error) {
	entity := rec.EntityType()
	d, err := tx.descriptor(entity)
	if err != nil {
		return nil, err
	}
	stored := rec.Clone()
	meta := stored.Meta()
	if meta.ID == "" {
		meta.ID = tx.store.idFn()
	}
	if tx.state.indexOf(entity, meta.ID) >= 0 {
		return nil, fmt.Errorf("%w: %s %q", domain.ErrAlreadyExists, entity, meta.ID)
	}
	meta.CreatedAt = tx.now
	meta.UpdatedAt = tx.now
	if err := d.ValidateRecord(stored); err != nil {
		return nil, err
	}
	tx.state.collections[entity] = append(tx.state.collections[entity], stored)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionCreate, After: stored.Clone()})
	return stored.Clone(), nil
}

// Update applies mutator to a copy of the record. The id and creation time
// cannot be changed; a missing id is an error.
func (tx *transaction) Update(entity domain.EntityType, id string, mutator func(Record) error) (Record, error) {
	d, err := tx.descriptor(entity)
	if err != nil {
		return nil, err
	}
	i := tx.state.indexOf(entity, id)
	if i < 0 {
		return nil, domain.NotFoundError{Entity: entity, ID: id}
	}
	current := tx.state.collections[entity][i]
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(updated); err != nil {
		return nil, err
	}
	meta := updated.Meta()
	meta.ID = id
	meta.CreatedAt = before.Meta().CreatedAt
	meta.UpdatedAt = tx.now
	if err := d.ValidateRecord(updated); err != nil {
		return nil, err
	}
	tx.state.collections[entity][i] = updated
	tx.recordChange(Change{Entity: entity, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated.Clone(), nil
}

// Delete removes a record and applies the catalog cascade rules.
func (tx *transaction) Delete(entity domain.EntityType, id string) error {
	if _, err := tx.descriptor(entity); err != nil {
		return err
	}
	if tx.state.indexOf(entity, id) < 0 {
		return domain.NotFoundError{Entity: entity, ID: id}
	}
	tx.deleteCascading(entity, id)
	return nil
}

func (tx *transaction) deleteCascading(entity domain.EntityType, id string) {
	i := tx.state.indexOf(entity, id)
	if i < 0 {
		return
	}
	records := tx.state.collections[entity]
	removed := records[i]
	tx.state.collections[entity] = slices.Delete(slices.Clone(records), i, i+1)
	tx.recordChange(Change{Entity: entity, Action: domain.ActionDelete, Before: removed.Clone()})

	for _, rule := range tx.store.catalog.CascadesFor(entity) {
		dependents := rule.Dependents(removed, tx.state.collections[rule.Holder])
		switch rule.Mode {
		case domain.CascadeDelete, domain.CascadeOwned:
			for _, depID := range dependents {
				tx.deleteCascading(rule.Holder, depID)
			}
		case domain.CascadeNullify, domain.CascadeUnlink:
			for _, depID := range dependents {
				tx.dropReference(rule, depID, id)
			}
		}
	}
}

func (tx *transaction) dropReference(rule domain.BoundCascade, holderID, deletedID string) {
	i := tx.state.indexOf(rule.Holder, holderID)
	if i < 0 {
		return
	}
	before := tx.state.collections[rule.Holder][i]
	updated := before.Clone()
	if !rule.Ref.Drop(updated, deletedID) {
		return
	}
	updated.Meta().UpdatedAt = tx.now
	tx.state.collections[rule.Holder][i] = updated
	tx.recordChange(Change{Entity: rule.Holder, Action: domain.ActionUpdate, Before: before.Clone(), After: updated.Clone()})
}
