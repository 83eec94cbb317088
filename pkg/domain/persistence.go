package domain

import "context"

// Transaction exposes the collection operations that a store must support
// within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	Create(rec Record) (Record, error)
	Update(entity EntityType, id string, mutator func(Record) error) (Record, error)
	Delete(entity EntityType, id string) error
	Find(entity EntityType, id string) (Record, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	Entities() []EntityType
}

// PersistentStore is the store abstraction used by higher layers.
type PersistentStore interface {
	Catalog() *Catalog
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, []Change, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	List(entity EntityType) []Record
	Get(entity EntityType, id string) (Record, bool)
	ExportState() Snapshot
	ImportState(snapshot Snapshot)
	ReplaceCollection(entity EntityType, records []Record) error
	ReplaceCollections(snapshot Snapshot, entities ...EntityType) error
}
