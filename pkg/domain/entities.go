// Package domain defines the records, field schemas, cascade rules and rule
// evaluation primitives shared by the deskcore applications.
package domain

import "time"

// EntityType identifies the type of record stored in a collection.
type EntityType string

// Supported entity type identifiers used in Change records and persistence keys.
const (
	// EntityProperty identifies a real estate listing.
	EntityProperty EntityType = "property"
	// EntityAppointment identifies a viewing appointment for a property.
	EntityAppointment EntityType = "appointment"
	// EntityContact identifies a CRM contact.
	EntityContact EntityType = "contact"
	// EntityTicket identifies a support ticket raised by a contact.
	EntityTicket EntityType = "ticket"
	// EntityInvoice identifies an invoice issued to a contact.
	EntityInvoice EntityType = "invoice"
	// EntityTransaction identifies a ledger line in the CFO dashboard.
	EntityTransaction EntityType = "transaction"
	// EntityInsight identifies a stored AI analysis result.
	EntityInsight EntityType = "insight"
	// EntityFund identifies a private-equity fund.
	EntityFund EntityType = "fund"
	// EntityCompany identifies a portfolio company held by a fund.
	EntityCompany EntityType = "company"
	// EntityCompound identifies a compound tracked by the lab.
	EntityCompound EntityType = "compound"
	// EntityExperiment identifies an experiment run against a compound.
	EntityExperiment EntityType = "experiment"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all records.
type Base struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Meta exposes the mutable base fields to the store.
func (b *Base) Meta() *Base { return b }

// Record is implemented by pointers to every entity struct.
type Record interface {
	EntityType() EntityType
	Meta() *Base
	Clone() Record
}

// ImageHolder is implemented by records that carry image references.
type ImageHolder interface {
	Record
	AddImage(ref string)
	RemoveImage(ref string) bool
	ImageRefs() []string
}

// Snapshot is an ordered copy of every collection keyed by entity type.
type Snapshot map[EntityType][]Record

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for entity, records := range s {
		out[entity] = CloneRecords(records)
	}
	return out
}

// CloneRecords deep-copies a record slice, preserving order.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

// Change describes a single mutation captured by a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before Record
	After  Record
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	// ActionCreate indicates a record was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates a record was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
