package domain

import "fmt"

// CascadeMode selects what happens to dependents when a record is deleted.
type CascadeMode string

// Cascade modes.
const (
	// CascadeDelete deletes every Holder record whose ref Field equals the deleted id.
	CascadeDelete CascadeMode = "delete"
	// CascadeNullify clears the Holder's ref Field.
	CascadeNullify CascadeMode = "nullify"
	// CascadeUnlink drops the deleted id from the Holder's refs Field.
	CascadeUnlink CascadeMode = "unlink"
	// CascadeOwned deletes every Holder record listed in the deleted record's
	// own refs Field.
	CascadeOwned CascadeMode = "owned"
)

// CascadeRule declares one dependency between two collections.
type CascadeRule struct {
	On     EntityType
	Holder EntityType
	Field  string
	Mode   CascadeMode
}

func (r CascadeRule) String() string {
	return fmt.Sprintf("%s -> %s.%s (%s)", r.On, r.Holder, r.Field, r.Mode)
}

// BoundCascade is a CascadeRule resolved against the catalog schemas.
type BoundCascade struct {
	CascadeRule
	Ref Reference
}

// Dependents returns the ids of holder records affected by deleting deleted.
// holders is the current Holder collection.
func (b BoundCascade) Dependents(deleted Record, holders []Record) []string {
	id := deleted.Meta().ID
	if b.Mode == CascadeOwned {
		return b.Ref.IDs(deleted)
	}
	var out []string
	for _, rec := range holders {
		for _, ref := range b.Ref.IDs(rec) {
			if ref == id {
				out = append(out, rec.Meta().ID)
				break
			}
		}
	}
	return out
}

func bindCascade(rule CascadeRule, on, holder Descriptor) (BoundCascade, error) {
	owner := holder
	target := rule.On
	if rule.Mode == CascadeOwned {
		owner, target = on, rule.Holder
	}
	for _, ref := range owner.References() {
		if ref.Field != rule.Field {
			continue
		}
		if ref.Target != target {
			return BoundCascade{}, fmt.Errorf("cascade %s: field targets %s", rule, ref.Target)
		}
		switch rule.Mode {
		case CascadeDelete, CascadeNullify:
			if ref.Kind != KindRef {
				return BoundCascade{}, fmt.Errorf("cascade %s: mode needs a ref field", rule)
			}
		case CascadeUnlink, CascadeOwned:
			if ref.Kind != KindRefs {
				return BoundCascade{}, fmt.Errorf("cascade %s: mode needs a refs field", rule)
			}
		default:
			return BoundCascade{}, fmt.Errorf("cascade %s: unknown mode", rule)
		}
		return BoundCascade{CascadeRule: rule, Ref: ref}, nil
	}
	return BoundCascade{}, fmt.Errorf("cascade %s: %s has no reference field %q", rule, owner.Entity(), rule.Field)
}
