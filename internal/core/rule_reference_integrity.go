package core

import (
	"context"
	"fmt"

	"deskcore/pkg/domain"
)

// NewReferenceIntegrityRule warns when a created or updated record points at
// a record that does not exist. Dangling references are allowed to commit.
func NewReferenceIntegrityRule(catalog *domain.Catalog) domain.Rule {
	byHolder := make(map[domain.EntityType][]domain.Reference)
	for _, ref := range catalog.References() {
		byHolder[ref.Holder] = append(byHolder[ref.Holder], ref)
	}
	return referenceIntegrityRule{refs: byHolder}
}

type referenceIntegrityRule struct {
	refs map[domain.EntityType][]domain.Reference
}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (r referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.After == nil {
			continue
		}
		id := change.After.Meta().ID
		if _, live := view.Find(change.Entity, id); !live {
			continue
		}
		for _, ref := range r.refs[change.Entity] {
			for _, target := range ref.IDs(change.After) {
				if _, ok := view.Find(ref.Target, target); ok {
					continue
				}
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "reference_integrity",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("%s %s field %s references missing %s %s", change.Entity, id, ref.Field, ref.Target, target),
					Entity:   change.Entity,
					EntityID: id,
				})
			}
		}
	}
	return res, nil
}
