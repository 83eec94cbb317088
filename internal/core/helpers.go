package core

import (
	"context"
	"fmt"

	"deskcore/internal/query"
	"deskcore/pkg/domain"
)

// Add dispatches the creation of rec and returns the stored copy.
func Add[R domain.Record](ctx context.Context, s *Service, rec R) (R, error) {
	out, err := s.Dispatch(ctx, AddAction(rec))
	if err != nil || out.Record == nil {
		var zero R
		return zero, err
	}
	return out.Record.(R), nil
}

// Update dispatches a typed mutation of schema's record id.
func Update[R domain.Record](ctx context.Context, s *Service, schema *domain.Schema[R], id string, mutate func(R) error) (R, error) {
	out, err := s.Dispatch(ctx, UpdateAction(schema.Entity(), id, func(rec Record) error {
		typed, ok := rec.(R)
		if !ok {
			return fmt.Errorf("%w: unexpected %T in %s", domain.ErrValidation, rec, schema.Key())
		}
		return mutate(typed)
	}))
	if err != nil || out.Record == nil {
		var zero R
		return zero, err
	}
	return out.Record.(R), nil
}

// Delete dispatches the removal of entity/id and returns every change,
// cascades included.
func Delete(ctx context.Context, s *Service, entity EntityType, id string) ([]Change, error) {
	out, err := s.Dispatch(ctx, DeleteAction(entity, id))
	return out.Changes, err
}

// List returns typed copies of schema's collection in stored order.
func List[R domain.Record](s *Service, schema *domain.Schema[R]) []R {
	return domain.Typed[R](s.store.List(schema.Entity()))
}

// Get returns a typed copy of one record.
func Get[R domain.Record](s *Service, schema *domain.Schema[R], id string) (R, error) {
	rec, ok := s.store.Get(schema.Entity(), id)
	if !ok {
		var zero R
		return zero, domain.NotFoundError{Entity: schema.Entity(), ID: id}
	}
	return rec.(R), nil
}

// Find runs q against schema's collection.
func Find[R domain.Record](s *Service, schema *domain.Schema[R], q query.Query) ([]R, error) {
	return query.Run(List(s, schema), schema, q)
}
