// Package form binds editable drafts to record schemas and tracks which modal
// is open. A draft is a detached copy; nothing reaches the service until
// Submit.
package form

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"deskcore/internal/core"
	"deskcore/pkg/domain"

	"github.com/samber/lo"
)

// Draft is an editable copy of one record.
type Draft[R domain.Record] struct {
	desc domain.Descriptor
	id   string
	rec  R
	// patch holds raw input per field in the order fields were first touched.
	patch  []string
	raw    map[string]string
	errors map[string]string
}

func newDraft[R domain.Record](desc domain.Descriptor, rec R) *Draft[R] {
	return &Draft[R]{
		desc:   desc,
		rec:    rec,
		raw:    make(map[string]string),
		errors: make(map[string]string),
	}
}

// New starts a draft for a record that does not exist yet.
func New[R domain.Record](schema *domain.Schema[R]) *Draft[R] {
	return newDraft(schema, schema.New())
}

// Edit starts a draft from the stored record id.
func Edit[R domain.Record](svc *core.Service, schema *domain.Schema[R], id string) (*Draft[R], error) {
	stored, err := core.Get(svc, schema, id)
	if err != nil {
		return nil, err
	}
	d := newDraft(schema, stored.Clone().(R))
	d.id = id
	return d, nil
}

// NewRecord starts an untyped draft for collections only known at runtime.
func NewRecord(desc domain.Descriptor) *Draft[domain.Record] {
	return newDraft(desc, desc.NewRecord())
}

// EditRecord is Edit for a runtime descriptor.
func EditRecord(svc *core.Service, desc domain.Descriptor, id string) (*Draft[domain.Record], error) {
	stored, ok := svc.Store().Get(desc.Entity(), id)
	if !ok {
		return nil, domain.NotFoundError{Entity: desc.Entity(), ID: id}
	}
	d := newDraft(desc, stored.Clone())
	d.id = id
	return d, nil
}

// Editing reports whether the draft targets an existing record.
func (d *Draft[R]) Editing() bool { return d.id != "" }

// ID returns the edited record id, empty for new drafts.
func (d *Draft[R]) ID() string { return d.id }

// Record returns the draft's working copy.
func (d *Draft[R]) Record() R { return d.rec }

// Value returns the field as currently displayed: the raw input if the last
// input failed to parse, else the parsed value.
func (d *Draft[R]) Value(field string) string {
	if _, bad := d.errors[field]; bad {
		return d.raw[field]
	}
	return d.desc.Text(d.rec, field)
}

// Set parses raw into field. Parse failures are kept as field errors and
// leave the previous value in place.
func (d *Draft[R]) Set(field, raw string) error {
	if _, ok := d.desc.FieldKind(field); !ok {
		return domain.NewValidationError(d.desc.Entity(), field, "unknown field")
	}
	if !slices.Contains(d.patch, field) {
		d.patch = append(d.patch, field)
	}
	d.raw[field] = raw
	if err := d.desc.SetField(d.rec, field, raw); err != nil {
		msg := err.Error()
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			msg, _ = ve.Field(field)
		}
		d.errors[field] = msg
		return err
	}
	delete(d.errors, field)
	return nil
}

// Errors lists outstanding field errors in schema field order.
func (d *Draft[R]) Errors() []domain.FieldError {
	names := lo.Filter(d.desc.FieldNames(), func(name string, _ int) bool {
		_, bad := d.errors[name]
		return bad
	})
	return lo.Map(names, func(name string, _ int) domain.FieldError {
		return domain.FieldError{Field: name, Message: d.errors[name]}
	})
}

// Valid reports whether the draft parses and passes schema validation.
func (d *Draft[R]) Valid() bool {
	return len(d.errors) == 0 && d.desc.ValidateRecord(d.rec) == nil
}

// Submit validates the draft and dispatches it: an add for new drafts, a
// patch of the touched fields for edit drafts.
func (d *Draft[R]) Submit(ctx context.Context, svc *core.Service) (R, error) {
	var zero R
	out, err := d.Dispatch(ctx, svc)
	if err != nil || out.Record == nil {
		return zero, err
	}
	return out.Record.(R), nil
}

// Dispatch is Submit returning the full outcome, rule violations included.
func (d *Draft[R]) Dispatch(ctx context.Context, svc *core.Service) (core.Outcome, error) {
	if errs := d.Errors(); len(errs) > 0 {
		return core.Outcome{}, &domain.ValidationError{Entity: d.desc.Entity(), Errors: errs}
	}
	if err := d.desc.ValidateRecord(d.rec); err != nil {
		return core.Outcome{}, err
	}
	if !d.Editing() {
		return svc.Dispatch(ctx, core.AddAction(d.rec.Clone()))
	}
	patch := slices.Clone(d.patch)
	raw := make(map[string]string, len(patch))
	for _, name := range patch {
		raw[name] = d.raw[name]
	}
	return svc.Dispatch(ctx, core.UpdateAction(d.desc.Entity(), d.id, func(stored domain.Record) error {
		for _, name := range patch {
			if err := d.desc.SetField(stored, name, raw[name]); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
		}
		return nil
	}))
}
