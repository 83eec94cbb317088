package form

import (
	"context"
	"errors"
	"testing"

	"deskcore/internal/async"
	"deskcore/internal/core"
	"deskcore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *core.Service {
	t.Helper()
	catalog, err := domain.CatalogFor(domain.AppRealEstate)
	require.NoError(t, err)
	return core.NewService(catalog)
}

func TestDraftRejectsUnparsableNumber(t *testing.T) {
	d := New(domain.PropertySchema)
	require.NoError(t, d.Set("title", "Loft"))
	require.NoError(t, d.Set("price", "100000"))

	err := d.Set("price", "12abc")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 100000.0, d.Record().Price, "previous value kept")
	assert.Equal(t, "12abc", d.Value("price"))
	assert.Equal(t, []domain.FieldError{{Field: "price", Message: "must be a number"}}, d.Errors())
	assert.False(t, d.Valid())

	require.NoError(t, d.Set("price", "250000"))
	assert.Empty(t, d.Errors())
	assert.Equal(t, "250000", d.Value("price"))
}

func TestDraftSubmitNewRecord(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	d := New(domain.PropertySchema)
	for field, raw := range map[string]string{"title": "Cabin", "type": "house", "status": "available", "price": "99000"} {
		require.NoError(t, d.Set(field, raw))
	}
	stored, err := d.Submit(ctx, svc)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())

	got, err := core.Get(svc, domain.PropertySchema, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cabin", got.Title)
	assert.Empty(t, d.Record().ID, "draft stays detached")
}

func TestDraftSubmitBlockedByErrors(t *testing.T) {
	svc := newService(t)
	d := New(domain.PropertySchema)
	_ = d.Set("bedrooms", "2.5")
	_, err := d.Submit(context.Background(), svc)
	require.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, core.List(svc, domain.PropertySchema))

	d = New(domain.PropertySchema)
	_, err = d.Submit(context.Background(), svc)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	_, missing := ve.Field("title")
	assert.True(t, missing)
}

func TestEditPatchesTouchedFieldsOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	orig, err := core.Add(ctx, svc, &domain.Property{Title: "A", Type: domain.PropertyHouse, Status: domain.ListingAvailable, Price: 1})
	require.NoError(t, err)

	d, err := Edit(svc, domain.PropertySchema, orig.ID)
	require.NoError(t, err)
	assert.True(t, d.Editing())
	require.NoError(t, d.Set("price", "2"))

	// A concurrent edit of another field survives the patch.
	_, err = core.Update(ctx, svc, domain.PropertySchema, orig.ID, func(p *domain.Property) error {
		p.City = "Austin"
		return nil
	})
	require.NoError(t, err)

	updated, err := d.Submit(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 2.0, updated.Price)
	assert.Equal(t, "Austin", updated.City)
	assert.Equal(t, orig.ID, updated.ID)
}

func TestRecordDraftFromDescriptor(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	desc, err := svc.Catalog().Resolve("properties")
	require.NoError(t, err)

	d := NewRecord(desc)
	require.NoError(t, d.Set("title", "Barn"))
	require.NoError(t, d.Set("type", "house"))
	require.NoError(t, d.Set("status", "available"))
	assert.ErrorIs(t, d.Set("wings", "2"), domain.ErrValidation)
	out, err := d.Dispatch(ctx, svc)
	require.NoError(t, err)
	barn := out.Record.(*domain.Property)
	assert.Equal(t, "Barn", barn.Title)
	require.Len(t, out.Changes, 1)

	edit, err := EditRecord(svc, desc, barn.ID)
	require.NoError(t, err)
	require.NoError(t, edit.Set("price", "5000"))
	updated, err := edit.Submit(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, updated.(*domain.Property).Price)
	assert.Equal(t, "Barn", updated.(*domain.Property).Title)

	_, err = EditRecord(svc, desc, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditMissingRecord(t *testing.T) {
	_, err := Edit(newService(t), domain.PropertySchema, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestModalInvalidatesPendingWork(t *testing.T) {
	m := NewModal(nil)
	_, _, open := m.State()
	assert.False(t, open)

	tok := m.Open("property", "p1")
	name, editing, open := m.State()
	assert.Equal(t, "property", name)
	assert.Equal(t, "p1", editing)
	assert.True(t, open)
	assert.True(t, m.Tracker().Current(tok))

	m.Close()
	err := m.Tracker().Commit(tok, func() error { return nil })
	assert.ErrorIs(t, err, async.ErrStale)

	first := m.Open("property", "")
	second := m.Open("appointment", "")
	assert.False(t, m.Tracker().Current(first), "switching modals closes the previous one")
	assert.True(t, m.Tracker().Current(second))
	assert.Equal(t, second, m.Token())
}
