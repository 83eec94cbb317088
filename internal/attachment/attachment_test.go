package attachment

import (
	"context"
	"io"
	"strings"
	"testing"

	"deskcore/internal/async"
	"deskcore/internal/blob"
	"deskcore/internal/core"
	"deskcore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*core.Service, *domain.Property) {
	t.Helper()
	catalog, err := domain.CatalogFor(domain.AppRealEstate)
	require.NoError(t, err)
	svc := core.NewService(catalog)
	p, err := core.Add(context.Background(), svc, &domain.Property{Title: "Loft", Type: domain.PropertyCondo, Status: domain.ListingAvailable})
	require.NoError(t, err)
	return svc, p
}

func upload(p *domain.Property, body string) Upload {
	return Upload{Entity: domain.EntityProperty, ID: p.ID, Name: "Front.PNG", ContentType: "image/png", Body: strings.NewReader(body)}
}

func TestInlineUploadProducesDataURL(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)
	tr := async.NewTracker()
	u := NewUploader(svc, tr)

	ref, err := u.Upload(ctx, tr.Begin("modal:property"), upload(p, "abc"))
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,YWJj", ref)

	stored, err := core.Get(svc, domain.PropertySchema, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ref}, stored.Images)

	ct, rc, err := u.Open(ctx, ref)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, "abc", string(b))
}

func TestBlobUploadAndRemove(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)
	tr := async.NewTracker()
	store := blob.NewMemory()
	u := NewUploader(svc, tr, WithBlobStore(store))
	u.newKey = func() string { return "k1" }

	ref, err := u.Upload(ctx, tr.Begin("upload"), upload(p, "pixels"))
	require.NoError(t, err)
	assert.Equal(t, "blob:property/"+p.ID+"/k1.png", ref)

	info, err := store.Head(ctx, "property/"+p.ID+"/k1.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "Front.PNG", info.Metadata["name"])

	require.NoError(t, u.Remove(ctx, domain.EntityProperty, p.ID, ref))
	stored, err := core.Get(svc, domain.PropertySchema, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Images)
	_, err = store.Head(ctx, "property/"+p.ID+"/k1.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	err = u.Remove(ctx, domain.EntityProperty, p.ID, ref)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestStaleUploadDiscardsBlob(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)
	tr := async.NewTracker()
	store := blob.NewMemory()
	u := NewUploader(svc, tr, WithBlobStore(store))

	tok := tr.Begin("modal:property")
	tr.Cancel("modal:property")
	_, err := u.Upload(ctx, tok, upload(p, "late"))
	require.ErrorIs(t, err, async.ErrStale)

	left, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left)
	stored, err := core.Get(svc, domain.PropertySchema, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Images)
}

func TestUploadToMissingRecordCleansUp(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	tr := async.NewTracker()
	store := blob.NewMemory()
	u := NewUploader(svc, tr, WithBlobStore(store))

	_, err := u.Upload(ctx, tr.Begin("x"), Upload{Entity: domain.EntityProperty, ID: "ghost", ContentType: "image/jpeg", Body: strings.NewReader("j")})
	require.ErrorIs(t, err, domain.ErrNotFound)
	left, _ := store.List(ctx, "")
	assert.Empty(t, left)
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()
	svc, p := setup(t)
	tr := async.NewTracker()
	u := NewUploader(svc, tr, WithMaxBytes(4))

	bad := upload(p, "abc")
	bad.ContentType = "application/pdf"
	_, err := u.Upload(ctx, tr.Begin("x"), bad)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = u.Upload(ctx, tr.Begin("x"), upload(p, "12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = u.Upload(ctx, tr.Begin("x"), Upload{Entity: domain.EntityAppointment, ID: "a", ContentType: "image/png", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestStashStoresUnlinkedFiles(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	store := blob.NewMemory()
	u := NewUploader(svc, async.NewTracker(), WithBlobStore(store), WithMaxBytes(8))
	u.newKey = func() string { return "doc" }

	ref, err := u.Stash(ctx, domain.EntityInsight, "report.PDF", "", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "blob:insight/doc.pdf", ref)
	info, err := store.Head(ctx, "insight/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", info.ContentType)

	_, err = u.Stash(ctx, domain.EntityInsight, "big.bin", "application/pdf", make([]byte, 9))
	assert.ErrorIs(t, err, ErrTooLarge)

	u.Discard(ctx, ref)
	_, err = store.Head(ctx, "insight/doc.pdf")
	assert.ErrorIs(t, err, blob.ErrNotFound)
	u.Discard(ctx, DataURL("text/plain", []byte("x")))

	inline := NewUploader(svc, async.NewTracker())
	ref, err = inline.Stash(ctx, domain.EntityInsight, "a.txt", "text/plain", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "data:text/plain;base64,aGk=", ref)
}

func TestParseDataURLErrors(t *testing.T) {
	for _, ref := range []string{"http://x", "data:image/png", "data:image/png,abc", "data:image/png;base64,%%%"} {
		_, _, err := ParseDataURL(ref)
		assert.Error(t, err, ref)
	}
}
