package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"deskcore/internal/dashboard"
	"deskcore/internal/export"
	"deskcore/internal/seed"
	"deskcore/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useApp(t *testing.T, app string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DESKCORE_CONFIG", "")
	t.Setenv("DESKCORE_APP", app)
	t.Setenv("DESKCORE_STORAGE_DRIVER", "file")
	t.Setenv("DESKCORE_STORAGE_DIR", filepath.Join(dir, "data"))
	t.Setenv("DESKCORE_BLOB_DRIVER", "inline")
	t.Setenv("DESKCORE_LOG_LEVEL", "error")
	t.Setenv("DESKCORE_GENAI_API_KEY", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func listJSON(t *testing.T, d domain.Descriptor, args ...string) []domain.Record {
	t.Helper()
	out, err := run(t, append([]string{"list", d.Key(), "--json"}, args...)...)
	require.NoError(t, err)
	records, err := d.Decode([]byte(out))
	require.NoError(t, err)
	return records
}

func seedCount(t *testing.T, app string, entity domain.EntityType) int {
	t.Helper()
	catalog, err := domain.CatalogFor(app)
	require.NoError(t, err)
	snap, err := seed.Load(catalog, time.Now())
	require.NoError(t, err)
	return len(snap[entity])
}

func TestSetListDeleteAcrossInvocations(t *testing.T) {
	useApp(t, domain.AppSuite)
	status := domain.ContactStatuses[0]

	_, err := run(t, "set", "contacts", "name=Ada Zyxwv", "status="+status, "company=Analytical")
	require.NoError(t, err)

	found := listJSON(t, domain.ContactSchema, "--search", "zyxwv")
	require.Len(t, found, 1)
	ada := found[0].(*domain.Contact)
	assert.Equal(t, "Ada Zyxwv", ada.Name)
	assert.Equal(t, "Analytical", ada.Company)

	_, err = run(t, "set", "contacts", "--id", ada.ID, "company=Engines")
	require.NoError(t, err)
	out, err := run(t, "get", "contacts", ada.ID, "--json")
	require.NoError(t, err)
	got, err := domain.ContactSchema.Decode([]byte(out))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Engines", got[0].(*domain.Contact).Company)
	assert.Equal(t, "Ada Zyxwv", got[0].(*domain.Contact).Name)

	out, err = run(t, "delete", "contacts", ada.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "delete contact "+ada.ID)

	_, err = run(t, "get", "contacts", ada.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRejectsInvalidInput(t *testing.T) {
	useApp(t, domain.AppSuite)

	_, err := run(t, "set", "invoices", "number=INV-1", "amount=lots", "status="+domain.InvoiceStatuses[0])
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = run(t, "set", "contacts", "name")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = run(t, "set", "contacts", "--id", "missing", "name=Nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = run(t, "set", "widgets", "name=x")
	assert.ErrorIs(t, err, domain.ErrUnknownEntity)
}

func TestSetReportsEveryFieldError(t *testing.T) {
	useApp(t, domain.AppSuite)
	before := len(listJSON(t, domain.InvoiceSchema))

	_, err := run(t, "set", "invoices", "number=INV-9", "amount=lots", "due_date=tomorrow", "colour=red")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, field := range []string{"amount", "due_date", "colour"} {
		_, ok := ve.Field(field)
		assert.True(t, ok, field)
	}
	assert.Len(t, listJSON(t, domain.InvoiceSchema), before)
}

func TestListFlags(t *testing.T) {
	useApp(t, domain.AppSuite)

	all := listJSON(t, domain.ContactSchema)
	assert.Len(t, all, seedCount(t, domain.AppSuite, domain.EntityContact))

	sorted := listJSON(t, domain.ContactSchema, "--sort", "name", "--desc")
	require.Len(t, sorted, len(all))
	for i := 1; i < len(sorted); i++ {
		assert.GreaterOrEqual(t, sorted[i-1].(*domain.Contact).Name, sorted[i].(*domain.Contact).Name)
	}

	_, err := run(t, "list", "contacts", "--eq", "status")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = run(t, "list", "contacts", "--sort", "shoe_size")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = run(t, "list", "invoices", "--range", "amount=x:")
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := run(t, "list", "contacts")
	require.NoError(t, err)
	assert.Contains(t, out, "contacts (")
}

func TestStatsJSON(t *testing.T) {
	useApp(t, domain.AppRealEstate)

	out, err := run(t, "stats", "--json")
	require.NoError(t, err)
	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.NotNil(t, summary.RealEstate)
	assert.Equal(t, seedCount(t, domain.AppRealEstate, domain.EntityProperty), summary.RealEstate.Listings)

	out, err = run(t, "stats")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestExportWritesInlineArtifacts(t *testing.T) {
	dir := useApp(t, domain.AppSuite)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "export", "contacts", "--format", "csv", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "rows exported")

	f, err := os.Open(filepath.Join(outDir, "contacts.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, export.Header(domain.ContactSchema), rows[0])
	assert.Len(t, rows, seedCount(t, domain.AppSuite, domain.EntityContact)+1)

	_, err = run(t, "export", "contacts", "--format", "xml")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSeedResetRestoresDemoData(t *testing.T) {
	useApp(t, domain.AppSuite)
	want := seedCount(t, domain.AppSuite, domain.EntityContact)

	out, err := run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "contacts\t")

	first := listJSON(t, domain.ContactSchema)[0]
	_, err = run(t, "delete", "contacts", first.Meta().ID)
	require.NoError(t, err)
	assert.Len(t, listJSON(t, domain.ContactSchema), want-1)

	_, err = run(t, "seed", "--reset")
	require.NoError(t, err)
	assert.Len(t, listJSON(t, domain.ContactSchema), want)
}

func TestAttachInlineImage(t *testing.T) {
	dir := useApp(t, domain.AppRealEstate)
	property := listJSON(t, domain.PropertySchema)[0]
	before := len(property.(domain.ImageHolder).ImageRefs())

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	path := filepath.Join(dir, "front.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	out, err := run(t, "attach", "properties", property.Meta().ID, path)
	require.NoError(t, err)
	assert.Contains(t, out, "attached inline image")

	out, err = run(t, "get", "properties", property.Meta().ID, "--json")
	require.NoError(t, err)
	got, err := domain.PropertySchema.Decode([]byte(out))
	require.NoError(t, err)
	refs := got[0].(domain.ImageHolder).ImageRefs()
	require.Len(t, refs, before+1)
	added := refs[len(refs)-1]
	assert.True(t, strings.HasPrefix(added, "data:image/png;base64,"))

	_, err = run(t, "attach", "properties", property.Meta().ID, "--remove", added)
	require.NoError(t, err)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("not an image"), 0o600))
	_, err = run(t, "attach", "properties", property.Meta().ID, text)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAnalyzePreconditions(t *testing.T) {
	useApp(t, domain.AppSuite)
	_, err := run(t, "analyze", "why?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.AppCFO)

	_, err = run(t, "--app", domain.AppCFO, "analyze", "why?")
	require.Error(t, err)
}

func TestGlobalFlags(t *testing.T) {
	useApp(t, domain.AppSuite)

	_, err := run(t, "--app", "nope", "apps")
	require.Error(t, err)

	out, err := run(t, "--app", domain.AppLab, "apps")
	require.NoError(t, err)
	assert.Contains(t, out, "* "+domain.AppLab)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "apps")
	require.Error(t, err)
}

func TestRenderHelpers(t *testing.T) {
	assert.Empty(t, bar(0, 10))
	assert.Empty(t, bar(3, 0))
	assert.Equal(t, barWidth, utf8.RuneCountInString(bar(10, 10)))
	assert.Equal(t, 1, utf8.RuneCountInString(bar(1, 1000)))

	long := strings.Repeat("x", 100)
	assert.Equal(t, maxCellWidth, utf8.RuneCountInString(clip(long)))
	assert.Equal(t, "a b", clip("a\nb"))

	table := renderTable("contacts", []string{"id", "name"}, [][]string{{"1", "Ada"}})
	assert.Contains(t, table, "contacts (1)")
	assert.Contains(t, table, "Ada")
}
