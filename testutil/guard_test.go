package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

type recordingT struct {
	failed bool
}

func (r *recordingT) Fatalf(string, ...any) { r.failed = true }

func TestPredicates(t *testing.T) {
	cases := []struct {
		name string
		pred func(string) bool
		in   string
		want bool
	}{
		{"internal nested", InternalImportForbidden, "deskcore/internal/core", true},
		{"internal root", InternalImportForbidden, "deskcore/internal", true},
		{"pkg", InternalImportForbidden, "deskcore/pkg/domain", false},
		{"prefix exact", PrefixForbidden("deskcore/internal/core"), "deskcore/internal/core", true},
		{"prefix nested", PrefixForbidden("deskcore/internal/core"), "deskcore/internal/core/x", true},
		{"prefix sibling", PrefixForbidden("deskcore/internal/core"), "deskcore/internal/corex", false},
	}
	for _, c := range cases {
		if got := c.pred(c.in); got != c.want {
			t.Fatalf("%s: pred(%q)=%v want %v", c.name, c.in, got, c.want)
		}
	}
}

func writeFile(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package tmp\nimport (\n\t\"fmt\"\n\t\"deskcore/internal/core\"\n)\nvar _ = fmt.Sprint\nvar _ = core.ActionAdd\n")
	writeFile(t, dir, "a_test.go", "package tmp\nimport \"deskcore/internal/kv\"\n")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "sub"), "b.go", "package sub\nimport \"deskcore/internal/kv\"\n")

	viols, err := directImportViolations(dir, InternalImportForbidden)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "deskcore/internal/core (in a.go)" {
		t.Fatalf("violations = %v", viols)
	}

	rec := &recordingT{}
	failIfDirectViolations(rec, "layering", viols)
	if !rec.failed {
		t.Fatalf("expected failure to be reported")
	}
	AssertNoDirectImports(t, dir, PrefixForbidden("deskcore/pkg"), "none")
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), InternalImportForbidden); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
