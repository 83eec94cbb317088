package domain

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// allowedDomainImports lists the third-party modules the domain package may
// depend on. Everything else must come from the standard library.
var allowedDomainImports = []string{
	"github.com/shopspring/decimal",
}

// TestDomainImports keeps the domain layer free of internal packages and
// unreviewed dependencies.
func TestDomainImports(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}
	entries, err := os.ReadDir(wd)
	if err != nil {
		t.Fatalf("cannot read dir: %v", err)
	}

	fset := token.NewFileSet()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(wd, name), nil, parser.ImportsOnly)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, spec := range file.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				t.Fatalf("unquote %s: %v", spec.Path.Value, err)
			}
			if strings.Contains(path, "/internal/") || strings.HasPrefix(path, "deskcore/") {
				t.Errorf("%s: domain must not import %s", name, path)
				continue
			}
			if !isStdlib(path) && !allowed(path) {
				t.Errorf("%s: unreviewed dependency %s", name, path)
			}
		}
	}
}

func isStdlib(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func allowed(path string) bool {
	for _, prefix := range allowedDomainImports {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
