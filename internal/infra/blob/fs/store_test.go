package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deskcore/internal/blob/core"
)

func TestFilesystemLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	info, err := s.Put(ctx, "property/p1/a.png", strings.NewReader("png-bytes"), core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"record": "p1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 9 || info.ETag == "" || !strings.HasPrefix(info.URL, "file://") {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "property/p1/a.png", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := s.Get(ctx, "property/p1/a.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "png-bytes" || got.ContentType != "image/png" || got.Metadata["record"] != "p1" {
		t.Fatalf("unexpected get %+v %q", got, body)
	}

	if _, err := s.Put(ctx, "export/x.csv", strings.NewReader("a,b"), core.PutOptions{}); err != nil {
		t.Fatalf("put export: %v", err)
	}
	list, err := s.List(ctx, "property/")
	if err != nil || len(list) != 1 || list[0].Key != "property/p1/a.png" {
		t.Fatalf("list: %v %+v", err, list)
	}

	ok, err := s.Delete(ctx, "property/p1/a.png")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = s.Delete(ctx, "property/p1/a.png")
	if err != nil || ok {
		t.Fatalf("second delete should report false: %v %v", ok, err)
	}
	if _, err := s.Head(ctx, "property/p1/a.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "property", "p1", "a.png.meta")); !os.IsNotExist(err) {
		t.Fatalf("sidecar should be removed, stat err=%v", err)
	}
}

func TestFilesystemRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../x", "/abs", "a/../../b", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{}); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}

func TestFilesystemPresign(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.PresignURL(ctx, "missing", core.SignedURLOptions{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.PresignURL(ctx, "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	u, err := s.PresignURL(ctx, "k", core.SignedURLOptions{})
	if err != nil || !strings.HasSuffix(u, "/k") {
		t.Fatalf("presign: %v %q", err, u)
	}
}
