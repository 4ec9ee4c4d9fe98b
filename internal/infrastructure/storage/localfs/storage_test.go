package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "sess1_scan.png", strings.NewReader("bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rc, err := storage.Open(ctx, "sess1_scan.png")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(raw) != "bytes" {
		t.Errorf("content = %q", raw)
	}

	if err := storage.Remove(ctx, "sess1_scan.png"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := storage.Open(ctx, "sess1_scan.png"); err == nil {
		t.Error("Open() after Remove() should fail")
	}

	// Removing a missing key is not an error.
	if err := storage.Remove(ctx, "sess1_scan.png"); err != nil {
		t.Errorf("Remove() of missing key: %v", err)
	}
}

func TestKeysAreConfinedToBaseDir(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "escape.txt"); err != nil {
		t.Errorf("traversal key not confined to base dir: %v", err)
	}
}
