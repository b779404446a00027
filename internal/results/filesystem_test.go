package results

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kozaktomas/face-match/internal/pipeline"
)

func newTestStore(t *testing.T) *FilesystemStore {
	t.Helper()
	store, err := NewFilesystemStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func sampleResults(imageID string) []pipeline.Result {
	return []pipeline.Result{{
		ImageID:    imageID,
		FaceIndex:  0,
		IdentityID: "alice",
		Distance:   0.12,
		Confidence: 88,
		Status:     pipeline.StatusMatched,
	}}
}

func TestFilesystemStore_PersistAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleResults("img-1")
	if err := store.Persist(ctx, NamespaceSingle, "img-1", want); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	got, err := store.Load(ctx, NamespaceSingle, "img-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("loaded results differ:\ngot  %+v\nwant %+v", got, want)
	}

	// Loading twice returns the same data.
	again, err := store.Load(ctx, NamespaceSingle, "img-1")
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if !reflect.DeepEqual(again, want) {
		t.Error("repeated load must return identical data")
	}
}

func TestFilesystemStore_PersistReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Persist(ctx, NamespaceSingle, "img-1", sampleResults("img-1")); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	updated := []pipeline.Result{{ImageID: "img-1", Status: pipeline.StatusNoFaceDetected}}
	if err := store.Persist(ctx, NamespaceSingle, "img-1", updated); err != nil {
		t.Fatalf("second persist failed: %v", err)
	}

	got, err := store.Load(ctx, NamespaceSingle, "img-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !reflect.DeepEqual(got, updated) {
		t.Errorf("reprocessed image must replace previous record, got %+v", got)
	}
}

func TestFilesystemStore_NamespaceIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	single := sampleResults("img-1")
	bulk := []pipeline.Result{{ImageID: "img-1", Status: pipeline.StatusNoMatch, Distance: 0.9}}

	if err := store.Persist(ctx, NamespaceSingle, "img-1", single); err != nil {
		t.Fatalf("persist single failed: %v", err)
	}
	if err := store.Persist(ctx, NamespaceBulk, "job-1/img-1", bulk); err != nil {
		t.Fatalf("persist bulk failed: %v", err)
	}

	gotSingle, err := store.Load(ctx, NamespaceSingle, "img-1")
	if err != nil {
		t.Fatalf("load single failed: %v", err)
	}
	if !reflect.DeepEqual(gotSingle, single) {
		t.Error("bulk write must not clobber the single-path record")
	}

	gotBulk, err := store.Load(ctx, NamespaceBulk, "job-1/img-1")
	if err != nil {
		t.Fatalf("load bulk failed: %v", err)
	}
	if !reflect.DeepEqual(gotBulk, bulk) {
		t.Error("bulk record corrupted")
	}
}

func TestFilesystemStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), NamespaceSingle, "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFilesystemStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"job-1/img-b", "job-1/img-a", "job-2/img-c"} {
		if err := store.Persist(ctx, NamespaceBulk, key, sampleResults(key)); err != nil {
			t.Fatalf("persist %s failed: %v", key, err)
		}
	}

	keys, err := store.List(ctx, NamespaceBulk)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"job-1/img-a", "job-1/img-b", "job-2/img-c"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("got keys %v, want %v", keys, want)
	}

	empty, err := store.List(ctx, NamespaceSingle)
	if err != nil {
		t.Fatalf("list empty namespace failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no keys, got %v", empty)
	}
}

func TestFilesystemStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Persist(ctx, NamespaceSingle, "img-1", sampleResults("img-1")); err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if err := store.Delete(ctx, NamespaceSingle, "img-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(ctx, NamespaceSingle, "img-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, NamespaceSingle, "img-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestFilesystemStore_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bad := []string{"", "..", "../escape", "a/../../b", "a//b"}
	for _, id := range bad {
		if err := store.Persist(ctx, NamespaceSingle, id, nil); err == nil {
			t.Errorf("image id %q should be rejected", id)
		}
	}
	if err := store.Persist(ctx, "../outside", "img-1", nil); err == nil {
		t.Error("namespace with traversal should be rejected")
	}
}

func TestFilesystemStore_NoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFilesystemStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	if err := store.Persist(ctx, NamespaceSingle, "img-1", sampleResults("img-1")); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	// No temp leftovers remain after a successful write.
	entries, err := os.ReadDir(filepath.Join(dir, NamespaceSingle))
	if err != nil {
		t.Fatalf("failed to read namespace dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
