package layerstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	layerstore "github.com/arclayer/layerstore"
	"github.com/arclayer/layerstore/internal/triple"
)

func TestMemoryDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	store := layerstore.OpenMemoryStore()

	db, err := store.Create(ctx, "foodb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := db.Head(ctx); !errors.Is(err, layerstore.ErrNotFound) {
		t.Fatalf("Head on empty database: got %v, want ErrNotFound", err)
	}

	builder := store.CreateBaseLayer()
	if err := builder.AddStringTriple(triple.NewValue("cow", "says", "moo")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	layer1, err := builder.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := db.SetHead(ctx, layer1); err != nil || !ok {
		t.Fatalf("SetHead: ok=%v err=%v", ok, err)
	}

	builder2 := layer1.OpenWrite()
	if err := builder2.AddStringTriple(triple.NewValue("pig", "says", "oink")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	layer2, err := builder2.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := db.SetHead(ctx, layer2); err != nil || !ok {
		t.Fatalf("SetHead: ok=%v err=%v", ok, err)
	}

	head, err := db.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Layer().Name() != layer2.Layer().Name() {
		t.Fatal("head should be layer2 after two SetHead calls")
	}

	sid, _ := head.Layer().SubjectID("cow")
	pid, _ := head.Layer().PredicateID("says")
	mooID, _ := head.Layer().ObjectValueID("moo")
	if !head.Layer().TripleExists(sid, pid, mooID) {
		t.Fatal("triple from the base layer should still exist in the head")
	}

	sid2, _ := head.Layer().SubjectID("pig")
	oinkID, _ := head.Layer().ObjectValueID("oink")
	if !head.Layer().TripleExists(sid2, pid, oinkID) {
		t.Fatal("triple added in the child layer should exist in the head")
	}
}

func TestDirectoryStoreDatabaseLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := layerstore.OpenDirectoryStore(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("OpenDirectoryStore: %v", err)
	}

	db, err := store.Create(ctx, "foodb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	builder := store.CreateBaseLayer()
	if err := builder.AddStringTriple(triple.NewValue("cow", "says", "moo")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	layer1, err := builder.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := db.SetHead(ctx, layer1); err != nil || !ok {
		t.Fatalf("SetHead: ok=%v err=%v", ok, err)
	}

	reopened, err := store.Open(ctx, "foodb")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	head, err := reopened.Head(ctx)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head.Layer().Name() != layer1.Layer().Name() {
		t.Fatal("reopened database should report the same head")
	}
}

func TestOpenDirectoryStoreAppliesConfig(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "store.log")
	toml := "dictionary_block_size = 2\n" +
		"label_lock_timeout_seconds = 5\n" +
		"cache_enabled = false\n" +
		"log_level = \"debug\"\n" +
		"log_file_path = \"" + logPath + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, "store.toml"), []byte(toml), 0o644); err != nil {
		t.Fatalf("writing store.toml: %v", err)
	}

	store, err := layerstore.OpenDirectoryStore(dir)
	if err != nil {
		t.Fatalf("OpenDirectoryStore: %v", err)
	}

	db, err := store.Create(ctx, "foodb")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	builder := store.CreateBaseLayer()
	if err := builder.AddStringTriple(triple.NewValue("cow", "says", "moo")); err != nil {
		t.Fatalf("AddStringTriple: %v", err)
	}
	layer1, err := builder.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := db.SetHead(ctx, layer1); err != nil || !ok {
		t.Fatalf("SetHead: ok=%v err=%v", ok, err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "layer commit") {
		t.Errorf("log output missing a layer commit entry:\n%s", out)
	}
	if !strings.Contains(out, "label cas") {
		t.Errorf("log output missing a label cas entry:\n%s", out)
	}
}

func TestCreateTwiceFails(t *testing.T) {
	ctx := context.Background()
	store := layerstore.OpenMemoryStore()
	if _, err := store.Create(ctx, "dup"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, "dup"); !errors.Is(err, layerstore.ErrAlreadyExists) {
		t.Fatalf("second Create: got %v, want ErrAlreadyExists", err)
	}
}

func TestSetHeadRejectsNonDescendant(t *testing.T) {
	ctx := context.Background()
	store := layerstore.OpenMemoryStore()
	db, err := store.Create(ctx, "db")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	b1 := store.CreateBaseLayer()
	_ = b1.AddStringTriple(triple.NewValue("a", "b", "c"))
	layer1, err := b1.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ok, err := db.SetHead(ctx, layer1); err != nil || !ok {
		t.Fatalf("SetHead: ok=%v err=%v", ok, err)
	}

	unrelated := store.CreateBaseLayer()
	_ = unrelated.AddStringTriple(triple.NewValue("x", "y", "z"))
	layer2, err := unrelated.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ok, err := db.SetHead(ctx, layer2)
	if err != nil {
		t.Fatalf("SetHead: %v", err)
	}
	if ok {
		t.Fatal("SetHead should refuse to move to a layer that isn't a descendant of the current head")
	}
}
