package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inquiredu/hi-fi-cassette-physics/internal/deck"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/infra/store"
	"github.com/inquiredu/hi-fi-cassette-physics/internal/tape"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db := store.NewDB(filepath.Join(tmpDir, "test.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestNewDB(t *testing.T) {
	db := store.NewDB("")
	if db == nil {
		t.Error("NewDB should return a non-nil instance")
	}
}

func TestDBOpenClose(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "store_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")
	db := store.NewDB(dbPath)

	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist after Open()")
	}

	if err := db.Ping(); err != nil {
		t.Errorf("Ping should succeed on an open database: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}
}

func TestDAOTracklistRoundTrip(t *testing.T) {
	db := openTestDB(t)
	dao := store.NewDAO(db)

	original := tape.Tracklist{
		SideA: []tape.Track{
			{Title: "Opening Theme", Duration: "4:28"},
			{ID: "keep-me", Title: "Night Drive", Duration: "4:39"},
		},
		SideB: []tape.Track{
			{Title: "Slow Rewind", Duration: "5:58"},
		},
	}

	saved, err := dao.SaveTracklist(original)
	if err != nil {
		t.Fatalf("SaveTracklist failed: %v", err)
	}

	// Blank IDs are minted, existing ones are preserved.
	if saved.SideA[0].ID == "" {
		t.Error("expected an ID to be minted for the first track")
	}
	if saved.SideA[1].ID != "keep-me" {
		t.Errorf("existing ID = %q, want %q", saved.SideA[1].ID, "keep-me")
	}

	loaded, err := dao.LoadTracklist()
	if err != nil {
		t.Fatalf("LoadTracklist failed: %v", err)
	}

	if len(loaded.SideA) != 2 || len(loaded.SideB) != 1 {
		t.Fatalf("loaded %d/%d tracks, want 2/1", len(loaded.SideA), len(loaded.SideB))
	}
	if loaded.SideA[0].Title != "Opening Theme" || loaded.SideA[0].Duration != "4:28" {
		t.Errorf("first track = %+v, want Opening Theme / 4:28", loaded.SideA[0])
	}
	if loaded.SideB[0].Title != "Slow Rewind" {
		t.Errorf("side B track = %+v, want Slow Rewind", loaded.SideB[0])
	}
}

func TestDAOSaveTracklistReplacesProgram(t *testing.T) {
	db := openTestDB(t)
	dao := store.NewDAO(db)

	first := tape.Tracklist{SideA: []tape.Track{{Title: "Old", Duration: "3:00"}}}
	if _, err := dao.SaveTracklist(first); err != nil {
		t.Fatalf("SaveTracklist failed: %v", err)
	}

	second := tape.Tracklist{SideB: []tape.Track{{Title: "New", Duration: "2:00"}}}
	if _, err := dao.SaveTracklist(second); err != nil {
		t.Fatalf("SaveTracklist failed: %v", err)
	}

	loaded, err := dao.LoadTracklist()
	if err != nil {
		t.Fatalf("LoadTracklist failed: %v", err)
	}
	if len(loaded.SideA) != 0 {
		t.Errorf("side A should be empty after replace, got %d tracks", len(loaded.SideA))
	}
	if len(loaded.SideB) != 1 || loaded.SideB[0].Title != "New" {
		t.Errorf("side B = %+v, want the replacement program", loaded.SideB)
	}
}

func TestDAOEmptyStore(t *testing.T) {
	db := openTestDB(t)
	dao := store.NewDAO(db)

	tl, err := dao.LoadTracklist()
	if err != nil {
		t.Fatalf("LoadTracklist on empty store failed: %v", err)
	}
	if len(tl.SideA) != 0 || len(tl.SideB) != 0 {
		t.Errorf("expected empty tracklist, got %d/%d tracks", len(tl.SideA), len(tl.SideB))
	}

	snap, err := dao.LoadSnapshot("missing")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil for unknown snapshot, got %+v", snap)
	}
}

func TestDAOSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	dao := store.NewDAO(db)

	original := deck.Snapshot{
		Mode:          deck.ModePaused,
		Side:          tape.SideB,
		SideAProgress: 0.75,
		SideBProgress: 0.25,
	}

	if err := dao.SaveSnapshot("session", original); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, err := dao.LoadSnapshot("session")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadSnapshot returned nil for a saved snapshot")
	}
	if *loaded != original {
		t.Errorf("loaded snapshot = %+v, want %+v", *loaded, original)
	}

	// Saving under the same name overwrites.
	updated := original
	updated.Mode = deck.ModeStopped
	updated.SideBProgress = 0
	if err := dao.SaveSnapshot("session", updated); err != nil {
		t.Fatalf("SaveSnapshot overwrite failed: %v", err)
	}

	loaded, err = dao.LoadSnapshot("session")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if *loaded != updated {
		t.Errorf("loaded snapshot = %+v, want %+v", *loaded, updated)
	}
}

func TestLibraryReplaceAndProvide(t *testing.T) {
	db := openTestDB(t)
	lib := store.NewLibrary(store.NewDAO(db))

	if err := lib.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := lib.Tracklist(); len(got.SideA) != 0 {
		t.Errorf("fresh library should provide an empty program, got %+v", got)
	}

	saved, err := lib.Replace(tape.Tracklist{
		SideA: []tape.Track{{Title: "Opening Theme", Duration: "4:28"}},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if saved.SideA[0].ID == "" {
		t.Error("Replace should mint IDs")
	}

	got := lib.Tracklist()
	if len(got.SideA) != 1 || got.SideA[0].Title != "Opening Theme" {
		t.Errorf("Tracklist() = %+v, want the replaced program", got)
	}

	// A second library over the same store sees the persisted program.
	lib2 := store.NewLibrary(store.NewDAO(db))
	if err := lib2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := lib2.Tracklist(); len(got.SideA) != 1 {
		t.Errorf("persisted program not visible to a fresh library: %+v", got)
	}
}
