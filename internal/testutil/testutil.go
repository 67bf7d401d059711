// Package testutil provides shared test helpers for setting up record
// directories, databases and services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/myfview/internal/index"
	"github.com/starford/myfview/internal/liveconfig"
	"github.com/starford/myfview/internal/myfileservice"
	"github.com/starford/myfview/internal/render"
	"github.com/starford/myfview/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "myfview-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRecords creates a temporary records directory with a storage.Provider.
func TestRecords(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// WriteRecord writes a record file into dir.
func WriteRecord(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Env bundles a fully wired service over temporary storage.
type Env struct {
	Dir     string
	Store   storage.Provider
	DB      *index.DB
	Config  *liveconfig.Store
	Engine  *render.Engine
	Service *myfileservice.Service
}

// NewEnv wires storage, index, live config and renderer for tests.
// Records written before calling Sync are picked up by it.
func NewEnv(t *testing.T, privateFields ...string) *Env {
	t.Helper()
	dir, store := TestRecords(t)
	db := TestDB(t)

	settings := liveconfig.Defaults()
	settings.PrivateFields = append([]string{}, privateFields...)
	settings.TemplatesPath = t.TempDir()
	cfg := liveconfig.NewStore(settings, nil)

	engine, err := render.NewEngine(settings.TemplatesPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	svc := myfileservice.NewService(store, db, cfg, render.NewDispatcher(engine))
	return &Env{Dir: dir, Store: store, DB: db, Config: cfg, Engine: engine, Service: svc}
}

// Sync indexes the records currently on disk.
func (e *Env) Sync(t *testing.T) {
	t.Helper()
	if err := index.Sync(e.DB, e.Store, e.Service.FieldFilter(), DiscardLogger()); err != nil {
		t.Fatal(err)
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
