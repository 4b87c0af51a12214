package testsupport

import (
	"context"
	"testing"

	"animap/internal/config"
	"animap/internal/merge"
	"animap/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustSave persists an entity or fails the test.
func MustSave(t testing.TB, st *store.Store, entity *merge.Entity) {
	t.Helper()

	if err := st.Save(context.Background(), entity); err != nil {
		t.Fatalf("store.Save(%d): %v", entity.ID, err)
	}
}
