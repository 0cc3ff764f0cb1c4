package testsupport

import (
	"context"
	"testing"

	"voxclip/internal/catalog"
	"voxclip/internal/config"
)

// MustOpenCatalog opens the SQLite catalog configured in cfg and closes it
// when the test finishes.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.OpenSQLite(context.Background(), cfg.Catalog.Path)
	if err != nil {
		t.Fatalf("catalog.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
