package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmynk/settlebot/internal/storage"
	"github.com/mmynk/settlebot/internal/storage/sqlite"
)

type testServices struct {
	registry   *Registry
	catalog    *Catalog
	ledger     *Ledger
	settlement *Settlement
}

// setupServices wires every component onto a fresh SQLite database.
func setupServices(t *testing.T) *testServices {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return servicesOn(store)
}

// servicesOn wires every component onto store.
func servicesOn(store storage.Store) *testServices {
	registry := NewRegistry(store)
	catalog := NewCatalog(store)
	ledger := NewLedger(store)
	return &testServices{
		registry:   registry,
		catalog:    catalog,
		ledger:     ledger,
		settlement: NewSettlement(registry, catalog, ledger),
	}
}

// mustTeam creates a team owned by the first ID and joins the rest.
func (s *testServices) mustTeam(t *testing.T, ids ...int64) string {
	t.Helper()
	ctx := context.Background()

	token, err := s.registry.CreateTeam(ctx, ids[0], ids[0], "owner")
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	for _, id := range ids[1:] {
		if err := s.registry.JoinTeam(ctx, id, id, "member", token); err != nil {
			t.Fatalf("JoinTeam(%d) failed: %v", id, err)
		}
	}
	return token
}
