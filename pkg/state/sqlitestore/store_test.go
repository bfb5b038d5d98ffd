package sqlitestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	invgroups "github.com/goliatone/go-invgroups"
	"github.com/goliatone/go-invgroups/pkg/state"
)

func openTestStore(t *testing.T) *Store[invgroups.PlayerData] {
	t.Helper()
	store, err := Open[invgroups.PlayerData](filepath.Join(t.TempDir(), "inventories.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ref := state.Ref{Player: uuid.New(), Group: "survival"}

	if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected missing snapshot, got ok=%v err=%v", ok, err)
	}

	data := invgroups.NewPlayerData()
	data.Set(invgroups.SlotMain, 3, &invgroups.ItemStack{Type: "ARROW", Amount: 12, Meta: []byte{1, 2}})
	data.Set(invgroups.SlotEnderChest, 0, &invgroups.ItemStack{Type: "DIAMOND", Amount: 5})

	saved, err := store.Save(ctx, ref, data, state.Meta{Extra: map[string]string{"reason": "switch"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ETag == "" || saved.SnapshotID == "" || saved.UpdatedAt.IsZero() {
		t.Fatalf("expected stamped meta, got %+v", saved)
	}

	loaded, meta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if meta.ETag != saved.ETag || meta.Extra["reason"] != "switch" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	got := loaded.Get(invgroups.SlotMain, 3)
	if got == nil || got.Type != "ARROW" || got.Amount != 12 || string(got.Meta) != "\x01\x02" {
		t.Fatalf("unexpected main slot: %v", got)
	}
	if loaded.Get(invgroups.SlotEnderChest, 0).Amount != 5 {
		t.Fatalf("expected ender chest item, got %v", loaded.Get(invgroups.SlotEnderChest, 0))
	}

	resaved, err := store.Save(ctx, ref, data, state.Meta{})
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if resaved.ETag == saved.ETag {
		t.Fatalf("expected a new etag on every save")
	}
}

func TestStoreWorksWithMutateETagGuard(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ref := state.Ref{Player: uuid.New(), Group: "creative"}

	saved, err := store.Save(ctx, ref, invgroups.NewPlayerData(), state.Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	_, _, err = state.Mutate[invgroups.PlayerData](ctx, store, ref, state.Meta{ETag: "stale"}, func(*invgroups.PlayerData) error { return nil })
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}
	_, _, err = state.Mutate[invgroups.PlayerData](ctx, store, ref, state.Meta{ETag: saved.ETag}, func(d *invgroups.PlayerData) error {
		d.Set(invgroups.SlotOffhand, 0, &invgroups.ItemStack{Type: "SHIELD", Amount: 1})
		return nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	loaded, _, _, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Get(invgroups.SlotOffhand, 0).Type != "SHIELD" {
		t.Fatalf("expected mutated offhand, got %v", loaded.Get(invgroups.SlotOffhand, 0))
	}
}

func TestStoreGroupsListsPlayerSnapshots(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	player := uuid.New()
	for _, group := range []string{"survival", "creative"} {
		if _, err := store.Save(ctx, state.Ref{Player: player, Group: group}, invgroups.NewPlayerData(), state.Meta{}); err != nil {
			t.Fatalf("save %s: %v", group, err)
		}
	}
	if _, err := store.Save(ctx, state.Ref{Player: uuid.New(), Group: "other"}, invgroups.NewPlayerData(), state.Meta{}); err != nil {
		t.Fatalf("save other: %v", err)
	}
	groups, err := store.Groups(ctx, player)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 || groups[0] != "creative" || groups[1] != "survival" {
		t.Fatalf("unexpected groups: %v", groups)
	}
}

func TestStoreRejectsInvalidRef(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Save(context.Background(), state.Ref{Group: "x"}, invgroups.NewPlayerData(), state.Meta{}); err == nil {
		t.Fatalf("expected error for nil player id")
	}
}
