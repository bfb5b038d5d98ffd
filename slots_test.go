package invgroups

import (
	"errors"
	"testing"
)

func mustPolicy(t *testing.T, cfg SharedSlotsConfig) *SharedSlotPolicy {
	t.Helper()
	policy, err := NewSharedSlotPolicy(cfg)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return policy
}

func item(kind string, amount int) *ItemStack {
	return &ItemStack{Type: kind, Amount: amount}
}

func TestSharedSlotsConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  SharedSlotsConfig
		want error
	}{
		{
			name: "overlap",
			cfg: SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{
				{Slots: []int{0, 1}, Mode: ModePreserve},
				{Slots: []int{1}, Mode: ModeSync},
			}},
			want: ErrSlotOverlap,
		},
		{
			name: "above range",
			cfg:  SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{{Slots: []int{41}, Mode: ModeLock}}},
			want: ErrSlotRange,
		},
		{
			name: "negative",
			cfg:  SharedSlotsConfig{Slots: []SharedSlotEntry{{Slots: []int{-1}, Mode: ModeLock}}},
			want: ErrSlotRange,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if _, err := NewSharedSlotPolicy(tc.cfg); err == nil {
				t.Fatalf("expected policy construction to fail")
			}
		})
	}

	unknown := SharedSlotsConfig{Slots: []SharedSlotEntry{{Slots: []int{3}, Mode: "MIRROR"}}}
	if err := unknown.Validate(); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}

func TestSharedSlotPolicyLookups(t *testing.T) {
	policy := mustPolicy(t, SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{
		{Slots: []int{8}, Mode: ModePreserve},
		{Slots: []int{ArmorBase + 3}, Mode: ModeLock},
		{Slots: []int{OffhandIndex}, Mode: "sync"},
	}})

	if mode, ok := policy.ModeFor(8); !ok || mode != ModePreserve {
		t.Fatalf("expected slot 8 preserved, got %q %v", mode, ok)
	}
	if mode, ok := policy.ModeFor(OffhandIndex); !ok || mode != ModeSync {
		t.Fatalf("expected lower-case mode parsed, got %q %v", mode, ok)
	}
	if policy.IsShared(0) || policy.IsShared(99) {
		t.Fatalf("unexpected shared slot")
	}
	if !policy.IsSharedSlot(SlotArmor, 3) || policy.IsSharedSlot(SlotEnderChest, 8) {
		t.Fatalf("unexpected IsSharedSlot result")
	}
	if policy.CanModify(ArmorBase+3) || !policy.CanModify(8) || !policy.CanModify(0) {
		t.Fatalf("expected only locked slot to refuse modification")
	}
	if got := policy.SharedIndexes(); len(got) != 3 || got[0] != 8 || got[2] != OffhandIndex {
		t.Fatalf("unexpected shared indexes: %v", got)
	}
}

func TestSharedSlotPolicyDisabled(t *testing.T) {
	policy := mustPolicy(t, SharedSlotsConfig{Enabled: false, Slots: []SharedSlotEntry{{Slots: []int{0}, Mode: ModeLock}}})
	if policy.IsShared(0) || !policy.CanModify(0) {
		t.Fatalf("expected disabled policy to share nothing")
	}
	data := NewPlayerData()
	data.Set(SlotMain, 0, item("STONE", 1))
	if policy.StripForStorage(data).Get(SlotMain, 0) == nil {
		t.Fatalf("expected disabled policy to keep slot in storage")
	}
}

func TestSharedSlotPolicyStorageRoundTrip(t *testing.T) {
	policy := mustPolicy(t, SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{
		{Slots: []int{0}, Mode: ModePreserve},
		{Slots: []int{1}, Mode: ModeLock},
		{Slots: []int{2}, Mode: ModeSync},
	}})

	live := NewPlayerData()
	live.Set(SlotMain, 0, item("COMPASS", 1))
	live.Set(SlotMain, 1, item("BARRIER", 1))
	live.Set(SlotMain, 2, item("TORCH", 10))
	live.Set(SlotMain, 3, item("STONE", 4))

	stored := policy.StripForStorage(live)
	if stored.Get(SlotMain, 0) != nil || stored.Get(SlotMain, 1) != nil {
		t.Fatalf("expected preserve and lock slots stripped")
	}
	if stored.Get(SlotMain, 2) == nil || stored.Get(SlotMain, 3) == nil {
		t.Fatalf("expected sync and regular slots stored")
	}
	if live.Get(SlotMain, 0) == nil {
		t.Fatalf("expected input left untouched")
	}

	other := NewPlayerData()
	other.Set(SlotMain, 0, item("MAP", 1))
	other.Set(SlotMain, 2, item("TORCH", 3))
	loaded := policy.ApplyOnLoad(other, live)
	if got := loaded.Get(SlotMain, 0); got.Type != "COMPASS" {
		t.Fatalf("expected live preserved item, got %v", got)
	}
	if got := loaded.Get(SlotMain, 1); got.Type != "BARRIER" {
		t.Fatalf("expected live locked item, got %v", got)
	}
	if got := loaded.Get(SlotMain, 2); got.Amount != 3 {
		t.Fatalf("expected stored sync value, got %v", got)
	}
	if loaded.Get(SlotMain, 3) != nil {
		t.Fatalf("expected regular slot from stored snapshot")
	}
}

func TestSharedSlotPolicySync(t *testing.T) {
	policy := mustPolicy(t, SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{
		{Slots: []int{4, OffhandIndex}, Mode: ModeSync},
	}})
	live := NewPlayerData()
	live.Set(SlotOffhand, 0, item("SHIELD", 1))

	values := policy.SyncSlots(live)
	if len(values) != 2 || values[4] != nil || values[OffhandIndex].Type != "SHIELD" {
		t.Fatalf("unexpected sync values: %v", values)
	}

	target := NewPlayerData()
	target.Set(SlotMain, 4, item("DIRT", 2))
	synced := ApplySync(target, values)
	if synced.Get(SlotMain, 4) != nil {
		t.Fatalf("expected cleared sync slot to propagate")
	}
	if synced.Get(SlotOffhand, 0).Type != "SHIELD" {
		t.Fatalf("expected synced offhand")
	}
	if target.Get(SlotMain, 4) == nil {
		t.Fatalf("expected input left untouched")
	}
}

func TestSharedSlotPolicyUpdateKeepsPreviousOnError(t *testing.T) {
	policy := mustPolicy(t, SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{{Slots: []int{0}, Mode: ModeLock}}})
	if err := policy.Update(SharedSlotsConfig{Enabled: true, Slots: []SharedSlotEntry{{Slots: []int{50}, Mode: ModeLock}}}); err == nil {
		t.Fatalf("expected invalid update to fail")
	}
	if mode, _ := policy.ModeFor(0); mode != ModeLock {
		t.Fatalf("expected previous table active, got %q", mode)
	}
	if err := policy.Update(SharedSlotsConfig{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if policy.IsShared(0) {
		t.Fatalf("expected new table active")
	}
}
