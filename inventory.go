package invgroups

import (
	"bytes"
	"fmt"
)

// Slot category sizes.
const (
	MainSlots       = 36
	ArmorSlots      = 4
	OffhandSlots    = 1
	EnderChestSlots = 27

	// ArmorBase and OffhandIndex place armor and offhand in the global
	// player-inventory index space used by shared slots (0-40).
	ArmorBase     = MainSlots
	OffhandIndex  = ArmorBase + ArmorSlots
	MaxSlotIndex  = OffhandIndex
	slotIndexSpan = MaxSlotIndex + 1
)

// SlotType names a slot category.
type SlotType string

const (
	SlotMain       SlotType = "MAIN_INVENTORY"
	SlotArmor      SlotType = "ARMOR"
	SlotOffhand    SlotType = "OFFHAND"
	SlotEnderChest SlotType = "ENDER_CHEST"
)

// SlotTypes lists every category in merge order.
var SlotTypes = []SlotType{SlotMain, SlotArmor, SlotOffhand, SlotEnderChest}

// Size returns the number of slots in t.
func (t SlotType) Size() int {
	switch t {
	case SlotMain:
		return MainSlots
	case SlotArmor:
		return ArmorSlots
	case SlotOffhand:
		return OffhandSlots
	case SlotEnderChest:
		return EnderChestSlots
	default:
		return 0
	}
}

// GlobalIndex maps (t, slot) onto the 0-40 player-inventory index space.
// Ender chest slots have no global index.
func (t SlotType) GlobalIndex(slot int) (int, bool) {
	if slot < 0 || slot >= t.Size() {
		return 0, false
	}
	switch t {
	case SlotMain:
		return slot, true
	case SlotArmor:
		return ArmorBase + slot, true
	case SlotOffhand:
		return OffhandIndex, true
	default:
		return 0, false
	}
}

// SlotAt maps a global index back onto its category and local slot.
func SlotAt(index int) (SlotType, int, bool) {
	switch {
	case index >= 0 && index < ArmorBase:
		return SlotMain, index, true
	case index >= ArmorBase && index < OffhandIndex:
		return SlotArmor, index - ArmorBase, true
	case index == OffhandIndex:
		return SlotOffhand, 0, true
	default:
		return "", 0, false
	}
}

// ItemStack describes the content of one slot. Meta is an opaque blob
// compared byte-for-byte.
type ItemStack struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
	Meta   []byte `json:"meta,omitempty"`
}

// Clone returns a deep copy; nil stays nil.
func (s *ItemStack) Clone() *ItemStack {
	if s == nil {
		return nil
	}
	out := *s
	out.Meta = append([]byte(nil), s.Meta...)
	return &out
}

// IsEmpty reports whether the slot holds nothing.
func (s *ItemStack) IsEmpty() bool {
	return s == nil || s.Type == "" || s.Amount <= 0
}

// Stackable reports whether s and other can share a slot: same type and
// same metadata.
func (s *ItemStack) Stackable(other *ItemStack) bool {
	if s.IsEmpty() || other.IsEmpty() {
		return false
	}
	return s.Type == other.Type && bytes.Equal(s.Meta, other.Meta)
}

// Equivalent reports whether s and other are stackable and hold the same
// amount.
func (s *ItemStack) Equivalent(other *ItemStack) bool {
	return s.Stackable(other) && s.Amount == other.Amount
}

func (s *ItemStack) String() string {
	if s.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%s x%d", s.Type, s.Amount)
}

// PlayerData is one group's inventory snapshot for a player. Slices are
// indexed by local slot; nil entries are empty slots.
type PlayerData struct {
	Main       []*ItemStack `json:"main"`
	Armor      []*ItemStack `json:"armor"`
	Offhand    []*ItemStack `json:"offhand"`
	EnderChest []*ItemStack `json:"ender_chest"`
}

// NewPlayerData returns an empty snapshot with every category sized.
func NewPlayerData() PlayerData {
	return PlayerData{
		Main:       make([]*ItemStack, MainSlots),
		Armor:      make([]*ItemStack, ArmorSlots),
		Offhand:    make([]*ItemStack, OffhandSlots),
		EnderChest: make([]*ItemStack, EnderChestSlots),
	}
}

// Normalize returns a deep copy with every category sized exactly;
// surplus entries are dropped and empty stacks become nil.
func (d PlayerData) Normalize() PlayerData {
	out := NewPlayerData()
	for _, t := range SlotTypes {
		src := d.slots(t)
		dst := out.slots(t)
		for i := 0; i < len(dst) && i < len(src); i++ {
			if !src[i].IsEmpty() {
				dst[i] = src[i].Clone()
			}
		}
	}
	return out
}

// Validate rejects categories longer than their size and stacks with a
// type but a negative amount.
func (d PlayerData) Validate() error {
	for _, t := range SlotTypes {
		slots := d.slots(t)
		if len(slots) > t.Size() {
			return fmt.Errorf("invgroups: %s holds %d slots, max %d", t, len(slots), t.Size())
		}
		for i, stack := range slots {
			if stack != nil && stack.Type != "" && stack.Amount < 0 {
				return fmt.Errorf("invgroups: %s slot %d: negative amount %d", t, i, stack.Amount)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d PlayerData) Clone() PlayerData {
	return d.Normalize()
}

// Get returns the stack at (t, slot), nil when empty or out of range.
func (d PlayerData) Get(t SlotType, slot int) *ItemStack {
	slots := d.slots(t)
	if slot < 0 || slot >= len(slots) {
		return nil
	}
	return slots[slot]
}

// Set stores stack at (t, slot). It reports false when out of range.
func (d PlayerData) Set(t SlotType, slot int, stack *ItemStack) bool {
	slots := d.slots(t)
	if slot < 0 || slot >= len(slots) {
		return false
	}
	if stack.IsEmpty() {
		slots[slot] = nil
		return true
	}
	slots[slot] = stack
	return true
}

func (d PlayerData) slots(t SlotType) []*ItemStack {
	switch t {
	case SlotMain:
		return d.Main
	case SlotArmor:
		return d.Armor
	case SlotOffhand:
		return d.Offhand
	case SlotEnderChest:
		return d.EnderChest
	default:
		return nil
	}
}
