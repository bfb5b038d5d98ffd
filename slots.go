package invgroups

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// SlotMode is the synchronization behaviour of a shared slot.
type SlotMode string

const (
	// ModePreserve keeps the slot out of per-group storage; it always holds
	// the player's live item.
	ModePreserve SlotMode = "PRESERVE"
	// ModeLock behaves like ModePreserve and additionally refuses
	// modification through CanModify.
	ModeLock SlotMode = "LOCK"
	// ModeSync writes the slot into every group's snapshot so all groups
	// observe the same value.
	ModeSync SlotMode = "SYNC"
)

// ParseSlotMode accepts mode names case-insensitively.
func ParseSlotMode(value string) (SlotMode, bool) {
	switch SlotMode(strings.ToUpper(strings.TrimSpace(value))) {
	case ModePreserve:
		return ModePreserve, true
	case ModeLock:
		return ModeLock, true
	case ModeSync:
		return ModeSync, true
	default:
		return "", false
	}
}

// keptLive reports whether the mode keeps the live item out of storage.
func (m SlotMode) keptLive() bool {
	return m == ModePreserve || m == ModeLock
}

// SharedSlotEntry assigns Mode to a set of global slot indexes.
type SharedSlotEntry struct {
	Slots []int
	Mode  SlotMode
}

// SharedSlotsConfig is the shared-slot configuration.
type SharedSlotsConfig struct {
	Enabled bool
	Slots   []SharedSlotEntry
}

// Validate rejects out-of-range indexes, unknown modes and indexes claimed
// by more than one entry.
func (c SharedSlotsConfig) Validate() error {
	_, err := buildSlotTable(c)
	return err
}

type slotTable struct {
	enabled bool
	modes   [slotIndexSpan]SlotMode
	config  SharedSlotsConfig
}

func buildSlotTable(cfg SharedSlotsConfig) (*slotTable, error) {
	table := &slotTable{enabled: cfg.Enabled, config: cloneSharedSlots(cfg)}
	var errs []error
	for i, entry := range cfg.Slots {
		mode, ok := ParseSlotMode(string(entry.Mode))
		if !ok {
			errs = append(errs, fmt.Errorf("invgroups: shared slot entry %d: unknown mode %q", i, entry.Mode))
			continue
		}
		for _, index := range entry.Slots {
			if index < 0 || index > MaxSlotIndex {
				errs = append(errs, fmt.Errorf("%w: %d", ErrSlotRange, index))
				continue
			}
			if existing := table.modes[index]; existing != "" {
				errs = append(errs, fmt.Errorf("%w: slot %d is %s and %s", ErrSlotOverlap, index, existing, mode))
				continue
			}
			table.modes[index] = mode
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return table, nil
}

// SharedSlotPolicy answers shared-slot lookups from an immutable table that
// is swapped atomically on Update.
type SharedSlotPolicy struct {
	table atomic.Pointer[slotTable]
}

// NewSharedSlotPolicy validates cfg and builds the policy.
func NewSharedSlotPolicy(cfg SharedSlotsConfig) (*SharedSlotPolicy, error) {
	p := &SharedSlotPolicy{}
	if err := p.Update(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Update validates cfg and swaps it in. On error the previous table stays.
func (p *SharedSlotPolicy) Update(cfg SharedSlotsConfig) error {
	table, err := buildSlotTable(cfg)
	if err != nil {
		return err
	}
	p.table.Store(table)
	return nil
}

// Config returns a copy of the active configuration.
func (p *SharedSlotPolicy) Config() SharedSlotsConfig {
	if p == nil {
		return SharedSlotsConfig{}
	}
	table := p.table.Load()
	if table == nil {
		return SharedSlotsConfig{}
	}
	return cloneSharedSlots(table.config)
}

// IsShared reports whether index is removed from per-group storage.
func (p *SharedSlotPolicy) IsShared(index int) bool {
	_, ok := p.ModeFor(index)
	return ok
}

// ModeFor returns the mode of index when it is shared.
func (p *SharedSlotPolicy) ModeFor(index int) (SlotMode, bool) {
	if p == nil || index < 0 || index > MaxSlotIndex {
		return "", false
	}
	table := p.table.Load()
	if table == nil || !table.enabled {
		return "", false
	}
	mode := table.modes[index]
	return mode, mode != ""
}

// IsSharedSlot reports whether (t, slot) is shared. Ender chest slots are
// never shared.
func (p *SharedSlotPolicy) IsSharedSlot(t SlotType, slot int) bool {
	index, ok := t.GlobalIndex(slot)
	return ok && p.IsShared(index)
}

// CanModify is the caller-side guard for LOCK slots: it is false only for
// indexes locked by the active policy.
func (p *SharedSlotPolicy) CanModify(index int) bool {
	mode, ok := p.ModeFor(index)
	return !ok || mode != ModeLock
}

// SharedIndexes returns the shared indexes in ascending order.
func (p *SharedSlotPolicy) SharedIndexes() []int {
	var out []int
	for index := 0; index <= MaxSlotIndex; index++ {
		if p.IsShared(index) {
			out = append(out, index)
		}
	}
	return out
}

// StripForStorage returns a copy of data with PRESERVE and LOCK slots
// cleared; those slots are never written to a group snapshot.
func (p *SharedSlotPolicy) StripForStorage(data PlayerData) PlayerData {
	out := data.Normalize()
	for index := 0; index <= MaxSlotIndex; index++ {
		mode, ok := p.ModeFor(index)
		if !ok || !mode.keptLive() {
			continue
		}
		t, slot, _ := SlotAt(index)
		out.Set(t, slot, nil)
	}
	return out
}

// ApplyOnLoad builds the inventory a player receives when stored is
// loaded: PRESERVE and LOCK slots keep the live item, SYNC slots take the
// stored value, which holds the most recent write.
func (p *SharedSlotPolicy) ApplyOnLoad(stored, live PlayerData) PlayerData {
	out := stored.Normalize()
	current := live.Normalize()
	for index := 0; index <= MaxSlotIndex; index++ {
		mode, ok := p.ModeFor(index)
		if !ok || !mode.keptLive() {
			continue
		}
		t, slot, _ := SlotAt(index)
		out.Set(t, slot, current.Get(t, slot).Clone())
	}
	return out
}

// SyncSlots returns the current values of SYNC slots keyed by global index;
// empty slots map to nil so clears propagate too.
func (p *SharedSlotPolicy) SyncSlots(data PlayerData) map[int]*ItemStack {
	out := map[int]*ItemStack{}
	for index := 0; index <= MaxSlotIndex; index++ {
		mode, ok := p.ModeFor(index)
		if !ok || mode != ModeSync {
			continue
		}
		t, slot, _ := SlotAt(index)
		out[index] = data.Get(t, slot).Clone()
	}
	return out
}

// ApplySync writes values (from SyncSlots) into a copy of data.
func ApplySync(data PlayerData, values map[int]*ItemStack) PlayerData {
	out := data.Normalize()
	indexes := make([]int, 0, len(values))
	for index := range values {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		if t, slot, ok := SlotAt(index); ok {
			out.Set(t, slot, values[index].Clone())
		}
	}
	return out
}

func cloneSharedSlots(cfg SharedSlotsConfig) SharedSlotsConfig {
	out := SharedSlotsConfig{Enabled: cfg.Enabled}
	for _, entry := range cfg.Slots {
		out.Slots = append(out.Slots, SharedSlotEntry{
			Slots: append([]int(nil), entry.Slots...),
			Mode:  entry.Mode,
		})
	}
	return out
}
