package invgroups

// buildMerged computes the merged snapshot for conflicts under their
// current resolutions. It returns the indexes of COMBINE conflicts whose
// overflow found no empty slot. PENDING conflicts keep the target item so
// their slots stay occupied.
func buildMerged(source, target PlayerData, conflicts []MergeConflict, policy *SharedSlotPolicy, materials MaterialCatalog) (PlayerData, []int) {
	merged := NewPlayerData()
	for _, t := range SlotTypes {
		for slot := 0; slot < t.Size(); slot++ {
			src := source.Get(t, slot)
			dst := target.Get(t, slot)
			if !dst.IsEmpty() {
				merged.Set(t, slot, dst.Clone())
			} else {
				merged.Set(t, slot, src.Clone())
			}
		}
	}

	var failed []int
	for i, c := range conflicts {
		switch c.Resolution {
		case ResolutionKeepSource:
			merged.Set(c.SlotType, c.Slot, c.SourceItem.Clone())
		case ResolutionKeepTarget, ResolutionPending:
			merged.Set(c.SlotType, c.Slot, c.TargetItem.Clone())
		case ResolutionCombine:
			if !combineInto(merged, c, policy, materials) {
				failed = append(failed, i)
				merged.Set(c.SlotType, c.Slot, c.TargetItem.Clone())
			}
		}
	}
	return merged, failed
}

// combineInto stacks both sides of c into its slot up to the material cap
// and spreads the rest over the nearest empty slots of the same category.
// On failure merged is left as it was.
func combineInto(merged PlayerData, c MergeConflict, policy *SharedSlotPolicy, materials MaterialCatalog) bool {
	if !c.SourceItem.Stackable(c.TargetItem) {
		return false
	}
	limit := materials.MaxStackSize(c.TargetItem.Type)
	if limit <= 0 {
		limit = DefaultMaxStack
	}
	total := c.SourceItem.Amount + c.TargetItem.Amount
	head := min(total, limit)
	remaining := total - head

	var placements []int
	taken := map[int]bool{c.Slot: true}
	for remaining > 0 {
		slot, ok := nearestEmpty(merged, c.SlotType, c.Slot, taken, policy)
		if !ok {
			return false
		}
		taken[slot] = true
		placements = append(placements, slot)
		remaining -= min(remaining, limit)
	}

	stack := c.TargetItem.Clone()
	stack.Amount = head
	merged.Set(c.SlotType, c.Slot, stack)
	remaining = total - head
	for _, slot := range placements {
		overflow := c.TargetItem.Clone()
		overflow.Amount = min(remaining, limit)
		remaining -= overflow.Amount
		merged.Set(c.SlotType, slot, overflow)
	}
	return true
}

// nearestEmpty finds the empty, non-shared slot of t closest to origin;
// ties go to the lower index.
func nearestEmpty(data PlayerData, t SlotType, origin int, taken map[int]bool, policy *SharedSlotPolicy) (int, bool) {
	size := t.Size()
	for distance := 1; distance < size; distance++ {
		for _, slot := range []int{origin - distance, origin + distance} {
			if slot < 0 || slot >= size || taken[slot] {
				continue
			}
			if policy.IsSharedSlot(t, slot) {
				continue
			}
			if data.Get(t, slot).IsEmpty() {
				return slot, true
			}
		}
	}
	return 0, false
}
