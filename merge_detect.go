package invgroups

// detectConflicts lists slots where both snapshots hold non-empty items
// that are not equivalent. Shared slots are skipped. Inputs must be
// normalized.
//
// When stacking is non-nil (COMBINE), equivalent stacks of a material the
// catalog lists with a cap above one are listed too so their amounts get
// summed. Unlisted materials keep carrying as-is.
func detectConflicts(source, target PlayerData, policy *SharedSlotPolicy, stacking MaterialCatalog) []MergeConflict {
	var conflicts []MergeConflict
	for _, t := range SlotTypes {
		for slot := 0; slot < t.Size(); slot++ {
			if policy.IsSharedSlot(t, slot) {
				continue
			}
			src := source.Get(t, slot)
			dst := target.Get(t, slot)
			if src.IsEmpty() || dst.IsEmpty() {
				continue
			}
			if src.Equivalent(dst) && !sumsEquivalent(stacking, dst.Type) {
				continue
			}
			conflicts = append(conflicts, MergeConflict{
				Slot:       slot,
				SlotType:   t,
				SourceItem: src.Clone(),
				TargetItem: dst.Clone(),
				Resolution: ResolutionPending,
			})
		}
	}
	return conflicts
}

// sumsEquivalent reports whether two identical stacks of itemType should be
// combined. Catalogs that can tell listed from unlisted materials only sum
// listed ones, so an unknown tool is never duplicated.
func sumsEquivalent(stacking MaterialCatalog, itemType string) bool {
	if stacking == nil {
		return false
	}
	if known, ok := stacking.(interface {
		KnownStackSize(string) (int, bool)
	}); ok {
		size, listed := known.KnownStackSize(itemType)
		return listed && size > 1
	}
	return stacking.MaxStackSize(itemType) > 1
}

// applyStrategy sets the initial resolution of every conflict.
func applyStrategy(conflicts []MergeConflict, strategy MergeStrategy) {
	for i := range conflicts {
		c := &conflicts[i]
		switch strategy {
		case StrategyCombine:
			if c.SourceItem.Stackable(c.TargetItem) {
				c.Resolution = ResolutionCombine
			} else {
				c.Resolution = ResolutionPending
			}
		case StrategyReplace:
			c.Resolution = ResolutionKeepSource
		case StrategyKeepHigher:
			if c.SourceItem.Amount > c.TargetItem.Amount {
				c.Resolution = ResolutionKeepSource
			} else {
				c.Resolution = ResolutionKeepTarget
			}
		case StrategyManual:
			c.Resolution = ResolutionPending
		}
	}
}
