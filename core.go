// Package invgroups decides which inventory group applies to a player in a
// world and reconciles two group snapshots when a player's group changes.
//
// The pieces can be used on their own (GroupRegistry, Resolver,
// ConditionEvaluator, SharedSlotPolicy, MergeEngine) or wired together
// through New:
//
//	core, issues, err := invgroups.New(groups, slots,
//		invgroups.WithPermissionChecker(perms),
//		invgroups.WithPlaceholderResolver(placeholders),
//	)
//	group, err := core.Resolve(player, "world_nether")
//
// No component performs I/O; callers supply snapshots, permissions and
// placeholder values. See pkg/state for a persistence-backed transition.
package invgroups

import "github.com/google/uuid"

// Core wires the registry, resolver, shared-slot policy and merge engine
// over one configuration.
type Core struct {
	registry   *GroupRegistry
	resolver   *Resolver
	conditions *ConditionEvaluator
	policy     *SharedSlotPolicy
	merges     *MergeEngine
}

// New validates groups and slots and builds the components. Configuration
// warnings are returned alongside a usable Core; structural errors fail.
func New(groups []Group, slots SharedSlotsConfig, opts ...Option) (*Core, []ConfigIssue, error) {
	cfg := applyOptions(opts)
	policy, err := NewSharedSlotPolicy(slots)
	if err != nil {
		cfg.issueReporter().ReportIssue(ConfigIssue{Severity: SeverityError, Field: "shared_slots", Err: err})
		return nil, nil, err
	}
	registry := &GroupRegistry{issues: cfg.issueReporter()}
	issues, err := registry.Load(groups)
	if err != nil {
		return nil, issues, err
	}
	conditions := newConditionEvaluator(newPredicateEvaluator(cfg), cfg)
	resolver := NewResolver(registry, conditions, opts...)
	return &Core{
		registry:   registry,
		resolver:   resolver,
		conditions: conditions,
		policy:     policy,
		merges:     newMergeEngine(policy, cfg),
	}, issues, nil
}

func (c *Core) Registry() *GroupRegistry        { return c.registry }
func (c *Core) Resolver() *Resolver             { return c.resolver }
func (c *Core) Conditions() *ConditionEvaluator { return c.conditions }
func (c *Core) Policy() *SharedSlotPolicy       { return c.policy }
func (c *Core) Merges() *MergeEngine            { return c.merges }

// Resolve returns the group for player in world.
func (c *Core) Resolve(player Player, world string) (Group, error) {
	return c.resolver.Resolve(player, world)
}

// EvaluateConditions evaluates group's conditions for player. With
// useCache a result younger than the condition TTL may be reused.
func (c *Core) EvaluateConditions(player Player, group Group, useCache bool) ConditionResult {
	return c.conditions.Evaluate(player, group, useCache)
}

// IsSharedSlot reports whether the global index is shared.
func (c *Core) IsSharedSlot(index int) bool {
	return c.policy.IsShared(index)
}

// ModeFor returns the shared mode of the global index.
func (c *Core) ModeFor(index int) (SlotMode, bool) {
	return c.policy.ModeFor(index)
}

// BeginMerge starts a merge for player.
func (c *Core) BeginMerge(player uuid.UUID, sourceGroup string, sourceData PlayerData, targetGroup string, targetData PlayerData, strategy MergeStrategy) (PendingMerge, error) {
	return c.merges.Begin(player, sourceGroup, sourceData, targetGroup, targetData, strategy)
}

// ResolveConflict records a decision for one conflict.
func (c *Core) ResolveConflict(player uuid.UUID, slot int, slotType SlotType, resolution ConflictResolution) bool {
	return c.merges.ResolveConflict(player, slot, slotType, resolution)
}

// ConfirmMerge applies the player's pending merge.
func (c *Core) ConfirmMerge(player uuid.UUID) MergeResult {
	return c.merges.Confirm(player)
}

// ResolveAllConflicts applies resolution to every open conflict and returns
// how many changed.
func (c *Core) ResolveAllConflicts(player uuid.UUID, resolution ConflictResolution) int {
	return c.merges.ResolveAll(player, resolution)
}

// CancelMerge discards the player's pending merge. It reports false when
// there was none.
func (c *Core) CancelMerge(player uuid.UUID) bool {
	return c.merges.Cancel(player)
}

// ReloadGroups swaps in new group definitions. On error the previous set
// stays active.
func (c *Core) ReloadGroups(groups []Group) ([]ConfigIssue, error) {
	return c.registry.Load(groups)
}

// ReloadSharedSlots swaps in a new shared-slot configuration. Pending
// merges keep the conflicts they were created with.
func (c *Core) ReloadSharedSlots(slots SharedSlotsConfig) error {
	if err := c.policy.Update(slots); err != nil {
		c.registry.issues.ReportIssue(ConfigIssue{Severity: SeverityError, Field: "shared_slots", Err: err})
		return err
	}
	return nil
}

// Tick drops cached resolutions so time-based conditions are re-checked and
// expires stale pending merges. Hosts call it from their scheduler.
func (c *Core) Tick() int {
	c.resolver.InvalidateConditions()
	return c.merges.Sweep()
}
