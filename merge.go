package invgroups

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-invgroups/pkg/activity"
)

var (
	// ErrMergePending is returned by Begin when the player already has an
	// outstanding merge.
	ErrMergePending = errors.New("invgroups: merge already pending for player")
	// ErrUnknownStrategy is returned for strategies outside the known set.
	ErrUnknownStrategy = errors.New("invgroups: unknown merge strategy")
)

// MergeStrategy selects how conflicts are settled when a merge begins.
type MergeStrategy string

const (
	StrategyCombine    MergeStrategy = "COMBINE"
	StrategyReplace    MergeStrategy = "REPLACE"
	StrategyKeepHigher MergeStrategy = "KEEP_HIGHER"
	StrategyManual     MergeStrategy = "MANUAL"
)

// ParseMergeStrategy accepts strategy names case-insensitively.
func ParseMergeStrategy(value string) (MergeStrategy, bool) {
	switch MergeStrategy(strings.ToUpper(strings.TrimSpace(value))) {
	case StrategyCombine:
		return StrategyCombine, true
	case StrategyReplace:
		return StrategyReplace, true
	case StrategyKeepHigher:
		return StrategyKeepHigher, true
	case StrategyManual:
		return StrategyManual, true
	default:
		return "", false
	}
}

// ConflictResolution is the decision recorded for one conflict.
type ConflictResolution string

const (
	ResolutionPending    ConflictResolution = "PENDING"
	ResolutionKeepSource ConflictResolution = "KEEP_SOURCE"
	ResolutionKeepTarget ConflictResolution = "KEEP_TARGET"
	ResolutionCombine    ConflictResolution = "COMBINE"
)

// ParseConflictResolution accepts resolution names case-insensitively.
func ParseConflictResolution(value string) (ConflictResolution, bool) {
	switch ConflictResolution(strings.ToUpper(strings.TrimSpace(value))) {
	case ResolutionPending:
		return ResolutionPending, true
	case ResolutionKeepSource:
		return ResolutionKeepSource, true
	case ResolutionKeepTarget:
		return ResolutionKeepTarget, true
	case ResolutionCombine:
		return ResolutionCombine, true
	default:
		return "", false
	}
}

// MergeConflict is one contested slot.
type MergeConflict struct {
	Slot       int
	SlotType   SlotType
	SourceItem *ItemStack
	TargetItem *ItemStack
	Resolution ConflictResolution
}

func (c MergeConflict) clone() MergeConflict {
	c.SourceItem = c.SourceItem.Clone()
	c.TargetItem = c.TargetItem.Clone()
	return c
}

// PendingMerge tracks an in-progress reconciliation for one player. Values
// handed out by the engine are copies; mutate through the engine.
type PendingMerge struct {
	ID          uuid.UUID
	PlayerID    uuid.UUID
	SourceGroup string
	TargetGroup string
	SourceData  PlayerData
	TargetData  PlayerData
	Strategy    MergeStrategy
	Conflicts   []MergeConflict
	CreatedAt   time.Time
}

// Unresolved counts conflicts still PENDING.
func (m PendingMerge) Unresolved() int {
	n := 0
	for _, c := range m.Conflicts {
		if c.Resolution == ResolutionPending {
			n++
		}
	}
	return n
}

// Conflict returns the conflict at (t, slot).
func (m PendingMerge) Conflict(t SlotType, slot int) (MergeConflict, bool) {
	for _, c := range m.Conflicts {
		if c.SlotType == t && c.Slot == slot {
			return c.clone(), true
		}
	}
	return MergeConflict{}, false
}

func (m PendingMerge) clone() PendingMerge {
	out := m
	out.SourceData = m.SourceData.Clone()
	out.TargetData = m.TargetData.Clone()
	out.Conflicts = make([]MergeConflict, len(m.Conflicts))
	for i, c := range m.Conflicts {
		out.Conflicts[i] = c.clone()
	}
	return out
}

// MergeResult is the outcome of Confirm. Merged is set only on success.
type MergeResult struct {
	Success    bool
	Merged     *PlayerData
	Message    string
	Unresolved int
}

// pendingRecord locks after MergeEngine.mu when both are held.
type pendingRecord struct {
	mu     sync.Mutex
	merge  PendingMerge
	closed bool
}

// isClosed is true once the record reached a terminal state, even if it
// has not been removed from the table yet.
func (r *pendingRecord) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// MergeEngine owns the pending-merge table. At most one merge is
// outstanding per player.
type MergeEngine struct {
	policy    *SharedSlotPolicy
	materials MaterialCatalog
	clock     Clock
	maxAge    time.Duration
	emitter   *activity.Emitter

	mu      sync.RWMutex
	pending map[uuid.UUID]*pendingRecord
}

// NewMergeEngine builds an engine. A nil policy shares nothing.
func NewMergeEngine(policy *SharedSlotPolicy, opts ...Option) *MergeEngine {
	cfg := applyOptions(opts)
	return newMergeEngine(policy, cfg)
}

func newMergeEngine(policy *SharedSlotPolicy, cfg coreConfig) *MergeEngine {
	return &MergeEngine{
		policy:    policy,
		materials: cfg.materialCatalog(),
		clock:     cfg.clock,
		maxAge:    cfg.pendingMaxAge,
		emitter:   cfg.activityEmitter(),
		pending:   make(map[uuid.UUID]*pendingRecord),
	}
}

// Begin detects conflicts between the two snapshots, applies strategy and
// registers the pending merge. It fails with ErrMergePending when the
// player already has one.
func (e *MergeEngine) Begin(player uuid.UUID, sourceGroup string, sourceData PlayerData, targetGroup string, targetData PlayerData, strategy MergeStrategy) (PendingMerge, error) {
	parsed, ok := ParseMergeStrategy(string(strategy))
	if !ok {
		return PendingMerge{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	merge := PendingMerge{
		ID:          uuid.New(),
		PlayerID:    player,
		SourceGroup: sourceGroup,
		TargetGroup: targetGroup,
		SourceData:  sourceData.Normalize(),
		TargetData:  targetData.Normalize(),
		Strategy:    parsed,
		CreatedAt:   e.clock.Now(),
	}
	var stacking MaterialCatalog
	if parsed == StrategyCombine {
		stacking = e.materials
	}
	merge.Conflicts = detectConflicts(merge.SourceData, merge.TargetData, e.policy, stacking)
	applyStrategy(merge.Conflicts, parsed)
	if parsed == StrategyCombine {
		// Overflow that has nowhere to go is left for an administrator.
		_, failed := buildMerged(merge.SourceData, merge.TargetData, merge.Conflicts, e.policy, e.materials)
		for _, i := range failed {
			merge.Conflicts[i].Resolution = ResolutionPending
		}
	}

	// The record owns its own copy; merge stays private to this call.
	record := &pendingRecord{merge: merge.clone()}
	e.mu.Lock()
	if existing, exists := e.pending[player]; exists && !existing.isClosed() {
		e.mu.Unlock()
		return PendingMerge{}, fmt.Errorf("%w: %s", ErrMergePending, player)
	}
	e.pending[player] = record
	e.mu.Unlock()

	e.emitStarted(merge)
	return merge, nil
}

// ResolveConflict records resolution for the conflict at (slotType, slot).
// It is false when the player has no pending merge, the conflict does not
// exist, the resolution is PENDING or unknown, or COMBINE is requested for
// items that cannot stack.
func (e *MergeEngine) ResolveConflict(player uuid.UUID, slot int, slotType SlotType, resolution ConflictResolution) bool {
	resolution, ok := ParseConflictResolution(string(resolution))
	if !ok || resolution == ResolutionPending {
		return false
	}
	record := e.record(player)
	if record == nil {
		return false
	}
	record.mu.Lock()
	if record.closed {
		record.mu.Unlock()
		return false
	}
	index := -1
	for i, c := range record.merge.Conflicts {
		if c.SlotType == slotType && c.Slot == slot {
			index = i
			break
		}
	}
	if index < 0 {
		record.mu.Unlock()
		return false
	}
	conflict := &record.merge.Conflicts[index]
	if resolution == ResolutionCombine && !conflict.SourceItem.Stackable(conflict.TargetItem) {
		record.mu.Unlock()
		return false
	}
	conflict.Resolution = resolution
	snapshot := record.merge.clone()
	record.mu.Unlock()

	e.emitResolved(snapshot, snapshot.Conflicts[index], 1)
	return true
}

// ResolveAll sets resolution on every conflict it applies to and returns
// how many changed. COMBINE skips conflicts whose items cannot stack.
func (e *MergeEngine) ResolveAll(player uuid.UUID, resolution ConflictResolution) int {
	resolution, ok := ParseConflictResolution(string(resolution))
	if !ok || resolution == ResolutionPending {
		return 0
	}
	record := e.record(player)
	if record == nil {
		return 0
	}
	record.mu.Lock()
	if record.closed {
		record.mu.Unlock()
		return 0
	}
	changed := 0
	for i := range record.merge.Conflicts {
		conflict := &record.merge.Conflicts[i]
		if conflict.Resolution == resolution {
			continue
		}
		if resolution == ResolutionCombine && !conflict.SourceItem.Stackable(conflict.TargetItem) {
			continue
		}
		conflict.Resolution = resolution
		changed++
	}
	snapshot := record.merge.clone()
	record.mu.Unlock()

	if changed > 0 {
		e.emitResolved(snapshot, MergeConflict{Resolution: resolution}, changed)
	}
	return changed
}

// Confirm builds the merged snapshot. It fails while any conflict is
// PENDING, or when COMBINE overflow no longer fits; in both cases the
// pending merge is kept so the caller can resolve and retry. On success
// the pending merge is destroyed.
func (e *MergeEngine) Confirm(player uuid.UUID) MergeResult {
	record := e.record(player)
	if record == nil {
		return MergeResult{Message: "no pending merge"}
	}
	record.mu.Lock()
	if record.closed {
		record.mu.Unlock()
		return MergeResult{Message: "no pending merge"}
	}
	if unresolved := record.merge.Unresolved(); unresolved > 0 {
		record.mu.Unlock()
		return MergeResult{
			Message:    fmt.Sprintf("%d conflict(s) unresolved", unresolved),
			Unresolved: unresolved,
		}
	}
	merged, failed := buildMerged(record.merge.SourceData, record.merge.TargetData, record.merge.Conflicts, e.policy, e.materials)
	if len(failed) > 0 {
		for _, i := range failed {
			record.merge.Conflicts[i].Resolution = ResolutionPending
		}
		record.mu.Unlock()
		return MergeResult{
			Message:    fmt.Sprintf("no room for overflow of %d combined stack(s)", len(failed)),
			Unresolved: len(failed),
		}
	}
	record.closed = true
	snapshot := record.merge.clone()
	record.mu.Unlock()

	e.remove(player, record)
	e.emitConfirmed(snapshot)
	return MergeResult{Success: true, Merged: &merged, Message: "merge applied"}
}

// Cancel discards the player's pending merge. It reports whether one
// existed; calling it again is a no-op.
func (e *MergeEngine) Cancel(player uuid.UUID) bool {
	record := e.record(player)
	if record == nil {
		return false
	}
	record.mu.Lock()
	if record.closed {
		record.mu.Unlock()
		return false
	}
	record.closed = true
	snapshot := record.merge.clone()
	record.mu.Unlock()

	e.remove(player, record)
	e.emitCancelled(snapshot, "cancelled")
	return true
}

// Pending returns a copy of the player's outstanding merge.
func (e *MergeEngine) Pending(player uuid.UUID) (PendingMerge, bool) {
	record := e.record(player)
	if record == nil {
		return PendingMerge{}, false
	}
	record.mu.Lock()
	defer record.mu.Unlock()
	if record.closed {
		return PendingMerge{}, false
	}
	return record.merge.clone(), true
}

// PendingPlayers lists players with an outstanding merge.
func (e *MergeEngine) PendingPlayers() []uuid.UUID {
	e.mu.RLock()
	out := make([]uuid.UUID, 0, len(e.pending))
	for player, record := range e.pending {
		if !record.isClosed() {
			out = append(out, player)
		}
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Sweep cancels merges older than the configured max age and returns how
// many were dropped. A zero max age disables expiry.
func (e *MergeEngine) Sweep() int {
	if e.maxAge <= 0 {
		return 0
	}
	cutoff := e.clock.Now().Add(-e.maxAge)
	e.mu.RLock()
	var stale []uuid.UUID
	for player, record := range e.pending {
		record.mu.Lock()
		if !record.closed && record.merge.CreatedAt.Before(cutoff) {
			stale = append(stale, player)
		}
		record.mu.Unlock()
	}
	e.mu.RUnlock()

	dropped := 0
	for _, player := range stale {
		record := e.record(player)
		if record == nil {
			continue
		}
		record.mu.Lock()
		if record.closed || !record.merge.CreatedAt.Before(cutoff) {
			record.mu.Unlock()
			continue
		}
		record.closed = true
		snapshot := record.merge.clone()
		record.mu.Unlock()
		e.remove(player, record)
		e.emitCancelled(snapshot, "expired")
		dropped++
	}
	return dropped
}

func (e *MergeEngine) record(player uuid.UUID) *pendingRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pending[player]
}

// remove deletes record only if it is still the player's entry.
func (e *MergeEngine) remove(player uuid.UUID, record *pendingRecord) {
	e.mu.Lock()
	if e.pending[player] == record {
		delete(e.pending, player)
	}
	e.mu.Unlock()
}
