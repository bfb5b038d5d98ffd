package invgroups

import (
	"context"

	"github.com/goliatone/go-invgroups/pkg/activity"
)

func (cfg coreConfig) activityEmitter() *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: len(cfg.activityHooks) > 0,
		Channel: cfg.activityChannel,
		Now:     cfg.clock.Now,
	})
}

func mergeEventInput(merge PendingMerge) activity.MergeEventInput {
	return activity.MergeEventInput{
		UserID:      merge.PlayerID.String(),
		MergeID:     merge.ID.String(),
		SourceGroup: merge.SourceGroup,
		TargetGroup: merge.TargetGroup,
		Strategy:    string(merge.Strategy),
		Conflicts:   len(merge.Conflicts),
		Unresolved:  merge.Unresolved(),
	}
}

// Activity hook failures never affect merge state.
func (e *MergeEngine) emit(event activity.Event) {
	_ = e.emitter.Emit(context.Background(), event)
}

func (e *MergeEngine) emitStarted(merge PendingMerge) {
	if !e.emitter.Enabled() {
		return
	}
	e.emit(activity.BuildMergeStartedEvent(mergeEventInput(merge)))
}

func (e *MergeEngine) emitResolved(merge PendingMerge, conflict MergeConflict, changed int) {
	if !e.emitter.Enabled() {
		return
	}
	input := mergeEventInput(merge)
	input.Resolution = string(conflict.Resolution)
	input.Changed = changed
	if conflict.SlotType != "" {
		input.SlotType = string(conflict.SlotType)
		input.Slot = &conflict.Slot
	}
	e.emit(activity.BuildMergeResolvedEvent(input))
}

func (e *MergeEngine) emitConfirmed(merge PendingMerge) {
	if !e.emitter.Enabled() {
		return
	}
	e.emit(activity.BuildMergeConfirmedEvent(mergeEventInput(merge)))
}

func (e *MergeEngine) emitCancelled(merge PendingMerge, reason string) {
	if !e.emitter.Enabled() {
		return
	}
	input := mergeEventInput(merge)
	input.Reason = reason
	e.emit(activity.BuildMergeCancelledEvent(input))
}
