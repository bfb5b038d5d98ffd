package activity

import (
	"strings"
	"time"
)

// MergeObjectType is the object type stamped on merge lifecycle events.
const MergeObjectType = "inventory_merge"

// Merge lifecycle verbs.
const (
	VerbMergeStarted   = "merge.started"
	VerbMergeResolved  = "merge.resolved"
	VerbMergeConfirmed = "merge.confirmed"
	VerbMergeCancelled = "merge.cancelled"
)

// MergeEventInput describes the common fields for merge lifecycle events.
type MergeEventInput struct {
	ActorID     string
	UserID      string
	TenantID    string
	MergeID     string
	Channel     string
	SourceGroup string
	TargetGroup string
	Strategy    string
	Conflicts   int
	Unresolved  int
	// Set on resolution events.
	SlotType   string
	Slot       *int
	Resolution string
	Changed    int
	// Set on cancellation events.
	Reason     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildMergeStartedEvent constructs the event emitted when a merge begins.
func BuildMergeStartedEvent(input MergeEventInput) Event {
	return buildMergeEvent(VerbMergeStarted, input)
}

// BuildMergeResolvedEvent constructs the event emitted when conflicts are resolved.
func BuildMergeResolvedEvent(input MergeEventInput) Event {
	return buildMergeEvent(VerbMergeResolved, input)
}

// BuildMergeConfirmedEvent constructs the event emitted when a merge is applied.
func BuildMergeConfirmedEvent(input MergeEventInput) Event {
	return buildMergeEvent(VerbMergeConfirmed, input)
}

// BuildMergeCancelledEvent constructs the event emitted when a merge is dropped.
func BuildMergeCancelledEvent(input MergeEventInput) Event {
	return buildMergeEvent(VerbMergeCancelled, input)
}

func buildMergeEvent(verb string, input MergeEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	setString(metadata, "source_group", input.SourceGroup)
	setString(metadata, "target_group", input.TargetGroup)
	setString(metadata, "strategy", input.Strategy)
	metadata["conflicts"] = input.Conflicts
	metadata["unresolved"] = input.Unresolved
	setString(metadata, "slot_type", input.SlotType)
	if input.Slot != nil {
		metadata["slot"] = *input.Slot
	}
	setString(metadata, "resolution", input.Resolution)
	if input.Changed > 0 {
		metadata["changed"] = input.Changed
	}
	setString(metadata, "reason", input.Reason)

	objectID := strings.TrimSpace(input.MergeID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.UserID)
	}
	if objectID == "" {
		objectID = MergeObjectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: MergeObjectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func setString(meta map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		meta[key] = value
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
