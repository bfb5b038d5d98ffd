package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-invgroups/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts merge activity events to a go-users ActivitySink. Events
// without an actor are attributed to the player they concern.
type Hook struct {
	Sink usertypes.ActivitySink
	// Channel overrides the event channel when set.
	Channel string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	if !event.Routable() {
		return nil
	}
	normalized := event.Normalize()
	if ctx == nil {
		ctx = context.Background()
	}

	userID := parseUUID(normalized.UserID)
	actorID := parseUUID(normalized.ActorID)
	if actorID == uuid.Nil {
		actorID = userID
	}
	channel := normalized.Channel
	if override := strings.TrimSpace(h.Channel); override != "" {
		channel = override
	}

	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     userID,
		TenantID:   parseUUID(normalized.TenantID),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    channel,
		Data:       normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Data["source"] = "invgroups"
	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
