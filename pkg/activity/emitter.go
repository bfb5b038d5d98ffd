package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is stamped on events that carry no channel.
const DefaultChannel = "inventory"

// Config carries emitter defaults.
type Config struct {
	Enabled bool
	Channel string
	// Now stamps events without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Emitter applies defaults and forwards events to its hooks.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
}

// NewEmitter builds an emitter. It is disabled when cfg.Enabled is false or
// no non-nil hook is given.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	var kept Hooks
	for _, hook := range hooks {
		if hook != nil {
			kept = append(kept, hook)
		}
	}
	if !cfg.Enabled {
		kept = nil
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Emitter{hooks: kept, channel: channel, now: now}
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && e.hooks.Enabled()
}

// Emit fills the channel and timestamp when missing and notifies hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, event)
}
