package activity

import (
	"context"
	"errors"
)

// ActivityHook receives normalized events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify implements ActivityHook.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans an event out to every member.
type Hooks []ActivityHook

// Enabled reports whether there is anything to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event once and delivers it to every hook. Delivery
// continues past failures; the failures are joined. Unroutable events are
// dropped silently.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Routable() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	normalized := event.Normalize()

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Only wraps hook so it receives just the listed verbs, for example an
// audit sink that records confirmed merges only.
func Only(hook ActivityHook, verbs ...string) ActivityHook {
	allowed := make(map[string]bool, len(verbs))
	for _, verb := range verbs {
		allowed[verb] = true
	}
	return HookFunc(func(ctx context.Context, event Event) error {
		if hook == nil || !allowed[event.Verb] {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}
