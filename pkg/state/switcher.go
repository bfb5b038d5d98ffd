package state

import (
	"context"
	"fmt"
	"time"

	invgroups "github.com/goliatone/go-invgroups"
)

// Switcher moves a player between inventory groups on top of a Store.
type Switcher struct {
	Store    Store[invgroups.PlayerData]
	Registry *invgroups.GroupRegistry
	Resolver *invgroups.Resolver
	Policy   *invgroups.SharedSlotPolicy
	// Merges and Strategy are optional. When both are set the outgoing
	// snapshot is merged into the incoming one instead of replacing it.
	Merges   *invgroups.MergeEngine
	Strategy invgroups.MergeStrategy
	Now      func() time.Time
}

// Transition is the outcome of Switch.
type Transition struct {
	From       string
	To         string
	Changed    bool
	Resolution invgroups.Resolution
	// Inventory is what the player should hold after the switch.
	Inventory invgroups.PlayerData
	// Merge is set when a merge was started and still awaits resolution.
	Merge *invgroups.PendingMerge
}

// Switch resolves the group for player in world. When it differs from
// from, live is saved under from (shared slots stripped), SYNC slots are
// fanned out to every group and the incoming snapshot is loaded.
func (s Switcher) Switch(ctx context.Context, player invgroups.Player, from string, live invgroups.PlayerData, world string) (Transition, error) {
	if s.Store == nil || s.Resolver == nil {
		return Transition{}, fmt.Errorf("state: store and resolver are required")
	}
	player.World = world
	resolution, err := s.Resolver.ResolveWithTrace(player, world)
	if err != nil {
		return Transition{}, fmt.Errorf("state: resolve %s: %w", world, err)
	}
	out := Transition{From: from, To: resolution.Group.Name, Resolution: resolution}
	if out.To == from {
		out.Inventory = live.Normalize()
		return out, nil
	}
	out.Changed = true

	outgoing := s.Policy.StripForStorage(live)
	if from != "" {
		if _, err := s.Store.Save(ctx, Ref{Player: player.ID, Group: from}, outgoing, Meta{UpdatedAt: s.now()}); err != nil {
			return Transition{}, fmt.Errorf("state: save outgoing %s: %w", from, err)
		}
	}
	if err := s.fanOutSync(ctx, player, from, live); err != nil {
		return Transition{}, err
	}

	stored, _, ok, err := s.Store.Load(ctx, Ref{Player: player.ID, Group: out.To})
	if err != nil {
		return Transition{}, fmt.Errorf("state: load incoming %s: %w", out.To, err)
	}
	if !ok {
		stored = invgroups.NewPlayerData()
	}

	if s.Merges == nil || s.Strategy == "" || !ok || from == "" {
		out.Inventory = s.Policy.ApplyOnLoad(stored, live)
		return out, nil
	}

	pending, err := s.Merges.Begin(player.ID, from, outgoing, out.To, stored, s.Strategy)
	if err != nil {
		return Transition{}, fmt.Errorf("state: begin merge: %w", err)
	}
	if pending.Unresolved() > 0 {
		out.Inventory = s.Policy.ApplyOnLoad(stored, live)
		out.Merge = &pending
		return out, nil
	}
	result := s.Merges.Confirm(player.ID)
	if !result.Success || result.Merged == nil {
		out.Inventory = s.Policy.ApplyOnLoad(stored, live)
		if current, ok := s.Merges.Pending(player.ID); ok {
			out.Merge = &current
		}
		return out, nil
	}
	merged := *result.Merged
	if _, err := s.Store.Save(ctx, Ref{Player: player.ID, Group: out.To}, s.Policy.StripForStorage(merged), Meta{UpdatedAt: s.now()}); err != nil {
		return Transition{}, fmt.Errorf("state: save merged %s: %w", out.To, err)
	}
	out.Inventory = s.Policy.ApplyOnLoad(merged, live)
	return out, nil
}

// Edit applies fn to a stored snapshot outside of a transition, for admin
// tooling. Shared slots are stripped again before saving.
func (s Switcher) Edit(ctx context.Context, ref Ref, meta Meta, fn Mutator[invgroups.PlayerData]) (invgroups.PlayerData, Meta, error) {
	if fn == nil {
		return invgroups.PlayerData{}, Meta{}, fmt.Errorf("state: mutator is required")
	}
	return Mutate(ctx, s.Store, ref, meta, func(data *invgroups.PlayerData) error {
		normalized := data.Normalize()
		if err := fn(&normalized); err != nil {
			return err
		}
		*data = s.Policy.StripForStorage(normalized)
		return nil
	})
}

// fanOutSync writes SYNC slot values into every other group's snapshot.
func (s Switcher) fanOutSync(ctx context.Context, player invgroups.Player, from string, live invgroups.PlayerData) error {
	values := s.Policy.SyncSlots(live)
	if len(values) == 0 || s.Registry == nil {
		return nil
	}
	for _, group := range s.Registry.Snapshot().Groups() {
		if group.Name == from {
			continue
		}
		ref := Ref{Player: player.ID, Group: group.Name}
		_, _, err := Mutate(ctx, s.Store, ref, Meta{UpdatedAt: s.now()}, func(data *invgroups.PlayerData) error {
			*data = invgroups.ApplySync(*data, values)
			return nil
		})
		if err != nil {
			return fmt.Errorf("state: sync %s: %w", group.Name, err)
		}
	}
	return nil
}

func (s Switcher) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
