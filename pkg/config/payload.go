package config

import (
	"fmt"
	"strings"

	invgroups "github.com/goliatone/go-invgroups"
	"github.com/goliatone/go-invgroups/internal/hydrate"
)

// payloadAliases maps the camelCase keys GUI editors send onto file keys.
var payloadAliases = map[string]string{
	"requireAll": "require_all",
	"op":         "operator",
}

// DecodeGroup turns an admin edit payload into a group definition. Keys
// may be camelCase or snake_case; "worlds" and "patterns" may be comma
// separated strings.
func DecodeGroup(name string, payload map[string]any) (invgroups.Group, error) {
	decoder := hydrate.NewDecoder(
		hydrate.WithAliases[GroupSpec](payloadAliases),
		hydrate.WithListFields[GroupSpec]("worlds", "patterns"),
		hydrate.Strict[GroupSpec](),
	)
	spec, err := decoder.Decode(hydrate.Context{Kind: "group", Name: name}, payload)
	if err != nil {
		return invgroups.Group{}, err
	}
	return spec.normalized().Group(strings.TrimSpace(name))
}

// DecodeSharedSlotEntry turns an admin payload into one shared-slot entry.
// "slots" may be a range string such as "36-39,40".
func DecodeSharedSlotEntry(payload map[string]any) (invgroups.SharedSlotEntry, error) {
	decoder := hydrate.NewDecoder(
		hydrate.WithRangeFields[slotEntryPayload]("slots"),
		hydrate.WithCheck(func(_ hydrate.Context, entry *slotEntryPayload) error {
			mode, ok := invgroups.ParseSlotMode(entry.Mode)
			if !ok {
				return fmt.Errorf("unknown mode %q", entry.Mode)
			}
			entry.Mode = string(mode)
			return nil
		}),
	)
	entry, err := decoder.Decode(hydrate.Context{Kind: "shared_slot"}, payload)
	if err != nil {
		return invgroups.SharedSlotEntry{}, err
	}
	return invgroups.SharedSlotEntry{Slots: entry.Slots, Mode: invgroups.SlotMode(entry.Mode)}, nil
}

type slotEntryPayload struct {
	Slots []int  `json:"slots"`
	Mode  string `json:"mode"`
}
