package invgroups

import "strings"

// DefaultMaxStack is the stack cap for materials without an override.
const DefaultMaxStack = 64

// MaterialCatalog reports the maximum stack size for an item type.
type MaterialCatalog interface {
	MaxStackSize(itemType string) int
}

// MaterialTable is a MaterialCatalog backed by a map of overrides. Keys are
// matched case-insensitively.
type MaterialTable struct {
	Default   int
	Overrides map[string]int
}

// NewMaterialTable builds a table; non-positive defaults use DefaultMaxStack.
func NewMaterialTable(defaultMax int, overrides map[string]int) MaterialTable {
	if defaultMax <= 0 {
		defaultMax = DefaultMaxStack
	}
	normalized := make(map[string]int, len(overrides))
	for name, size := range overrides {
		if size > 0 {
			normalized[strings.ToUpper(name)] = size
		}
	}
	return MaterialTable{Default: defaultMax, Overrides: normalized}
}

// MaxStackSize implements MaterialCatalog.
func (t MaterialTable) MaxStackSize(itemType string) int {
	if size, ok := t.Overrides[strings.ToUpper(itemType)]; ok {
		return size
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultMaxStack
}

// KnownStackSize returns the cap only for materials listed in Overrides.
func (t MaterialTable) KnownStackSize(itemType string) (int, bool) {
	size, ok := t.Overrides[strings.ToUpper(itemType)]
	return size, ok
}

// DefaultMaterials covers the common non-64 stack sizes plus the usual
// 64-stack consumables, so identical stacks of those combine under COMBINE.
func DefaultMaterials() MaterialTable {
	return NewMaterialTable(DefaultMaxStack, map[string]int{
		"ARROW":              64,
		"SPECTRAL_ARROW":     64,
		"TIPPED_ARROW":       64,
		"BREAD":              64,
		"COOKED_BEEF":        64,
		"TORCH":              64,
		"COBBLESTONE":        64,
		"STONE":              64,
		"DIRT":               64,
		"OAK_LOG":            64,
		"OAK_PLANKS":         64,
		"IRON_INGOT":         64,
		"GOLD_INGOT":         64,
		"DIAMOND":            64,
		"EMERALD":            64,
		"REDSTONE":           64,
		"COAL":               64,
		"FIREWORK_ROCKET":    64,
		"ENDER_PEARL":        16,
		"SNOWBALL":           16,
		"EGG":                16,
		"BUCKET":             16,
		"OAK_SIGN":           16,
		"HONEY_BOTTLE":       16,
		"DIAMOND_SWORD":      1,
		"IRON_SWORD":         1,
		"BOW":                1,
		"SHIELD":             1,
		"TOTEM_OF_UNDYING":   1,
		"POTION":             1,
		"DIAMOND_HELMET":     1,
		"DIAMOND_CHESTPLATE": 1,
		"DIAMOND_LEGGINGS":   1,
		"DIAMOND_BOOTS":      1,
	})
}
