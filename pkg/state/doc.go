// Package state defines persistence-facing contracts for per-group inventory
// snapshots and the group transition that moves a player between them.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Mutate[T] runs a load, modify, validate, save cycle with an optional
//     ETag guard.
//   - Switcher saves the outgoing snapshot with shared slots stripped, fans
//     SYNC slots out to every group, resolves the new group and loads (or
//     merges) the incoming snapshot.
//   - The invgroups core stays persistence-agnostic; all I/O lives behind
//     Store implementations supplied by consumers (see sqlitestore).
//
// Data flow:
//
//	live inventory -> StripForStorage -> Store.Save(outgoing)
//	Store.Load(incoming) -> ApplyOnLoad | MergeEngine.Begin -> live inventory
//
// Deterministic keys:
//
//	Ref.Identifier() returns "player/<uuid>/group/<name>".
package state
