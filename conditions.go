package invgroups

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConditionResult is the outcome of evaluating a group's conditions along
// with the per-term breakdown.
type ConditionResult struct {
	Matches           bool
	MatchedConditions []string
	FailedConditions  []string
}

func (r ConditionResult) clone() ConditionResult {
	return ConditionResult{
		Matches:           r.Matches,
		MatchedConditions: append([]string(nil), r.MatchedConditions...),
		FailedConditions:  append([]string(nil), r.FailedConditions...),
	}
}

type conditionKey struct {
	player uuid.UUID
	group  string
}

type conditionEntry struct {
	result  ConditionResult
	expires time.Time
}

// ConditionEvaluator combines a group's predicate terms with AND/OR
// semantics. Cached results are keyed by (player, group) and must be
// invalidated explicitly when conditions change; the TTL only bounds reuse.
type ConditionEvaluator struct {
	predicates *PredicateEvaluator
	clock      Clock
	ttl        time.Duration

	mu    sync.RWMutex
	cache map[conditionKey]conditionEntry
}

// NewConditionEvaluator wires predicates with the cache settings in opts.
// A nil predicates evaluator is built from opts.
func NewConditionEvaluator(predicates *PredicateEvaluator, opts ...Option) *ConditionEvaluator {
	cfg := applyOptions(opts)
	if predicates == nil {
		predicates = newPredicateEvaluator(cfg)
	}
	return newConditionEvaluator(predicates, cfg)
}

func newConditionEvaluator(predicates *PredicateEvaluator, cfg coreConfig) *ConditionEvaluator {
	return &ConditionEvaluator{
		predicates: predicates,
		clock:      cfg.clock,
		ttl:        cfg.conditionCacheTTL,
		cache:      make(map[conditionKey]conditionEntry),
	}
}

// Evaluate runs every term of group.Conditions for player. Every term is
// evaluated even once the outcome is known so the breakdown is complete.
func (c *ConditionEvaluator) Evaluate(player Player, group Group, useCache bool) ConditionResult {
	now := c.clock.Now()
	key := conditionKey{player: player.ID, group: group.Name}
	if useCache && c.ttl > 0 {
		c.mu.RLock()
		entry, ok := c.cache[key]
		c.mu.RUnlock()
		if ok && now.Before(entry.expires) {
			return entry.result.clone()
		}
	}

	result := c.evaluate(player, group, now)

	if useCache && c.ttl > 0 {
		c.mu.Lock()
		c.cache[key] = conditionEntry{result: result.clone(), expires: now.Add(c.ttl)}
		c.mu.Unlock()
	}
	return result
}

func (c *ConditionEvaluator) evaluate(player Player, group Group, now time.Time) ConditionResult {
	terms := group.Conditions.Terms()
	if len(terms) == 0 {
		return ConditionResult{Matches: true}
	}

	result := ConditionResult{}
	matched, failed := 0, 0
	for _, term := range terms {
		if c.predicates.evaluateFor(term, player, group.Name, now) {
			result.MatchedConditions = append(result.MatchedConditions, term.Label())
			matched++
			continue
		}
		result.FailedConditions = append(result.FailedConditions, term.Label())
		failed++
	}
	if group.Conditions.RequireAll {
		result.Matches = failed == 0
	} else {
		result.Matches = matched > 0
	}
	return result
}

// InvalidateGroup drops cached results for group, for example after an
// admin edit of its conditions.
func (c *ConditionEvaluator) InvalidateGroup(group string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if key.group == group {
			delete(c.cache, key)
		}
	}
}

// InvalidatePlayer drops cached results for player.
func (c *ConditionEvaluator) InvalidatePlayer(player uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if key.player == player {
			delete(c.cache, key)
		}
	}
}

// Clear drops every cached result.
func (c *ConditionEvaluator) Clear() {
	c.mu.Lock()
	c.cache = make(map[conditionKey]conditionEntry)
	c.mu.Unlock()
}

// Predicates exposes the underlying predicate evaluator.
func (c *ConditionEvaluator) Predicates() *PredicateEvaluator {
	return c.predicates
}
