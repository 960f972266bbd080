// Package recurrence turns repetition rules into bounded, ordered sequences
// of candidate start instants.
package recurrence

import (
	"fmt"
	"time"
)

// Engine expands repetition rules into candidate instants. It is safe for
// concurrent use.
type Engine struct {
	cache  *expansionCache
	config EngineConfig
}

// NewEngine creates an engine with the default configuration.
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// NewEngineWithConfig creates an engine with custom configuration.
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *expansionCache
	if config.CacheEnabled {
		cache = newExpansionCache(config.CacheConfig)
	}
	return &Engine{
		cache:  cache,
		config: config,
	}
}

// Expand returns the candidate start instants for a rule anchored at start,
// strictly ascending and inclusive of both start (if it satisfies the rule)
// and until. Identical inputs always produce identical output.
//
// A nil rule means a one-off: the result is the single instant start.
func (e *Engine) Expand(r *Rule, start, until time.Time) ([]time.Time, error) {
	if r == nil {
		return []time.Time{start}, nil
	}

	if e.cache != nil {
		if cached, ok := e.cache.get(r, start, until).Get(); ok {
			return cached, nil
		}
	}

	set, err := r.RRuleSet(start)
	if err != nil {
		return nil, fmt.Errorf("failed to expand rule %q: %w", r, err)
	}

	instants := set.Between(start, until, true)
	if e.config.MaxOccurrences > 0 && len(instants) > e.config.MaxOccurrences {
		instants = instants[:e.config.MaxOccurrences]
	}

	if e.cache != nil {
		e.cache.set(r, start, until, instants)
	}
	return instants, nil
}

// CacheStats reports expansion cache usage. Zero value when caching is off.
func (e *Engine) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.stats()
}

// Close releases the engine's cache resources.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.close()
	}
}
