package recurrence

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Engine expands recurrence rules into concrete occurrence windows
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates an engine with the default cap and no cache
func NewEngine() *Engine {
	return NewEngineWithConfig(DisabledCacheConfig)
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.MaxOccurrences < 1 {
		config.MaxOccurrences = DefaultMaxOccurrences
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var cache *RecurrenceCache
	if config.CacheEnabled {
		cache = NewRecurrenceCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// MaxOccurrences returns the safety cap applied to every expansion
func (e *Engine) MaxOccurrences() int {
	return e.config.MaxOccurrences
}

// Close releases the engine's cache, if any
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// Generate validates rule and expands it from the first occurrence.
// The first window is always (firstStart, firstEnd) unchanged. A result
// whose Truncated method reports true was cut short by the safety cap.
func (e *Engine) Generate(rule Rule, firstStart, firstEnd time.Time) (Result, error) {
	if err := rule.Validate(); err != nil {
		return Result{}, err
	}
	if firstEnd.Before(firstStart) {
		return Result{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidWindow,
			firstStart.Format(time.RFC3339), firstEnd.Format(time.RFC3339))
	}

	first := Window{Start: firstStart, End: firstEnd}
	if e.cache != nil {
		if cached, ok := e.cache.Get(rule, first, e.config.MaxOccurrences); ok {
			return cached, nil
		}
	}

	result := Expand(rule, first, e.config.MaxOccurrences)
	switch result.Reason {
	case StopUnsupportedType:
		e.logger.Warn("unsupported recurrence type, emitting first occurrence only", "type", rule.Type)
	case StopLimit:
		e.logger.Warn("recurrence expansion hit safety cap", "limit", e.config.MaxOccurrences, "type", rule.Type)
	default:
		e.logger.Debug("recurrence expanded", "type", rule.Type, "occurrences", len(result.Windows), "reason", result.Reason)
	}

	if e.cache != nil {
		e.cache.Set(rule, first, e.config.MaxOccurrences, result)
	}
	return result, nil
}

// Expand runs the step function from first until a termination condition
// holds. It does not validate rule; callers should use Engine.Generate.
func Expand(rule Rule, first Window, limit int) Result {
	if limit < 1 {
		limit = DefaultMaxOccurrences
	}
	endDate, hasEndDate := rule.EndDate.Get()
	count, hasCount := rule.OccurrencesCount.Get()

	var windows []Window
	cur := first
	for {
		if len(windows) > 0 {
			if rule.EndType == EndOnDate && hasEndDate && cur.Start.After(endDate) {
				return Result{Windows: windows, Reason: StopEndDate}
			}
			if rule.EndType == EndAfterOccurrences && hasCount && len(windows) >= count {
				return Result{Windows: windows, Reason: StopCount}
			}
			if len(windows) >= limit {
				return Result{Windows: windows, Reason: StopLimit}
			}
		}

		windows = append(windows, cur)

		next, ok := Step(cur, rule)
		if !ok {
			return Result{Windows: windows, Reason: StopUnsupportedType}
		}
		cur = next
	}
}
