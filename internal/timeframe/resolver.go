package timeframe

import (
	"fmt"
	"time"
)

// DefaultDays is the window used when the caller supplies no range at all.
const DefaultDays = 7

// RangeKind discriminates the two ways a caller can express a time window.
type RangeKind int

const (
	RangeKindLastNDays RangeKind = iota
	RangeKindExplicit
)

// RangeInput is the tagged range variant carried by an analytics request:
// either "last N days" or an explicit start/end date pair. Explicit dates win
// when both are present; the precedence rule lives in ResolveFromParams.
type RangeInput struct {
	Kind  RangeKind
	Days  int
	Start string // YYYY-MM-DD
	End   string // YYYY-MM-DD
}

// LastNDays builds a relative range input.
func LastNDays(n int) RangeInput {
	return RangeInput{Kind: RangeKindLastNDays, Days: n}
}

// ExplicitRange builds an absolute range input from YYYY-MM-DD dates.
func ExplicitRange(start, end string) RangeInput {
	return RangeInput{Kind: RangeKindExplicit, Start: start, End: end}
}

// Resolver turns RangeInput values into canonical TimeRanges.
type Resolver struct {
	maxDays      int
	timeProvider TimeProvider
}

// NewResolver creates a resolver. maxDays clamps relative ranges as a
// resource-protection measure, not a business rule; explicit date pairs are
// used verbatim.
func NewResolver(maxDays int, timeProvider ...TimeProvider) *Resolver {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}

	return &Resolver{
		maxDays:      maxDays,
		timeProvider: provider,
	}
}

// ResolveFromParams applies the precedence rule to raw request parameters:
// a complete start/end pair wins, otherwise days (default 7) is used.
func (r *Resolver) ResolveFromParams(start, end string, days int) (*TimeRange, error) {
	if start != "" && end != "" {
		return r.Resolve(ExplicitRange(start, end))
	}
	if days <= 0 {
		days = DefaultDays
	}
	return r.Resolve(LastNDays(days))
}

// Resolve produces the canonical TimeRange for a range input.
func (r *Resolver) Resolve(input RangeInput) (*TimeRange, error) {
	switch input.Kind {
	case RangeKindExplicit:
		start, err := time.ParseInLocation("2006-01-02", input.Start, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
		end, err := time.ParseInLocation("2006-01-02", input.End, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
		return NewTimeRange(start, end)

	case RangeKindLastNDays:
		days := input.Days
		if days <= 0 {
			days = DefaultDays
		}
		if r.maxDays > 0 && days > r.maxDays {
			days = r.maxDays
		}

		// Today plus the days-1 preceding days, in server UTC.
		end := r.timeProvider.Now()
		start := end.AddDate(0, 0, -(days - 1))
		return NewTimeRange(start, end)

	default:
		return nil, fmt.Errorf("unknown range kind: %d", input.Kind)
	}
}
