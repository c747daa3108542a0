// Package timeframe resolves analytics time-range inputs into canonical UTC
// bounds and generates the per-day reference points used to gap-fill daily
// series.
package timeframe

import (
	"fmt"
	"time"
)

// DateStat is one grouped count keyed by a YYYY-MM-DD date string.
type DateStat struct {
	Date  string
	Count int
}

// TimeProvider abstracts the clock so range resolution is testable.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider uses the system clock in UTC.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// maxDatePoints guards the point generator against runaway explicit ranges.
const maxDatePoints = 1000

// TimeRange is a resolved, inclusive UTC date range with the timestamp bounds
// used for row filtering. StartDate and EndDate are UTC midnights; Since and
// Until span from start 00:00:00.000 to end 23:59:59.999.
type TimeRange struct {
	StartDate time.Time
	EndDate   time.Time
	Since     time.Time
	Until     time.Time
}

// NewTimeRange builds a TimeRange from inclusive UTC calendar dates.
func NewTimeRange(startDate, endDate time.Time) (*TimeRange, error) {
	start := truncateToDay(startDate)
	end := truncateToDay(endDate)

	if start.After(end) {
		return nil, fmt.Errorf("start date %s is after end date %s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	return &TimeRange{
		StartDate: start,
		EndDate:   end,
		Since:     start,
		Until:     end.Add(24*time.Hour - time.Millisecond),
	}, nil
}

// Days returns the number of calendar days the range covers, inclusive.
func (tr *TimeRange) Days() int {
	return int(tr.EndDate.Sub(tr.StartDate).Hours()/24) + 1
}

// DatePoints returns one UTC midnight per calendar day in the range, in
// chronological order. Generation stops at maxDatePoints as a loop guard.
func (tr *TimeRange) DatePoints() []time.Time {
	points := []time.Time{}
	current := tr.StartDate

	for !current.After(tr.EndDate) {
		if len(points) >= maxDatePoints {
			break
		}
		points = append(points, current)
		current = current.AddDate(0, 0, 1)
	}

	return points
}

// DayBounds returns the [since, until] timestamp bounds of one UTC calendar day.
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := truncateToDay(day)
	return start, start.Add(24*time.Hour - time.Millisecond)
}

// BuildDailySeriesPoints gap-fills grouped per-day counts into one entry per
// calendar day in the range: days with no rows appear with a zero count, in
// chronological order, with no duplicates or omissions.
func (tr *TimeRange) BuildDailySeriesPoints(groupedResults []DateStat) []DateStat {
	resultsMap := make(map[string]int, len(groupedResults))
	for _, result := range groupedResults {
		resultsMap[normalizeDateKey(result.Date)] = result.Count
	}

	points := tr.DatePoints()
	results := make([]DateStat, len(points))
	for i, point := range points {
		key := point.Format("2006-01-02")
		results[i] = DateStat{
			Date:  key,
			Count: resultsMap[key],
		}
	}

	return results
}

// normalizeDateKey trims datetime strings down to YYYY-MM-DD for lookups
func normalizeDateKey(dateStr string) string {
	if len(dateStr) >= 10 {
		return dateStr[:10]
	}
	return dateStr
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
