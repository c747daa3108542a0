package timeframe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/timeframe"
)

// fixedTimeProvider pins the clock so relative ranges are deterministic
type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

func newFixedResolver(maxDays int, now time.Time) *timeframe.Resolver {
	return timeframe.NewResolver(maxDays, &fixedTimeProvider{now: now})
}

func TestResolveLastNDays(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)
	resolver := newFixedResolver(90, now)

	tr, err := resolver.Resolve(timeframe.LastNDays(7))
	require.NoError(t, err)

	// 7 days inclusive of today: Mar 9 through Mar 15
	assert.Equal(t, "2025-03-09", tr.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2025-03-15", tr.EndDate.Format("2006-01-02"))
	assert.Equal(t, 7, tr.Days())
}

func TestResolveDefaultsToSevenDays(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	resolver := newFixedResolver(90, now)

	tr, err := resolver.Resolve(timeframe.LastNDays(0))
	require.NoError(t, err)
	assert.Equal(t, timeframe.DefaultDays, tr.Days())

	tr, err = resolver.Resolve(timeframe.LastNDays(-5))
	require.NoError(t, err)
	assert.Equal(t, timeframe.DefaultDays, tr.Days())
}

func TestResolveClampsRelativeRangeToMaxDays(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	resolver := newFixedResolver(90, now)

	tr, err := resolver.Resolve(timeframe.LastNDays(365))
	require.NoError(t, err)
	assert.Equal(t, 90, tr.Days())
}

func TestResolveExplicitRangeIsUsedVerbatim(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	resolver := newFixedResolver(90, now)

	// An explicit pair is not clamped even when it exceeds maxDays.
	tr, err := resolver.Resolve(timeframe.ExplicitRange("2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", tr.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2024-12-31", tr.EndDate.Format("2006-01-02"))
	assert.Equal(t, 366, tr.Days())
}

func TestResolveExplicitRangeRejectsInvertedDates(t *testing.T) {
	resolver := newFixedResolver(90, time.Now().UTC())

	_, err := resolver.Resolve(timeframe.ExplicitRange("2025-03-10", "2025-03-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after end date")
}

func TestResolveExplicitRangeRejectsMalformedDates(t *testing.T) {
	resolver := newFixedResolver(90, time.Now().UTC())

	for _, input := range []timeframe.RangeInput{
		timeframe.ExplicitRange("2025/03/01", "2025-03-10"),
		timeframe.ExplicitRange("2025-03-01", "not-a-date"),
		timeframe.ExplicitRange("", "2025-03-10"),
	} {
		_, err := resolver.Resolve(input)
		require.Error(t, err)

		var parseErr *time.ParseError
		assert.ErrorAs(t, err, &parseErr)
	}
}

func TestResolveFromParamsPrecedence(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	resolver := newFixedResolver(90, now)

	t.Run("complete start/end pair wins over days", func(t *testing.T) {
		tr, err := resolver.ResolveFromParams("2025-01-01", "2025-01-31", 7)
		require.NoError(t, err)
		assert.Equal(t, "2025-01-01", tr.StartDate.Format("2006-01-02"))
		assert.Equal(t, "2025-01-31", tr.EndDate.Format("2006-01-02"))
	})

	t.Run("incomplete pair falls back to days", func(t *testing.T) {
		tr, err := resolver.ResolveFromParams("2025-01-01", "", 14)
		require.NoError(t, err)
		assert.Equal(t, 14, tr.Days())
		assert.Equal(t, "2025-03-15", tr.EndDate.Format("2006-01-02"))
	})

	t.Run("no parameters at all defaults to seven days", func(t *testing.T) {
		tr, err := resolver.ResolveFromParams("", "", 0)
		require.NoError(t, err)
		assert.Equal(t, timeframe.DefaultDays, tr.Days())
	})
}

func TestTimeRangeBounds(t *testing.T) {
	start := time.Date(2025, 3, 1, 13, 45, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 2, 0, 0, 0, time.UTC)

	tr, err := timeframe.NewTimeRange(start, end)
	require.NoError(t, err)

	// Dates truncate to UTC midnights; Until extends to the last millisecond.
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), tr.Since)
	assert.Equal(t, time.Date(2025, 3, 3, 23, 59, 59, 999000000, time.UTC), tr.Until)
	assert.Equal(t, 3, tr.Days())
}

func TestDayBounds(t *testing.T) {
	day := time.Date(2025, 3, 2, 18, 12, 3, 0, time.UTC)
	since, until := timeframe.DayBounds(day)

	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), since)
	assert.Equal(t, time.Date(2025, 3, 2, 23, 59, 59, 999000000, time.UTC), until)
}

func TestDatePointsChronological(t *testing.T) {
	tr, err := timeframe.NewTimeRange(
		time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	points := tr.DatePoints()
	require.Len(t, points, 4)

	expected := []string{"2025-02-27", "2025-02-28", "2025-03-01", "2025-03-02"}
	for i, point := range points {
		assert.Equal(t, expected[i], point.Format("2006-01-02"))
	}
}

func TestBuildDailySeriesPointsGapFills(t *testing.T) {
	tr, err := timeframe.NewTimeRange(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	grouped := []timeframe.DateStat{
		{Date: "2025-03-02", Count: 5},
		{Date: "2025-03-05", Count: 3},
	}

	series := tr.BuildDailySeriesPoints(grouped)
	require.Len(t, series, 7)

	counts := make(map[string]int, len(series))
	for i, point := range series {
		counts[point.Date] = point.Count
		// Chronological ascending with no duplicates or omissions.
		expected := tr.StartDate.AddDate(0, 0, i).Format("2006-01-02")
		assert.Equal(t, expected, point.Date)
	}

	assert.Equal(t, 5, counts["2025-03-02"])
	assert.Equal(t, 3, counts["2025-03-05"])
	assert.Equal(t, 0, counts["2025-03-01"])
	assert.Equal(t, 0, counts["2025-03-07"])
}

func TestBuildDailySeriesPointsNormalizesDatetimeKeys(t *testing.T) {
	tr, err := timeframe.NewTimeRange(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	// SQLite date grouping can hand back full datetime strings.
	series := tr.BuildDailySeriesPoints([]timeframe.DateStat{
		{Date: "2025-03-01 00:00:00+00:00", Count: 9},
	})

	require.Len(t, series, 2)
	assert.Equal(t, 9, series[0].Count)
	assert.Equal(t, 0, series[1].Count)
}
