package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/analytics"
	"linkfolio/internal/testsupport"
)

func TestGetDailySeries(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "daily-page")
	db := dbManager.GetConnection()

	link := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")

	march := func(day, hour int) time.Time {
		return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC)
	}

	// Day 2: two views from the same visitor, one click.
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", march(2, 9))
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", march(2, 18))
	testsupport.CreateTestLinkClick(t, db, page.ID, &link.ID, "v1", march(2, 18))

	// Day 5: three views from two visitors, an unattributed click.
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "mobile", "de", march(5, 8))
	testsupport.CreateTestPageView(t, db, page.ID, "v2", "", "mobile", "de", march(5, 12))
	testsupport.CreateTestPageView(t, db, page.ID, "v2", "", "mobile", "de", march(5, 23))
	testsupport.CreateTestLinkClick(t, db, page.ID, nil, "v2", march(5, 12))

	// The same visitor appearing on both days dedups per day, not per range.
	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	series := analytics.GetDailySeries(context.Background(), db, logger, qc)

	require.Len(t, series, 7, "one point per calendar day in range")

	expectedDates := []string{
		"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04",
		"2025-03-05", "2025-03-06", "2025-03-07",
	}
	for i, point := range series {
		assert.Equal(t, expectedDates[i], point.Date, "series must be chronologically ascending")
	}

	assert.Equal(t, analytics.DailyPoint{Date: "2025-03-01"}, series[0], "days without rows are zero-filled")
	assert.Equal(t, analytics.DailyPoint{Date: "2025-03-02", Views: 2, Clicks: 1, UniqueVisitors: 1}, series[1])
	assert.Equal(t, analytics.DailyPoint{Date: "2025-03-05", Views: 3, Clicks: 1, UniqueVisitors: 2}, series[4])
	assert.Equal(t, analytics.DailyPoint{Date: "2025-03-07"}, series[6])
}

func TestGetDailySeriesSingleDay(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "daily-single-page")
	db := dbManager.GetConnection()

	day := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-04", "2025-03-04")
	series := analytics.GetDailySeries(context.Background(), db, logger, qc)

	require.Len(t, series, 1)
	assert.Equal(t, analytics.DailyPoint{Date: "2025-03-04", Views: 1, UniqueVisitors: 1}, series[0])
}
