package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/analytics"
	"linkfolio/internal/testsupport"
)

func TestGetDeviceBreakdown(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "device-breakdown-page")
	db := dbManager.GetConnection()

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		visitorID string
		device    string
	}{
		{"v1", "mobile"},
		{"v2", "mobile"},
		{"v3", "mobile"},
		{"v4", "desktop"},
		{"v5", ""}, // legacy row without a stored device
		{"v6", "tablet"},
	}
	for i, row := range rows {
		testsupport.CreateTestPageView(t, db, page.ID, row.visitorID, "", row.device, "us", day.Add(time.Duration(i)*time.Minute))
	}

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	result, err := analytics.GetDeviceBreakdown(db, qc)
	require.NoError(t, err)

	// Empty devices merge into desktop; counts sort descending.
	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "mobile", Count: 3},
		{Name: "desktop", Count: 2},
		{Name: "tablet", Count: 1},
	}, result)

	t.Run("identical input yields identical output", func(t *testing.T) {
		again, err := analytics.GetDeviceBreakdown(db, qc)
		require.NoError(t, err)
		assert.Equal(t, result, again)
	})
}

func TestBreakdownTieBreaksByLabel(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "tie-break-page")
	db := dbManager.GetConnection()

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "tablet", "us", day)
	testsupport.CreateTestPageView(t, db, page.ID, "v2", "", "mobile", "us", day)
	testsupport.CreateTestPageView(t, db, page.ID, "v3", "", "desktop", "us", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	result, err := analytics.GetDeviceBreakdown(db, qc)
	require.NoError(t, err)

	// All counts equal: order falls back to label ascending.
	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "desktop", Count: 1},
		{Name: "mobile", Count: 1},
		{Name: "tablet", Count: 1},
	}, result)
}

func TestGetCountryBreakdown(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "country-breakdown-page")
	db := dbManager.GetConnection()

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		visitorID string
		country   string
	}{
		{"v1", "us"},
		{"v2", "us"},
		{"v3", "de"},
		{"v4", "unknown"},
		{"v5", ""},
	}
	for i, row := range rows {
		testsupport.CreateTestPageView(t, db, page.ID, row.visitorID, "", "desktop", row.country, day.Add(time.Duration(i)*time.Minute))
	}

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	result, err := analytics.GetCountryBreakdown(db, qc)
	require.NoError(t, err)

	// Stored ISO codes map to display names; unknown and empty merge.
	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "United States", Count: 2},
		{Name: analytics.UnknownCountryLabel, Count: 2},
		{Name: "Germany", Count: 1},
	}, result)
}

func TestGetSourceBreakdown(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "source-breakdown-page")
	db := dbManager.GetConnection()

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	rows := []struct {
		visitorID string
		referrer  string
	}{
		{"v1", "https://www.google.com/search?q=links"},
		{"v2", "https://google.com/"},
		{"v3", "https://example.com/blog?utm_source=newsletter"},
		{"v4", ""},
		{"v5", "garbage referrer"},
	}
	for i, row := range rows {
		testsupport.CreateTestPageView(t, db, page.ID, row.visitorID, row.referrer, "desktop", "us", day.Add(time.Duration(i)*time.Minute))
	}

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	result, err := analytics.GetSourceBreakdown(db, qc)
	require.NoError(t, err)

	// www is stripped so both google rows group; the utm_source wins over the
	// hostname; direct and unparseable referrers merge into Unknown.
	assert.Equal(t, []analytics.MetricCountResult{
		{Name: "Unknown", Count: 2},
		{Name: "google.com", Count: 2},
		{Name: "newsletter", Count: 1},
	}, result)
}

func TestBreakdownsRespectRange(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "breakdown-range-page")
	db := dbManager.GetConnection()

	inRange := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "mobile", "us", inRange)
	testsupport.CreateTestPageView(t, db, page.ID, "v2", "", "tablet", "de", outOfRange)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	result, err := analytics.GetDeviceBreakdown(db, qc)
	require.NoError(t, err)

	assert.Equal(t, []analytics.MetricCountResult{{Name: "mobile", Count: 1}}, result)
}
