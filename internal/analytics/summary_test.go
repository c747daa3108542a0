package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkfolio/internal/analytics"
	"linkfolio/internal/testsupport"
	"linkfolio/internal/timeframe"
)

// queryContextFor builds an owner-scoped context over a fixed explicit range
// so tests do not depend on the wall clock.
func queryContextFor(t *testing.T, db *gorm.DB, userID, pageID uint, start, end string) *analytics.QueryContext {
	t.Helper()

	resolver := timeframe.NewResolver(90)
	qc, err := analytics.BuildQueryContext(db, resolver, userID, pageID, timeframe.ExplicitRange(start, end))
	require.NoError(t, err)
	return qc
}

func TestGetSummary(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "summary-page")
	db := dbManager.GetConnection()

	link := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	// 10 views from 6 distinct visitors, one of them anonymous.
	visitors := []string{"v1", "v1", "v1", "v2", "v2", "v3", "v4", "v5", "v6", "v6"}
	for i, visitorID := range visitors {
		testsupport.CreateTestPageView(t, db, page.ID, visitorID, "", "desktop", "us", day.Add(time.Duration(i)*time.Minute))
	}
	testsupport.CreateTestPageView(t, db, page.ID, "", "", "desktop", "us", day)

	// 4 clicks: 3 attributed, 1 with null attribution. All count.
	testsupport.CreateTestLinkClick(t, db, page.ID, &link.ID, "v1", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, &link.ID, "v2", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, &link.ID, "v3", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, nil, "v4", day)

	// Noise outside the range.
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", day.AddDate(0, 0, 30))
	testsupport.CreateTestLinkClick(t, db, page.ID, &link.ID, "v1", day.AddDate(0, 0, 30))

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	summary := analytics.GetSummary(context.Background(), db, logger, qc)

	assert.Equal(t, int64(11), summary.TotalViews, "anonymous views count toward totals")
	assert.Equal(t, int64(6), summary.UniqueVisitors, "empty visitor ids are excluded from the distinct count")
	assert.Equal(t, int64(4), summary.TotalClicks, "unattributed clicks count toward totals")
}

func TestGetSummaryEmptyRange(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "summary-empty-page")
	db := dbManager.GetConnection()

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	summary := analytics.GetSummary(context.Background(), db, logger, qc)

	assert.Equal(t, analytics.Summary{}, summary)
}

func TestSummaryCountsArePageScoped(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "summary-scoped-page")
	db := dbManager.GetConnection()
	neighbor := testsupport.CreateTestPage(t, db, page.UserID, "summary-neighbor-page")

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", day)
	testsupport.CreateTestPageView(t, db, neighbor.ID, "v1", "", "desktop", "us", day)
	testsupport.CreateTestPageView(t, db, neighbor.ID, "v2", "", "desktop", "us", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	summary := analytics.GetSummary(context.Background(), db, logger, qc)

	assert.Equal(t, int64(1), summary.TotalViews)
	assert.Equal(t, int64(1), summary.UniqueVisitors)
}
