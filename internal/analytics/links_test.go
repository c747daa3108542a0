package analytics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/analytics"
	"linkfolio/internal/links"
	"linkfolio/internal/testsupport"
)

func TestGetLinkBreakdown(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-breakdown-page")
	db := dbManager.GetConnection()

	blog := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")
	shop := testsupport.CreateTestLink(t, db, page.ID, "Shop", "https://example.com/shop")

	// An inactive link and an expired link still appear in the breakdown.
	retired := testsupport.CreateTestLink(t, db, page.ID, "Retired", "https://example.com/retired")
	retired.Active = false
	require.NoError(t, links.UpdateLink(db, &retired))

	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expired := testsupport.CreateTestLink(t, db, page.ID, "Expired", "https://example.com/expired")
	expired.ExpiresAt = &past
	require.NoError(t, links.UpdateLink(db, &expired))

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)

	// 4 views in range.
	for i, visitorID := range []string{"v1", "v2", "v3", "v4"} {
		testsupport.CreateTestPageView(t, db, page.ID, visitorID, "", "desktop", "us", day.Add(time.Duration(i)*time.Minute))
	}

	// blog: 2 clicks, retired: 1 click, shop: 0. Plus one unattributed click
	// that must not surface on any link row.
	testsupport.CreateTestLinkClick(t, db, page.ID, &blog.ID, "v1", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, &blog.ID, "v2", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, &retired.ID, "v3", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, nil, "v4", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	stats, err := analytics.GetLinkBreakdown(db, qc)
	require.NoError(t, err)
	require.Len(t, stats, 4, "every link appears regardless of visibility")

	// Sorted by clicks descending; zero-click ties keep display order.
	assert.Equal(t, blog.ID, stats[0].ID)
	assert.Equal(t, int64(2), stats[0].Clicks)
	assert.Equal(t, 50, stats[0].CTR, "2 clicks over 4 views is 50 percent")

	assert.Equal(t, retired.ID, stats[1].ID)
	assert.Equal(t, int64(1), stats[1].Clicks)
	assert.Equal(t, 25, stats[1].CTR)
	assert.False(t, stats[1].IsActive)

	assert.Equal(t, shop.ID, stats[2].ID)
	assert.Equal(t, expired.ID, stats[3].ID)
	assert.Equal(t, int64(0), stats[2].Clicks)
	assert.Equal(t, 0, stats[2].CTR)
	require.NotNil(t, stats[3].ExpiresAt)
}

func TestGetLinkBreakdownZeroViews(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-zero-views-page")
	db := dbManager.GetConnection()

	blog := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")

	// Clicks without any views in range: CTR must degrade to zero, not divide.
	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	testsupport.CreateTestLinkClick(t, db, page.ID, &blog.ID, "v1", day)
	testsupport.CreateTestLinkClick(t, db, page.ID, &blog.ID, "v2", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	stats, err := analytics.GetLinkBreakdown(db, qc)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	assert.Equal(t, int64(2), stats[0].Clicks)
	assert.Equal(t, 0, stats[0].CTR)
}

func TestGetLinkBreakdownRounding(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-rounding-page")
	db := dbManager.GetConnection()

	blog := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")

	day := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		testsupport.CreateTestPageView(t, db, page.ID, "v1", "", "desktop", "us", day.Add(time.Duration(i)*time.Minute))
	}
	testsupport.CreateTestLinkClick(t, db, page.ID, &blog.ID, "v1", day)

	qc := queryContextFor(t, db, page.UserID, page.ID, "2025-03-01", "2025-03-07")
	stats, err := analytics.GetLinkBreakdown(db, qc)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	// 1/3 of views rounds to 33, not truncates to 33.33.
	assert.Equal(t, 33, stats[0].CTR)
}
