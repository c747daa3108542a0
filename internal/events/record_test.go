package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/events"
	"linkfolio/internal/pages"
	"linkfolio/internal/testsupport"
)

func TestRecordPageView(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "record-view-page")
	db := dbManager.GetConnection()

	t.Run("stores an enriched event for a known slug", func(t *testing.T) {
		when := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		err := events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{
			Slug:      page.Slug,
			VisitorID: "visitor-1",
			UserAgent: uaIPhoneSafari,
			Referrer:  "https://www.google.com/search",
			GeoHeader: "DE",
			Timestamp: when,
		})
		require.NoError(t, err)

		var stored events.PageViewEvent
		require.NoError(t, db.Where("page_id = ? AND visitor_id = ?", page.ID, "visitor-1").First(&stored).Error)
		assert.Equal(t, events.DeviceMobile, stored.Device)
		assert.Equal(t, "de", stored.Country)
		assert.Equal(t, "safari", stored.Browser)
		assert.Equal(t, "iOS", stored.OS)
		assert.Equal(t, "https://www.google.com/search", stored.Referrer)
		assert.True(t, stored.CreatedAt.Equal(when))
	})

	t.Run("normalizes the slug before resolving", func(t *testing.T) {
		err := events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{
			Slug:      "  Record-View-Page ",
			VisitorID: "visitor-2",
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&events.PageViewEvent{}).
			Where("page_id = ? AND visitor_id = ?", page.ID, "visitor-2").
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("drops events for unknown slugs", func(t *testing.T) {
		err := events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{
			Slug:      "no-such-page-here",
			VisitorID: "visitor-3",
		})
		require.Error(t, err)

		var notFound *pages.PageNotFoundError
		assert.ErrorAs(t, err, &notFound)

		var count int64
		require.NoError(t, db.Model(&events.PageViewEvent{}).
			Where("visitor_id = ?", "visitor-3").Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejects a missing slug", func(t *testing.T) {
		err := events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{VisitorID: "visitor-4"})
		require.Error(t, err)
	})
}

func TestRecordLinkClickAttribution(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "record-click-page")
	db := dbManager.GetConnection()

	blog := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")
	shop := testsupport.CreateTestLink(t, db, page.ID, "Shop", "https://example.com/shop")

	lastClick := func(visitorID string) events.LinkClickEvent {
		var click events.LinkClickEvent
		require.NoError(t, db.Where("page_id = ? AND visitor_id = ?", page.ID, visitorID).First(&click).Error)
		return click
	}

	t.Run("explicit link id wins", func(t *testing.T) {
		err := events.RecordLinkClick(dbManager, logger, &events.RecordLinkClickInput{
			Slug:      page.Slug,
			LinkID:    blog.ID,
			URL:       shop.URL, // ignored when the id resolves
			VisitorID: "click-1",
		})
		require.NoError(t, err)

		click := lastClick("click-1")
		require.NotNil(t, click.LinkID)
		assert.Equal(t, blog.ID, *click.LinkID)
	})

	t.Run("foreign link id falls back to url match", func(t *testing.T) {
		err := events.RecordLinkClick(dbManager, logger, &events.RecordLinkClickInput{
			Slug:      page.Slug,
			LinkID:    blog.ID + shop.ID + 1000, // not a link of this page
			URL:       shop.URL,
			VisitorID: "click-2",
		})
		require.NoError(t, err)

		click := lastClick("click-2")
		require.NotNil(t, click.LinkID)
		assert.Equal(t, shop.ID, *click.LinkID)
	})

	t.Run("url-only click attributes by exact match", func(t *testing.T) {
		err := events.RecordLinkClick(dbManager, logger, &events.RecordLinkClickInput{
			Slug:      page.Slug,
			URL:       blog.URL,
			VisitorID: "click-3",
		})
		require.NoError(t, err)

		click := lastClick("click-3")
		require.NotNil(t, click.LinkID)
		assert.Equal(t, blog.ID, *click.LinkID)
	})

	t.Run("unmatchable click is stored with null attribution", func(t *testing.T) {
		err := events.RecordLinkClick(dbManager, logger, &events.RecordLinkClickInput{
			Slug:      page.Slug,
			URL:       "https://example.com/not-a-link",
			VisitorID: "click-4",
		})
		require.NoError(t, err)

		click := lastClick("click-4")
		assert.Nil(t, click.LinkID)
	})

	t.Run("unknown slug drops the click", func(t *testing.T) {
		err := events.RecordLinkClick(dbManager, logger, &events.RecordLinkClickInput{
			Slug:      "no-such-click-page",
			URL:       blog.URL,
			VisitorID: "click-5",
		})
		require.Error(t, err)

		var notFound *pages.PageNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestForgetSlugStopsStaleResolution(t *testing.T) {
	dbManager, logger, page := testsupport.SetupTestDBManagerWithPage(t, "forget-slug-page")
	db := dbManager.GetConnection()

	// Warm the resolver cache, then delete the page behind its back.
	require.NoError(t, events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{
		Slug:      page.Slug,
		VisitorID: "warm-1",
	}))
	require.NoError(t, pages.DeletePage(db, page.ID))
	events.ForgetSlug(page.Slug)

	err := events.RecordPageView(dbManager, logger, &events.RecordPageViewInput{
		Slug:      page.Slug,
		VisitorID: "stale-1",
	})
	require.Error(t, err)

	var notFound *pages.PageNotFoundError
	assert.ErrorAs(t, err, &notFound)
}
