package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkfolio/internal/links"
	"linkfolio/internal/testsupport"
)

func TestPublicPageAction(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "public-render-page")
	db := dbManager.GetConnection()
	app := testsupport.CreateMinimalTestApp(t, db)

	visible := testsupport.CreateTestLink(t, db, page.ID, "Blog", "https://example.com/blog")
	testsupport.CreateTestLink(t, db, page.ID, "Shop", "https://example.com/shop")

	hidden := testsupport.CreateTestLink(t, db, page.ID, "Hidden", "https://example.com/hidden")
	hidden.Active = false
	require.NoError(t, links.UpdateLink(db, &hidden))

	past := time.Now().UTC().Add(-time.Hour)
	stale := testsupport.CreateTestLink(t, db, page.ID, "Stale", "https://example.com/stale")
	stale.ExpiresAt = &past
	require.NoError(t, links.UpdateLink(db, &stale))

	t.Run("serves profile and visible links in display order", func(t *testing.T) {
		resp, body := getJSON(t, app, "/p/"+page.Slug)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, page.Slug, body["slug"])
		assert.Contains(t, resp.Header.Get("Cache-Control"), "max-age=60")

		linkRows := body["links"].([]interface{})
		require.Len(t, linkRows, 2, "inactive and expired links are hidden from visitors")

		first := linkRows[0].(map[string]interface{})
		assert.Equal(t, float64(visible.ID), first["id"])
		assert.Equal(t, "Blog", first["title"])
	})

	t.Run("unknown slug is a 404", func(t *testing.T) {
		resp, _ := getJSON(t, app, "/p/never-published")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
