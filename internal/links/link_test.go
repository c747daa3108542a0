package links_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"linkfolio/internal/links"
	"linkfolio/internal/testsupport"
)

func assertDensePositions(t *testing.T, db *gorm.DB, pageID uint, expectedOrder []uint) {
	t.Helper()

	ordered, err := links.GetLinksByPage(db, pageID)
	require.NoError(t, err)
	require.Len(t, ordered, len(expectedOrder))

	for i, link := range ordered {
		assert.Equal(t, i, link.Position, "positions must stay dense 0..n-1")
		assert.Equal(t, expectedOrder[i], link.ID, "unexpected link at position %d", i)
	}
}

func TestCreateLinkAppendsAtEnd(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-create-page")
	db := dbManager.GetConnection()

	first := testsupport.CreateTestLink(t, db, page.ID, "First", "https://example.com/1")
	second := testsupport.CreateTestLink(t, db, page.ID, "Second", "https://example.com/2")
	third := testsupport.CreateTestLink(t, db, page.ID, "Third", "https://example.com/3")

	assertDensePositions(t, db, page.ID, []uint{first.ID, second.ID, third.ID})
}

func TestReorderLink(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-reorder-page")
	db := dbManager.GetConnection()

	a := testsupport.CreateTestLink(t, db, page.ID, "A", "https://example.com/a")
	b := testsupport.CreateTestLink(t, db, page.ID, "B", "https://example.com/b")
	c := testsupport.CreateTestLink(t, db, page.ID, "C", "https://example.com/c")
	d := testsupport.CreateTestLink(t, db, page.ID, "D", "https://example.com/d")

	t.Run("moves a link and shifts the rest", func(t *testing.T) {
		require.NoError(t, links.ReorderLink(db, page.ID, d.ID, 0))
		assertDensePositions(t, db, page.ID, []uint{d.ID, a.ID, b.ID, c.ID})

		require.NoError(t, links.ReorderLink(db, page.ID, d.ID, 2))
		assertDensePositions(t, db, page.ID, []uint{a.ID, b.ID, d.ID, c.ID})
	})

	t.Run("clamps out-of-range targets", func(t *testing.T) {
		require.NoError(t, links.ReorderLink(db, page.ID, a.ID, 99))
		assertDensePositions(t, db, page.ID, []uint{b.ID, d.ID, c.ID, a.ID})

		require.NoError(t, links.ReorderLink(db, page.ID, a.ID, -5))
		assertDensePositions(t, db, page.ID, []uint{a.ID, b.ID, d.ID, c.ID})
	})

	t.Run("unknown link is not found", func(t *testing.T) {
		err := links.ReorderLink(db, page.ID, 99999, 1)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestDeleteLinkClosesGap(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-delete-page")
	db := dbManager.GetConnection()

	a := testsupport.CreateTestLink(t, db, page.ID, "A", "https://example.com/a")
	b := testsupport.CreateTestLink(t, db, page.ID, "B", "https://example.com/b")
	c := testsupport.CreateTestLink(t, db, page.ID, "C", "https://example.com/c")

	require.NoError(t, links.DeleteLink(db, page.ID, b.ID))
	assertDensePositions(t, db, page.ID, []uint{a.ID, c.ID})

	t.Run("delete is scoped to the page", func(t *testing.T) {
		err := links.DeleteLink(db, page.ID+1000, a.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestIsEffectivelyVisible(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		link     links.Link
		expected bool
	}{
		{"active without expiry", links.Link{Active: true}, true},
		{"active with future expiry", links.Link{Active: true, ExpiresAt: &future}, true},
		{"active but expired", links.Link{Active: true, ExpiresAt: &past}, false},
		{"expiry exactly now counts as expired", links.Link{Active: true, ExpiresAt: &now}, false},
		{"inactive", links.Link{Active: false}, false},
		{"inactive with future expiry", links.Link{Active: false, ExpiresAt: &future}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.link.IsEffectivelyVisible(now))
		})
	}
}

func TestGetVisibleLinksByPage(t *testing.T) {
	dbManager, _, page := testsupport.SetupTestDBManagerWithPage(t, "link-visible-page")
	db := dbManager.GetConnection()

	now := time.Now().UTC()
	past := now.Add(-time.Hour)

	visible := testsupport.CreateTestLink(t, db, page.ID, "Visible", "https://example.com/v")
	expired := testsupport.CreateTestLink(t, db, page.ID, "Expired", "https://example.com/e")
	expired.ExpiresAt = &past
	require.NoError(t, links.UpdateLink(db, &expired))

	inactive := testsupport.CreateTestLink(t, db, page.ID, "Inactive", "https://example.com/i")
	inactive.Active = false
	require.NoError(t, links.UpdateLink(db, &inactive))

	result, err := links.GetVisibleLinksByPage(db, page.ID, now)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, visible.ID, result[0].ID)

	// All three remain in the full listing regardless of visibility.
	all, err := links.GetLinksByPage(db, page.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
