package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"linkfolio/internal/links"
)

// LinkStat is one row of the per-link breakdown.
type LinkStat struct {
	ID        uint       `json:"id"`
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	Clicks    int64      `json:"clicks"`
	CTR       int        `json:"ctr"`
}

// GetLinkBreakdown computes clicks and CTR for every link on the page,
// including inactive and expired ones; analytics show historical performance
// regardless of current visibility. CTR is round(clicks/totalViews*100) with
// a zero denominator yielding zero. Results sort by clicks descending; ties
// keep the link's own display order.
func GetLinkBreakdown(db *gorm.DB, qc *QueryContext) ([]LinkStat, error) {
	pageLinks, err := links.GetLinksByPage(db, qc.PageID)
	if err != nil {
		return nil, fmt.Errorf("error fetching page links: %w", err)
	}

	clickCounts, err := getClickCountsByLink(db, qc)
	if err != nil {
		return nil, err
	}

	totalViews, err := GetTotalPageViews(db, qc)
	if err != nil {
		return nil, err
	}

	// pageLinks is already in display order, so the stable sort below keeps
	// display order for equal click counts.
	stats := make([]LinkStat, len(pageLinks))
	for i, link := range pageLinks {
		clicks := clickCounts[link.ID]
		stats[i] = LinkStat{
			ID:        link.ID,
			Title:     link.Title,
			URL:       link.URL,
			IsActive:  link.Active,
			ExpiresAt: link.ExpiresAt,
			Clicks:    clicks,
			CTR:       clickThroughRate(clicks, totalViews),
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Clicks > stats[j].Clicks
	})

	return stats, nil
}

// getClickCountsByLink counts attributed clicks per link in range using an
// exact aggregate query. Clicks with null attribution count toward page
// totals only.
func getClickCountsByLink(db *gorm.DB, qc *QueryContext) (map[uint]int64, error) {
	var results []struct {
		LinkID uint
		Count  int64
	}

	query := `
    SELECT link_id, COUNT(*) AS count
    FROM link_click_events
    WHERE page_id = ?
    AND created_at >= ? AND created_at <= ?
    AND link_id IS NOT NULL
    GROUP BY link_id
    `

	err := db.Raw(query, qc.PageID, qc.Range.Since, qc.Range.Until).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error counting clicks by link: %w", err)
	}

	counts := make(map[uint]int64, len(results))
	for _, result := range results {
		counts[result.LinkID] = result.Count
	}
	return counts, nil
}

// clickThroughRate returns round(clicks/views*100) as an integer percentage.
func clickThroughRate(clicks, totalViews int64) int {
	if totalViews == 0 {
		return 0
	}
	return int(math.Round(float64(clicks) / float64(totalViews) * 100))
}
