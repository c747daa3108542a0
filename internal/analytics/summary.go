package analytics

import (
	"context"
	"fmt"

	"log/slog"

	"gorm.io/gorm"

	"linkfolio/internal/events"
	"linkfolio/internal/pkg/async"
)

// Summary is the top-of-dashboard card data for one page and range.
type Summary struct {
	TotalViews     int64 `json:"totalViews"`
	UniqueVisitors int64 `json:"uniqueVisitors"`
	TotalClicks    int64 `json:"totalClicks"`
}

// GetTotalPageViews counts page views in range using an exact aggregate query.
func GetTotalPageViews(db *gorm.DB, qc *QueryContext) (int64, error) {
	var count int64
	err := db.Model(&events.PageViewEvent{}).
		Where("page_id = ?", qc.PageID).
		Where("created_at >= ?", qc.Range.Since).
		Where("created_at <= ?", qc.Range.Until).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting page views: %w", err)
	}
	return count, nil
}

// GetTotalLinkClicks counts all link clicks in range, including clicks with
// null link attribution.
func GetTotalLinkClicks(db *gorm.DB, qc *QueryContext) (int64, error) {
	var count int64
	err := db.Model(&events.LinkClickEvent{}).
		Where("page_id = ?", qc.PageID).
		Where("created_at >= ?", qc.Range.Since).
		Where("created_at <= ?", qc.Range.Until).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting link clicks: %w", err)
	}
	return count, nil
}

// GetDistinctVisitors counts distinct non-empty visitor ids on page views in
// range. The count is exact set cardinality, acceptable only because ranges
// are page-scoped and bounded.
func GetDistinctVisitors(db *gorm.DB, qc *QueryContext) (int64, error) {
	var result struct {
		Visitors int64
	}

	query := `
    SELECT COUNT(DISTINCT visitor_id) AS visitors
    FROM page_view_events
    WHERE page_id = ?
    AND created_at >= ? AND created_at <= ?
    AND visitor_id != ''
    `

	err := db.Raw(query, qc.PageID, qc.Range.Since, qc.Range.Until).Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("error counting distinct visitors: %w", err)
	}

	return result.Visitors, nil
}

// GetSummary issues the three summary sub-queries concurrently. A failed
// sub-query is logged and contributes zero; the summary itself never fails.
func GetSummary(ctx context.Context, db *gorm.DB, logger *slog.Logger, qc *QueryContext) Summary {
	tasks := []async.Task{
		{
			Name: "views",
			Execute: func() (interface{}, error) {
				return GetTotalPageViews(db, qc)
			},
		},
		{
			Name: "clicks",
			Execute: func() (interface{}, error) {
				return GetTotalLinkClicks(db, qc)
			},
		},
		{
			Name: "visitors",
			Execute: func() (interface{}, error) {
				return GetDistinctVisitors(db, qc)
			},
		},
	}

	results := async.NewPool(len(tasks)).Execute(ctx, tasks)

	return Summary{
		TotalViews:     countFromResult(logger, results, "views"),
		TotalClicks:    countFromResult(logger, results, "clicks"),
		UniqueVisitors: countFromResult(logger, results, "visitors"),
	}
}

// countFromResult unwraps a pool result, degrading failures to zero.
func countFromResult(logger *slog.Logger, results map[string]async.Result, name string) int64 {
	result, ok := results[name]
	if !ok {
		return 0
	}
	if result.Err != nil {
		logger.Error("Summary sub-query failed",
			slog.String("event", "summary_subquery_failed"),
			slog.String("metric", name),
			slog.Any("error", result.Err))
		return 0
	}
	count, ok := result.Data.(int64)
	if !ok {
		return 0
	}
	return count
}
