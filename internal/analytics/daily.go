package analytics

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"linkfolio/internal/config"
	"linkfolio/internal/pkg/async"
	"linkfolio/internal/timeframe"
)

// DailyPoint is one calendar day of the daily series.
type DailyPoint struct {
	Date           string `json:"date"` // YYYY-MM-DD
	Views          int64  `json:"views"`
	Clicks         int64  `json:"clicks"`
	UniqueVisitors int64  `json:"uniqueVisitors"`
}

const dailyPoolWorkers = 12

// GetDailySeries computes one point per calendar day in range, zero-filled and
// chronologically ascending. Views and clicks come from grouped queries that
// are gap-filled against the range's date points; distinct visitors need a
// per-day dedup pass, so those run as one task per day. All tasks are issued
// concurrently through one pool and a failed sub-query degrades its cells to
// zero.
func GetDailySeries(ctx context.Context, db *gorm.DB, logger *slog.Logger, qc *QueryContext) []DailyPoint {
	points := qc.Range.DatePoints()
	tasks := make([]async.Task, 0, len(points)+2)

	tasks = append(tasks,
		async.Task{
			Name: "views",
			Execute: func() (interface{}, error) {
				return aggregatedDailyCounts(db, qc, "page_view_events")
			},
		},
		async.Task{
			Name: "clicks",
			Execute: func() (interface{}, error) {
				return aggregatedDailyCounts(db, qc, "link_click_events")
			},
		},
	)

	for _, day := range points {
		dayQC, err := dayScopedContext(qc, day)
		if err != nil {
			logger.Error("Failed to scope daily sub-range",
				slog.String("event", "daily_range_scope_failed"),
				slog.Any("error", err))
			continue
		}

		key := dayQC.Range.StartDate.Format("2006-01-02")
		tasks = append(tasks, async.Task{
			Name: "visitors:" + key,
			Execute: func() (interface{}, error) {
				return getDayDistinctVisitors(db, dayQC)
			},
		})
	}

	results := async.NewPool(dailyPoolWorkers).Execute(ctx, tasks)

	views := qc.Range.BuildDailySeriesPoints(dateStatsFromResult(logger, results, "views"))
	clicks := qc.Range.BuildDailySeriesPoints(dateStatsFromResult(logger, results, "clicks"))

	series := make([]DailyPoint, len(points))
	for i := range points {
		series[i] = DailyPoint{
			Date:           views[i].Date,
			Views:          int64(views[i].Count),
			Clicks:         int64(clicks[i].Count),
			UniqueVisitors: countFromResult(logger, results, "visitors:"+views[i].Date),
		}
	}

	return series
}

// aggregatedDailyCounts groups an event table's rows by UTC calendar day.
// Days without rows are absent; the caller gap-fills them.
func aggregatedDailyCounts(db *gorm.DB, qc *QueryContext, table string) ([]timeframe.DateStat, error) {
	var results []timeframe.DateStat

	query := fmt.Sprintf(`
        SELECT
            date(created_at) AS date,
            COUNT(*) AS count
        FROM
            %s
        WHERE
            page_id = ?
            AND created_at >= ? AND created_at <= ?
        GROUP BY
            date(created_at)
        ORDER BY
            date ASC
    `, table)

	err := db.Raw(query, qc.PageID, qc.Range.Since, qc.Range.Until).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching daily counts from %s: %w", table, err)
	}

	return results, nil
}

// dateStatsFromResult unwraps a grouped-count task result, degrading to an
// empty slice so the series still renders when one sub-query fails.
func dateStatsFromResult(logger *slog.Logger, results map[string]async.Result, name string) []timeframe.DateStat {
	result, ok := results[name]
	if !ok {
		logger.Error("Missing daily sub-query result", slog.String("query", name))
		return nil
	}
	if result.Err != nil {
		logger.Error("Daily sub-query failed",
			slog.String("query", name),
			slog.Any("error", result.Err))
		return nil
	}
	stats, ok := result.Data.([]timeframe.DateStat)
	if !ok {
		logger.Error("Unexpected daily sub-query result type", slog.String("query", name))
		return nil
	}
	return stats
}

// dayScopedContext narrows a query context to a single UTC calendar day.
func dayScopedContext(qc *QueryContext, day time.Time) (*QueryContext, error) {
	dayRange, err := timeframe.NewTimeRange(day, day)
	if err != nil {
		return nil, err
	}
	return &QueryContext{PageID: qc.PageID, Range: dayRange}, nil
}

// getDayDistinctVisitors dedups visitor ids for a single day by fetching the
// raw rows and counting the set in Go. The fetch is capped by configuration;
// 0 disables the cap.
func getDayDistinctVisitors(db *gorm.DB, qc *QueryContext) (int64, error) {
	query := db.Table("page_view_events").
		Select("visitor_id").
		Where("page_id = ?", qc.PageID).
		Where("created_at >= ?", qc.Range.Since).
		Where("created_at <= ?", qc.Range.Until).
		Where("visitor_id != ''")

	if rowCap := config.GetConfig().DailyVisitorRowCap; rowCap > 0 {
		query = query.Limit(rowCap)
	}

	var visitorIDs []string
	if err := query.Scan(&visitorIDs).Error; err != nil {
		return 0, fmt.Errorf("error fetching daily visitor rows: %w", err)
	}

	seen := make(map[string]struct{}, len(visitorIDs))
	for _, id := range visitorIDs {
		seen[id] = struct{}{}
	}
	return int64(len(seen)), nil
}
