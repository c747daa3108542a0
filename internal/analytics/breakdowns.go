package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"linkfolio/internal/config"
	"linkfolio/internal/events"
	"linkfolio/internal/pkg/sources"
)

// UnknownCountryLabel is how an underivable country surfaces in breakdowns.
const UnknownCountryLabel = "Unknown"

var (
	countryQuery = gountries.New()
	titleCaser   = cases.Title(language.English)
)

// GetDeviceBreakdown groups page views in range by device class. Rows with no
// stored device fall back to desktop. Sorted by count descending.
func GetDeviceBreakdown(db *gorm.DB, qc *QueryContext) ([]MetricCountResult, error) {
	rows, err := fetchBreakdownRows(db, qc, "device")
	if err != nil {
		return nil, err
	}

	return groupAndSort(rows, func(value string) string {
		if value == "" {
			return events.DeviceDesktop
		}
		return value
	}), nil
}

// GetCountryBreakdown groups page views in range by country, mapping stored
// ISO codes to display names. Sorted by count descending.
func GetCountryBreakdown(db *gorm.DB, qc *QueryContext) ([]MetricCountResult, error) {
	rows, err := fetchBreakdownRows(db, qc, "country")
	if err != nil {
		return nil, err
	}

	return groupAndSort(rows, countryDisplayName), nil
}

// GetSourceBreakdown groups page views in range by traffic source derived
// from the raw referrer. Sorted by count descending.
func GetSourceBreakdown(db *gorm.DB, qc *QueryContext) ([]MetricCountResult, error) {
	rows, err := fetchBreakdownRows(db, qc, "referrer")
	if err != nil {
		return nil, err
	}

	return groupAndSort(rows, sources.Label), nil
}

// fetchBreakdownRows scans one column of the page's views in range, capped by
// the configured scan limit. The cap trades exactness for bounded work on very
// high-traffic pages; summary and link counts stay exact because they use
// aggregate queries instead.
func fetchBreakdownRows(db *gorm.DB, qc *QueryContext, column string) ([]string, error) {
	query := db.Table("page_view_events").
		Select(column).
		Where("page_id = ?", qc.PageID).
		Where("created_at >= ?", qc.Range.Since).
		Where("created_at <= ?", qc.Range.Until)

	if rowCap := config.GetConfig().ScanRowCap; rowCap > 0 {
		query = query.Limit(rowCap)
	}

	var rows []string
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error scanning %s rows: %w", column, err)
	}
	return rows, nil
}

// groupAndSort counts rows per label and orders them by count descending.
// Ties break by label so identical inputs always produce identical output.
func groupAndSort(rows []string, label func(string) string) []MetricCountResult {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[label(row)]++
	}

	results := make([]MetricCountResult, 0, len(counts))
	for name, count := range counts {
		results = append(results, MetricCountResult{Name: name, Count: count})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].Name < results[j].Name
	})

	return results
}

// countryDisplayName maps a stored country code to a display name.
func countryDisplayName(code string) string {
	if code == "" || code == events.UnknownCountry {
		return UnknownCountryLabel
	}

	country, err := countryQuery.FindCountryByAlpha(strings.ToUpper(code))
	if err != nil {
		return titleCaser.String(code)
	}
	return country.Name.Common
}
