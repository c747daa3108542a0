// Package analytics computes page-scoped aggregations over raw event rows.
//
// Operations:
// - Summary: total views, total clicks, exact distinct visitors
// - Daily series: gap-filled per-day views/clicks/distinct visitors
// - Link breakdown: per-link clicks and CTR against page views in range
// - Device, country and source breakdowns over capped raw-row scans
//
// All operations are read-only, independently invocable and scoped by a
// QueryContext produced by the access guard in context.go.
package analytics

// MetricCountResult is the label/count row shared by every breakdown. The
// handlers wrap the rows under a per-breakdown response key, so the label is
// always serialized as "name" regardless of which metric it belongs to.
type MetricCountResult struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
