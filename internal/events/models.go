package events

import "time"

// PageViewEvent represents one visit to a published page. Rows are append-only
// and are removed only when the owning page is deleted.
type PageViewEvent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	PageID    uint   `gorm:"index:idx_page_view_created;not null"`
	VisitorID string `gorm:"index;size:64"` // Client-generated; empty means anonymous
	Referrer  string
	Device    string    `gorm:"size:16;not null"`
	Country   string    `gorm:"size:8;not null"`
	Browser   string    `gorm:"size:32"`
	OS        string    `gorm:"size:32"`
	CreatedAt time.Time `gorm:"index:idx_page_view_created;not null"`
}

// LinkClickEvent represents one click on a page's link. LinkID is null when
// the click could not be attributed to a specific link; such clicks still
// count toward page-level totals.
type LinkClickEvent struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	PageID    uint  `gorm:"index:idx_link_click_created;not null"`
	LinkID    *uint `gorm:"index"`
	VisitorID string `gorm:"size:64"`
	Referrer  string
	CreatedAt time.Time `gorm:"index:idx_link_click_created;not null"`
}
