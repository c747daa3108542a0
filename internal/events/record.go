package events

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/links"
)

// RecordPageViewInput defines the input required to record a page view.
type RecordPageViewInput struct {
	Slug      string
	VisitorID string
	UserAgent string
	Referrer  string
	GeoHeader string
	IPAddress string
	Timestamp time.Time
}

// RecordLinkClickInput defines the input required to record a link click.
// LinkID takes precedence over URL when both are present.
type RecordLinkClickInput struct {
	Slug      string
	LinkID    uint
	URL       string
	VisitorID string
	Referrer  string
	Timestamp time.Time
}

// RecordPageView resolves the slug and appends one PageViewEvent. A slug that
// resolves to no page returns PageNotFoundError and the event is dropped.
// Callers on the visitor path log and swallow any error; a lost view is
// accepted data loss.
func RecordPageView(dbManager cartridge.DBManager, logger *slog.Logger, input *RecordPageViewInput) error {
	if input.Slug == "" {
		return fmt.Errorf("page view without slug")
	}

	db := dbManager.GetConnection()

	pageID, err := resolvePageID(db, input.Slug)
	if err != nil {
		return err
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	browser, os := BrowserAndOSFromUserAgent(input.UserAgent)
	event := &PageViewEvent{
		PageID:    pageID,
		VisitorID: input.VisitorID,
		Referrer:  input.Referrer,
		Device:    DeviceClassFromUserAgent(input.UserAgent),
		Country:   CountryFromRequest(logger, input.GeoHeader, input.IPAddress),
		Browser:   browser,
		OS:        os,
		CreatedAt: timestamp,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
	if err != nil {
		logger.Error("Failed to store page view event",
			slog.String("event", "page_view_write_failed"),
			slog.String("slug", input.Slug),
			slog.Any("error", err))
		return fmt.Errorf("failed to store page view event: %w", err)
	}

	return nil
}

// RecordLinkClick resolves the slug and appends one LinkClickEvent.
// Attribution order: explicit link id owned by the page, then exact URL match
// against the page's links, else null attribution. Unattributed clicks still
// count toward page totals.
func RecordLinkClick(dbManager cartridge.DBManager, logger *slog.Logger, input *RecordLinkClickInput) error {
	if input.Slug == "" {
		return fmt.Errorf("link click without slug")
	}

	db := dbManager.GetConnection()

	pageID, err := resolvePageID(db, input.Slug)
	if err != nil {
		return err
	}

	linkID := attributeClick(db, logger, pageID, input)

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	event := &LinkClickEvent{
		PageID:    pageID,
		LinkID:    linkID,
		VisitorID: input.VisitorID,
		Referrer:  input.Referrer,
		CreatedAt: timestamp,
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
	if err != nil {
		logger.Error("Failed to store link click event",
			slog.String("event", "link_click_write_failed"),
			slog.String("slug", input.Slug),
			slog.Any("error", err))
		return fmt.Errorf("failed to store link click event: %w", err)
	}

	return nil
}

// attributeClick resolves which link a click belongs to. Attribution failures
// never reject the click; they only degrade it to page-level.
func attributeClick(db *gorm.DB, logger *slog.Logger, pageID uint, input *RecordLinkClickInput) *uint {
	if input.LinkID != 0 {
		link, err := links.GetLinkByID(db, pageID, input.LinkID)
		if err == nil {
			return &link.ID
		}
		logger.Debug("Click carried a link id that does not belong to the page",
			slog.Uint64("page_id", uint64(pageID)),
			slog.Uint64("link_id", uint64(input.LinkID)))
	}

	if input.URL != "" {
		link, err := links.ResolveLinkByURL(db, pageID, input.URL)
		if err != nil {
			logger.Debug("Failed to resolve click url",
				slog.Uint64("page_id", uint64(pageID)),
				slog.Any("error", err))
		} else if link != nil {
			return &link.ID
		}
	}

	return nil
}
