package pages

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PageNotFoundError represents an error when a page is not found.
// Ownership checks return the same error so callers cannot distinguish
// "does not exist" from "owned by someone else".
type PageNotFoundError struct {
	Slug   string
	PageID uint
}

func (e *PageNotFoundError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("page not found for slug: %s", e.Slug)
	}
	return fmt.Sprintf("page not found: %d", e.PageID)
}

// NewPageNotFoundError creates a new PageNotFoundError for a slug lookup
func NewPageNotFoundError(slug string) *PageNotFoundError {
	return &PageNotFoundError{Slug: slug}
}

// NewPageNotFoundByIDError creates a new PageNotFoundError for an id lookup
func NewPageNotFoundByIDError(id uint) *PageNotFoundError {
	return &PageNotFoundError{PageID: id}
}

// Page represents a published link-in-bio profile
type Page struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Slug        string    `gorm:"unique;not null" json:"slug"` // Public URL segment, immutable after creation
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	Theme       string    `gorm:"default:'default'" json:"theme"`
	Languages   string    `json:"languages"`                      // JSON-encoded list of language codes
	SocialIcons string    `json:"social_icons"`                   // JSON-encoded list of {network, url}
	ShareToken  *string   `gorm:"uniqueIndex" json:"share_token"` // If set, analytics are publicly readable at /share/{token}
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// NormalizeSlug lowercases and trims a candidate slug
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}

// ValidateSlug checks a candidate slug against the allowed shape
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("invalid slug: %q", slug)
	}
	return nil
}

// GetPageOrNotFound resolves a slug to a page id inside an existing transaction.
// Unknown slugs map to PageNotFoundError so ingestion can drop the event quietly.
func GetPageOrNotFound(tx *gorm.DB, slug string) (uint, error) {
	var page Page
	if err := tx.Where("slug = ?", NormalizeSlug(slug)).First(&page).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, NewPageNotFoundError(slug)
		}
		return 0, fmt.Errorf("unexpected error querying page: %w", err)
	}
	return page.ID, nil
}

// GetPageBySlug retrieves a page by its slug
func GetPageBySlug(db *gorm.DB, slug string) (*Page, error) {
	var page Page
	if err := db.Where("slug = ?", NormalizeSlug(slug)).First(&page).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewPageNotFoundError(slug)
		}
		return nil, err
	}
	return &page, nil
}

// GetOwnedPage retrieves a page only if it belongs to the given user.
// A missing page and a page owned by someone else both return
// PageNotFoundError.
func GetOwnedPage(db *gorm.DB, userID, pageID uint) (*Page, error) {
	var page Page
	err := db.Where("id = ? AND user_id = ?", pageID, userID).First(&page).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewPageNotFoundByIDError(pageID)
		}
		return nil, fmt.Errorf("unexpected error querying page: %w", err)
	}
	return &page, nil
}

// GetPagesByUser retrieves all pages belonging to a user
func GetPagesByUser(db *gorm.DB, userID uint) ([]Page, error) {
	var result []Page
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	return result, nil
}

// CreatePage creates a new page. The slug is claimed here and never changes
// afterwards; renaming would break published URLs and analytics continuity.
func CreatePage(db *gorm.DB, page *Page) error {
	page.Slug = NormalizeSlug(page.Slug)
	if err := ValidateSlug(page.Slug); err != nil {
		return err
	}

	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now

	if page.Theme == "" {
		page.Theme = "default"
	}

	return db.Create(page).Error
}

// UpdatePage updates the mutable profile fields of a page. The slug column is
// deliberately excluded from the update set.
func UpdatePage(db *gorm.DB, page *Page) error {
	page.UpdatedAt = time.Now().UTC()
	return db.Model(&Page{}).Where("id = ?", page.ID).Updates(map[string]interface{}{
		"display_name": page.DisplayName,
		"bio":          page.Bio,
		"theme":        page.Theme,
		"languages":    page.Languages,
		"social_icons": page.SocialIcons,
		"updated_at":   page.UpdatedAt,
	}).Error
}

// DeletePage deletes a page and cascades to its links and events.
// Event rows are only ever removed through this cascade.
func DeletePage(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM links WHERE page_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete links: %w", err)
		}
		if err := tx.Exec("DELETE FROM page_view_events WHERE page_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete page view events: %w", err)
		}
		if err := tx.Exec("DELETE FROM link_click_events WHERE page_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete link click events: %w", err)
		}

		result := tx.Delete(&Page{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IsSlugAvailable reports whether a slug can still be claimed
func IsSlugAvailable(db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.Model(&Page{}).Where("slug = ?", NormalizeSlug(slug)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check slug availability: %w", err)
	}
	return count == 0, nil
}

// PageWithStats represents a page with additional event statistics
type PageWithStats struct {
	ID        uint      `json:"id"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	ViewCount int64     `json:"view_count"`
}

// GetPagesWithStats retrieves a user's pages enriched with view counts
func GetPagesWithStats(db *gorm.DB, userID uint, daysBack int) ([]PageWithStats, error) {
	owned, err := GetPagesByUser(db, userID)
	if err != nil {
		return nil, err
	}

	result := make([]PageWithStats, len(owned))
	timeLimit := time.Now().UTC().AddDate(0, 0, -daysBack)

	for i, page := range owned {
		var viewCount int64
		err := db.Table("page_view_events").
			Where("page_id = ? AND created_at >= ?", page.ID, timeLimit).
			Count(&viewCount).Error
		if err != nil {
			// On error, default to 0 but continue
			viewCount = 0
		}

		result[i] = PageWithStats{
			ID:        page.ID,
			Slug:      page.Slug,
			CreatedAt: page.CreatedAt,
			ViewCount: viewCount,
		}
	}

	return result, nil
}
