// Package links manages the ordered link list of a page. Positions are dense
// contiguous non-negative integers per page and are re-normalized after every
// insert, delete and reorder.
package links

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Link represents one outbound URL entry on a page
type Link struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	PageID    uint       `gorm:"index;not null" json:"page_id"`
	Title     string     `gorm:"not null" json:"title"`
	URL       string     `gorm:"not null" json:"url"`
	Position  int        `gorm:"not null" json:"position"`
	Active    bool       `gorm:"default:true" json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	Icon      string     `json:"icon"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsEffectivelyVisible reports whether a visitor should see this link:
// active and either no expiry or an expiry in the future.
func (l *Link) IsEffectivelyVisible(now time.Time) bool {
	if !l.Active {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return false
	}
	return true
}

// GetLinksByPage retrieves all links of a page in display order
func GetLinksByPage(db *gorm.DB, pageID uint) ([]Link, error) {
	var result []Link
	err := db.Where("page_id = ?", pageID).Order("position ASC").Find(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}
	return result, nil
}

// GetVisibleLinksByPage retrieves the links a visitor should see, in display order
func GetVisibleLinksByPage(db *gorm.DB, pageID uint, now time.Time) ([]Link, error) {
	all, err := GetLinksByPage(db, pageID)
	if err != nil {
		return nil, err
	}
	visible := make([]Link, 0, len(all))
	for _, link := range all {
		if link.IsEffectivelyVisible(now) {
			visible = append(visible, link)
		}
	}
	return visible, nil
}

// GetLinkByID retrieves a link scoped to its page
func GetLinkByID(db *gorm.DB, pageID, linkID uint) (*Link, error) {
	var link Link
	err := db.Where("id = ? AND page_id = ?", linkID, pageID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ResolveLinkByURL finds a page's link by exact URL match. Used to attribute
// clicks reported without an explicit link id. Returns nil without error when
// no link matches.
func ResolveLinkByURL(db *gorm.DB, pageID uint, url string) (*Link, error) {
	var link Link
	err := db.Where("page_id = ? AND url = ?", pageID, url).First(&link).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve link by url: %w", err)
	}
	return &link, nil
}

// CountLinksByPage returns the number of links on a page
func CountLinksByPage(db *gorm.DB, pageID uint) (int64, error) {
	var count int64
	err := db.Model(&Link{}).Where("page_id = ?", pageID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// CreateLink appends a link at the end of the page's list
func CreateLink(db *gorm.DB, link *Link) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Link{}).Where("page_id = ?", link.PageID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count links: %w", err)
		}

		now := time.Now().UTC()
		link.Position = int(count)
		link.CreatedAt = now
		link.UpdatedAt = now

		return tx.Create(link).Error
	})
}

// UpdateLink updates a link's mutable fields. Position changes go through
// ReorderLink instead so the density invariant holds.
func UpdateLink(db *gorm.DB, link *Link) error {
	link.UpdatedAt = time.Now().UTC()
	result := db.Model(&Link{}).
		Where("id = ? AND page_id = ?", link.ID, link.PageID).
		Updates(map[string]interface{}{
			"title":      link.Title,
			"url":        link.URL,
			"active":     link.Active,
			"expires_at": link.ExpiresAt,
			"icon":       link.Icon,
			"updated_at": link.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteLink removes a link and closes the gap in positions
func DeleteLink(db *gorm.DB, pageID, linkID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND page_id = ?", linkID, pageID).Delete(&Link{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return normalizePositions(tx, pageID)
	})
}

// ReorderLink moves a link to a new position in the page's list. The target
// position is clamped to the list bounds and all positions are re-normalized.
func ReorderLink(db *gorm.DB, pageID, linkID uint, newPosition int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var ordered []Link
		err := tx.Where("page_id = ?", pageID).Order("position ASC").Find(&ordered).Error
		if err != nil {
			return fmt.Errorf("failed to get links: %w", err)
		}

		from := -1
		for i, link := range ordered {
			if link.ID == linkID {
				from = i
				break
			}
		}
		if from == -1 {
			return gorm.ErrRecordNotFound
		}

		if newPosition < 0 {
			newPosition = 0
		}
		if newPosition > len(ordered)-1 {
			newPosition = len(ordered) - 1
		}

		moved := ordered[from]
		ordered = append(ordered[:from], ordered[from+1:]...)
		ordered = append(ordered[:newPosition], append([]Link{moved}, ordered[newPosition:]...)...)

		for i, link := range ordered {
			if link.Position == i {
				continue
			}
			err := tx.Model(&Link{}).Where("id = ?", link.ID).Update("position", i).Error
			if err != nil {
				return fmt.Errorf("failed to update link position: %w", err)
			}
		}
		return nil
	})
}

// normalizePositions rewrites positions to 0..n-1 keeping relative order
func normalizePositions(tx *gorm.DB, pageID uint) error {
	var ordered []Link
	err := tx.Where("page_id = ?", pageID).Order("position ASC").Find(&ordered).Error
	if err != nil {
		return fmt.Errorf("failed to get links: %w", err)
	}

	for i, link := range ordered {
		if link.Position == i {
			continue
		}
		err := tx.Model(&Link{}).Where("id = ?", link.ID).Update("position", i).Error
		if err != nil {
			return fmt.Errorf("failed to update link position: %w", err)
		}
	}
	return nil
}
