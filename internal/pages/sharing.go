package pages

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// newShareToken generates a URL-safe, lexicographically sortable token
func newShareToken() string {
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
}

// EnableSharing generates a share token for the page, enabling read-only
// public access to its analytics
func EnableSharing(db *gorm.DB, pageID uint) (string, error) {
	token := newShareToken()
	err := db.Model(&Page{}).
		Where("id = ?", pageID).
		Update("share_token", token).Error
	return token, err
}

// DisableSharing removes the share token, invalidating the public URL
func DisableSharing(db *gorm.DB, pageID uint) error {
	return db.Model(&Page{}).
		Where("id = ?", pageID).
		Update("share_token", nil).Error
}

// GetPageByShareToken finds a page by its public share token
func GetPageByShareToken(db *gorm.DB, token string) (*Page, error) {
	var page Page
	err := db.Where("share_token = ?", token).First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}
