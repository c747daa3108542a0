// Package subscriptions gates plan-limited features and stubs the upgrade
// flow. There is no real payment processing; upgrades record an intent and
// hand back a checkout URL that a payment processor would own in production.
package subscriptions

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/config"
	"linkfolio/internal/links"
	"linkfolio/internal/users"
)

// ErrLinkLimitReached is returned when a free-plan page is at its link cap.
var ErrLinkLimitReached = errors.New("link limit reached for the free plan")

// UpgradeIntent records that a user asked to upgrade. A payment webhook would
// normally flip Status; here the checkout URL is a stub.
type UpgradeIntent struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    uint   `gorm:"index;not null"`
	Status    string `gorm:"default:'pending'"` // pending, completed, abandoned
	CreatedAt time.Time
}

// CheckoutSession is what the upgrade endpoint returns to the dashboard.
type CheckoutSession struct {
	IntentID uint   `json:"intent_id"`
	URL      string `json:"url"`
}

// CheckLinkLimit verifies the user may add another link to the page.
// Pro users are unlimited; free users are capped by configuration.
func CheckLinkLimit(db *gorm.DB, user *users.User, pageID uint) error {
	if user.IsPro() {
		return nil
	}

	count, err := links.CountLinksByPage(db, pageID)
	if err != nil {
		return err
	}

	if count >= int64(config.GetConfig().FreePlanMaxLinks) {
		return ErrLinkLimitReached
	}
	return nil
}

// StartUpgrade records an upgrade intent and returns the stub checkout
// session. Already-pro users get an error instead of a second checkout.
func StartUpgrade(db *gorm.DB, logger *slog.Logger, user *users.User) (*CheckoutSession, error) {
	if user.IsPro() {
		return nil, errors.New("user is already on the pro plan")
	}

	intent := &UpgradeIntent{
		UserID:    user.ID,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(intent).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record upgrade intent: %w", err)
	}

	return &CheckoutSession{
		IntentID: intent.ID,
		URL:      fmt.Sprintf("https://checkout.example.com/upgrade/%d", intent.ID),
	}, nil
}

// CompleteUpgrade marks an intent completed and switches the user to pro.
// In production this would run from the payment processor's webhook. The
// intent must belong to userID; an unknown id and someone else's intent are
// both gorm.ErrRecordNotFound.
func CompleteUpgrade(db *gorm.DB, logger *slog.Logger, userID, intentID uint) error {
	var intent UpgradeIntent
	if err := db.First(&intent, intentID).Error; err != nil {
		return err
	}
	if intent.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	if intent.Status == "completed" {
		return nil
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&UpgradeIntent{}).
			Where("id = ?", intent.ID).
			Update("status", "completed").Error
	})
	if err != nil {
		return fmt.Errorf("failed to complete upgrade intent: %w", err)
	}

	return users.SetPlan(db, intent.UserID, users.PlanPro)
}
