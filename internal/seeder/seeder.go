// Package seeder populates a development database with demo pages, links and
// a few weeks of traffic so dashboards have something to show.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"linkfolio/internal/events"
	"linkfolio/internal/links"
	"linkfolio/internal/pages"
	"linkfolio/internal/users"
)

// Seeder handles the demo data seeding process.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	EventCount int
}

// NewSeeder creates a new seeder instance.
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, eventCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		EventCount: eventCount,
	}
}

type demoPage struct {
	slug        string
	displayName string
	bio         string
	linkTitles  []string
}

var demoPages = []demoPage{
	{
		slug:        "ada-codes",
		displayName: "Ada",
		bio:         "Software engineer. Links to everything I make.",
		linkTitles:  []string{"Blog", "GitHub", "Newsletter", "Latest talk"},
	},
	{
		slug:        "studio-mave",
		displayName: "Studio Mave",
		bio:         "Independent design studio.",
		linkTitles:  []string{"Portfolio", "Shop", "Instagram", "Contact"},
	},
	{
		slug:        "lofi-radio",
		displayName: "LoFi Radio",
		bio:         "24/7 beats. All platforms below.",
		linkTitles:  []string{"Spotify", "YouTube", "Apple Music", "Merch", "Discord"},
	},
}

var demoReferrers = []string{
	"",
	"https://www.google.com/search?q=links",
	"https://twitter.com/somebody/status/1",
	"https://www.instagram.com/",
	"https://t.co/abc123",
	"https://example.com/blog?utm_source=newsletter",
}

var demoUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
}

var demoCountries = []string{"US", "DE", "GB", "BR", "JP", "FR", "unknown"}

// Run seeds the demo user, pages, links and traffic.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding demo data...", slog.Int("eventCount", s.EventCount))

	db := s.DBManager.GetConnection()

	users.SetupAdminUserIfNotExists(db, "demo@linkfolio.local")
	demoUser, err := users.FindByEmail(db, "demo@linkfolio.local")
	if err != nil {
		return fmt.Errorf("failed to load demo user: %w", err)
	}

	perPage := s.EventCount / len(demoPages)
	for _, dp := range demoPages {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page, pageLinks, err := s.ensurePage(db, demoUser.ID, dp)
		if err != nil {
			return fmt.Errorf("failed to seed page %s: %w", dp.slug, err)
		}

		if err := s.generateTraffic(ctx, db, page, pageLinks, perPage); err != nil {
			return fmt.Errorf("failed to generate traffic for %s: %w", dp.slug, err)
		}
	}

	s.Logger.Info("Seeding completed", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// SeedPage seeds traffic for one existing page identified by slug.
func (s *Seeder) SeedPage(ctx context.Context, slug string) error {
	db := s.DBManager.GetConnection()

	page, err := pages.GetPageBySlug(db, slug)
	if err != nil {
		return fmt.Errorf("page %q not found: %w", slug, err)
	}

	pageLinks, err := links.GetLinksByPage(db, page.ID)
	if err != nil {
		return fmt.Errorf("failed to load links: %w", err)
	}

	return s.generateTraffic(ctx, db, page, pageLinks, s.EventCount)
}

func (s *Seeder) ensurePage(db *gorm.DB, userID uint, dp demoPage) (*pages.Page, []links.Link, error) {
	page, err := pages.GetPageBySlug(db, dp.slug)
	if err == nil {
		pageLinks, linksErr := links.GetLinksByPage(db, page.ID)
		return page, pageLinks, linksErr
	}

	page = &pages.Page{
		UserID:      userID,
		Slug:        dp.slug,
		DisplayName: dp.displayName,
		Bio:         dp.bio,
	}
	err = sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
		return pages.CreatePage(tx, page)
	})
	if err != nil {
		return nil, nil, err
	}

	var pageLinks []links.Link
	for _, title := range dp.linkTitles {
		link := &links.Link{
			PageID: page.ID,
			Title:  title,
			URL:    fmt.Sprintf("https://example.com/%s/%s", dp.slug, strings.ReplaceAll(strings.ToLower(title), " ", "-")),
			Active: true,
		}
		err = sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			return links.CreateLink(tx, link)
		})
		if err != nil {
			return nil, nil, err
		}
		pageLinks = append(pageLinks, *link)
	}

	s.Logger.Info("Created demo page", slog.String("slug", page.Slug), slog.Int("links", len(pageLinks)))
	return page, pageLinks, nil
}

// generateTraffic writes view and click events spread over the last 30 days.
// Events are inserted directly rather than through the ingestion path so
// seeding does not depend on GeoIP data being present.
func (s *Seeder) generateTraffic(ctx context.Context, db *gorm.DB, page *pages.Page, pageLinks []links.Link, count int) error {
	now := time.Now().UTC()

	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		visitorID := fmt.Sprintf("seed-visitor-%d", rand.IntN(count/3+1))
		createdAt := now.Add(-time.Duration(rand.IntN(30*24*60)) * time.Minute)
		userAgent := demoUserAgents[rand.IntN(len(demoUserAgents))]
		referrer := demoReferrers[rand.IntN(len(demoReferrers))]

		browser, osName := events.BrowserAndOSFromUserAgent(userAgent)
		view := &events.PageViewEvent{
			PageID:    page.ID,
			VisitorID: visitorID,
			Referrer:  referrer,
			Device:    events.DeviceClassFromUserAgent(userAgent),
			Country:   demoCountries[rand.IntN(len(demoCountries))],
			Browser:   browser,
			OS:        osName,
			CreatedAt: createdAt,
		}

		err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			if err := tx.Create(view).Error; err != nil {
				return err
			}

			// Roughly a third of views convert into a click.
			if len(pageLinks) > 0 && rand.IntN(3) == 0 {
				link := pageLinks[rand.IntN(len(pageLinks))]
				click := &events.LinkClickEvent{
					PageID:    page.ID,
					LinkID:    &link.ID,
					VisitorID: visitorID,
					Referrer:  referrer,
					CreatedAt: createdAt.Add(time.Duration(rand.IntN(120)) * time.Second),
				}
				return tx.Create(click).Error
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	s.Logger.Info("Generated demo traffic", slog.String("slug", page.Slug), slog.Int("views", count))
	return nil
}
