package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/cache"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"linkfolio/internal"
	"linkfolio/internal/config"
	"linkfolio/internal/events"
	"linkfolio/internal/links"
	"linkfolio/internal/pages"
	"linkfolio/internal/subscriptions"
	"linkfolio/internal/users"
)

// SessionCookieName is the expected cookie name for session cookies in tests.
// This must match the pattern used in routes.go: cfg.AppName + "_session"
const SessionCookieName = "linkfolio_session"

// Tests must never run against a development or production database. Default
// the environment to test before the config singleton is built; an explicitly
// set LINKFOLIO_ENV still wins and trips the safety check below.
func init() {
	if os.Getenv("LINKFOLIO_ENV") == "" {
		os.Setenv("LINKFOLIO_ENV", "test")
		config.Reset()
	}
}

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with linkfolio's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all linkfolio models for migration
func allModels() []any {
	return []any{
		&cache.CacheRecord{},
		&users.User{},
		&pages.Page{},
		&links.Link{},
		&events.PageViewEvent{},
		&events.LinkClickEvent{},
		&subscriptions.UpgradeIntent{},
	}
}

// SetupTestDB creates a test database with all linkfolio models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by root test name so subtests reuse it.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	cfg := config.GetConfig()

	// SAFETY CHECK: Ensure we're in test environment
	if cfg.Environment != config.Test {
		t.Fatalf("CRITICAL: Tests must run in test environment! Current: %s. Set LINKFOLIO_ENV=test", cfg.Environment)
	}

	db := SetupTestDB(t)
	logger := GetLogger()
	dbManager := NewTestDBManager(db)

	return dbManager, logger
}

// SetupTestDBManagerWithPage creates a test database manager with a page
// owned by a fresh user.
func SetupTestDBManagerWithPage(t *testing.T, slug string) (*TestDBManager, *slog.Logger, pages.Page) {
	dbManager, logger := SetupTestDBManager(t)
	db := dbManager.GetConnection()

	user := CreateTestUser(db, slug+"@example.com", "password")
	page := CreateTestPage(t, db, user.ID, slug)
	return dbManager, logger, page
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	var tables []string
	for _, name := range tableNames {
		if name != "migrations" && name != "schema_migrations" {
			tables = append(tables, name)
		}
	}

	if len(tables) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CleanTables cleans specific tables or all tables if none specified
func CleanTables(db *gorm.DB, tables []string) {
	if len(tables) == 0 {
		CleanAllTables(db)
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestUser creates a test user in the database
func CreateTestUser(db *gorm.DB, email, password string) users.User {
	var user users.User
	if db.Where("email = ?", email).First(&user).Error == nil {
		return user
	}

	user = users.User{
		Email:             email,
		EncryptedPassword: password,
		Plan:              users.PlanFree,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	db.Create(&user)
	return user
}

// CreateTestUserForAuth creates a user with properly hashed password for auth testing
func CreateTestUserForAuth(t *testing.T, db *gorm.DB, email, password string) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &users.User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
		Plan:              users.PlanFree,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestPage creates a page owned by the given user
func CreateTestPage(t *testing.T, db *gorm.DB, userID uint, slug string) pages.Page {
	t.Helper()

	var page pages.Page
	if db.Where("slug = ?", slug).First(&page).Error == nil {
		return page
	}

	page = pages.Page{
		UserID:      userID,
		Slug:        slug,
		DisplayName: slug,
		Theme:       "default",
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.Create(&page).Error)
	return page
}

// CreateTestLink appends a link to a page at the next position
func CreateTestLink(t *testing.T, db *gorm.DB, pageID uint, title, url string) links.Link {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&links.Link{}).Where("page_id = ?", pageID).Count(&count).Error)

	link := links.Link{
		PageID:   pageID,
		Title:    title,
		URL:      url,
		Position: int(count),
		Active:   true,
	}
	require.NoError(t, db.Create(&link).Error)
	return link
}

// CreateTestPageView inserts one page view event directly
func CreateTestPageView(t *testing.T, db *gorm.DB, pageID uint, visitorID, referrer, device, country string, createdAt time.Time) events.PageViewEvent {
	t.Helper()

	event := events.PageViewEvent{
		PageID:    pageID,
		VisitorID: visitorID,
		Referrer:  referrer,
		Device:    device,
		Country:   country,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// CreateTestLinkClick inserts one link click event directly. linkID may be
// nil for unattributed clicks.
func CreateTestLinkClick(t *testing.T, db *gorm.DB, pageID uint, linkID *uint, visitorID string, createdAt time.Time) events.LinkClickEvent {
	t.Helper()

	event := events.LinkClickEvent{
		PageID:    pageID,
		LinkID:    linkID,
		VisitorID: visitorID,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CreateMinimalTestApp creates a test Fiber app with all routes
func CreateMinimalTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager
	// Enable SecFetchSite validation in tests to match production behavior
	// This blocks requests without Sec-Fetch-Site header (server-to-server requests)
	cfg.EnableSecFetchSite = true
	cfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// LoginTestUser logs in via the JSON endpoint and returns the session cookie
// value.
func LoginTestUser(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var sessionValue string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			sessionValue = cookie.Value
			break
		}
	}
	require.NotEmpty(t, sessionValue)

	return sessionValue
}
