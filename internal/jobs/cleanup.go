package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"linkfolio/internal/config"
	"linkfolio/internal/database"
)

const cleanupBatchSize = 1000

// CleanupJob removes event rows that no longer serve any dashboard: rows
// older than the retention period and rows orphaned by a page deletion that
// raced with in-flight beacons.
type CleanupJob struct {
	dbManager *database.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager *database.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

var eventTables = []string{"page_view_events", "link_click_events"}

// Run performs one cleanup pass. Deletes happen in batches so the database is
// never locked for long.
func (j *CleanupJob) Run() error {
	for _, table := range eventTables {
		orphanQuery := fmt.Sprintf(`
            DELETE FROM %s WHERE id IN (
                SELECT e.id FROM %s e
                LEFT JOIN pages p ON p.id = e.page_id
                WHERE p.id IS NULL
                LIMIT ?
            )`, table, table)

		deleted, err := j.deleteInBatches(orphanQuery, cleanupBatchSize)
		if err != nil {
			j.logger.Error("Failed to delete orphaned events",
				slog.String("table", table), slog.Any("error", err))
			return err
		}
		if deleted > 0 {
			j.logger.Info("Deleted orphaned events",
				slog.String("table", table), slog.Int64("deleted", deleted))
		}
	}

	retentionDays := j.cfg.EventRetentionDays
	if retentionDays <= 0 {
		return nil
	}

	cutoffDate := time.Now().UTC().AddDate(0, 0, -retentionDays)
	for _, table := range eventTables {
		retentionQuery := fmt.Sprintf(`
            DELETE FROM %s WHERE id IN (
                SELECT id FROM %s
                WHERE created_at < '%s'
                LIMIT ?
            )`, table, table, cutoffDate.Format("2006-01-02 15:04:05"))

		deleted, err := j.deleteInBatches(retentionQuery, cleanupBatchSize)
		if err != nil {
			j.logger.Error("Failed to delete expired events",
				slog.String("table", table), slog.Any("error", err))
			return err
		}
		if deleted > 0 {
			j.logger.Info("Deleted events past retention",
				slog.String("table", table),
				slog.Int("retention_days", retentionDays),
				slog.Int64("deleted", deleted))
		}
	}

	return nil
}

// deleteInBatches re-runs a limited delete until it stops making progress and
// returns the total number of rows removed.
func (j *CleanupJob) deleteInBatches(query string, batchSize int) (int64, error) {
	db := j.dbManager.GetConnection()
	totalDeleted := int64(0)

	for {
		result := db.Exec(query, batchSize)
		if result.Error != nil {
			return totalDeleted, result.Error
		}
		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return totalDeleted, nil
		}
	}
}
