package services

import (
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
)

const cleanupGracePeriod = 30 * 24 * time.Hour

// DoAutoDatabaseCleanup purges soft-deleted rows past their grace period and
// drops pins whose note is gone.
func DoAutoDatabaseCleanup() {
	deadline := time.Now().Add(-cleanupGracePeriod)
	log.Debug().Time("deadline", deadline).Msg("Now cleaning up entire database...")

	var count int64
	for _, model := range []any{
		&models.Reaction{},
		&models.NotePin{},
		&models.Note{},
		&models.Follow{},
		&models.Account{},
	} {
		tx := database.C.Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", deadline).
			Delete(model)
		if tx.Error != nil {
			log.Warn().Err(tx.Error).Msg("An error occurred when cleaning up database...")
			continue
		}
		count += tx.RowsAffected
	}

	database.C.Where("note_id NOT IN (SELECT id FROM notes WHERE deleted_at IS NULL)").Delete(&models.NotePin{})

	log.Debug().Int64("affected", count).Msg("Clean up entire database accomplished.")
}
