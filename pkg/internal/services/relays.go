package services

import (
	"errors"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// SyncConfiguredRelays upserts the relay inboxes listed in the settings file.
// Config-declared relays are trusted, so they start accepted.
func SyncConfiguredRelays() {
	for _, inbox := range viper.GetStringSlice("federation.relays") {
		relay := models.Relay{
			InboxURI: inbox,
			Status:   models.RelayStatusAccepted,
		}
		if err := database.C.Create(&relay).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			log.Warn().Err(err).Str("inbox", inbox).Msg("An error occurred when registering relay...")
			continue
		}
		log.Info().Str("inbox", inbox).Msg("Registered a configured relay...")
	}
}
