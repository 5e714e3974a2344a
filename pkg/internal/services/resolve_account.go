package services

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// accountRefreshThreshold is how stale a remote account may get before the
// next resolution triggers a WebFinger re-sync.
const accountRefreshThreshold = 24 * time.Hour

// ResolveAccount resolves account@host to an account record. Unknown remote
// accounts are discovered through WebFinger; stale ones are re-synced, which
// may repair the acct-to-identifier mapping when the actor's home identifier
// legitimately moved.
func ResolveAccount(username, host string) (models.Account, error) {
	username = strings.ToLower(username)

	if host == "" || IsSelfHost(host) {
		var account models.Account
		if err := database.C.
			Where("username = ? AND host IS NULL", username).
			First(&account).Error; err != nil {
			return account, fmt.Errorf("unable to find local account %s: %w", username, err)
		}
		return account, nil
	}

	host = strings.ToLower(host)
	acct := fmt.Sprintf("%s@%s", username, host)

	var account models.Account
	err := database.C.
		Where("username = ? AND host = ?", username, host).
		First(&account).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return account, err
		}

		self, err := WebFingerSelf(acct)
		if err != nil {
			return account, err
		}

		log.Info().Str("acct", acct).Msg("Discovered a new remote account...")
		return CreatePerson(self, NewResolver())
	}

	if account.LastFetchedAt == nil || time.Since(*account.LastFetchedAt) > accountRefreshThreshold {
		// Touch before trying, so an unreachable instance is not hammered by
		// every subsequent resolution.
		database.C.Model(&models.Account{}).
			Where("id = ?", account.ID).
			Update("last_fetched_at", time.Now())

		self, err := WebFingerSelf(acct)
		if err != nil {
			return account, err
		}

		if account.URI != nil && *account.URI != self {
			parsed, err := url.Parse(self)
			if err != nil || !strings.EqualFold(parsed.Hostname(), host) {
				return account, fmt.Errorf("refusing uri remap for %s: %s is on a foreign host", acct, self)
			}

			log.Info().
				Str("acct", acct).
				Str("from", *account.URI).
				Str("to", self).
				Msg("Repairing remote account identifier mapping...")

			if err := database.C.Model(&models.Account{}).
				Where("id = ?", account.ID).
				Update("uri", self).Error; err != nil {
				return account, fmt.Errorf("unable to repair account mapping: %w", err)
			}
		}

		if err := UpdatePerson(self, nil, nil); err != nil {
			log.Warn().Err(err).Str("acct", acct).Msg("An error occurred when re-syncing remote account...")
		}

		if err := database.C.Where("uri = ?", self).First(&account).Error; err != nil {
			return account, fmt.Errorf("unable to reload re-synced account: %w", err)
		}
	}

	return account, nil
}

// RefreshStaleAccounts re-syncs the least recently fetched remote accounts;
// wired as an hourly timed task.
func RefreshStaleAccounts() {
	deadline := time.Now().Add(-accountRefreshThreshold)

	var accounts []models.Account
	if err := database.C.
		Where("host IS NOT NULL AND (last_fetched_at IS NULL OR last_fetched_at < ?)", deadline).
		Order("last_fetched_at ASC NULLS FIRST").
		Limit(20).
		Find(&accounts).Error; err != nil {
		log.Error().Err(err).Msg("An error occurred when listing stale accounts...")
		return
	}

	if viper.GetBool("debug.no_refresh") || len(accounts) == 0 {
		return
	}

	log.Debug().Int("count", len(accounts)).Msg("Refreshing stale remote accounts...")
	for _, account := range accounts {
		if account.Host == nil {
			continue
		}
		if _, err := ResolveAccount(account.Username, *account.Host); err != nil {
			log.Debug().Err(err).Str("acct", account.Acct()).Msg("An error occurred when refreshing remote account...")
		}
	}
}
