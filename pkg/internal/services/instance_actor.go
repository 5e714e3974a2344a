package services

import (
	"errors"
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InstanceActorName is the reserved local account used to sign resolver
// fetches when the federation policy demands signed GETs.
const InstanceActorName = "instance.actor"

func GetInstanceActor() (models.Account, error) {
	var account models.Account
	err := database.C.
		Where("username = ? AND host IS NULL", InstanceActorName).
		First(&account).Error
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return account, fmt.Errorf("unable to fetch instance actor: %w", err)
	}

	return createLocalAccount(InstanceActorName, "Instance Actor", true)
}

// EnsureInstanceActor is called at boot so the keypair exists before any
// signed fetch is attempted.
func EnsureInstanceActor() error {
	_, err := GetInstanceActor()
	return err
}

func createLocalAccount(username, name string, isBot bool) (models.Account, error) {
	privatePem, publicPem, err := GenerateKeypair()
	if err != nil {
		return models.Account{}, fmt.Errorf("unable to generate keypair: %w", err)
	}

	account := models.Account{
		Username:      username,
		Name:          name,
		IsBot:         isBot,
		PrivateKeyPem: &privatePem,
		Profile:       models.AccountProfile{},
	}

	err = database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		key := models.AccountPublicKey{
			AccountID: account.ID,
			KeyID:     account.Address() + "#main-key",
			KeyPem:    publicPem,
		}
		return tx.Create(&key).Error
	})
	if err != nil {
		return account, fmt.Errorf("unable to create local account: %w", err)
	}

	log.Info().Str("username", username).Msg("Created a local account...")
	return account, nil
}

// CreateLocalAccount registers a regular local user account with its keypair.
func CreateLocalAccount(username, name string) (models.Account, error) {
	return createLocalAccount(username, name, false)
}
