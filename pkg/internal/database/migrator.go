package database

import (
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.AccountProfile{},
	&models.AccountPublicKey{},
	&models.Instance{},
	&models.Note{},
	&models.NotePin{},
	&models.Follow{},
	&models.Emoji{},
	&models.Relay{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(
		append(
			AutoMaintainRange,
			&models.Reaction{},
		)...,
	); err != nil {
		return err
	}

	return nil
}
