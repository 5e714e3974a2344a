package database

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var C *gorm.DB

func NewGorm() error {
	var err error
	dialector := postgres.Open(viper.GetString("database.dsn"))
	C, err = gorm.Open(dialector, gormConfig())

	return err
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(&log.Logger, logger.Config{
			Colorful: true,
			LogLevel: logger.Warn,
		}),
		// Without this the driver's duplicate key errors never surface as
		// gorm.ErrDuplicatedKey and every upsert-race branch misfires.
		TranslateError: true,
	}
}
