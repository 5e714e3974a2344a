package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pkg "github.com/fernwood-social/fernwood/pkg/internal"
	"github.com/fernwood-social/fernwood/pkg/internal/cache"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/http"
	"github.com/fernwood-social/fernwood/pkg/internal/queue"
	"github.com/fernwood-social/fernwood/pkg/internal/queue/processors"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.GreenString(" _____                                         _\n|  ___|__ _ __ _ __ __      _____   ___   __| |\n| |_ / _ \\ '__| '_ \\\\ \\ /\\ / / _ \\ / _ \\ / _` |\n|  _|  __/ |  | | | |\\ V  V / (_) | (_) | (_| |\n|_|  \\___|_|  |_| |_| \\_/\\_/ \\___/ \\___/ \\__,_|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiGreen).Add(color.Bold).Sprintf("Fernwood"), pkg.AppVersion)
	fmt.Printf("The federated social networking server\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Local cache
	if err := cache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when setting up local cache.")
	}

	// Job queues
	if _, err := queue.NewRedis(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to redis.")
	}
	processors.Setup()

	// The instance actor must exist before any signed fetch happens
	if err := services.EnsureInstanceActor(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when ensuring instance actor.")
	}
	services.SyncConfiguredRelays()

	ctx, cancel := context.WithCancel(context.Background())
	processors.Run(ctx)

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc("@every 15s", func() { processors.PumpRetries(ctx) })
	quartz.AddFunc("@every 60m", services.RefreshStaleAccounts)
	quartz.AddFunc("@every 60m", services.DoAutoDatabaseCleanup)
	quartz.Start()

	// Server
	go http.NewServer().Listen()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	quartz.Stop()
}
