package http

import (
	"github.com/fernwood-social/fernwood/pkg/internal/http/admin"
	"github.com/fernwood-social/fernwood/pkg/internal/http/api"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type App struct {
	app *fiber.App
}

func NewServer() *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnablePrintRoutes:     viper.GetBool("debug.print_routes"),
		EnableIPValidation:    true,
		ServerHeader:          "Fernwood",
		AppName:               "Fernwood",
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
	})

	api.MapAPIs(app)
	admin.MapControllers(app, "/admin")

	return &App{app}
}

func (v *App) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting http server.")
	}
}
