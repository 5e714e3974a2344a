package admin

import (
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func adminCreateAccount(c *fiber.Ctx) error {
	var data struct {
		Username string `json:"username" validate:"required"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&data); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if data.Username == "" {
		return fiber.NewError(fiber.StatusBadRequest, "username is required")
	}

	account, err := services.CreateLocalAccount(data.Username, data.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(account)
}

func adminRefreshStaleAccounts(c *fiber.Ctx) error {
	go services.RefreshStaleAccounts()
	return c.SendStatus(fiber.StatusAccepted)
}
