package admin

import (
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func adminListInstances(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	var count int64
	if err := database.C.Model(&models.Instance{}).Count(&count).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var instances []models.Instance
	if err := database.C.
		Order("last_communicated_at DESC").
		Limit(take).
		Offset(offset).
		Find(&instances).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  instances,
	})
}

func adminSuspendInstance(c *fiber.Ctx) error {
	if err := services.SetInstanceSuspended(c.Params("host"), true); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func adminUnsuspendInstance(c *fiber.Ctx) error {
	if err := services.SetInstanceSuspended(c.Params("host"), false); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
