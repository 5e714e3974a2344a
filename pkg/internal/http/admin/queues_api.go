package admin

import (
	"github.com/fernwood-social/fernwood/pkg/internal/queue"
	"github.com/gofiber/fiber/v2"
)

func adminPumpQueues(c *fiber.Ctx) error {
	queue.Deliver.PumpRetries(c.Context())
	queue.Inbox.PumpRetries(c.Context())
	return c.SendStatus(fiber.StatusNoContent)
}

func adminGetQueueStats(c *fiber.Ctx) error {
	deliverWaiting, deliverScheduled := queue.Deliver.Depth(c.Context())
	inboxWaiting, inboxScheduled := queue.Inbox.Depth(c.Context())

	return c.JSON(fiber.Map{
		"deliver": fiber.Map{
			"waiting":   deliverWaiting,
			"scheduled": deliverScheduled,
		},
		"inbox": fiber.Map{
			"waiting":   inboxWaiting,
			"scheduled": inboxScheduled,
		},
	})
}
