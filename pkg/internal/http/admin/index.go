package admin

import "github.com/gofiber/fiber/v2"

func MapControllers(app *fiber.App, baseURL string) {
	admin := app.Group(baseURL)
	{
		admin.Get("/instances", adminListInstances)
		admin.Post("/instances/:host/suspend", adminSuspendInstance)
		admin.Delete("/instances/:host/suspend", adminUnsuspendInstance)

		admin.Get("/queues", adminGetQueueStats)
		admin.Post("/queues/pump", adminPumpQueues)

		admin.Post("/accounts", adminCreateAccount)
		admin.Post("/accounts/refresh", adminRefreshStaleAccounts)
	}
}
