package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App) {
	app.Get("/.well-known/webfinger", getWebfinger)
	app.Get("/.well-known/nodeinfo", getNodeInfoIndex)
	app.Get("/nodeinfo/2.0", getNodeInfo)
	app.Get("/nodeinfo/2.1", getNodeInfo)

	app.Post("/inbox", postInbox)
	app.Post("/users/:name/inbox", postInbox)

	app.Get("/users/:name", apGetUser)
	app.Get("/users/:name/outbox", apGetOutbox)
	app.Get("/users/:name/followers", apGetFollowers)
	app.Get("/users/:name/following", apGetFollowing)
	app.Get("/users/:name/collections/featured", apGetFeatured)
	app.Get("/users/:name/feed.rss", getUserFeed)

	app.Get("/notes/:noteId", apGetNote)
}
