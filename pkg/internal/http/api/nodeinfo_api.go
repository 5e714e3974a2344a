package api

import (
	"strings"

	pkg "github.com/fernwood-social/fernwood/pkg/internal"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

func getNodeInfoIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"links": []fiber.Map{
			{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": viper.GetString("federation.base_url") + "/nodeinfo/2.0",
			},
			{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				"href": viper.GetString("federation.base_url") + "/nodeinfo/2.1",
			},
		},
	})
}

func getNodeInfo(c *fiber.Ctx) error {
	var userCount int64
	database.C.Model(&models.Account{}).Where("host IS NULL").Count(&userCount)

	var noteCount int64
	database.C.Model(&models.Note{}).
		Joins("JOIN accounts ON accounts.id = notes.author_id").
		Where("accounts.host IS NULL").
		Count(&noteCount)

	version := "2.1"
	if strings.HasSuffix(c.Path(), "2.0") {
		version = "2.0"
	}

	return c.JSON(fiber.Map{
		"version": version,
		"software": fiber.Map{
			"name":    "fernwood",
			"version": pkg.AppVersion,
		},
		"protocols": []string{"activitypub"},
		"services": fiber.Map{
			"inbound":  []string{},
			"outbound": []string{"rss2.0"},
		},
		"openRegistrations": false,
		"usage": fiber.Map{
			"users":      fiber.Map{"total": userCount},
			"localPosts": noteCount,
		},
		"metadata": fiber.Map{
			"nodeName": viper.GetString("federation.domain"),
		},
	})
}
