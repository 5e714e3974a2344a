package api

import (
	"strings"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

type WebFingerResponse struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases"`
	Links   []struct {
		Rel  string `json:"rel"`
		Type string `json:"type,omitempty"`
		Href string `json:"href"`
	} `json:"links"`
}

func getWebfinger(c *fiber.Ctx) error {
	resource := c.Query("resource")

	if len(resource) < 6 || resource[:5] != "acct:" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid resource format")
	}

	acct := resource[5:]
	username, host, hasHost := strings.Cut(acct, "@")
	if username == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid username")
	}
	if hasHost && !strings.EqualFold(host, viper.GetString("federation.domain")) {
		return fiber.NewError(fiber.StatusNotFound, "resource belongs to another instance")
	}

	var account models.Account
	if err := database.C.
		Where("username = ? AND host IS NULL", username).
		First(&account).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	selfHref := services.GetActivityID("/users/" + account.Username).String()
	response := WebFingerResponse{
		Subject: "acct:" + account.Username + "@" + viper.GetString("federation.domain"),
		Aliases: []string{selfHref},
		Links: []struct {
			Rel  string `json:"rel"`
			Type string `json:"type,omitempty"`
			Href string `json:"href"`
		}{
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: selfHref,
			},
		},
	}

	c.Set(fiber.HeaderContentType, "application/jrd+json; charset=utf-8")
	return c.JSON(response)
}
