package api

import (
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/feeds"
	"github.com/spf13/viper"
)

const feedItemLimit = 20

func getUserFeed(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}

	var notes []models.Note
	if err := database.C.
		Where("author_id = ? AND visibility = ?", account.ID, models.NoteVisibilityPublic).
		Order("id DESC").
		Limit(feedItemLimit).
		Find(&notes).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	baseURL := viper.GetString("federation.base_url")
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s (@%s@%s)", account.Name, account.Username, viper.GetString("federation.domain")),
		Link:        &feeds.Link{Href: account.Address()},
		Description: account.Profile.Summary,
		Author:      &feeds.Author{Name: account.Username},
		Created:     account.CreatedAt,
	}

	for _, note := range notes {
		title := note.Content
		if len([]rune(title)) > 80 {
			title = string([]rune(title)[:80]) + "…"
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s/notes/%d", baseURL, note.ID),
			Title:       title,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/notes/%d", baseURL, note.ID)},
			Description: note.Content,
			Created:     note.CreatedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	c.Set(fiber.HeaderContentType, "application/rss+xml; charset=utf-8")
	return c.SendString(rss)
}
