package api

import (
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func apGetNote(c *fiber.Ctx) error {
	noteId, err := c.ParamsInt("noteId", 0)
	if err != nil || noteId < 1 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid note id")
	}

	var note models.Note
	if err := database.C.
		Where("id = ?", noteId).
		Preload("Author").
		First(&note).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	// Remote notes and restricted visibilities are not served; their home
	// instance is the authority for them.
	if !note.Author.IsLocal() {
		return fiber.NewError(fiber.StatusNotFound, "note is not local")
	}
	if note.Visibility != models.NoteVisibilityPublic && note.Visibility != models.NoteVisibilityUnlisted {
		return fiber.NewError(fiber.StatusNotFound, "note is not public")
	}

	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")
	return c.JSON(services.RenderNote(note, note.Author))
}
