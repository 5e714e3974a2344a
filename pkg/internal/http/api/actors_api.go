package api

import (
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

const collectionPageSize = 10

func fetchLocalAccount(name string) (models.Account, error) {
	var account models.Account
	if err := database.C.
		Where("username = ? AND host IS NULL", name).
		Preload("Profile").
		Preload("PublicKey").
		First(&account).Error; err != nil {
		return account, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if account.IsSuspended {
		return account, fiber.NewError(fiber.StatusGone, "account is suspended")
	}
	return account, nil
}

func apGetUser(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")
	return c.JSON(services.RenderActor(account))
}

func apGetFollowers(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}
	if account.FollowerVisibility != models.CollectionVisibilityAll {
		return fiber.NewError(fiber.StatusForbidden, "follower list is not public")
	}

	collectionID := account.Address() + "/followers"
	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")

	if !c.QueryBool("page", false) {
		return c.JSON(services.RenderOrderedCollection(
			collectionID,
			account.FollowersCount,
			collectionID+"?page=true",
		))
	}

	tx := database.C.
		Where("followee_id = ? AND status = ?", account.ID, models.FollowStatusAccepted)
	if cursor := c.QueryInt("cursor", 0); cursor > 0 {
		tx = tx.Where("id < ?", cursor)
	}

	var follows []models.Follow
	if err := tx.Order("id DESC").Limit(collectionPageSize + 1).Find(&follows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	next := ""
	if len(follows) > collectionPageSize {
		follows = follows[:collectionPageSize]
		next = fmt.Sprintf("%s?page=true&cursor=%d", collectionID, follows[len(follows)-1].ID)
	}

	items := followAddresses(follows, func(f models.Follow) uint { return f.FollowerID })
	return c.JSON(services.RenderOrderedCollectionPage(
		pageID(c, collectionID),
		account.FollowersCount,
		items,
		collectionID,
		next,
	))
}

func apGetFollowing(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}
	if account.FollowerVisibility != models.CollectionVisibilityAll {
		return fiber.NewError(fiber.StatusForbidden, "following list is not public")
	}

	collectionID := account.Address() + "/following"
	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")

	if !c.QueryBool("page", false) {
		return c.JSON(services.RenderOrderedCollection(
			collectionID,
			account.FollowingCount,
			collectionID+"?page=true",
		))
	}

	tx := database.C.
		Where("follower_id = ? AND status = ?", account.ID, models.FollowStatusAccepted)
	if cursor := c.QueryInt("cursor", 0); cursor > 0 {
		tx = tx.Where("id < ?", cursor)
	}

	var follows []models.Follow
	if err := tx.Order("id DESC").Limit(collectionPageSize + 1).Find(&follows).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	next := ""
	if len(follows) > collectionPageSize {
		follows = follows[:collectionPageSize]
		next = fmt.Sprintf("%s?page=true&cursor=%d", collectionID, follows[len(follows)-1].ID)
	}

	items := followAddresses(follows, func(f models.Follow) uint { return f.FolloweeID })
	return c.JSON(services.RenderOrderedCollectionPage(
		pageID(c, collectionID),
		account.FollowingCount,
		items,
		collectionID,
		next,
	))
}

func apGetFeatured(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}

	var pins []models.NotePin
	if err := database.C.
		Where("account_id = ?", account.ID).
		Order("rank ASC").
		Find(&pins).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	var notes []models.Note
	if len(pins) > 0 {
		noteIDs := lo.Map(pins, func(pin models.NotePin, _ int) uint { return pin.NoteID })
		database.C.Where("id IN ?", noteIDs).Find(&notes)
	}

	items := make([]any, 0, len(notes))
	for _, note := range notes {
		items = append(items, services.RenderNote(note, account))
	}

	collectionID := account.Address() + "/collections/featured"
	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")
	return c.JSON(services.RenderOrderedCollectionPage(collectionID, int64(len(items)), items, collectionID, ""))
}

func apGetOutbox(c *fiber.Ctx) error {
	account, err := fetchLocalAccount(c.Params("name"))
	if err != nil {
		return err
	}

	collectionID := account.Address() + "/outbox"
	c.Set(fiber.HeaderContentType, "application/activity+json; charset=utf-8")

	if !c.QueryBool("page", false) {
		return c.JSON(services.RenderOrderedCollection(
			collectionID,
			account.NotesCount,
			collectionID+"?page=true",
		))
	}

	tx := database.C.
		Where("author_id = ? AND visibility IN ?", account.ID, []int8{
			models.NoteVisibilityPublic,
			models.NoteVisibilityUnlisted,
		})
	if cursor := c.QueryInt("cursor", 0); cursor > 0 {
		tx = tx.Where("id < ?", cursor)
	}

	var notes []models.Note
	if err := tx.Order("id DESC").Limit(collectionPageSize + 1).Find(&notes).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	next := ""
	if len(notes) > collectionPageSize {
		notes = notes[:collectionPageSize]
		next = fmt.Sprintf("%s?page=true&cursor=%d", collectionID, notes[len(notes)-1].ID)
	}

	items := make([]any, 0, len(notes))
	for _, note := range notes {
		items = append(items, services.RenderCreate(note, account))
	}

	return c.JSON(services.RenderOrderedCollectionPage(
		pageID(c, collectionID),
		account.NotesCount,
		items,
		collectionID,
		next,
	))
}

func followAddresses(follows []models.Follow, pick func(models.Follow) uint) []any {
	if len(follows) == 0 {
		return []any{}
	}

	ids := lo.Map(follows, func(f models.Follow, _ int) uint { return pick(f) })
	var accounts []models.Account
	database.C.Where("id IN ?", ids).Find(&accounts)

	byID := lo.SliceToMap(accounts, func(a models.Account) (uint, models.Account) { return a.ID, a })

	// Keep the cursor order of the follow rows, not the account query order.
	items := make([]any, 0, len(follows))
	for _, follow := range follows {
		if account, ok := byID[pick(follow)]; ok {
			items = append(items, account.Address())
		}
	}
	return items
}

func pageID(c *fiber.Ctx, collectionID string) string {
	if cursor := c.QueryInt("cursor", 0); cursor > 0 {
		return fmt.Sprintf("%s?page=true&cursor=%d", collectionID, cursor)
	}
	return collectionID + "?page=true"
}
