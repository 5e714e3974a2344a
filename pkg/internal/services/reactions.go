package services

import (
	"errors"
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"gorm.io/gorm"
)

// CreateReaction records a reaction, at most one per account per note. A
// duplicate, including one lost to a concurrent race, reports created=false
// instead of an error.
func CreateReaction(account models.Account, note models.Note, symbol string) (bool, error) {
	if symbol == "" {
		symbol = "⭐"
	}

	reaction := models.Reaction{
		Symbol:    symbol,
		AccountID: account.ID,
		NoteID:    note.ID,
	}
	return reactionCreated(database.C.Create(&reaction).Error)
}

func reactionCreated(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return false, fmt.Errorf("unable to create reaction: %w", err)
}

// RemoveReaction deletes the account's reaction on a note if one exists.
func RemoveReaction(account models.Account, note models.Note) (bool, error) {
	tx := database.C.
		Where("account_id = ? AND note_id = ?", account.ID, note.ID).
		Delete(&models.Reaction{})
	if tx.Error != nil {
		return false, fmt.Errorf("unable to remove reaction: %w", tx.Error)
	}
	return tx.RowsAffected > 0, nil
}
