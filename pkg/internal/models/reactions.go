package models

// Reaction is at most one per account per note, enforced by the unique index.
type Reaction struct {
	BaseModel

	Symbol string `json:"symbol"`

	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_reactions_once"`
	NoteID    uint `json:"note_id" gorm:"uniqueIndex:idx_reactions_once"`

	Account Account `json:"account"`
	Note    Note    `json:"note"`
}
