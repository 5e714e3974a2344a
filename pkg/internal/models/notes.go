package models

import (
	"time"

	"gorm.io/datatypes"
)

type NoteVisibilityLevel = int8

const (
	NoteVisibilityPublic = NoteVisibilityLevel(iota)
	NoteVisibilityUnlisted
	NoteVisibilityFollowers
	NoteVisibilityDirect
)

type Note struct {
	BaseModel

	URI *string `json:"uri" gorm:"uniqueIndex"`

	Content        string  `json:"content"`
	ContentWarning *string `json:"content_warning"`
	Language       string  `json:"language"`

	Visibility NoteVisibilityLevel `json:"visibility"`

	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Mentions    datatypes.JSONSlice[uint]   `json:"mentions"`
	Attachments datatypes.JSONSlice[string] `json:"attachments"`

	ReplyID  *uint `json:"reply_id"`
	RenoteID *uint `json:"renote_id"`
	ReplyTo  *Note `json:"reply_to" gorm:"foreignKey:ReplyID"`
	RenoteOf *Note `json:"renote_of" gorm:"foreignKey:RenoteID"`

	EditedAt *time.Time `json:"edited_at"`

	AuthorID uint    `json:"author_id"`
	Author   Account `json:"author"`
}

func (v Note) IsRenote() bool {
	return v.RenoteID != nil && len(v.Content) == 0
}

// NotePin is an entry of an account's featured collection; Rank keeps the
// remote declared ordering.
type NotePin struct {
	BaseModel

	AccountID uint `json:"account_id" gorm:"uniqueIndex:idx_note_pins_once"`
	NoteID    uint `json:"note_id" gorm:"uniqueIndex:idx_note_pins_once"`
	Rank      int  `json:"rank"`

	Note Note `json:"note"`
}
