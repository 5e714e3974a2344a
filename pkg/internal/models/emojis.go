package models

type Emoji struct {
	BaseModel

	Name string  `json:"name" gorm:"uniqueIndex:idx_emojis_acct"`
	Host *string `json:"host" gorm:"uniqueIndex:idx_emojis_acct"`
	URI  *string `json:"uri"`
	URL  string  `json:"url"`
}
