package models

type RelayStatusLevel = int8

const (
	RelayStatusRequesting = RelayStatusLevel(iota)
	RelayStatusAccepted
)

type Relay struct {
	BaseModel

	InboxURI string           `json:"inbox_uri" gorm:"uniqueIndex"`
	Status   RelayStatusLevel `json:"status"`
}
