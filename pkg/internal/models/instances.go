package models

import "time"

// Instance is one remote federation peer, created on first contact and never
// deleted, only marked suspended.
type Instance struct {
	BaseModel

	Host     string    `json:"host" gorm:"uniqueIndex"`
	CaughtAt time.Time `json:"caught_at"`

	SoftwareName    *string `json:"software_name"`
	SoftwareVersion *string `json:"software_version"`

	UsersCount     int64 `json:"users_count"`
	NotesCount     int64 `json:"notes_count"`
	FollowingCount int64 `json:"following_count"`
	FollowersCount int64 `json:"followers_count"`

	LatestRequestSentAt *time.Time `json:"latest_request_sent_at"`
	LatestStatus        *int       `json:"latest_status"`
	LastCommunicatedAt  time.Time  `json:"last_communicated_at"`

	IsNotResponding bool `json:"is_not_responding"`
	IsSuspended     bool `json:"is_suspended"`
}
