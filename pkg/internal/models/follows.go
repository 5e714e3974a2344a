package models

type FollowStatusLevel = int8

const (
	FollowStatusPending = FollowStatusLevel(iota)
	FollowStatusAccepted
)

// Follow links follower to followee. Inbox URIs of the follower are
// denormalized here so delivery fan-out never joins back onto accounts;
// they are re-propagated whenever the remote actor is re-fetched.
type Follow struct {
	BaseModel

	FollowerID uint `json:"follower_id" gorm:"uniqueIndex:idx_follows_pair"`
	FolloweeID uint `json:"followee_id" gorm:"uniqueIndex:idx_follows_pair"`

	Follower Account `json:"follower"`
	Followee Account `json:"followee"`

	FollowerHost        *string `json:"follower_host"`
	FollowerInbox       *string `json:"follower_inbox"`
	FollowerSharedInbox *string `json:"follower_shared_inbox"`
	FolloweeHost        *string `json:"followee_host"`

	ActivityURI *string           `json:"activity_uri" gorm:"index"`
	Status      FollowStatusLevel `json:"status"`
}
