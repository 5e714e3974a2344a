package models

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gorm.io/datatypes"
)

type CollectionVisibilityLevel = int8

const (
	CollectionVisibilityAll = CollectionVisibilityLevel(iota)
	CollectionVisibilityFollowers
	CollectionVisibilityNone
)

// Account is a federation-addressable actor, local or remote.
// Remote accounts have a non-nil Host and URI; local accounts own a private key.
type Account struct {
	BaseModel

	Username string  `json:"username" gorm:"uniqueIndex:idx_accounts_acct"`
	Host     *string `json:"host" gorm:"uniqueIndex:idx_accounts_acct"`
	URI      *string `json:"uri" gorm:"uniqueIndex"`

	Name   string                      `json:"name"`
	Tags   datatypes.JSONSlice[string] `json:"tags"`
	Avatar string                      `json:"avatar"`
	Banner string                      `json:"banner"`
	Emojis datatypes.JSONSlice[string] `json:"emojis"`

	Inbox        *string `json:"inbox"`
	SharedInbox  *string `json:"shared_inbox"`
	FollowersURI *string `json:"followers_uri"`
	FeaturedURI  *string `json:"featured_uri"`
	MovedToURI   *string `json:"moved_to_uri"`

	IsBot       bool `json:"is_bot"`
	IsLocked    bool `json:"is_locked"`
	IsSuspended bool `json:"is_suspended"`

	FollowerVisibility CollectionVisibilityLevel `json:"follower_visibility"`

	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	NotesCount     int64 `json:"notes_count"`

	LastFetchedAt *time.Time `json:"last_fetched_at"`

	PrivateKeyPem *string `json:"-"`

	Profile   AccountProfile    `json:"profile"`
	PublicKey *AccountPublicKey `json:"public_key"`
}

func (v Account) IsLocal() bool {
	return v.Host == nil
}

// Acct renders the account@host form, host omitted for local accounts.
func (v Account) Acct() string {
	if v.Host == nil {
		return v.Username
	}
	return fmt.Sprintf("%s@%s", v.Username, *v.Host)
}

// Address is the canonical identifier URI of the account.
func (v Account) Address() string {
	if v.URI != nil {
		return *v.URI
	}
	return viper.GetString("federation.base_url") + "/users/" + v.Username
}

// InboxURI prefers the shared inbox when one is known.
func (v Account) InboxURI() *string {
	if v.SharedInbox != nil {
		return v.SharedInbox
	}
	return v.Inbox
}

type AccountProfile struct {
	BaseModel

	AccountID uint `json:"account_id" gorm:"uniqueIndex"`

	Summary  string            `json:"summary"`
	URL      *string           `json:"url"`
	Fields   datatypes.JSONMap `json:"fields"`
	Location *string           `json:"location"`
	Birthday *string           `json:"birthday"`
}

type AccountPublicKey struct {
	BaseModel

	AccountID uint   `json:"account_id" gorm:"uniqueIndex"`
	KeyID     string `json:"key_id" gorm:"uniqueIndex"`
	KeyPem    string `json:"key_pem"`
}
