package services

import (
	"strings"
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validActorDocument() ap.Object {
	return ap.Object{
		"@context":          []any{ap.Namespace},
		"id":                "https://remote.test/users/alice",
		"type":              "Person",
		"preferredUsername": "alice",
		"inbox":             "https://remote.test/users/alice/inbox",
		"publicKey": map[string]any{
			"id":           "https://remote.test/users/alice#main-key",
			"publicKeyPem": "-----BEGIN PUBLIC KEY-----",
		},
	}
}

func TestValidateRemoteActor(t *testing.T) {
	assert.NoError(t, ValidateRemoteActor(validActorDocument(), "https://remote.test/users/alice"))
}

func TestValidateRemoteActorRejectsForeignIdentifier(t *testing.T) {
	object := validActorDocument()
	object["id"] = "https://evil.test/users/alice"

	err := ValidateRemoteActor(object, "https://remote.test/users/alice")
	assert.ErrorIs(t, err, ErrActorSpoofed)
}

func TestValidateRemoteActorRejectsForeignKey(t *testing.T) {
	object := validActorDocument()
	object["publicKey"] = map[string]any{
		"id":           "https://evil.test/users/alice#main-key",
		"publicKeyPem": "-----BEGIN PUBLIC KEY-----",
	}

	err := ValidateRemoteActor(object, "https://remote.test/users/alice")
	assert.ErrorIs(t, err, ErrActorSpoofed)
}

func TestValidateRemoteActorRejectsMalformedDocuments(t *testing.T) {
	assert.Error(t, ValidateRemoteActor(nil, "https://remote.test/users/alice"))

	missingInbox := validActorDocument()
	delete(missingInbox, "inbox")
	assert.Error(t, ValidateRemoteActor(missingInbox, "https://remote.test/users/alice"))

	wrongType := validActorDocument()
	wrongType["type"] = "Note"
	assert.Error(t, ValidateRemoteActor(wrongType, "https://remote.test/users/alice"))

	badUsername := validActorDocument()
	badUsername["preferredUsername"] = "al ice!"
	assert.Error(t, ValidateRemoteActor(badUsername, "https://remote.test/users/alice"))
}

func TestValidateRemoteActorAllowsUsernameVariants(t *testing.T) {
	for _, username := range []string{"alice", "a", "alice_2", "alice.bob", "alice-bob"} {
		object := validActorDocument()
		object["preferredUsername"] = username
		assert.NoError(t, ValidateRemoteActor(object, "https://remote.test/users/alice"), username)
	}
	for _, username := range []string{"", ".alice", "alice.", "-alice", "al/ice"} {
		object := validActorDocument()
		object["preferredUsername"] = username
		assert.Error(t, ValidateRemoteActor(object, "https://remote.test/users/alice"), username)
	}
}

func TestBuildRemoteAccountTruncatesFields(t *testing.T) {
	object := validActorDocument()
	object["name"] = strings.Repeat("x", 500)
	object["summary"] = strings.Repeat("y", 5000)

	account := buildRemoteAccount(object, "remote.test")
	assert.Len(t, []rune(account.Name), actorNameLimit)
	assert.Len(t, []rune(account.Profile.Summary), actorSummaryLimit)
	assert.Equal(t, "alice", account.Username)
	assert.False(t, account.IsBot)
	assert.False(t, account.IsLocked)
}

func TestBuildRemoteAccountReadsEndpoints(t *testing.T) {
	object := validActorDocument()
	object["type"] = "Service"
	object["manuallyApprovesFollowers"] = true
	object["endpoints"] = map[string]any{"sharedInbox": "https://remote.test/inbox"}
	object["followers"] = "https://remote.test/users/alice/followers"
	object["featured"] = "https://remote.test/users/alice/collections/featured"

	account := buildRemoteAccount(object, "remote.test")
	assert.True(t, account.IsBot)
	assert.True(t, account.IsLocked)
	assert.Equal(t, "https://remote.test/inbox", *account.SharedInbox)
	assert.Equal(t, "https://remote.test/users/alice/followers", *account.FollowersURI)
	assert.Equal(t, "https://remote.test/users/alice/collections/featured", *account.FeaturedURI)
}

func TestExtractHashtags(t *testing.T) {
	tags := extractHashtags([]any{
		map[string]any{"type": "Hashtag", "name": "#Gardening"},
		map[string]any{"type": "Hashtag", "name": "#gardening"},
		map[string]any{"type": "Mention", "name": "@alice"},
		"not an object",
	})
	assert.Equal(t, []string{"gardening"}, tags)
}

func TestExtractEmojis(t *testing.T) {
	emojis := extractEmojis([]any{
		map[string]any{
			"type": "Emoji",
			"id":   "https://Remote.Test/emojis/blobcat",
			"name": ":blobcat:",
			"icon": map[string]any{"type": "Image", "url": "https://remote.test/files/blobcat.png"},
		},
		map[string]any{"type": "Emoji", "name": ":noicon:"},
	})
	require.Len(t, emojis, 1)
	assert.Equal(t, "blobcat", emojis[0].Name)
	assert.Equal(t, "remote.test", *emojis[0].Host)
	assert.Equal(t, "https://remote.test/files/blobcat.png", emojis[0].URL)
}

func TestExtractEmojisSkipsUnparsableID(t *testing.T) {
	assert.NotPanics(t, func() {
		emojis := extractEmojis([]any{
			map[string]any{
				"type": "Emoji",
				"id":   "https://remote.test/emojis/\x7fbad",
				"name": ":bad:",
				"icon": map[string]any{"type": "Image", "url": "https://remote.test/files/bad.png"},
			},
		})
		assert.Empty(t, emojis)
	})
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héllo", truncateRunes("héllo", 10))
	assert.Equal(t, "hél", truncateRunes("héllo", 3))
	assert.Equal(t, "", truncateRunes("", 3))
}
