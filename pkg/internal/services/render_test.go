package services

import (
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderActor(t *testing.T) {
	viper.Set("federation.base_url", "https://local.test")

	account := models.Account{
		Username: "dave",
		Name:     "Dave",
		IsLocked: true,
		Profile:  models.AccountProfile{Summary: "gardener"},
		PublicKey: &models.AccountPublicKey{
			KeyID:  "https://local.test/users/dave#main-key",
			KeyPem: "-----BEGIN PUBLIC KEY-----",
		},
	}

	actor := RenderActor(account)
	assert.Equal(t, "https://local.test/users/dave", actor["id"])
	assert.Equal(t, "Person", actor["type"])
	assert.Equal(t, "dave", actor["preferredUsername"])
	assert.Equal(t, true, actor["manuallyApprovesFollowers"])
	assert.Equal(t, "https://local.test/users/dave/inbox", actor["inbox"])

	key, ok := actor["publicKey"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://local.test/users/dave#main-key", key["id"])
	assert.Equal(t, "https://local.test/users/dave", key["owner"])

	bot := account
	bot.IsBot = true
	assert.Equal(t, "Service", RenderActor(bot)["type"])
}

func TestRenderAccept(t *testing.T) {
	viper.Set("federation.base_url", "https://local.test")

	account := models.Account{Username: "dave"}
	accept := RenderAccept(account, "https://remote.test/activities/1")

	assert.Equal(t, "Accept", accept["type"])
	assert.Equal(t, "https://local.test/users/dave", accept["actor"])
	assert.Equal(t, "https://remote.test/activities/1", accept["object"])
	assert.Contains(t, accept["id"], "https://local.test/users/dave#accepts/")
}

func TestRenderOrderedCollectionPage(t *testing.T) {
	page := RenderOrderedCollectionPage(
		"https://local.test/users/dave/followers?page=true",
		12,
		[]any{"a", "b"},
		"https://local.test/users/dave/followers",
		"https://local.test/users/dave/followers?page=true&cursor=42",
	)
	assert.Equal(t, "OrderedCollectionPage", page["type"])
	assert.Equal(t, int64(12), page["totalItems"])
	assert.Contains(t, page, "next")

	last := RenderOrderedCollectionPage("id", 2, []any{}, "part", "")
	assert.NotContains(t, last, "next")
}
