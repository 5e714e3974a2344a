package services

import (
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestComputeRecipientInboxesPrefersSharedInbox(t *testing.T) {
	follows := []models.Follow{
		{
			FollowerHost:        lo.ToPtr("remote.test"),
			FollowerInbox:       lo.ToPtr("https://remote.test/users/alice/inbox"),
			FollowerSharedInbox: lo.ToPtr("https://remote.test/inbox"),
		},
		{
			FollowerHost:        lo.ToPtr("remote.test"),
			FollowerInbox:       lo.ToPtr("https://remote.test/users/bob/inbox"),
			FollowerSharedInbox: lo.ToPtr("https://remote.test/inbox"),
		},
		{
			FollowerHost:  lo.ToPtr("lonely.test"),
			FollowerInbox: lo.ToPtr("https://lonely.test/users/carol/inbox"),
		},
	}

	inboxes := ComputeRecipientInboxes(follows, nil, nil)
	assert.ElementsMatch(t, []string{
		"https://remote.test/inbox",
		"https://lonely.test/users/carol/inbox",
	}, inboxes)
}

func TestComputeRecipientInboxesSkipsLocalEdges(t *testing.T) {
	follows := []models.Follow{
		{FollowerHost: nil, FollowerInbox: lo.ToPtr("https://self.test/users/dave/inbox")},
	}

	assert.Empty(t, ComputeRecipientInboxes(follows, nil, nil))
}

func TestComputeRecipientInboxesIncludesAcceptedRelays(t *testing.T) {
	relays := []models.Relay{
		{InboxURI: "https://relay.test/inbox", Status: models.RelayStatusAccepted},
		{InboxURI: "https://pending.test/inbox", Status: models.RelayStatusRequesting},
	}

	inboxes := ComputeRecipientInboxes(nil, relays, nil)
	assert.Equal(t, []string{"https://relay.test/inbox"}, inboxes)
}

func TestComputeRecipientInboxesTargets(t *testing.T) {
	local := models.Account{Username: "dave"}
	remote := models.Account{
		Username:    "erin",
		Host:        lo.ToPtr("remote.test"),
		Inbox:       lo.ToPtr("https://remote.test/users/erin/inbox"),
		SharedInbox: lo.ToPtr("https://remote.test/inbox"),
	}
	follows := []models.Follow{
		{
			FollowerHost:        lo.ToPtr("remote.test"),
			FollowerSharedInbox: lo.ToPtr("https://remote.test/inbox"),
		},
	}

	// The target collapses into the follower fan-out on the same host.
	inboxes := ComputeRecipientInboxes(follows, nil, []models.Account{local, remote})
	assert.Equal(t, []string{"https://remote.test/inbox"}, inboxes)
}
