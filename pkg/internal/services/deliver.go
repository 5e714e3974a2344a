package services

import (
	"context"
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/queue"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ComputeRecipientInboxes flattens follower edges, relays and explicitly
// targeted actors into the distinct set of destination inboxes. A shared
// inbox always wins over the per-actor inbox, so several recipients on one
// host collapse into a single delivery.
func ComputeRecipientInboxes(follows []models.Follow, relays []models.Relay, targets []models.Account) []string {
	inboxes := make([]string, 0, len(follows)+len(relays)+len(targets))

	for _, follow := range follows {
		if follow.FollowerHost == nil {
			continue
		}
		if follow.FollowerSharedInbox != nil {
			inboxes = append(inboxes, *follow.FollowerSharedInbox)
		} else if follow.FollowerInbox != nil {
			inboxes = append(inboxes, *follow.FollowerInbox)
		}
	}

	for _, relay := range relays {
		if relay.Status == models.RelayStatusAccepted {
			inboxes = append(inboxes, relay.InboxURI)
		}
	}

	for _, target := range targets {
		if target.IsLocal() {
			continue
		}
		if inbox := target.InboxURI(); inbox != nil {
			inboxes = append(inboxes, *inbox)
		}
	}

	return lo.Uniq(inboxes)
}

// DeliverToFollowers fans a locally-produced activity out to every remote
// follower of the account, the configured relays, and any extra targets such
// as the author of a note being replied to.
func DeliverToFollowers(account models.Account, activity any, targets ...models.Account) error {
	follows, err := ListFollowerEdges(account)
	if err != nil {
		return err
	}

	var relays []models.Relay
	if err := database.C.Find(&relays).Error; err != nil {
		return fmt.Errorf("unable to list relays: %w", err)
	}

	payload, err := jsoniter.Marshal(activity)
	if err != nil {
		return fmt.Errorf("unable to serialize activity: %w", err)
	}

	inboxes := ComputeRecipientInboxes(follows, relays, targets)
	for _, inbox := range inboxes {
		if err := enqueueDelivery(account, inbox, payload); err != nil {
			log.Warn().Err(err).Str("inbox", inbox).Msg("An error occurred when enqueueing delivery...")
		}
	}

	log.Debug().
		Int("count", len(inboxes)).
		Str("account", account.Acct()).
		Msg("Enqueued activity deliveries...")
	return nil
}

// DeliverTo enqueues a single delivery to one destination inbox.
func DeliverTo(account models.Account, inboxURI string, activity any) error {
	payload, err := jsoniter.Marshal(activity)
	if err != nil {
		return fmt.Errorf("unable to serialize activity: %w", err)
	}
	return enqueueDelivery(account, inboxURI, payload)
}

// DeliverAccept answers an inbound Follow with an Accept addressed to the
// follower's own inbox, never the shared one, per the follow handshake.
func DeliverAccept(followee models.Account, follower models.Account, followActivityURI string) error {
	if follower.Inbox == nil {
		return fmt.Errorf("follower %s has no inbox", follower.Acct())
	}
	return DeliverTo(followee, *follower.Inbox, RenderAccept(followee, followActivityURI))
}

func enqueueDelivery(account models.Account, inboxURI string, payload []byte) error {
	return queue.Deliver.Enqueue(context.Background(), models.DeliverJobData{
		AccountID: account.ID,
		InboxURI:  inboxURI,
		Activity:  payload,
	})
}
