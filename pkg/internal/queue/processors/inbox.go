package processors

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/fernwood-social/fernwood/pkg/internal/services"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// ProcessInbox interprets one gated inbox submission: it locates the signing
// actor, replays the cryptographic verification, and hands the activity to
// the kernel. Only transient failures come back as errors.
func ProcessInbox(ctx context.Context, payload jsoniter.RawMessage) (string, error) {
	var data models.InboxJobData
	if err := jsoniter.Unmarshal(payload, &data); err != nil {
		return "skip: undecodable job payload", nil
	}

	var decoded map[string]any
	if err := jsoniter.Unmarshal(data.Body, &decoded); err != nil {
		return "skip: body is not a json document", nil
	}
	activity, err := ap.ParseActivity(ap.Object(decoded))
	if err != nil {
		return fmt.Sprintf("skip: %v", err), nil
	}

	actorHost, err := hostOf(activity.Actor)
	if err != nil {
		return fmt.Sprintf("skip: unparseable actor %s", activity.Actor), nil
	}
	if services.IsHostBlocked(actorHost) {
		return "skip (blocked)", nil
	}
	if suspended, err := services.IsInstanceSuspended(actorHost); err == nil && suspended {
		return "skip (suspended)", nil
	}

	actor, fresh, err := resolveSigner(data.Signature.KeyID, activity.Actor)
	if err != nil {
		return "", err
	}
	if actor == nil {
		return fmt.Sprintf("skip: unable to locate signer of %s", data.Signature.KeyID), nil
	}
	if actor.Address() != activity.Actor {
		return "skip: signature key does not belong to the activity actor", nil
	}
	if actor.PublicKey == nil {
		return fmt.Sprintf("skip: actor %s has no known public key", actor.Acct()), nil
	}

	if err := services.VerifySignature(data.Signature, actor.PublicKey.KeyPem, data.Body); err != nil {
		// A stale cached key is the common benign cause; refresh the actor
		// once and retry before giving up.
		if fresh {
			return "skip: signature verification failed", nil
		}
		if uerr := services.UpdatePerson(activity.Actor, nil, nil); uerr != nil {
			log.Debug().Err(uerr).Str("actor", activity.Actor).Msg("An error occurred when refreshing signer key...")
			return "skip: signature verification failed", nil
		}
		refreshed, ferr := services.FetchPerson(activity.Actor)
		if ferr != nil || refreshed == nil || refreshed.PublicKey == nil {
			return "skip: signature verification failed", nil
		}
		if err := services.VerifySignature(data.Signature, refreshed.PublicKey.KeyPem, data.Body); err != nil {
			return "skip: signature verification failed", nil
		}
		actor = refreshed
	}

	go services.TouchInstanceInbound(actorHost)

	return services.PerformActivity(*actor, activity, services.NewResolver())
}

// resolveSigner finds the account owning a signature key, fetching the actor
// from its origin when the key has never been seen. The second return value
// reports whether the account document was freshly fetched.
func resolveSigner(keyID string, actorURI string) (*models.Account, bool, error) {
	if account, err := services.FetchPersonByKeyID(keyID); err != nil {
		return nil, false, err
	} else if account != nil {
		return account, false, nil
	}

	if account, err := services.FetchPerson(actorURI); err != nil {
		return nil, false, err
	} else if account != nil {
		return account, false, nil
	}

	account, err := services.CreatePerson(actorURI, services.NewResolver())
	if err != nil {
		if strings.Contains(err.Error(), "invalid actor") {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unable to resolve signer: %w", err)
	}

	// Creation does not preload relations; reload to get the key row.
	reloaded, err := services.FetchPerson(account.Address())
	if err != nil || reloaded == nil {
		return &account, true, nil
	}
	return reloaded, true, nil
}

func hostOf(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("no host in %s", uri)
	}
	return parsed.Host, nil
}
