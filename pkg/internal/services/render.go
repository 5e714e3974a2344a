package services

import (
	"fmt"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/models"
	vocab "github.com/go-ap/activitypub"
	"github.com/samber/lo"
)

// RenderActor renders a local account as its public federation document.
func RenderActor(account models.Account) map[string]any {
	url := localActorURL(account)

	actor := map[string]any{
		"@context":          []any{"https://www.w3.org/ns/activitystreams", "https://w3id.org/security/v1"},
		"id":                url,
		"type":              lo.Ternary(account.IsBot, string(vocab.ServiceType), string(vocab.PersonType)),
		"preferredUsername": account.Username,
		"name":              account.Name,
		"summary":           account.Profile.Summary,
		"url":               url,
		"inbox":             url + "/inbox",
		"outbox":            url + "/outbox",
		"followers":         url + "/followers",
		"following":         url + "/following",
		"featured":          url + "/collections/featured",
		"endpoints": map[string]any{
			"sharedInbox": string(GetActivityID("/inbox")),
		},
		"manuallyApprovesFollowers": account.IsLocked,
	}

	if account.Avatar != "" {
		actor["icon"] = map[string]any{"type": "Image", "url": account.Avatar}
	}
	if account.Banner != "" {
		actor["image"] = map[string]any{"type": "Image", "url": account.Banner}
	}
	if account.PublicKey != nil {
		actor["publicKey"] = map[string]any{
			"id":           account.PublicKey.KeyID,
			"owner":        url,
			"publicKeyPem": account.PublicKey.KeyPem,
		}
	}

	return actor
}

// RenderNote renders a local note as an AS2 Note object.
func RenderNote(note models.Note, author models.Account) vocab.Object {
	url := string(GetActivityID(fmt.Sprintf("/notes/%d", note.ID)))

	object := vocab.Object{
		ID:           vocab.ID(url),
		Type:         vocab.NoteType,
		AttributedTo: vocab.IRI(localActorURL(author)),
		Content:      vocab.DefaultNaturalLanguageValue(note.Content),
		Published:    note.CreatedAt,
		URL:          vocab.IRI(url),
	}
	if note.Visibility == models.NoteVisibilityPublic {
		object.To = vocab.ItemCollection{vocab.PublicNS}
		object.CC = vocab.ItemCollection{vocab.IRI(localActorURL(author) + "/followers")}
	}
	return object
}

// RenderCreate wraps a local note into its Create activity for outbox pages
// and delivery payloads.
func RenderCreate(note models.Note, author models.Account) vocab.Activity {
	object := RenderNote(note, author)
	return vocab.Activity{
		ID:        vocab.ID(string(object.ID) + "/activity"),
		Type:      vocab.CreateType,
		Actor:     vocab.IRI(localActorURL(author)),
		Object:    object,
		Published: note.CreatedAt,
		To:        object.To,
		CC:        object.CC,
	}
}

// RenderAccept answers a Follow. The object is the follow activity's own
// identifier, which is what the remote side keyed the handshake on.
func RenderAccept(account models.Account, followActivityURI string) map[string]any {
	return map[string]any{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id":       fmt.Sprintf("%s#accepts/%d", localActorURL(account), time.Now().UnixMilli()),
		"type":     "Accept",
		"actor":    localActorURL(account),
		"object":   followActivityURI,
	}
}

// RenderOrderedCollection is the index page of a paginated collection.
func RenderOrderedCollection(id string, total int64, first string) map[string]any {
	return map[string]any{
		"@context":   "https://www.w3.org/ns/activitystreams",
		"id":         id,
		"type":       "OrderedCollection",
		"totalItems": total,
		"first":      first,
	}
}

// RenderOrderedCollectionPage is one cursor-bounded page; next is empty when
// the collection is exhausted.
func RenderOrderedCollectionPage(id string, total int64, items []any, partOf, next string) map[string]any {
	page := map[string]any{
		"@context":     "https://www.w3.org/ns/activitystreams",
		"id":           id,
		"type":         "OrderedCollectionPage",
		"totalItems":   total,
		"partOf":       partOf,
		"orderedItems": items,
	}
	if next != "" {
		page["next"] = next
	}
	return page
}

func localActorURL(account models.Account) string {
	return string(GetActivityID("/users/" + account.Username))
}
