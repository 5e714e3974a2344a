package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// PerformActivity interprets one verified inbound activity and applies its
// local side effect. The returned string is the job outcome for logging;
// an error is returned only when the job should be retried. Unknown types
// are a no-op so vocabulary extensions never fail a job.
func PerformActivity(actor models.Account, activity *ap.Activity, resolver *Resolver) (string, error) {
	if actor.IsSuspended {
		return "skip: actor is suspended", nil
	}
	if actor.IsLocal() {
		return "skip: activity claims a local actor", nil
	}

	switch activity.Kind {
	case ap.KindCreate:
		return performCreate(actor, activity, resolver)
	case ap.KindUpdate:
		return performUpdate(actor, activity, resolver)
	case ap.KindDelete:
		return performDelete(actor, activity)
	case ap.KindFollow:
		return performFollow(actor, activity, resolver)
	case ap.KindAccept:
		return performAccept(actor, activity)
	case ap.KindReject:
		return performReject(actor, activity)
	case ap.KindAdd:
		return performAdd(actor, activity)
	case ap.KindRemove:
		return performRemove(actor, activity)
	case ap.KindUndo:
		return performUndo(actor, activity)
	case ap.KindLike:
		return performLike(actor, activity)
	case ap.KindAnnounce:
		return performAnnounce(actor, activity, resolver)
	case ap.KindMove:
		return performMove(actor, activity)
	case ap.KindFlag:
		return performFlag(actor, activity)
	case ap.KindUnknown:
		return fmt.Sprintf("skip: unknown activity type %s", activity.Type), nil
	default:
		return fmt.Sprintf("skip: unhandled activity kind %s", activity.Kind), nil
	}
}

func performCreate(actor models.Account, activity *ap.Activity, resolver *Resolver) (string, error) {
	object, ok := ap.AsObject(activity.Object)
	if !ok {
		resolved, err := resolver.Resolve(activity.ObjectID())
		if err != nil {
			return "", fmt.Errorf("unable to resolve created object: %w", err)
		}
		object = resolved
	}

	if ap.IdentifierOf(object["attributedTo"]) != actor.Address() {
		return "skip: object is not attributed to the activity actor", nil
	}

	if exist, _ := FetchNote(object.ID()); exist != nil {
		return "skip: note already exists", nil
	}

	if _, err := CreateRemoteNote(object, resolver); err != nil {
		if isValidationFailure(err) {
			return fmt.Sprintf("skip: %v", err), nil
		}
		return "", err
	}
	return "ok", nil
}

func performUpdate(actor models.Account, activity *ap.Activity, resolver *Resolver) (string, error) {
	object, ok := ap.AsObject(activity.Object)
	if !ok {
		return "skip: update without an embedded object", nil
	}

	if ap.IsActor(object) {
		if object.ID() != actor.Address() {
			return "skip: update for a different actor", nil
		}
		if err := UpdatePerson(object.ID(), resolver, object); err != nil {
			if isValidationFailure(err) {
				return fmt.Sprintf("skip: %v", err), nil
			}
			return "", err
		}
		return "ok", nil
	}

	note, err := FetchNote(object.ID())
	if err != nil {
		return "", err
	}
	if note == nil {
		return fmt.Sprintf("skip: target note not found %s", object.ID()), nil
	}
	if note.AuthorID != actor.ID {
		return "skip: note belongs to another actor", nil
	}

	content := object.Str("content")
	if err := database.C.Model(note).Updates(map[string]any{
		"content":   content,
		"language":  DetectLanguage(content),
		"edited_at": lo.ToPtr(time.Now()),
	}).Error; err != nil {
		return "", err
	}
	return "ok", nil
}

func performDelete(actor models.Account, activity *ap.Activity) (string, error) {
	uri := activity.ObjectID()
	if uri == "" {
		return "skip: delete without an object", nil
	}

	// Deleting their own actor document means the account is gone.
	if uri == actor.Address() {
		database.C.Model(&models.Account{}).
			Where("id = ?", actor.ID).
			Update("is_suspended", true)
		return "ok: actor deleted", nil
	}

	note, err := FetchNote(uri)
	if err != nil {
		return "", err
	}
	if note == nil {
		return fmt.Sprintf("skip: target note not found %s", uri), nil
	}
	if note.AuthorID != actor.ID {
		return "skip: note belongs to another actor", nil
	}

	if err := DeleteNoteCascade(*note); err != nil {
		return "", err
	}
	return "ok: deleted", nil
}

func performFollow(actor models.Account, activity *ap.Activity, resolver *Resolver) (string, error) {
	followee, err := FetchPerson(activity.ObjectID())
	if err != nil {
		return "", err
	}
	if followee == nil {
		return fmt.Sprintf("skip: followee not found %s", activity.ObjectID()), nil
	}

	return CreateFollowFromRemote(actor, *followee, activity.ID)
}

func performAccept(actor models.Account, activity *ap.Activity) (string, error) {
	inner, err := activity.InnerActivity()
	if err != nil || inner.Kind != ap.KindFollow {
		// Accept of a plain URI still refers to our Follow activity.
		uri := activity.ObjectID()
		if uri == "" {
			return "skip: accept without an object", nil
		}
		if ok, err := AcceptOutboundFollow(actor, uri); err != nil {
			return "", err
		} else if !ok {
			return "skip: no pending follow to accept", nil
		}
		return "ok", nil
	}

	if ok, err := AcceptOutboundFollow(actor, inner.ID); err != nil {
		return "", err
	} else if !ok {
		return "skip: no pending follow to accept", nil
	}
	return "ok", nil
}

func performReject(actor models.Account, activity *ap.Activity) (string, error) {
	if ok, err := RejectOutboundFollow(actor, activity.ObjectID()); err != nil {
		return "", err
	} else if !ok {
		return "skip: no pending follow to reject", nil
	}
	return "ok", nil
}

func performAdd(actor models.Account, activity *ap.Activity) (string, error) {
	if actor.FeaturedURI == nil || activity.Target != *actor.FeaturedURI {
		return "skip: add target is not the featured collection", nil
	}
	if err := UpdateFeaturedCollection(actor.ID); err != nil {
		return "", err
	}
	return "ok", nil
}

func performRemove(actor models.Account, activity *ap.Activity) (string, error) {
	if actor.FeaturedURI == nil || activity.Target != *actor.FeaturedURI {
		return "skip: remove target is not the featured collection", nil
	}
	if err := UpdateFeaturedCollection(actor.ID); err != nil {
		return "", err
	}
	return "ok", nil
}

func performUndo(actor models.Account, activity *ap.Activity) (string, error) {
	inner, err := activity.InnerActivity()
	if err != nil {
		return fmt.Sprintf("skip: %v", err), nil
	}
	if inner.Actor != actor.Address() {
		return "skip: undo of another actor's activity", nil
	}

	switch inner.Kind {
	case ap.KindFollow:
		followee, err := FetchPerson(inner.ObjectID())
		if err != nil {
			return "", err
		}
		if followee == nil {
			return "skip: followee not found", nil
		}
		if removed, err := RemoveFollow(actor, *followee); err != nil {
			return "", err
		} else if !removed {
			return "skip: no such follow", nil
		}
		return "ok", nil

	case ap.KindLike:
		note, err := FetchNote(inner.ObjectID())
		if err != nil {
			return "", err
		}
		if note == nil {
			return "skip: target note not found", nil
		}
		if removed, err := RemoveReaction(actor, *note); err != nil {
			return "", err
		} else if !removed {
			return "skip: no such reaction", nil
		}
		return "ok", nil

	case ap.KindAnnounce:
		renote, err := FetchNote(inner.ID)
		if err != nil {
			return "", err
		}
		if renote == nil {
			return "skip: no such announce", nil
		}
		if err := DeleteNoteCascade(*renote); err != nil {
			return "", err
		}
		return "ok: deleted", nil

	case ap.KindAccept:
		return "skip: undo accept is not supported", nil

	default:
		return fmt.Sprintf("skip: undo of %s is not supported", inner.Type), nil
	}
}

func performLike(actor models.Account, activity *ap.Activity) (string, error) {
	note, err := FetchNote(activity.ObjectID())
	if err != nil {
		return "", err
	}
	if note == nil {
		return fmt.Sprintf("skip: target note not found %s", activity.ObjectID()), nil
	}

	symbol := activity.Content
	if symbol == "" {
		symbol = activity.Raw.Str("name")
	}

	created, err := CreateReaction(actor, *note, symbol)
	if err != nil {
		return "", err
	}
	if !created {
		return "skip: already reacted", nil
	}
	return "ok", nil
}

func performAnnounce(actor models.Account, activity *ap.Activity, resolver *Resolver) (string, error) {
	uri := activity.ObjectID()
	if uri == "" {
		return "skip: announce without an object", nil
	}

	target, err := ResolveNote(uri, resolver)
	if err != nil {
		if isValidationFailure(err) {
			return fmt.Sprintf("skip: %v", err), nil
		}
		return "", fmt.Errorf("unable to resolve announce target: %w", err)
	}

	if exist, _ := FetchNote(activity.ID); exist != nil {
		return "skip: already announced", nil
	}

	if _, err := CreateRemoteRenote(actor, activity.ID, *target); err != nil {
		return "", err
	}
	return "ok", nil
}

func performMove(actor models.Account, activity *ap.Activity) (string, error) {
	target := activity.Target
	if target == "" {
		target = ap.IdentifierOf(activity.Raw["target"])
	}
	if target == "" {
		return "skip: move without a target", nil
	}

	if err := database.C.Model(&models.Account{}).
		Where("id = ?", actor.ID).
		Update("moved_to_uri", target).Error; err != nil {
		return "", err
	}
	return "ok", nil
}

func performFlag(actor models.Account, activity *ap.Activity) (string, error) {
	log.Info().
		Str("actor", actor.Acct()).
		Str("object", activity.ObjectID()).
		Str("content", activity.Content).
		Msg("Received a remote report...")
	return "ok: report logged", nil
}

// isValidationFailure separates terminal validation problems from transient
// resolution failures so the worker does not retry a payload that can never
// become valid.
func isValidationFailure(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range []error{ErrActorSpoofed, ErrHostBlocked, ErrCycle, ErrInvalidResponse} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return strings.Contains(err.Error(), "invalid actor")
}
