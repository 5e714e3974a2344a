package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FetchNote returns an already-known note by URI, local or remote.
func FetchNote(uri string) (*models.Note, error) {
	baseURL := viper.GetString("federation.base_url")
	if strings.HasPrefix(uri, baseURL+"/notes/") {
		id, err := strconv.ParseUint(uri[strings.LastIndex(uri, "/")+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid local note uri: %s", uri)
		}
		var note models.Note
		if err := database.C.Where("id = ?", id).First(&note).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &note, nil
	}

	var note models.Note
	if err := database.C.Where("uri = ?", uri).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// ResolveNote returns the note behind a URI or inline object, creating the
// local record from the remote document when unknown. Nested resolutions
// (reply chain, author) share the caller's resolution chain.
func ResolveNote(value any, resolver *Resolver) (*models.Note, error) {
	if resolver == nil {
		resolver = NewResolver()
	}

	if uri := ap.IdentifierOf(value); uri != "" {
		if exist, err := FetchNote(uri); err != nil {
			return nil, err
		} else if exist != nil {
			return exist, nil
		}
	}

	object, err := resolver.Resolve(value)
	if err != nil {
		return nil, err
	}

	return CreateRemoteNote(object, resolver)
}

// CreateRemoteNote persists a remote note. The attributed author must live on
// the same host as the note's identifier, mirroring the actor spoof check.
func CreateRemoteNote(object ap.Object, resolver *Resolver) (*models.Note, error) {
	if object.Type() != "Note" && object.Type() != "Article" && object.Type() != "Question" {
		return nil, fmt.Errorf("unsupported note type: %s", object.Type())
	}

	uri := object.ID()
	if uri == "" {
		return nil, fmt.Errorf("remote note has no id")
	}

	authorURI := ap.IdentifierOf(object["attributedTo"])
	if authorURI == "" {
		return nil, fmt.Errorf("remote note has no attributedTo")
	}

	noteHost, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("unparseable note uri: %w", err)
	}
	authorHost, err := url.Parse(authorURI)
	if err != nil || !strings.EqualFold(noteHost.Hostname(), authorHost.Hostname()) {
		return nil, fmt.Errorf("%w: note on %s attributed to %s", ErrActorSpoofed, noteHost.Hostname(), authorURI)
	}

	author, err := ResolvePerson(authorURI, resolver)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve note author: %w", err)
	}

	content := object.Str("content")
	note := models.Note{
		URI:        lo.ToPtr(uri),
		Content:    content,
		Language:   DetectLanguage(content),
		Visibility: visibilityOf(object),
		Tags:       datatypes.NewJSONSlice(extractHashtags(object["tag"])),
		AuthorID:   author.ID,
	}
	if summary := object.Str("summary"); summary != "" {
		note.ContentWarning = &summary
	}

	// The reply chain is walked through the same chain, so a self-referential
	// thread trips the resolver's cycle guard instead of recursing forever.
	if inReplyTo := ap.IdentifierOf(object["inReplyTo"]); inReplyTo != "" {
		if parent, err := ResolveNote(inReplyTo, resolver); err != nil {
			log.Debug().Err(err).Str("uri", inReplyTo).Msg("An error occurred when resolving reply parent...")
		} else if parent != nil {
			note.ReplyID = &parent.ID
		}
	}

	if mentions := resolveMentions(object["tag"], resolver); len(mentions) > 0 {
		note.Mentions = datatypes.NewJSONSlice(mentions)
	}

	if attachments, ok := object["attachment"].([]any); ok {
		urls := make([]string, 0, len(attachments))
		for _, entry := range attachments {
			if doc, ok := ap.AsObject(entry); ok && doc.Str("url") != "" {
				urls = append(urls, doc.Str("url"))
			}
		}
		note.Attachments = datatypes.NewJSONSlice(urls)
	}

	if err := database.C.Create(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return FetchNote(uri)
		}
		return nil, fmt.Errorf("unable to create remote note: %w", err)
	}

	database.C.Model(&models.Account{}).
		Where("id = ?", author.ID).
		Update("notes_count", gorm.Expr("notes_count + 1"))
	if author.Host != nil {
		go BumpInstanceCounters(*author.Host, "notes_count", 1)
	}

	return &note, nil
}

// CreateRemoteRenote records an Announce as a content-less note.
func CreateRemoteRenote(actor models.Account, activityURI string, target models.Note) (*models.Note, error) {
	note := models.Note{
		URI:        lo.ToPtr(activityURI),
		Visibility: models.NoteVisibilityPublic,
		RenoteID:   &target.ID,
		AuthorID:   actor.ID,
	}
	if err := database.C.Create(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return FetchNote(activityURI)
		}
		return nil, err
	}
	return &note, nil
}

// DeleteNoteCascade tombstones a note and everything hanging off it, walking
// replies and renotes as an explicit worklist with a visited set so reply
// cycles cannot recurse unboundedly.
func DeleteNoteCascade(root models.Note) error {
	visited := map[uint]struct{}{}
	worklist := []uint{root.ID}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]
		if _, seen := visited[id]; seen {
			continue
		}
		visited[id] = struct{}{}

		var children []models.Note
		if err := database.C.
			Where("reply_id = ? OR renote_id = ?", id, id).
			Select("id").
			Find(&children).Error; err != nil {
			return err
		}
		for _, child := range children {
			worklist = append(worklist, child.ID)
		}
	}

	ids := lo.Keys(visited)
	return database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("note_id IN ?", ids).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("note_id IN ?", ids).Delete(&models.NotePin{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Note{}).Error
	})
}

func visibilityOf(object ap.Object) models.NoteVisibilityLevel {
	to := object.StrSlice("to")
	cc := object.StrSlice("cc")

	if lo.Contains(to, ap.PublicAddress) {
		return models.NoteVisibilityPublic
	}
	if lo.Contains(cc, ap.PublicAddress) {
		return models.NoteVisibilityUnlisted
	}
	if len(to)+len(cc) > 0 {
		return models.NoteVisibilityFollowers
	}
	return models.NoteVisibilityDirect
}

// resolveMentions turns Mention tags into local account ids. Each mention is
// an independent resolution chain; failures drop the mention only.
func resolveMentions(value any, resolver *Resolver) []uint {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}

	var ids []uint
	for _, entry := range entries {
		obj, ok := ap.AsObject(entry)
		if !ok || obj.Type() != "Mention" || obj.Str("href") == "" {
			continue
		}
		account, err := ResolvePerson(obj.Str("href"), NewResolver())
		if err != nil {
			log.Debug().Err(err).Str("href", obj.Str("href")).Msg("An error occurred when resolving mention...")
			continue
		}
		ids = append(ids, account.ID)
	}
	return lo.Uniq(ids)
}
