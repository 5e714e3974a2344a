package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"golang.org/x/sync/semaphore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	actorNameLimit    = 128
	actorSummaryLimit = 2048
	featuredNoteLimit = 5
)

var (
	ErrActorSpoofed = errors.New("actor declares an identifier on a different host")

	actorUsernamePattern = regexp.MustCompile(`^\w([\w-.]*\w)?$`)
	actorValidate        = validator.New()
)

type remoteActorDocument struct {
	ID                string `validate:"required,url"`
	Inbox             string `validate:"required,url"`
	PreferredUsername string `validate:"required,max=128"`
}

// ValidateRemoteActor rejects malformed or spoofed actor documents before
// anything is persisted. The fetch URI's host is the trust anchor: the
// declared identifier and any public key must live on the same host.
func ValidateRemoteActor(object ap.Object, uri string) error {
	if object == nil {
		return fmt.Errorf("invalid actor: object is null")
	}
	if !ap.IsActor(object) {
		return fmt.Errorf("invalid actor: unsupported type '%s'", object.Type())
	}

	document := remoteActorDocument{
		ID:                object.ID(),
		Inbox:             object.Str("inbox"),
		PreferredUsername: object.Str("preferredUsername"),
	}
	if err := actorValidate.Struct(document); err != nil {
		return fmt.Errorf("invalid actor: %w", err)
	}
	if !actorUsernamePattern.MatchString(document.PreferredUsername) {
		return fmt.Errorf("invalid actor: preferredUsername contains forbidden characters")
	}

	expected, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("invalid actor: unparseable fetch uri: %w", err)
	}
	declared, err := url.Parse(document.ID)
	if err != nil {
		return fmt.Errorf("invalid actor: unparseable id: %w", err)
	}
	if !strings.EqualFold(declared.Hostname(), expected.Hostname()) {
		return fmt.Errorf("%w: %s != %s", ErrActorSpoofed, declared.Hostname(), expected.Hostname())
	}

	if key, ok := ap.AsObject(object["publicKey"]); ok {
		keyID, err := url.Parse(key.ID())
		if err != nil || keyID.Host == "" {
			return fmt.Errorf("invalid actor: publicKey id is not an uri")
		}
		if !strings.EqualFold(keyID.Hostname(), expected.Hostname()) {
			return fmt.Errorf("%w: publicKey on %s", ErrActorSpoofed, keyID.Hostname())
		}
	}

	return nil
}

// FetchPerson returns an already-known account by URI, local or remote, or
// nil when the actor has never been seen.
func FetchPerson(uri string) (*models.Account, error) {
	baseURL := viper.GetString("federation.base_url")
	if strings.HasPrefix(uri, baseURL+"/") {
		username := uri[strings.LastIndex(uri, "/")+1:]
		var account models.Account
		if err := database.C.
			Where("username = ? AND host IS NULL", username).
			Preload("PublicKey").
			First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &account, nil
	}

	var account models.Account
	if err := database.C.
		Where("uri = ?", uri).
		Preload("PublicKey").
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// FetchPersonByKeyID finds the account owning a signing key, or nil when the
// key has never been seen.
func FetchPersonByKeyID(keyID string) (*models.Account, error) {
	var key models.AccountPublicKey
	if err := database.C.Where("key_id = ?", keyID).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var account models.Account
	if err := database.C.
		Where("id = ?", key.AccountID).
		Preload("PublicKey").
		First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// ResolvePerson returns the actor behind a URI, fetching and creating the
// account when it is not yet known.
func ResolvePerson(uri string, resolver *Resolver) (models.Account, error) {
	if exist, err := FetchPerson(uri); err != nil {
		return models.Account{}, err
	} else if exist != nil {
		return *exist, nil
	}

	if resolver == nil {
		resolver = NewResolver()
	}
	return CreatePerson(uri, resolver)
}

// CreatePerson fetches a remote actor and persists account, profile and
// public key atomically. A duplicate-key race with a concurrent creation is
// resolved by adopting the winner.
func CreatePerson(uri string, resolver *Resolver) (models.Account, error) {
	baseURL := viper.GetString("federation.base_url")
	if strings.HasPrefix(uri, baseURL) {
		return models.Account{}, fmt.Errorf("cannot create a remote account for a local uri")
	}

	object, err := resolver.Resolve(uri)
	if err != nil {
		return models.Account{}, err
	}
	if err := ValidateRemoteActor(object, uri); err != nil {
		return models.Account{}, err
	}

	log.Info().Str("uri", object.ID()).Msg("Creating the remote account...")

	parsed, _ := url.Parse(object.ID())
	host := strings.ToLower(parsed.Hostname())

	account := buildRemoteAccount(object, host)
	err = database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if key, ok := ap.AsObject(object["publicKey"]); ok {
			return tx.Create(&models.AccountPublicKey{
				AccountID: account.ID,
				KeyID:     key.ID(),
				KeyPem:    key.Str("publicKeyPem"),
			}).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if winner, ferr := FetchPerson(object.ID()); ferr == nil && winner != nil {
				return *winner, nil
			}
			return account, fmt.Errorf("already registered: %s", object.ID())
		}
		return account, fmt.Errorf("unable to create remote account: %w", err)
	}

	go func() {
		if instance, err := RegisterOrFetchInstance(host); err == nil {
			database.C.Model(&models.Instance{}).
				Where("id = ?", instance.ID).
				Update("users_count", gorm.Expr("users_count + 1"))
			InvalidateInstanceCache()
		}
		fetchActorDecorations(account.ID, object)
	}()

	if err := UpdateFeaturedCollection(account.ID); err != nil {
		log.Warn().Err(err).Str("uri", object.ID()).Msg("An error occurred when syncing featured collection...")
	}

	return account, nil
}

// UpdatePerson re-validates a remote actor document and applies it as a
// targeted update. The follower shared inbox is re-propagated to follow rows
// because it can legitimately change between fetches.
func UpdatePerson(uri string, resolver *Resolver, hint ap.Object) error {
	baseURL := viper.GetString("federation.base_url")
	if strings.HasPrefix(uri, baseURL+"/") {
		return nil
	}

	var account models.Account
	if err := database.C.Where("uri = ?", uri).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	object := hint
	if object == nil {
		if resolver == nil {
			resolver = NewResolver()
		}
		var err error
		if object, err = resolver.Resolve(uri); err != nil {
			return err
		}
	}
	if err := ValidateRemoteActor(object, uri); err != nil {
		return err
	}

	log.Info().Str("uri", uri).Msg("Updating the remote account...")

	fresh := buildRemoteAccount(object, lo.FromPtr(account.Host))
	updates := map[string]any{
		"last_fetched_at": time.Now(),
		"name":            fresh.Name,
		"tags":            fresh.Tags,
		"inbox":           fresh.Inbox,
		"shared_inbox":    fresh.SharedInbox,
		"followers_uri":   fresh.FollowersURI,
		"featured_uri":    fresh.FeaturedURI,
		"is_bot":          fresh.IsBot,
		"is_locked":       fresh.IsLocked,
	}
	if err := database.C.Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("unable to update remote account: %w", err)
	}

	database.C.Model(&models.AccountProfile{}).
		Where("account_id = ?", account.ID).
		Updates(map[string]any{
			"summary": truncateRunes(object.Str("summary"), actorSummaryLimit),
			"url":     object.Str("url"),
		})

	if key, ok := ap.AsObject(object["publicKey"]); ok {
		database.C.Model(&models.AccountPublicKey{}).
			Where("account_id = ?", account.ID).
			Updates(map[string]any{
				"key_id":  key.ID(),
				"key_pem": key.Str("publicKeyPem"),
			})
	}

	database.C.Model(&models.Follow{}).
		Where("follower_id = ?", account.ID).
		Updates(map[string]any{
			"follower_inbox":        fresh.Inbox,
			"follower_shared_inbox": fresh.SharedInbox,
		})

	go fetchActorDecorations(account.ID, object)

	if err := UpdateFeaturedCollection(account.ID); err != nil {
		log.Warn().Err(err).Str("uri", uri).Msg("An error occurred when syncing featured collection...")
	}

	return nil
}

func buildRemoteAccount(object ap.Object, host string) models.Account {
	now := time.Now()
	tags := extractHashtags(object["tag"])

	account := models.Account{
		Username:      object.Str("preferredUsername"),
		Host:          lo.ToPtr(host),
		URI:           lo.ToPtr(object.ID()),
		Name:          truncateRunes(object.Str("name"), actorNameLimit),
		Tags:          datatypes.NewJSONSlice(tags),
		Inbox:         lo.ToPtr(object.Str("inbox")),
		IsBot:         object.Type() == "Service",
		IsLocked:      object["manuallyApprovesFollowers"] == true,
		LastFetchedAt: &now,
		Profile: models.AccountProfile{
			Summary: truncateRunes(object.Str("summary"), actorSummaryLimit),
			URL:     lo.EmptyableToPtr(object.Str("url")),
		},
	}

	if shared := object.SharedInbox(); shared != "" {
		account.SharedInbox = &shared
	}
	if followers := ap.IdentifierOf(object["followers"]); followers != "" {
		account.FollowersURI = &followers
	}
	if featured := ap.IdentifierOf(object["featured"]); featured != "" {
		account.FeaturedURI = &featured
	}

	return account
}

// fetchActorDecorations resolves avatar, banner and custom emojis referenced
// by an actor document. Failures only cost cosmetics, never the account.
func fetchActorDecorations(accountID uint, object ap.Object) {
	updates := map[string]any{}
	if icon, ok := ap.AsObject(object["icon"]); ok && icon.Str("url") != "" {
		updates["avatar"] = icon.Str("url")
	}
	if image, ok := ap.AsObject(object["image"]); ok && image.Str("url") != "" {
		updates["banner"] = image.Str("url")
	}

	emojis := extractEmojis(object["tag"])
	if len(emojis) > 0 {
		names := make([]string, 0, len(emojis))
		for _, emoji := range emojis {
			names = append(names, emoji.Name)
			database.C.
				Where("name = ? AND host = ?", emoji.Name, emoji.Host).
				Attrs(emoji).
				FirstOrCreate(&models.Emoji{})
		}
		updates["emojis"] = datatypes.NewJSONSlice(names)
	}

	if len(updates) > 0 {
		database.C.Model(&models.Account{}).
			Where("id = ?", accountID).
			Updates(updates)
	}
}

// UpdateFeaturedCollection re-synchronizes an account's pinned notes from its
// declared featured collection, bounded to a handful of entries.
func UpdateFeaturedCollection(accountID uint) error {
	var account models.Account
	if err := database.C.Where("id = ?", accountID).First(&account).Error; err != nil {
		return err
	}
	if account.IsLocal() || account.FeaturedURI == nil {
		return nil
	}

	log.Debug().Str("uri", lo.FromPtr(account.URI)).Msg("Updating the featured collection...")

	resolver := NewResolver()
	collection, err := resolver.ResolveCollection(*account.FeaturedURI)
	if err != nil {
		return err
	}

	items := collection.Items()
	if len(items) > featuredNoteLimit {
		items = items[:featuredNoteLimit]
	}

	// Resolve candidate notes with bounded parallelism; a failed entry is
	// dropped instead of failing the whole sync.
	limiter := semaphore.NewWeighted(2)
	var mutex sync.Mutex
	var wg sync.WaitGroup
	pinned := make([]*models.Note, len(items))

	for rank, item := range items {
		wg.Add(1)
		go func(rank int, item any) {
			defer wg.Done()
			if err := limiter.Acquire(context.Background(), 1); err != nil {
				return
			}
			defer limiter.Release(1)

			note, err := ResolveNote(item, NewResolver())
			if err != nil {
				log.Debug().Err(err).Msg("An error occurred when resolving featured note...")
				return
			}
			mutex.Lock()
			pinned[rank] = note
			mutex.Unlock()
		}(rank, item)
	}
	wg.Wait()

	return database.C.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.NotePin{}).Error; err != nil {
			return err
		}
		for rank, note := range pinned {
			if note == nil {
				continue
			}
			pin := models.NotePin{
				AccountID: account.ID,
				NoteID:    note.ID,
				Rank:      rank,
			}
			if err := tx.Create(&pin).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func extractHashtags(value any) []string {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}

	var tags []string
	for _, entry := range entries {
		obj, ok := ap.AsObject(entry)
		if !ok || obj.Type() != "Hashtag" {
			continue
		}
		if name := strings.TrimPrefix(obj.Str("name"), "#"); name != "" {
			tags = append(tags, strings.ToLower(name))
		}
	}
	return lo.Uniq(tags)
}

func extractEmojis(value any) []models.Emoji {
	entries, ok := value.([]any)
	if !ok {
		return nil
	}

	var emojis []models.Emoji
	for _, entry := range entries {
		obj, ok := ap.AsObject(entry)
		if !ok || obj.Type() != "Emoji" {
			continue
		}
		icon, ok := ap.AsObject(obj["icon"])
		if !ok || icon.Str("url") == "" {
			continue
		}
		name := strings.Trim(obj.Str("name"), ":")
		if name == "" {
			continue
		}

		uri, err := url.Parse(obj.ID())
		if err != nil {
			continue
		}
		emojis = append(emojis, models.Emoji{
			Name: name,
			Host: lo.ToPtr(strings.ToLower(uri.Hostname())),
			URI:  lo.EmptyableToPtr(obj.ID()),
			URL:  icon.Str("url"),
		})
	}
	return emojis
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
