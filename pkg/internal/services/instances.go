package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	localCache "github.com/fernwood-social/fernwood/pkg/internal/cache"
	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const instancesCacheTag = "instances"

func GetInstanceCacheKey(host string) string {
	return fmt.Sprintf("instance#%s", host)
}

// RegisterOrFetchInstance returns the instance record of a host, creating it
// on first contact. Records are cached process-wide until invalidated.
func RegisterOrFetchInstance(host string) (models.Instance, error) {
	host = strings.ToLower(host)

	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	if hit, err := marshal.Get(ctx, GetInstanceCacheKey(host), new(models.Instance)); err == nil {
		return *hit.(*models.Instance), nil
	}

	var instance models.Instance
	if err := database.C.Where("host = ?", host).First(&instance).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return instance, fmt.Errorf("unable to fetch instance: %w", err)
		}

		instance = models.Instance{
			Host:               host,
			CaughtAt:           time.Now(),
			LastCommunicatedAt: time.Now(),
		}
		if err := database.C.Create(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				database.C.Where("host = ?", host).First(&instance)
			} else {
				return instance, fmt.Errorf("unable to register instance: %w", err)
			}
		}
		log.Info().Str("host", host).Msg("Registered a newly discovered instance...")
	}

	_ = marshal.Set(
		ctx,
		GetInstanceCacheKey(host),
		instance,
		store.WithExpiration(60*time.Minute),
		store.WithTags([]string{instancesCacheTag}),
	)

	return instance, nil
}

// ListSuspendedHosts is backed by the same registry cache, so an explicit
// invalidation is always observed by the next delivery attempt.
func ListSuspendedHosts() ([]string, error) {
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	if hit, err := marshal.Get(ctx, "suspended-hosts", new([]string)); err == nil {
		return *hit.(*[]string), nil
	}

	var instances []models.Instance
	if err := database.C.Where("is_suspended = ?", true).Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("unable to list suspended instances: %w", err)
	}

	hosts := lo.Map(instances, func(item models.Instance, _ int) string {
		return item.Host
	})

	_ = marshal.Set(
		ctx,
		"suspended-hosts",
		hosts,
		store.WithExpiration(60*time.Minute),
		store.WithTags([]string{instancesCacheTag}),
	)

	return hosts, nil
}

func IsInstanceSuspended(host string) (bool, error) {
	hosts, err := ListSuspendedHosts()
	if err != nil {
		return false, err
	}
	return lo.Contains(hosts, strings.ToLower(host)), nil
}

// SetInstanceSuspended flips the suspension flag and drops every registry
// cache entry so the change takes effect immediately.
func SetInstanceSuspended(host string, suspended bool) error {
	host = strings.ToLower(host)
	if err := database.C.Model(&models.Instance{}).
		Where("host = ?", host).
		Update("is_suspended", suspended).Error; err != nil {
		return fmt.Errorf("unable to update instance suspension: %w", err)
	}

	InvalidateInstanceCache()
	return nil
}

func InvalidateInstanceCache() {
	cacheManager := cache.New[any](localCache.S)
	marshal := marshaler.New(cacheManager)
	ctx := context.Background()

	if err := marshal.Invalidate(ctx, store.WithInvalidateTags([]string{instancesCacheTag})); err != nil {
		log.Warn().Err(err).Msg("An error occurred when invalidating instance cache...")
	}
}

// UpdateInstanceStatus records the outcome of one communication attempt with
// a remote host; this is the only write path for instance health fields.
func UpdateInstanceStatus(host string, status *int, succeeded bool) {
	instance, err := RegisterOrFetchInstance(host)
	if err != nil {
		log.Warn().Err(err).Str("host", host).Msg("An error occurred when fetching instance for status update...")
		return
	}

	updates := map[string]any{
		"latest_request_sent_at": time.Now(),
		"latest_status":          status,
		"is_not_responding":      !succeeded,
	}
	if succeeded {
		updates["last_communicated_at"] = time.Now()
	}

	if err := database.C.Model(&models.Instance{}).
		Where("id = ?", instance.ID).
		Updates(updates).Error; err != nil {
		log.Warn().Err(err).Str("host", host).Msg("An error occurred when updating instance status...")
		return
	}

	InvalidateInstanceCache()
}

// TouchInstanceInbound marks a host alive after a verified inbound activity.
func TouchInstanceInbound(host string) {
	instance, err := RegisterOrFetchInstance(host)
	if err != nil {
		return
	}

	if err := database.C.Model(&models.Instance{}).
		Where("id = ?", instance.ID).
		Updates(map[string]any{
			"last_communicated_at": time.Now(),
			"is_not_responding":    false,
		}).Error; err != nil {
		return
	}

	InvalidateInstanceCache()
}

// BumpInstanceCounters adjusts federation direction counts for a host.
func BumpInstanceCounters(host string, column string, delta int) {
	instance, err := RegisterOrFetchInstance(host)
	if err != nil {
		return
	}

	database.C.Model(&models.Instance{}).
		Where("id = ?", instance.ID).
		Update(column, gorm.Expr(fmt.Sprintf("%s + ?", column), delta))
	InvalidateInstanceCache()
}
