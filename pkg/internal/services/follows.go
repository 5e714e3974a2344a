package services

import (
	"errors"
	"fmt"

	"github.com/fernwood-social/fernwood/pkg/internal/database"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// CreateFollowFromRemote handles an inbound Follow. Unlocked local followees
// accept immediately and the Accept is delivered back to the follower.
func CreateFollowFromRemote(follower models.Account, followee models.Account, activityURI string) (string, error) {
	if !followee.IsLocal() {
		return "skip: followee is not local", nil
	}

	follow := models.Follow{
		FollowerID:          follower.ID,
		FolloweeID:          followee.ID,
		FollowerHost:        follower.Host,
		FollowerInbox:       follower.Inbox,
		FollowerSharedInbox: follower.SharedInbox,
		FolloweeHost:        followee.Host,
		ActivityURI:         lo.EmptyableToPtr(activityURI),
		Status:              lo.Ternary(followee.IsLocked, models.FollowStatusPending, models.FollowStatusAccepted),
	}
	if err := database.C.Create(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "skip: already following", nil
		}
		return "", fmt.Errorf("unable to create follow: %w", err)
	}

	bumpFollowCounters(follow, 1)

	if follow.Status == models.FollowStatusAccepted {
		if err := DeliverAccept(followee, follower, activityURI); err != nil {
			// The follow itself stands; the Accept can be retried by the
			// remote sending the Follow again.
			log.Warn().Err(err).Str("acct", follower.Acct()).Msg("An error occurred when delivering follow accept...")
		}
		return "ok", nil
	}

	return "ok: follow request pending", nil
}

// RemoveFollow undoes a follow edge in either direction.
func RemoveFollow(follower models.Account, followee models.Account) (bool, error) {
	var follow models.Follow
	if err := database.C.
		Where("follower_id = ? AND followee_id = ?", follower.ID, followee.ID).
		First(&follow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := database.C.Delete(&follow).Error; err != nil {
		return false, fmt.Errorf("unable to remove follow: %w", err)
	}

	bumpFollowCounters(follow, -1)
	return true, nil
}

// AcceptOutboundFollow marks our own pending follow accepted after the remote
// side confirmed it. An Accept that cannot name the follow activity matches
// nothing; flipping every pending follow would let one peer confirm another's.
func AcceptOutboundFollow(followee models.Account, activityURI string) (bool, error) {
	if activityURI == "" {
		return false, nil
	}

	tx := database.C.Model(&models.Follow{}).
		Where("followee_id = ? AND status = ?", followee.ID, models.FollowStatusPending).
		Where("activity_uri = ?", activityURI).
		Update("status", models.FollowStatusAccepted)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// RejectOutboundFollow drops our pending follow after a remote Reject.
func RejectOutboundFollow(followee models.Account, activityURI string) (bool, error) {
	var follow models.Follow
	err := database.C.
		Where("followee_id = ? AND status = ?", followee.ID, models.FollowStatusPending).
		First(&follow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := database.C.Delete(&follow).Error; err != nil {
		return false, err
	}
	return true, nil
}

// ListFollowerEdges returns the follow rows used for delivery fan-out.
func ListFollowerEdges(followee models.Account) ([]models.Follow, error) {
	var follows []models.Follow
	if err := database.C.
		Where("followee_id = ? AND status = ?", followee.ID, models.FollowStatusAccepted).
		Find(&follows).Error; err != nil {
		return nil, fmt.Errorf("unable to list followers: %w", err)
	}
	return follows, nil
}

func bumpFollowCounters(follow models.Follow, delta int) {
	database.C.Model(&models.Account{}).
		Where("id = ?", follow.FolloweeID).
		Update("followers_count", gorm.Expr("followers_count + ?", delta))
	database.C.Model(&models.Account{}).
		Where("id = ?", follow.FollowerID).
		Update("following_count", gorm.Expr("following_count + ?", delta))

	if follow.FollowerHost != nil {
		go BumpInstanceCounters(*follow.FollowerHost, "following_count", delta)
	}
	if follow.FolloweeHost != nil {
		go BumpInstanceCounters(*follow.FolloweeHost, "followers_count", delta)
	}
}
