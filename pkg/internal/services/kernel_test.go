package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformActivityUnknownKindIsNoOp(t *testing.T) {
	actor := models.Account{Username: "alice", Host: lo.ToPtr("remote.test")}
	activity := &ap.Activity{Kind: ap.KindUnknown, Type: "Arrive"}

	outcome, err := PerformActivity(actor, activity, nil)
	require.NoError(t, err)
	assert.Contains(t, outcome, "skip")
	assert.Contains(t, outcome, "Arrive")
}

func TestPerformActivityGuards(t *testing.T) {
	suspended := models.Account{Username: "alice", Host: lo.ToPtr("remote.test"), IsSuspended: true}
	outcome, err := PerformActivity(suspended, &ap.Activity{Kind: ap.KindCreate}, nil)
	require.NoError(t, err)
	assert.Equal(t, "skip: actor is suspended", outcome)

	local := models.Account{Username: "dave"}
	outcome, err = PerformActivity(local, &ap.Activity{Kind: ap.KindCreate}, nil)
	require.NoError(t, err)
	assert.Equal(t, "skip: activity claims a local actor", outcome)
}

func TestIsValidationFailure(t *testing.T) {
	assert.False(t, isValidationFailure(nil))
	assert.False(t, isValidationFailure(errors.New("connection refused")))

	assert.True(t, isValidationFailure(ErrActorSpoofed))
	assert.True(t, isValidationFailure(fmt.Errorf("resolving: %w", ErrHostBlocked)))
	assert.True(t, isValidationFailure(fmt.Errorf("resolving: %w", ErrCycle)))
	assert.True(t, isValidationFailure(fmt.Errorf("resolving: %w", ErrInvalidResponse)))
	assert.True(t, isValidationFailure(errors.New("invalid actor: missing inbox")))
}
