package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestReactionCreatedMapsDuplicates(t *testing.T) {
	created, err := reactionCreated(nil)
	require.NoError(t, err)
	assert.True(t, created)

	// A second reaction from the same account on the same note, including one
	// lost to a concurrent race, is not an error and must not be retried.
	created, err = reactionCreated(gorm.ErrDuplicatedKey)
	require.NoError(t, err)
	assert.False(t, created)

	created, err = reactionCreated(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey))
	require.NoError(t, err)
	assert.False(t, created)

	_, err = reactionCreated(errors.New("connection refused"))
	assert.Error(t, err)
}
