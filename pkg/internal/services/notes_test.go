package services

import (
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	"github.com/fernwood-social/fernwood/pkg/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestVisibilityOf(t *testing.T) {
	public := ap.Object{"to": []any{ap.PublicAddress}}
	assert.Equal(t, models.NoteVisibilityPublic, visibilityOf(public))

	unlisted := ap.Object{
		"to": []any{"https://remote.test/users/alice/followers"},
		"cc": []any{ap.PublicAddress},
	}
	assert.Equal(t, models.NoteVisibilityUnlisted, visibilityOf(unlisted))

	followers := ap.Object{"to": []any{"https://remote.test/users/alice/followers"}}
	assert.Equal(t, models.NoteVisibilityFollowers, visibilityOf(followers))

	direct := ap.Object{}
	assert.Equal(t, models.NoteVisibilityDirect, visibilityOf(direct))
}
