package ap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivity(t *testing.T) {
	activity, err := ParseActivity(Object{
		"id":     "https://remote.test/activities/1",
		"type":   "Create",
		"actor":  "https://remote.test/users/alice",
		"object": map[string]any{"id": "https://remote.test/notes/1", "type": "Note"},
		"to":     []any{PublicAddress},
	})
	require.NoError(t, err)

	assert.Equal(t, KindCreate, activity.Kind)
	assert.Equal(t, "https://remote.test/users/alice", activity.Actor)
	assert.Equal(t, "https://remote.test/notes/1", activity.ObjectID())
	assert.True(t, activity.IsPublic())
}

func TestParseActivityMissingActor(t *testing.T) {
	_, err := ParseActivity(Object{
		"id":   "https://remote.test/activities/1",
		"type": "Create",
	})
	assert.Error(t, err)
}

func TestParseActivityUnknownType(t *testing.T) {
	activity, err := ParseActivity(Object{
		"id":    "https://remote.test/activities/1",
		"type":  "Arrive",
		"actor": "https://remote.test/users/alice",
	})
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, activity.Kind)
	assert.Equal(t, "Arrive", activity.Type)
}

func TestInnerActivityDefaultsActor(t *testing.T) {
	activity, err := ParseActivity(Object{
		"id":    "https://remote.test/activities/2",
		"type":  "Undo",
		"actor": "https://remote.test/users/alice",
		"object": map[string]any{
			"id":     "https://remote.test/activities/1",
			"type":   "Follow",
			"object": "https://local.test/users/bob",
		},
	})
	require.NoError(t, err)

	inner, err := activity.InnerActivity()
	require.NoError(t, err)
	assert.Equal(t, KindFollow, inner.Kind)
	assert.Equal(t, "https://remote.test/users/alice", inner.Actor)
}

func TestInnerActivityWithoutObject(t *testing.T) {
	activity, err := ParseActivity(Object{
		"id":     "https://remote.test/activities/2",
		"type":   "Undo",
		"actor":  "https://remote.test/users/alice",
		"object": "https://remote.test/activities/1",
	})
	require.NoError(t, err)

	_, err = activity.InnerActivity()
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindLike, KindOf("Like"))
	assert.Equal(t, KindLike, KindOf("EmojiReact"))
	assert.Equal(t, KindAnnounce, KindOf("Announce"))
	assert.Equal(t, KindUnknown, KindOf("Question"))
	assert.Equal(t, "Like", KindLike.String())
}
