package ap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasNamespace(t *testing.T) {
	assert.True(t, Object{"@context": Namespace}.HasNamespace())
	assert.True(t, Object{"@context": []any{Namespace, "https://w3id.org/security/v1"}}.HasNamespace())
	assert.False(t, Object{"@context": "https://example.com/other"}.HasNamespace())
	assert.False(t, Object{}.HasNamespace())
}

func TestIdentifierOf(t *testing.T) {
	assert.Equal(t, "https://remote.test/notes/1", IdentifierOf("https://remote.test/notes/1"))
	assert.Equal(t, "https://remote.test/notes/1", IdentifierOf(map[string]any{"id": "https://remote.test/notes/1"}))
	assert.Empty(t, IdentifierOf(42))
	assert.Empty(t, IdentifierOf(nil))
}

func TestStrSlice(t *testing.T) {
	object := Object{
		"to": "https://remote.test/users/alice",
		"cc": []any{
			PublicAddress,
			map[string]any{"id": "https://remote.test/users/bob"},
		},
	}
	assert.Equal(t, []string{"https://remote.test/users/alice"}, object.StrSlice("to"))
	assert.Equal(t, []string{PublicAddress, "https://remote.test/users/bob"}, object.StrSlice("cc"))
	assert.Nil(t, object.StrSlice("bto"))
}

func TestSharedInbox(t *testing.T) {
	direct := Object{"sharedInbox": "https://remote.test/inbox"}
	assert.Equal(t, "https://remote.test/inbox", direct.SharedInbox())

	nested := Object{"endpoints": map[string]any{"sharedInbox": "https://remote.test/inbox"}}
	assert.Equal(t, "https://remote.test/inbox", nested.SharedInbox())

	assert.Empty(t, Object{}.SharedInbox())
}

func TestItems(t *testing.T) {
	ordered := Object{"type": "OrderedCollection", "orderedItems": []any{"a", "b"}}
	assert.Len(t, ordered.Items(), 2)
	assert.True(t, IsCollection(ordered))
	assert.False(t, IsActor(ordered))
}
