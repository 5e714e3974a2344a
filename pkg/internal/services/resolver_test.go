package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fernwood-social/fernwood/pkg/internal/ap"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolverTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/notes/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		_ = jsoniter.NewEncoder(w).Encode(map[string]any{
			"@context": []string{ap.Namespace},
			"id":       "https://remote.test/notes/1",
			"type":     "Note",
		})
	})
	mux.HandleFunc("/notes/2", func(w http.ResponseWriter, r *http.Request) {
		_ = jsoniter.NewEncoder(w).Encode(map[string]any{
			"id":   "https://remote.test/notes/2",
			"type": "Note",
		})
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestResolvePassthrough(t *testing.T) {
	resolver := NewResolver()

	object, err := resolver.Resolve(map[string]any{"id": "https://remote.test/notes/1", "type": "Note"})
	require.NoError(t, err)
	assert.Equal(t, "https://remote.test/notes/1", object.ID())
}

func TestResolveRejectsNonURI(t *testing.T) {
	resolver := NewResolver()

	_, err := resolver.Resolve(nil)
	assert.Error(t, err)

	_, err = resolver.Resolve(42)
	assert.Error(t, err)
}

func TestResolveBlockedHost(t *testing.T) {
	viper.Set("federation.blocked_hosts", []string{"bad.example"})
	t.Cleanup(func() { viper.Set("federation.blocked_hosts", []string{}) })

	resolver := NewResolver()
	_, err := resolver.Resolve("https://bad.example/users/mallory")
	assert.ErrorIs(t, err, ErrHostBlocked)

	_, err = resolver.Resolve("https://sub.bad.example/users/mallory")
	assert.ErrorIs(t, err, ErrHostBlocked)
}

func TestResolveFetchesDocument(t *testing.T) {
	server := newResolverTestServer(t)
	viper.Set("federation.sign_fetch", false)

	resolver := NewResolver()
	object, err := resolver.Resolve(server.URL + "/notes/1")
	require.NoError(t, err)
	assert.Equal(t, "https://remote.test/notes/1", object.ID())

	// The same chain refuses to touch the same URI twice.
	_, err = resolver.Resolve(server.URL + "/notes/1")
	assert.ErrorIs(t, err, ErrCycle)

	// A fresh chain has no memory of earlier ones.
	_, err = NewResolver().Resolve(server.URL + "/notes/1")
	assert.NoError(t, err)
}

func TestResolveRejectsNonFederationDocuments(t *testing.T) {
	server := newResolverTestServer(t)
	viper.Set("federation.sign_fetch", false)

	_, err := NewResolver().Resolve(server.URL + "/notes/2")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = NewResolver().Resolve(server.URL + "/broken")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestResolveCollection(t *testing.T) {
	resolver := NewResolver()

	_, err := resolver.ResolveCollection(map[string]any{"id": "https://remote.test/notes/1", "type": "Note"})
	assert.Error(t, err)

	collection, err := resolver.ResolveCollection(map[string]any{
		"id":           "https://remote.test/users/alice/featured",
		"type":         "OrderedCollection",
		"orderedItems": []any{"https://remote.test/notes/1"},
	})
	require.NoError(t, err)
	assert.Len(t, collection.Items(), 1)
}

func TestIsHostBlocked(t *testing.T) {
	viper.Set("federation.blocked_hosts", []string{"Bad.Example"})
	t.Cleanup(func() { viper.Set("federation.blocked_hosts", []string{}) })

	assert.True(t, IsHostBlocked("bad.example"))
	assert.True(t, IsHostBlocked("deep.sub.bad.example"))
	assert.False(t, IsHostBlocked("goodbad.example"))
	assert.False(t, IsHostBlocked("good.example"))
}
