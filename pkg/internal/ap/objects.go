package ap

import (
	"github.com/samber/lo"
)

// Namespace is the ActivityStreams context URI a federation document must
// declare before we interpret it.
const Namespace = "https://www.w3.org/ns/activitystreams"

const PublicAddress = Namespace + "#Public"

// Object is a decoded federation document. Inbound payloads stay schemaless
// until the kernel narrows them into typed activities.
type Object map[string]any

func (o Object) Str(key string) string {
	v, _ := o[key].(string)
	return v
}

func (o Object) ID() string {
	return o.Str("id")
}

func (o Object) Type() string {
	return o.Str("type")
}

// HasNamespace reports whether the document's @context includes the
// ActivityStreams vocabulary, either as a plain string or inside an array.
func (o Object) HasNamespace() bool {
	switch ctx := o["@context"].(type) {
	case string:
		return ctx == Namespace
	case []any:
		return lo.ContainsBy(ctx, func(item any) bool {
			s, ok := item.(string)
			return ok && s == Namespace
		})
	default:
		return false
	}
}

// AsObject narrows a raw value into an Object when it is a JSON map.
func AsObject(value any) (Object, bool) {
	switch v := value.(type) {
	case Object:
		return v, true
	case map[string]any:
		return Object(v), true
	default:
		return nil, false
	}
}

// IdentifierOf returns the identifier of a value that is either a bare URI
// string or an embedded object carrying an id.
func IdentifierOf(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	if obj, ok := AsObject(value); ok {
		return obj.ID()
	}
	return ""
}

var actorTypes = []string{"Person", "Service", "Group", "Organization", "Application"}

func IsActor(o Object) bool {
	return lo.Contains(actorTypes, o.Type())
}

var collectionTypes = []string{"Collection", "OrderedCollection", "CollectionPage", "OrderedCollectionPage"}

func IsCollection(o Object) bool {
	return lo.Contains(collectionTypes, o.Type())
}

// Items returns the entries of a Collection or OrderedCollection.
func (o Object) Items() []any {
	for _, key := range []string{"orderedItems", "items"} {
		if items, ok := o[key].([]any); ok {
			return items
		}
	}
	return nil
}

// StrSlice reads a field that may be a single string or an array of strings
// and embedded objects, such as to / cc addressing.
func (o Object) StrSlice(key string) []string {
	switch v := o[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if id := IdentifierOf(item); id != "" {
				out = append(out, id)
			}
		}
		return out
	default:
		return nil
	}
}

// SharedInbox digs the shared inbox out of an actor document, which may
// declare it at the top level or under endpoints.
func (o Object) SharedInbox() string {
	if s := o.Str("sharedInbox"); s != "" {
		return s
	}
	if endpoints, ok := AsObject(o["endpoints"]); ok {
		return endpoints.Str("sharedInbox")
	}
	return ""
}
