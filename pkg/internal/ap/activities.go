package ap

import (
	"fmt"
)

// Kind is the closed set of activity types the kernel understands.
// Anything else maps to KindUnknown, which handlers treat as a no-op so that
// vocabulary extensions from other software never fail a job.
type Kind int

const (
	KindUnknown Kind = iota
	KindCreate
	KindUpdate
	KindDelete
	KindFollow
	KindAccept
	KindReject
	KindAdd
	KindRemove
	KindUndo
	KindLike
	KindAnnounce
	KindMove
	KindFlag
)

var kindNames = map[string]Kind{
	"Create":     KindCreate,
	"Update":     KindUpdate,
	"Delete":     KindDelete,
	"Follow":     KindFollow,
	"Accept":     KindAccept,
	"Reject":     KindReject,
	"Add":        KindAdd,
	"Remove":     KindRemove,
	"Undo":       KindUndo,
	"Like":       KindLike,
	"EmojiReact": KindLike,
	"Announce":   KindAnnounce,
	"Move":       KindMove,
	"Flag":       KindFlag,
}

func KindOf(name string) Kind {
	if kind, ok := kindNames[name]; ok {
		return kind
	}
	return KindUnknown
}

var kindStrings = [...]string{
	"Unknown", "Create", "Update", "Delete", "Follow", "Accept", "Reject",
	"Add", "Remove", "Undo", "Like", "Announce", "Move", "Flag",
}

func (k Kind) String() string {
	if int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return "Unknown"
}

// Activity is one interpreted federation message. It is ephemeral: the kernel
// consumes it once and only its side effects are persisted.
type Activity struct {
	Kind   Kind
	Type   string
	ID     string
	Actor  string
	Object any
	Target string

	To []string
	Cc []string

	Content string

	Raw Object
}

// ParseActivity narrows a decoded document into a typed activity.
// An unrecognized type is not an error; the activity comes back KindUnknown.
func ParseActivity(o Object) (*Activity, error) {
	if o == nil {
		return nil, fmt.Errorf("activity is null")
	}

	actor := IdentifierOf(o["actor"])
	if actor == "" {
		return nil, fmt.Errorf("activity is missing an actor")
	}

	return &Activity{
		Kind:    KindOf(o.Type()),
		Type:    o.Type(),
		ID:      o.ID(),
		Actor:   actor,
		Object:  o["object"],
		Target:  IdentifierOf(o["target"]),
		To:      o.StrSlice("to"),
		Cc:      o.StrSlice("cc"),
		Content: o.Str("content"),
		Raw:     o,
	}, nil
}

// ObjectID returns the identifier of the activity's object, whether inline or
// referenced by URI.
func (a *Activity) ObjectID() string {
	return IdentifierOf(a.Object)
}

// InnerActivity re-parses the nested activity of a compound type such as
// Undo(Follow). The nested actor defaults to the outer one when omitted.
func (a *Activity) InnerActivity() (*Activity, error) {
	obj, ok := AsObject(a.Object)
	if !ok {
		return nil, fmt.Errorf("%s has no embedded activity", a.Type)
	}
	if _, hasActor := obj["actor"]; !hasActor {
		clone := make(Object, len(obj)+1)
		for k, v := range obj {
			clone[k] = v
		}
		clone["actor"] = a.Actor
		obj = clone
	}
	return ParseActivity(obj)
}

// IsPublic reports whether the activity is addressed to the public collection.
func (a *Activity) IsPublic() bool {
	for _, addr := range append(a.To, a.Cc...) {
		if addr == PublicAddress {
			return true
		}
	}
	return false
}
