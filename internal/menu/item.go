package menu

import (
	"maps"
	"time"
)

// LinkTypeTag is the type tag used in link references.
const LinkTypeTag = "menu_link_content"

// LinkRef is the resolvable handle used to express a parent-child relationship
// between two items.
type LinkRef string

// NewLinkRef returns the link reference of the item with the given ID.
func NewLinkRef(id string) LinkRef {
	return LinkRef(LinkTypeTag + ":" + id)
}

// ID returns the item ID the reference points to.
func (r LinkRef) ID() string {
	return ParseParentRef(string(r))
}

// IsZero reports whether the reference is unset.
func (r LinkRef) IsZero() bool {
	return r == ""
}

// Item is a locally stored menu link.
type Item struct {
	ID         string  `json:"id"`
	Collection string  `json:"collection"`
	Title      string  `json:"title"`
	LinkURI    string  `json:"link_uri"`
	ParentRef  LinkRef `json:"parent,omitempty"`

	Description string `json:"description,omitempty"`
	Weight      int    `json:"weight"`
	Enabled     bool   `json:"enabled"`
	Expanded    bool   `json:"expanded"`
	External    bool   `json:"external"`
	Langcode    string `json:"langcode,omitempty"`

	// Extra holds attributes that do not map to a typed field
	Extra map[string]any `json:"extra,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem returns a new, unsaved item seeded with its collection and ID.
func NewItem(collection, id string) *Item {
	return &Item{
		ID:         id,
		Collection: collection,
		Enabled:    true,
		Extra:      map[string]any{},
	}
}

// Ref returns the link reference of the item.
func (i *Item) Ref() LinkRef {
	return NewLinkRef(i.ID)
}

// Clone returns a copy of the item that shares no mutable state with it.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Extra != nil {
		c.Extra = maps.Clone(i.Extra)
	}
	return &c
}
