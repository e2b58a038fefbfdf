package menu

import "strings"

// Attribute names with dedicated handling. They never end up in
// Record.Attributes.
const (
	AttrTitle  = "title"
	AttrLink   = "link"
	AttrParent = "parent"
)

// Record is a single remote menu entry, as decoded from the fetched document.
type Record struct {
	// ID is the stable external identifier of the entry
	ID string

	// Title is the display title
	Title string

	// LinkURI is the destination of the link, empty when the entry has none
	LinkURI string

	// ParentID is the ID of the parent entry with its type tag stripped,
	// empty for top-level entries
	ParentID string

	// Attributes holds every other attribute of the entry
	Attributes map[string]any
}

// ParseParentRef strips the "<typeTag>:" prefix from a parent reference.
// A value without a colon is returned unchanged.
func ParseParentRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if _, id, ok := strings.Cut(ref, ":"); ok {
		return id
	}
	return ref
}

// RecordIDs returns the set of identifiers in records.
func RecordIDs(records []Record) map[string]struct{} {
	ids := make(map[string]struct{}, len(records))
	for _, r := range records {
		ids[r.ID] = struct{}{}
	}
	return ids
}
