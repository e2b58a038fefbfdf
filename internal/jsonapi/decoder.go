// Package jsonapi fetches JSON:API menu documents and decodes them into records.
package jsonapi

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/stacklok/menu-importer/internal/menu"
)

// Paths into a JSON:API document
const (
	pathData       = "data"
	pathID         = "id"
	pathAttributes = "attributes"
	pathTitle      = "title"
	pathLinkURI    = "link.uri"
	pathParent     = "parent"
)

// Decode parses a JSON:API document into menu records, in document order.
// The top-level "data" member must exist and be an array.
func Decode(data []byte) ([]menu.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, &menu.DecodeError{Reason: "body is not valid JSON"}
	}

	entries := gjson.GetBytes(data, pathData)
	if !entries.Exists() {
		return nil, &menu.DecodeError{Reason: "missing top-level data member"}
	}
	if !entries.IsArray() {
		return nil, &menu.DecodeError{Reason: fmt.Sprintf("data member is %s, not an array", entries.Type)}
	}

	all := entries.Array()
	records := make([]menu.Record, 0, len(all))
	for i, entry := range all {
		record, err := decodeEntry(entry)
		if err != nil {
			return nil, &menu.DecodeError{Reason: fmt.Sprintf("entry %d", i), Err: err}
		}
		records = append(records, record)
	}

	return records, nil
}

func decodeEntry(entry gjson.Result) (menu.Record, error) {
	if !entry.IsObject() {
		return menu.Record{}, fmt.Errorf("expected an object, got %s", entry.Type)
	}

	id := entry.Get(pathID).String()
	if id == "" {
		return menu.Record{}, fmt.Errorf("missing id")
	}

	record := menu.Record{
		ID:         id,
		Attributes: map[string]any{},
	}

	attrs := entry.Get(pathAttributes)
	if !attrs.Exists() || attrs.Type == gjson.Null {
		return record, nil
	}
	if !attrs.IsObject() {
		return menu.Record{}, fmt.Errorf("attributes of %s is not an object", id)
	}

	record.Title = attrs.Get(pathTitle).String()
	record.LinkURI = attrs.Get(pathLinkURI).String()
	record.ParentID = menu.ParseParentRef(attrs.Get(pathParent).String())

	attrs.ForEach(func(key, value gjson.Result) bool {
		switch name := key.String(); name {
		case menu.AttrTitle, menu.AttrLink, menu.AttrParent:
		default:
			record.Attributes[name] = value.Value()
		}
		return true
	})

	return record, nil
}
