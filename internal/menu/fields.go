package menu

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Typed field names recognised on an Item.
const (
	FieldDescription = "description"
	FieldWeight      = "weight"
	FieldEnabled     = "enabled"
	FieldExpanded    = "expanded"
	FieldExternal    = "external"
	FieldLangcode    = "langcode"
)

// ErrManagedAttribute is returned by SetAttribute for attributes that the
// reconciler sets through dedicated paths (title, link and parent).
var ErrManagedAttribute = errors.New("attribute is managed by the importer")

var typedFields = map[string]struct{}{
	FieldDescription: {},
	FieldWeight:      {},
	FieldEnabled:     {},
	FieldExpanded:    {},
	FieldExternal:    {},
	FieldLangcode:    {},
}

// HasField reports whether name is a typed field of Item.
func HasField(name string) bool {
	_, ok := typedFields[name]
	return ok
}

// SetAttribute assigns value to the attribute called name. Recognised names are
// converted and stored in their typed field; anything else goes to Extra.
// A conversion failure leaves the item untouched.
func (i *Item) SetAttribute(name string, value any) error {
	switch name {
	case AttrTitle, AttrLink, AttrParent:
		return fmt.Errorf("%s: %w", name, ErrManagedAttribute)
	case FieldDescription:
		s, err := toString(value)
		if err != nil {
			return fieldError(name, err)
		}
		i.Description = s
	case FieldLangcode:
		s, err := toString(value)
		if err != nil {
			return fieldError(name, err)
		}
		i.Langcode = s
	case FieldWeight:
		n, err := toInt(value)
		if err != nil {
			return fieldError(name, err)
		}
		i.Weight = n
	case FieldEnabled, FieldExpanded, FieldExternal:
		b, err := toBool(value)
		if err != nil {
			return fieldError(name, err)
		}
		switch name {
		case FieldEnabled:
			i.Enabled = b
		case FieldExpanded:
			i.Expanded = b
		default:
			i.External = b
		}
	default:
		if i.Extra == nil {
			i.Extra = map[string]any{}
		}
		i.Extra[name] = value
	}
	return nil
}

func fieldError(name string, err error) error {
	return fmt.Errorf("invalid value for field %q: %w", name, err)
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case float64, int, int64, bool:
		return fmt.Sprint(t), nil
	case map[string]any:
		// Formatted text fields arrive as {"value": "...", "format": "..."}
		if s, ok := t["value"].(string); ok {
			return s, nil
		}
	}
	return "", fmt.Errorf("unsupported type %T", v)
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int(t), nil
	case json.Number:
		n, err := t.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(t))
	}
	return false, fmt.Errorf("unsupported type %T", v)
}
