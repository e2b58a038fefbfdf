package menu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_SetAttribute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attr    string
		value   any
		check   func(t *testing.T, item *Item)
		wantErr bool
	}{
		{
			name:  "description from string",
			attr:  FieldDescription,
			value: "Main navigation",
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.Equal(t, "Main navigation", item.Description)
			},
		},
		{
			name:  "description from formatted text",
			attr:  FieldDescription,
			value: map[string]any{"value": "Formatted", "format": "plain_text"},
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.Equal(t, "Formatted", item.Description)
			},
		},
		{
			name:  "weight from JSON number",
			attr:  FieldWeight,
			value: float64(-5),
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.Equal(t, -5, item.Weight)
			},
		},
		{
			name:  "weight from numeric string",
			attr:  FieldWeight,
			value: " 12 ",
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.Equal(t, 12, item.Weight)
			},
		},
		{
			name:    "weight rejects fractions",
			attr:    FieldWeight,
			value:   1.5,
			wantErr: true,
		},
		{
			name:  "enabled false",
			attr:  FieldEnabled,
			value: false,
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.False(t, item.Enabled)
			},
		},
		{
			name:  "expanded from number",
			attr:  FieldExpanded,
			value: float64(1),
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.True(t, item.Expanded)
			},
		},
		{
			name:  "external from string",
			attr:  FieldExternal,
			value: "true",
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.True(t, item.External)
			},
		},
		{
			name:    "enabled rejects objects",
			attr:    FieldEnabled,
			value:   map[string]any{},
			wantErr: true,
		},
		{
			name:  "unknown attribute goes to extra",
			attr:  "options",
			value: map[string]any{"attributes": []any{}},
			check: func(t *testing.T, item *Item) {
				t.Helper()
				assert.Equal(t, map[string]any{"attributes": []any{}}, item.Extra["options"])
			},
		},
		{
			name:    "link is managed",
			attr:    AttrLink,
			value:   map[string]any{"uri": "/x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			item := NewItem("main", "a")
			err := item.SetAttribute(tt.attr, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, item)
		})
	}
}

func TestItem_SetAttribute_ManagedError(t *testing.T) {
	t.Parallel()

	item := NewItem("main", "a")
	err := item.SetAttribute(AttrParent, "menu_link_content:b")
	assert.True(t, errors.Is(err, ErrManagedAttribute))
	assert.Empty(t, item.Extra)
}

func TestHasField(t *testing.T) {
	t.Parallel()

	assert.True(t, HasField(FieldWeight))
	assert.True(t, HasField(FieldLangcode))
	assert.False(t, HasField(AttrTitle))
	assert.False(t, HasField("options"))
}

func TestParseParentRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "menu_link_content:abc", want: "abc"},
		{in: "type:a", want: "a"},
		{in: "plain-id", want: "plain-id"},
		{in: "", want: ""},
		{in: " menu_link_content:x ", want: "x"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseParentRef(tt.in), tt.in)
	}
}

func TestItem_RefAndClone(t *testing.T) {
	t.Parallel()

	item := NewItem("main", "a")
	item.Extra["k"] = "v"

	assert.Equal(t, LinkRef("menu_link_content:a"), item.Ref())
	assert.Equal(t, "a", item.Ref().ID())

	clone := item.Clone()
	clone.Extra["k"] = "changed"
	clone.Title = "other"
	assert.Equal(t, "v", item.Extra["k"])
	assert.Empty(t, item.Title)
}
