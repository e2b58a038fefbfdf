package v1

import (
	"github.com/stacklok/menu-importer/internal/menu"
	"github.com/stacklok/menu-importer/internal/reconcile"
)

// ImportRequest is the body of POST /v1/imports
type ImportRequest struct {
	// Endpoint is the JSON:API collection URL to import from
	Endpoint string `json:"endpoint" validate:"required,http_url"`

	// Collection overrides the collection derived from the endpoint path
	Collection string `json:"collection,omitempty" validate:"omitempty,max=128,collection"`
}

// ImportResponse is returned by a successful import
type ImportResponse struct {
	Message    string           `json:"message"`
	Collection string           `json:"collection"`
	Result     reconcile.Result `json:"result"`
}

// MenuResponse lists the stored items of a collection
type MenuResponse struct {
	Collection string       `json:"collection"`
	Items      []*menu.Item `json:"items"`
}
