package jsonapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/stacklok/menu-importer/internal/httpclient"
	"github.com/stacklok/menu-importer/internal/menu"
)

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go Fetcher

// Fetcher retrieves and decodes the menu records published at an endpoint
type Fetcher interface {
	// Fetch issues a single GET to endpoint and decodes the response.
	// Transport failures are returned as *menu.FetchError, shape failures
	// as *menu.DecodeError.
	Fetch(ctx context.Context, endpoint string) (*FetchResult, error)
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Records are the decoded entries, in document order
	Records []menu.Record

	// Hash is the SHA256 hash of the raw response body
	Hash string
}

// httpFetcher is the Fetcher backed by an HTTP client
type httpFetcher struct {
	client httpclient.Client
}

// NewFetcher creates a Fetcher that uses client for the network call
func NewFetcher(client httpclient.Client) Fetcher {
	return &httpFetcher{client: client}
}

// Fetch retrieves and decodes the document at endpoint
func (f *httpFetcher) Fetch(ctx context.Context, endpoint string) (*FetchResult, error) {
	body, err := f.client.Get(ctx, endpoint)
	if err != nil {
		return nil, &menu.FetchError{Endpoint: endpoint, Err: err}
	}

	records, err := Decode(body)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(body)
	return &FetchResult{
		Records: records,
		Hash:    hex.EncodeToString(sum[:]),
	}, nil
}
