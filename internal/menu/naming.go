package menu

import (
	"fmt"
	"net/url"
	"strings"
)

// CollectionNameFromEndpoint derives the collection name from an endpoint URL:
// the last non-empty segment of its path.
//
//	https://example.com/jsonapi/menu_items/main/ -> "main"
func CollectionNameFromEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i], nil
		}
	}

	return "", fmt.Errorf("endpoint %q has no path segment to derive a collection name from", endpoint)
}
