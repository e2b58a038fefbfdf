package menu

import "fmt"

// FetchError is returned when the remote document cannot be retrieved.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch menu items from %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when the fetched document does not have the
// expected shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid JSON response format: %s: %v", e.Reason, e.Err)
	}
	return "invalid JSON response format: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// MissingLinkError reports an item without a usable link destination.
// It is not fatal: the item is left unsaved and the import continues.
type MissingLinkError struct {
	ID string
}

func (e *MissingLinkError) Error() string {
	return fmt.Sprintf("menu item with ID %s does not have a valid link", e.ID)
}

// PersistenceError is returned when the storage layer rejects an operation.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s menu item %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
