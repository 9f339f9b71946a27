// Package repo defines the generic repository contract and an in-memory
// implementation used by the mock persistence layer.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an id does not resolve to an entity.
var ErrNotFound = errors.New("repo: not found")

// Repository is a generic keyed store.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Put(ctx context.Context, id ID, entity T) error
	Delete(ctx context.Context, id ID) error
}

// ListOpts controls pagination and filtering for List.
type ListOpts struct {
	Offset int
	Limit  int
	// Match filters entities; nil matches everything.
	Match func(any) bool
}
