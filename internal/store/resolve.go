package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"webform-store/internal/webform"
)

// ErrResourceNotFound is returned by a ResourceResolver for an unknown path.
var ErrResourceNotFound = errors.New("resource not found")

// ResourceResolver maps a resource path to its identifier.
type ResourceResolver interface {
	ResolvePath(ctx context.Context, path string) (uuid.UUID, error)
}

// StaticResolver resolves paths from a fixed table.
type StaticResolver map[string]uuid.UUID

// ResolvePath implements ResourceResolver.
func (r StaticResolver) ResolvePath(_ context.Context, path string) (uuid.UUID, error) {
	id, ok := r[path]
	if !ok {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}

// ResolveStrategy turns a stored resource token into an identifier, or
// fails so the next strategy can try.
type ResolveStrategy func(ctx context.Context, token string) (uuid.UUID, error)

// ParseIdentifier accepts tokens that already are identifiers.
func ParseIdentifier(_ context.Context, token string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(token))
}

// LookupPath treats the token as a resource path and asks r for it.
func LookupPath(r ResourceResolver) ResolveStrategy {
	return func(ctx context.Context, token string) (uuid.UUID, error) {
		path := strings.TrimSpace(token)
		if path == "" || r == nil {
			return uuid.Nil, ErrResourceNotFound
		}
		return r.ResolvePath(ctx, path)
	}
}

// ResolutionChain tries each strategy in order; the first success wins.
type ResolutionChain []ResolveStrategy

// NewResolutionChain parses identifiers first and falls back to looking the
// token up as a path in r. A nil r only parses.
func NewResolutionChain(r ResourceResolver) ResolutionChain {
	chain := ResolutionChain{ParseIdentifier}
	if r != nil {
		chain = append(chain, LookupPath(r))
	}
	return chain
}

// Resolve returns the identifier for token, or webform.NullResourceID() and
// false when every strategy fails.
func (c ResolutionChain) Resolve(ctx context.Context, token string) (uuid.UUID, bool) {
	for _, strategy := range c {
		id, err := strategy(ctx, token)
		if err == nil {
			return id, true
		}
	}
	return webform.NullResourceID(), false
}
