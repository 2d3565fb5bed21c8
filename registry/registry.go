// Package registry is an explicit typed service registry: stable tokens
// minted from string tags, providers registered by hand, values memoized on
// first resolve. Nothing here is implicit or global; hosts build a registry
// and pass it to the components that need one.
package registry

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Token identifies a registered service. Tokens minted from the same tag
// are equal, so independently compiled packages can agree on a service by
// agreeing on its tag string.
type Token uint64

// TokenFor mints the token for a tag.
func TokenFor(tag string) Token {
	return Token(xxhash.Sum64String(tag))
}

// Provider builds a service value on first resolve.
type Provider func() (any, error)

var (
	ErrNotRegistered = errors.New("registry: no provider for token")
	ErrWrongType     = errors.New("registry: resolved value has wrong type")
)

// Registry maps tokens to providers and memoizes resolved values.
type Registry struct {
	providers map[Token]Provider
	values    map[Token]any
}

func New() *Registry {
	return &Registry{
		providers: map[Token]Provider{},
		values:    map[Token]any{},
	}
}

// Provide registers a provider under tag, replacing any earlier
// registration for the same tag. A replaced provider's memoized value is
// dropped.
func (r *Registry) Provide(tag string, p Provider) Token {
	tok := TokenFor(tag)
	r.providers[tok] = p
	delete(r.values, tok)
	return tok
}

// Resolve returns the service for tok, invoking its provider on first use.
func (r *Registry) Resolve(tok Token) (any, error) {
	if v, ok := r.values[tok]; ok {
		return v, nil
	}
	p, ok := r.providers[tok]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotRegistered, tok)
	}
	v, err := p()
	if err != nil {
		return nil, err
	}
	r.values[tok] = v
	return v, nil
}

// Lookup resolves tag and asserts the service's concrete type.
func Lookup[T any](r *Registry, tag string) (T, error) {
	var zero T
	v, err := r.Resolve(TokenFor(tag))
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrWrongType, tag, v)
	}
	return typed, nil
}
