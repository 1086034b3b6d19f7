package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Query is a read-only request. Queries never create sessions.
type Query interface {
	Validate() error
}

type handlerFunc func(ctx context.Context, query Query) (interface{}, error)

// ErrHandlerNotFound is returned for unregistered query types
var ErrHandlerNotFound = errors.New("query handler not found")

// QueryBus dispatches queries to their handlers
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]handlerFunc
}

// NewQueryBus creates a new query bus
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]handlerFunc)}
}

// Register binds handle to queries of type Q
func Register[Q Query, R any](b *QueryBus, handle func(ctx context.Context, query Q) (R, error)) error {
	var zero Q
	t := reflect.TypeOf(zero)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for query type %s", t.Name())
	}
	b.handlers[t] = func(ctx context.Context, query Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("query bus: expected %s, got %T", t, query)
		}
		return handle(ctx, typed)
	}
	return nil
}

// Ask dispatches a query and returns the untyped result
func (b *QueryBus) Ask(ctx context.Context, query Query) (interface{}, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %T: %w", query, err)
	}

	b.mu.RLock()
	handle, exists := b.handlers[reflect.TypeOf(query)]
	b.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %T", ErrHandlerNotFound, query)
	}

	return handle(ctx, query)
}

// Ask dispatches query and asserts the result to R
func Ask[R any](ctx context.Context, b *QueryBus, query Query) (R, error) {
	var zero R
	result, err := b.Ask(ctx, query)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, fmt.Errorf("query bus: %T returned %T", query, result)
	}
	return typed, nil
}
