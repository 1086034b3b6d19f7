package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"humaneval/pkg/observability"

	"go.uber.org/zap"
)

// Command is a request to change a rater's session
type Command interface {
	Validate() error
}

// RaterScoped is implemented by commands that act on one rater's session.
// Middlewares use it to tag logs.
type RaterScoped interface {
	Rater() string
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// Middleware wraps a handler. The first middleware passed to NewCommandBus
// is the outermost.
type Middleware func(next CommandHandler) CommandHandler

// ErrHandlerNotFound is returned by Send for unregistered command types
var ErrHandlerNotFound = errors.New("command handler not found")

// CommandBus dispatches commands to their handlers
type CommandBus struct {
	mu          sync.RWMutex
	handlers    map[reflect.Type]CommandHandler
	middlewares []Middleware
}

// NewCommandBus creates a new command bus
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers:    make(map[reflect.Type]CommandHandler),
		middlewares: middlewares,
	}
}

// Register binds handle to commands of type C. Each type has at most one
// handler.
func Register[C Command](b *CommandBus, handle func(ctx context.Context, cmd C) error) error {
	var zero C
	t := reflect.TypeOf(zero)

	var h CommandHandler = CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("command bus: expected %s, got %T", t, cmd)
		}
		return handle(ctx, typed)
	})
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		h = b.middlewares[i](h)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s", t.Name())
	}
	b.handlers[t] = h
	return nil
}

// Send validates cmd and runs its handler. Errors from the handler are
// wrapped with %w so callers can still match application error codes.
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", commandName(cmd), err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %T", ErrHandlerNotFound, cmd)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("%s: %w", commandName(cmd), err)
	}
	return nil
}

// LoggingMiddleware logs each command with its rater and outcome
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)

			logFields := []zap.Field{
				zap.String("command", commandName(cmd)),
				zap.Duration("elapsed", time.Since(start)),
			}
			if scoped, ok := cmd.(RaterScoped); ok {
				logFields = append(logFields, zap.String("raterID", scoped.Rater()))
			}
			if err != nil {
				logger.Info("Command failed", append(logFields, zap.Error(err))...)
				return err
			}
			logger.Debug("Command succeeded", logFields...)
			return nil
		})
	}
}

// MetricsMiddleware counts commands by type and outcome
func MetricsMiddleware(metrics *observability.Collector) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			start := time.Now()
			err := next.Handle(ctx, cmd)
			metrics.ObserveCommand(commandName(cmd), err, time.Since(start))
			return err
		})
	}
}

func commandName(cmd Command) string {
	return reflect.TypeOf(cmd).Name()
}
