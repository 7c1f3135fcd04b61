// Package di provides a minimal service container with typed tokens
// and lazy construction.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	Get(name string) (any, bool)
}

// Container registers and resolves named services.
type Container interface {
	ServiceRegistry
	Register(name string, service any)
}

type container struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{services: make(map[string]any)}
}

func (c *container) Register(name string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

func (c *container) Get(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[name]
	return svc, ok
}

// Token is a typed handle for a registered service.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registration name.
func (t Token[T]) Name() string {
	return t.name
}

// lazyService defers construction until first resolution and then
// memoizes the instance.
type lazyService[T any] struct {
	once    sync.Once
	factory func(ServiceRegistry) T
	value   T
}

func (l *lazyService[T]) resolve(r ServiceRegistry) T {
	l.once.Do(func() {
		l.value = l.factory(r)
	})
	return l.value
}

// RegisterToken registers a lazily-constructed service under a typed
// token. The factory runs at most once, on first resolution.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.Register(token.name, &lazyService[T]{factory: factory})
}

// RegisterValue registers an already-constructed service under a typed token.
func RegisterValue[T any](c Container, token Token[T], service T) {
	c.Register(token.name, service)
}

// GetToken resolves a typed token, panicking if missing or mistyped.
// Wiring errors are programmer errors and should fail fast at startup.
func GetToken[T any](r ServiceRegistry, token Token[T]) T {
	svc, ok := r.Get(token.name)
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", token.name))
	}
	if lazy, ok := svc.(*lazyService[T]); ok {
		return lazy.resolve(r)
	}
	typed, ok := svc.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has type %T, not the requested type", token.name, svc))
	}
	return typed
}
