package client

import (
	"context"
	"sync"
)

// Lazy is a process-scoped model-service handle built on first use.
// After construction it is read-only and safe to share between requests.
type Lazy struct {
	build func() (ModelService, error)

	once sync.Once
	svc  ModelService
	err  error
}

// NewLazy returns a handle that calls build exactly once
func NewLazy(build func() (ModelService, error)) *Lazy {
	return &Lazy{build: build}
}

// Get builds the service if needed; a build failure is returned on every call
func (l *Lazy) Get() (ModelService, error) {
	l.once.Do(func() {
		l.svc, l.err = l.build()
	})
	return l.svc, l.err
}

// Generate forwards to the underlying service
func (l *Lazy) Generate(ctx context.Context, req Request) (string, error) {
	svc, err := l.Get()
	if err != nil {
		return "", err
	}
	return svc.Generate(ctx, req)
}
