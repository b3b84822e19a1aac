package guard

import (
	"context"
	"sync"
)

// Navigator lets code below the surface (the 401 response hook) request a
// navigation. The web surface reads the request's slot after the handler
// runs; the CLI just reports it.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) { f(ctx, target) }

type slotKey struct{}

// Slot records the navigation requested while serving one request. The last
// request wins.
type Slot struct {
	mu     sync.Mutex
	target string
}

// WithSlot attaches a fresh slot to ctx.
func WithSlot(ctx context.Context) (context.Context, *Slot) {
	s := &Slot{}
	return context.WithValue(ctx, slotKey{}, s), s
}

// SlotFromContext returns the slot attached by WithSlot, or nil.
func SlotFromContext(ctx context.Context) *Slot {
	s, _ := ctx.Value(slotKey{}).(*Slot)
	return s
}

// Target returns the requested navigation, if any.
func (s *Slot) Target() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.target != ""
}

func (s *Slot) set(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = target
}

// ContextNavigator stores navigations in the Slot carried by ctx. Requests
// without a slot are ignored.
type ContextNavigator struct{}

func (ContextNavigator) Navigate(ctx context.Context, target string) {
	if s := SlotFromContext(ctx); s != nil {
		s.set(target)
	}
}
