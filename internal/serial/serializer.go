package serial

import (
	"context"
	"sync"
)

// Serializer guarantees at most one in-flight function per key, with a global
// cap on how many distinct keys run concurrently. Excess requests queue on
// their key first, then on the global limit, so a backlog on one conversation
// never starves others of global slots.
type Serializer struct {
	slots chan struct{}

	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Serializer allowing up to maxConcurrent distinct keys in
// flight at once.
func New(maxConcurrent int) *Serializer {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Serializer{
		slots: make(chan struct{}, maxConcurrent),
		keys:  make(map[string]*keyLock),
	}
}

// RunExclusive runs fn while holding key's exclusive lock and a global slot.
// Blocks until both are available or ctx is done.
func (s *Serializer) RunExclusive(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	kl := s.acquireKey(key)
	defer s.releaseKey(key, kl)

	kl.mu.Lock()
	defer kl.mu.Unlock()

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slots }()

	return fn(ctx)
}

func (s *Serializer) acquireKey(key string) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	kl, ok := s.keys[key]
	if !ok {
		kl = &keyLock{}
		s.keys[key] = kl
	}
	kl.refs++
	return kl
}

func (s *Serializer) releaseKey(key string, kl *keyLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(s.keys, key)
	}
}
