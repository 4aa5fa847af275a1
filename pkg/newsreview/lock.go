package newsreview

import (
	"context"
	"sync"
)

// KeyedLocker is an in-process Locker. Entries are dropped once no caller
// holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[int64]*keyedLock)}
}

// Lock blocks until draftID is free or ctx is done.
func (l *KeyedLocker) Lock(ctx context.Context, draftID int64) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[draftID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[draftID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(draftID, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(draftID, kl)
		})
	}, nil
}

func (l *KeyedLocker) release(draftID int64, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, draftID)
	}
}

// Len returns the number of ids currently held or awaited.
func (l *KeyedLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
