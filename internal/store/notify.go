package store

// Subscription delivers a signal after every committed write to the store.
//
// The channel is buffered with size 1: bursts of writes coalesce into one
// signal, so a receiver must read the change feed from its own cursor rather
// than count signals.
type Subscription struct {
	store  *Store
	signal chan struct{}
}

// Notify subscribes to write signals. Call Close when done.
func (s *Store) Notify() *Subscription {
	sub := &Subscription{store: s, signal: make(chan struct{}, 1)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs == nil {
		// Store already closed.
		close(sub.signal)
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// C returns the signal channel. It is closed when the subscription or the
// store is closed.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case _, ok := <-sub.C():
//	    // read ChangesSince(cursor)
//	}
func (sub *Subscription) C() <-chan struct{} {
	return sub.signal
}

// Close unsubscribes. Safe to call more than once.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.signal)
}

func (s *Store) broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		// Non-blocking: the buffer of 1 coalesces signals.
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

func (s *Store) closeSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		close(sub.signal)
	}
	s.subs = nil
}
