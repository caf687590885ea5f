package storage

// WriteObserver is notified after every committed write transaction.
// Callbacks run synchronously on the writing goroutine, in registration
// order, and must not write to the store.
type WriteObserver interface {
	OnCommit(stats WriteStats)
}

// WriteObserverFunc adapts a function to WriteObserver.
type WriteObserverFunc func(stats WriteStats)

// OnCommit calls f(stats).
func (f WriteObserverFunc) OnCommit(stats WriteStats) { f(stats) }

type registeredObserver struct {
	id       int
	observer WriteObserver
}

// RegisterObserver adds an observer and returns a function removing it.
func (s *SQLStore) RegisterObserver(o WriteObserver) (unregister func()) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	id := s.nextObserverID
	s.nextObserverID++
	s.observers = append(s.observers, registeredObserver{id: id, observer: o})
	return func() {
		s.observerMu.Lock()
		defer s.observerMu.Unlock()
		for i, r := range s.observers {
			if r.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// ClearObservers removes all observers.
func (s *SQLStore) ClearObservers() {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observers = nil
}

func (s *SQLStore) notifyObservers(stats WriteStats) {
	s.observerMu.RLock()
	observers := make([]registeredObserver, len(s.observers))
	copy(observers, s.observers)
	s.observerMu.RUnlock()

	for _, r := range observers {
		r.observer.OnCommit(stats)
	}
}
