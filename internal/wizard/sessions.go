package wizard

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned for unknown or expired wizard ids.
var ErrNotFound = eris.New("wizard: not found")

// Sessions keeps live wizards in memory and expires idle ones.
type Sessions struct {
	cache      *cache.Cache
	ttl        time.Duration
	loader     Loader
	dispatcher Dispatcher
}

// NewSessions creates a session registry whose wizards expire after ttl
// without access.
func NewSessions(ttl time.Duration, loader Loader, dispatcher Dispatcher) *Sessions {
	return &Sessions{
		cache:      cache.New(ttl, ttl/2+time.Second),
		ttl:        ttl,
		loader:     loader,
		dispatcher: dispatcher,
	}
}

// Start creates and registers a new wizard for owner.
func (s *Sessions) Start(owner Owner) *Wizard {
	w := New(owner, s.loader, s.dispatcher)
	s.cache.Set(w.ID(), w, s.ttl)
	return w
}

// Get returns the wizard with id and refreshes its expiry.
func (s *Sessions) Get(id string) (*Wizard, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "wizard: %s", id)
	}
	w := v.(*Wizard)
	s.cache.Set(id, w, s.ttl)
	return w, nil
}

// Delete removes a wizard.
func (s *Sessions) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live wizards.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}
