package state

import (
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrSessionNotFound is returned by lookups for sessions the registry does
// not hold.
var ErrSessionNotFound = errors.New("session not found")

// Loader fetches a persisted snapshot. It returns nil, nil when the session
// has never been stored.
type Loader func(id string) (*Snapshot, error)

type slot struct {
	mu   sync.Mutex
	sess *Session
	// gone is set when a failed load dropped the slot from the registry.
	gone bool
}

// Registry owns the live sessions, keyed by session ID. Each session is
// locked for the duration of a turn; different sessions proceed in
// parallel.
type Registry struct {
	mu       sync.Mutex
	slots    map[string]*slot
	opts     Options
	baseSeed uint64
	now      func() time.Time
}

// NewRegistry creates an empty registry. A zero seed gives every session an
// unpredictable random source; any other seed makes session randomness
// reproducible per session ID.
func NewRegistry(opts Options, seed uint64) *Registry {
	return &Registry{
		slots:    make(map[string]*slot),
		opts:     opts,
		baseSeed: seed,
		now:      time.Now,
	}
}

// Options returns the options used for new sessions.
func (r *Registry) Options() Options { return r.opts }

// RandFor returns the random source a session with id starts with.
func (r *Registry) RandFor(id string) *rand.Rand {
	if r.baseSeed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	h.Write([]byte(id))
	seed := r.baseSeed + h.Sum64()
	return rand.New(rand.NewPCG(seed, seed))
}

// Acquire returns the session for id, locked for exclusive use, and the
// function that releases it. A session not held in memory is restored with
// load when it returns a snapshot, and created fresh otherwise.
func (r *Registry) Acquire(id string, load Loader) (*Session, func(), error) {
	for {
		r.mu.Lock()
		sl, ok := r.slots[id]
		if !ok {
			sl = &slot{}
			r.slots[id] = sl
		}
		r.mu.Unlock()

		sl.mu.Lock()
		if sl.gone {
			sl.mu.Unlock()
			continue
		}
		if sl.sess != nil {
			return sl.sess, sl.mu.Unlock, nil
		}

		var snap *Snapshot
		if load != nil {
			var err error
			if snap, err = load(id); err != nil {
				sl.gone = true
				r.mu.Lock()
				if r.slots[id] == sl {
					delete(r.slots, id)
				}
				r.mu.Unlock()
				sl.mu.Unlock()
				return nil, nil, err
			}
		}
		if snap != nil {
			sl.sess = Restore(*snap, r.opts, r.RandFor(id))
		} else {
			sl.sess = NewSession(id, r.opts, r.RandFor(id), r.now())
		}
		return sl.sess, sl.mu.Unlock, nil
	}
}

// View runs fn with the session locked. It never creates a session.
func (r *Registry) View(id string, fn func(*Session)) error {
	r.mu.Lock()
	sl, ok := r.slots[id]
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.sess == nil {
		return ErrSessionNotFound
	}
	fn(sl.sess)
	return nil
}

// Remove drops a session from memory. A later Acquire starts over from
// whatever its loader returns.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}

// Len returns the number of sessions held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
