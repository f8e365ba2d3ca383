package di

import (
	"sync"
	"weak"
)

const minSweep = 16

// arena tracks instances through weak pointers. It never keeps an instance alive; dead
// entries are swept when the arena grows past twice its size after the last sweep.
type arena[E any] struct {
	mu   sync.Mutex
	refs []weak.Pointer[E]
	next int
}

// track adds p to the arena.
func (a *arena[E]) track(p *E) {
	if p == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.refs) >= a.next {
		a.sweep()
		a.next = max(2*len(a.refs), minSweep)
	}
	a.refs = append(a.refs, weak.Make(p))
}

func (a *arena[E]) sweep() {
	live := a.refs[:0]
	for _, r := range a.refs {
		if r.Value() != nil {
			live = append(live, r)
		}
	}
	clear(a.refs[len(live):])
	a.refs = live
}

// live returns the number of tracked instances still reachable.
func (a *arena[E]) live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sweep()
	return len(a.refs)
}

// drain empties the arena and returns the instances still reachable, oldest first.
func (a *arena[E]) drain() []*E {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*E, 0, len(a.refs))
	for _, r := range a.refs {
		if v := r.Value(); v != nil {
			out = append(out, v)
		}
	}
	a.refs = nil
	a.next = 0
	return out
}
