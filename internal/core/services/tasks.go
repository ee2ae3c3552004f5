package services

import (
	"context"
	"sort"
	"sync"
)

// taskHandle is the in-process side of a running job.
type taskHandle struct {
	profile string
	cancel  context.CancelFunc
	done    chan struct{}
}

// taskRegistry maps job ids to handles of jobs running in this process.
// The job store remains the source of truth; handles do not survive a
// restart.
type taskRegistry struct {
	mu    sync.Mutex
	tasks map[string]*taskHandle

	// locks serializes enqueues per profile. Entries are never removed;
	// there is one per profile name seen.
	locks map[string]*sync.Mutex
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{
		tasks: make(map[string]*taskHandle),
		locks: make(map[string]*sync.Mutex),
	}
}

// lockProfile blocks until the caller holds profile's enqueue lock and
// returns the unlock func.
func (r *taskRegistry) lockProfile(profile string) func() {
	r.mu.Lock()
	l, ok := r.locks[profile]
	if !ok {
		l = &sync.Mutex{}
		r.locks[profile] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (r *taskRegistry) add(id string, h *taskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[id] = h
}

func (r *taskRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
}

func (r *taskRegistry) get(id string) (*taskHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.tasks[id]
	return h, ok
}

// signalProfile cancels every handle of a profile and returns their ids.
func (r *taskRegistry) signalProfile(profile string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, h := range r.tasks {
		if h.profile == profile {
			h.cancel()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// snapshot returns a copy of the registry.
func (r *taskRegistry) snapshot() map[string]*taskHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*taskHandle, len(r.tasks))
	for id, h := range r.tasks {
		out[id] = h
	}
	return out
}

func (r *taskRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
