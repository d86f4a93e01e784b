package service

import (
	"fmt"
	"sync"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
)

// agentLocks guards agents against overlapping deploy and destroy calls
// within this process.
type agentLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func newAgentLocks() *agentLocks {
	return &agentLocks{held: make(map[uuid.UUID]struct{})}
}

// acquire takes every id or none. The returned func releases them.
func (l *agentLocks) acquire(ids ...uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, id := range ids {
		if _, busy := l.held[id]; busy {
			return nil, fmt.Errorf("%w: agent %s has a deployment operation in progress", domain.ErrConflict, id)
		}
	}
	for _, id := range ids {
		l.held[id] = struct{}{}
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for _, id := range ids {
			delete(l.held, id)
		}
	}, nil
}
