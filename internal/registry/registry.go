package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthorized reports a token that resolves to no known worker.
var ErrUnauthorized = errors.New("unauthorized")

// WorkerIdentity is an authenticated worker session. A worker holds at most
// one task at a time; CurrentTask exists for observability only, lease
// correctness is tracked per task in the jobs store.
type WorkerIdentity struct {
	ID          uuid.UUID
	DisplayName string
	LastSeen    time.Time
	CurrentTask uuid.UUID
}

// Registry tracks authenticated worker identities keyed by capability token.
// Identities are session-scoped: they are minted at login and never persisted.
type Registry struct {
	mu      sync.RWMutex
	byToken map[string]*WorkerIdentity
	now     func() time.Time
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byToken: make(map[string]*WorkerIdentity),
		now:     time.Now,
	}
}

// Login mints a new worker identity and its capability token.
func (r *Registry) Login(displayName string) (string, WorkerIdentity) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = "anonymous worker"
	}

	token := uuid.NewString()
	identity := &WorkerIdentity{
		ID:          uuid.New(),
		DisplayName: displayName,
		LastSeen:    r.now(),
	}

	r.mu.Lock()
	r.byToken[token] = identity
	r.mu.Unlock()
	return token, *identity
}

// Resolve maps a capability token to its worker identity and refreshes
// last-seen. Unknown tokens return ErrUnauthorized.
func (r *Registry) Resolve(token string) (WorkerIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.byToken[token]
	if !ok {
		return WorkerIdentity{}, ErrUnauthorized
	}
	identity.LastSeen = r.now()
	return *identity, nil
}

// Logout revokes a capability token.
func (r *Registry) Logout(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byToken[token]; !ok {
		return ErrUnauthorized
	}
	delete(r.byToken, token)
	return nil
}

// SetCurrentTask records what a worker is holding, for status views.
func (r *Registry) SetCurrentTask(workerID, taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.byToken {
		if identity.ID == workerID {
			identity.CurrentTask = taskID
			identity.LastSeen = r.now()
			return
		}
	}
}

// List returns a snapshot of known workers ordered by display name.
func (r *Registry) List() []WorkerIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]WorkerIdentity, 0, len(r.byToken))
	for _, identity := range r.byToken {
		out = append(out, *identity)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
