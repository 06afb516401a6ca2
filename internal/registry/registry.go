package registry

import (
	"sync"

	"github.com/calleyai/coldcall-gateway/internal/domain"
	"github.com/calleyai/coldcall-gateway/pkg/logger"
	"go.uber.org/zap"
)

// Registry is the process-wide store of active call sessions, keyed by call
// SID. Creation, lookup and removal are safe for concurrent use by multiple
// call handlers; within one call only the owning media bridge mutates the
// session itself.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	presence *Presence // optional, nil when Redis is not configured
}

// New creates an empty registry. presence may be nil.
func New(presence *Presence) *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
		presence: presence,
	}
}

// Create stores a session under its call SID, replacing any stale entry.
func (r *Registry) Create(sess *domain.Session) {
	r.mu.Lock()
	r.sessions[sess.CallSID] = sess
	r.mu.Unlock()

	if r.presence != nil {
		r.presence.Register(sess)
	}
	logger.Base().Info("session created",
		zap.String("call_sid", sess.CallSID),
		zap.String("caller_number", sess.CallerNumber))
}

// Get returns the session for a call SID, or nil when absent.
func (r *Registry) Get(callSID string) *domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callSID]
}

// Remove deletes the session for a call SID. Removing an absent session is a
// no-op.
func (r *Registry) Remove(callSID string) {
	r.mu.Lock()
	_, existed := r.sessions[callSID]
	delete(r.sessions, callSID)
	r.mu.Unlock()

	if existed && r.presence != nil {
		r.presence.Unregister(callSID)
	}
	if existed {
		logger.Base().Info("session removed", zap.String("call_sid", callSID))
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
