package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/capture"
	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/pipeline"
)

// Manager hands out session machines keyed by id. One recorder is shared
// by all sessions since it owns the host's audio devices.
type Manager struct {
	pipeline *pipeline.Pipeline
	store    *meetings.Store
	recorder *capture.Recorder
	logger   *zap.Logger

	mu       sync.Mutex
	machines map[string]*Machine
}

// NewManager creates a session manager.
func NewManager(p *pipeline.Pipeline, store *meetings.Store, recorder *capture.Recorder, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		pipeline: p,
		store:    store,
		recorder: recorder,
		logger:   logger,
		machines: make(map[string]*Machine),
	}
}

// Create starts a new session and returns its machine.
func (mgr *Manager) Create() *Machine {
	m := NewMachine(uuid.New().String(), mgr.pipeline, mgr.store, mgr.recorder, mgr.logger)
	mgr.mu.Lock()
	mgr.machines[m.ID()] = m
	mgr.mu.Unlock()
	mgr.logger.Info("session created", zap.String("session_id", m.ID()))
	return m
}

// Get returns the machine for a session id.
func (mgr *Manager) Get(id string) (*Machine, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	m, ok := mgr.machines[id]
	if !ok {
		return nil, errs.Inputf("unknown session %q", id)
	}
	return m, nil
}

// Remove drops a session.
func (mgr *Manager) Remove(id string) {
	mgr.mu.Lock()
	delete(mgr.machines, id)
	mgr.mu.Unlock()
}
