// Package session tracks one client's position in the app flow: picking a
// meeting, recording, uploading, processing, or viewing results.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/capture"
	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/transcription"
)

// State is the machine's current phase.
type State string

const (
	StateSelecting  State = "selecting"
	StateRecording  State = "recording"
	StateUploading  State = "uploading"
	StateProcessing State = "processing"
	StateResults    State = "results"
)

// ErrBusy is returned when a new run is requested while one is already in
// flight.
var ErrBusy = errors.New("a recording is already being processed")

// Snapshot is the externally visible machine state.
type Snapshot struct {
	SessionID string                `json:"sessionId"`
	State     State                 `json:"state"`
	Progress  transcription.Progress `json:"progress"`
	Error     string                `json:"error,omitempty"`
	Meeting   *models.MeetingRecord `json:"meeting,omitempty"`
}

// Machine is one session's state machine. Terminal pipeline outcomes move
// it to results on success or back to selecting on failure; the previously
// active meeting survives a failed run.
type Machine struct {
	id       string
	pipeline *pipeline.Pipeline
	store    *meetings.Store
	recorder *capture.Recorder
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	progress transcription.Progress
	lastErr  string
	active   *models.MeetingRecord
}

// NewMachine creates a machine in the selecting state. recorder may be nil
// when server-side capture is unavailable.
func NewMachine(id string, p *pipeline.Pipeline, store *meetings.Store, recorder *capture.Recorder, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		id:       id,
		pipeline: p,
		store:    store,
		recorder: recorder,
		logger:   logger,
		state:    StateSelecting,
	}
}

// ID returns the session id.
func (m *Machine) ID() string { return m.id }

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		SessionID: m.id,
		State:     m.state,
		Progress:  m.progress,
		Error:     m.lastErr,
		Meeting:   m.active,
	}
}

// StartRecording begins server-side capture. Refused while a pipeline run
// or another recording is in flight.
func (m *Machine) StartRecording(includeSystemAudio bool) error {
	m.mu.Lock()
	switch m.state {
	case StateProcessing, StateUploading:
		m.mu.Unlock()
		return ErrBusy
	case StateRecording:
		m.mu.Unlock()
		return errs.Input("recording already in progress")
	}
	if m.recorder == nil {
		m.mu.Unlock()
		return errs.Configuration("server-side recording is not available")
	}
	m.mu.Unlock()

	if err := m.recorder.Start(includeSystemAudio); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = StateRecording
	m.lastErr = ""
	m.mu.Unlock()
	return nil
}

// StopRecording ends capture and runs the pipeline on the result.
func (m *Machine) StopRecording(ctx context.Context) (*models.MeetingRecord, error) {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return nil, errs.Input("no recording in progress")
	}
	m.mu.Unlock()

	audio, err := m.recorder.Stop()
	if err != nil {
		m.fail(err)
		return nil, err
	}
	return m.Process(ctx, *audio, false)
}

// CancelRecording ends capture and discards the audio.
func (m *Machine) CancelRecording() error {
	m.mu.Lock()
	if m.state != StateRecording {
		m.mu.Unlock()
		return errs.Input("no recording in progress")
	}
	m.mu.Unlock()

	if _, err := m.recorder.Stop(); err != nil {
		return err
	}
	m.mu.Lock()
	m.state = StateSelecting
	m.mu.Unlock()
	return nil
}

// Process runs the pipeline on an audio object. On success the new
// meeting becomes the active one and the machine shows results; on failure
// the machine returns to selecting, keeps the previously active meeting,
// and records the error.
func (m *Machine) Process(ctx context.Context, audio models.Audio, withTimestamps bool) (*models.MeetingRecord, error) {
	if err := m.begin(); err != nil {
		return nil, err
	}
	return m.runClaimed(ctx, audio, withTimestamps)
}

// runClaimed runs the pipeline after begin has claimed the machine.
func (m *Machine) runClaimed(ctx context.Context, audio models.Audio, withTimestamps bool) (*models.MeetingRecord, error) {
	record, err := m.pipeline.Run(ctx, m.id, audio, withTimestamps)
	if err != nil {
		m.fail(err)
		return nil, err
	}

	m.mu.Lock()
	m.active = record
	m.state = StateResults
	m.progress = transcription.Progress{Stage: transcription.StageTranscribing, Percent: 100}
	m.mu.Unlock()
	return record, nil
}

// begin claims the machine for a pipeline run, resetting progress and
// clearing any previous error.
func (m *Machine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateProcessing || m.state == StateUploading {
		return ErrBusy
	}
	m.state = StateProcessing
	m.progress = transcription.Progress{Stage: transcription.StageProcessing, Percent: 0}
	m.lastErr = ""
	return nil
}

func (m *Machine) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateSelecting
	m.lastErr = err.Error()
	m.progress = transcription.Progress{}
}

// SetProgress records pipeline progress for polling clients.
func (m *Machine) SetProgress(p transcription.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateProcessing {
		m.progress = p
	}
}

// Complete installs a meeting processed out of band (by the worker) as the
// active one.
func (m *Machine) Complete(record *models.MeetingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = record
	m.state = StateResults
	m.lastErr = ""
	m.progress = transcription.Progress{Stage: transcription.StageTranscribing, Percent: 100}
}

// Fail records an out-of-band pipeline failure.
func (m *Machine) Fail(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateSelecting
	m.lastErr = message
	m.progress = transcription.Progress{}
}

// MarkUploading claims the machine for a queued upload run.
func (m *Machine) MarkUploading() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateProcessing || m.state == StateUploading {
		return ErrBusy
	}
	m.state = StateUploading
	m.progress = transcription.Progress{Stage: transcription.StageProcessing, Percent: 0}
	m.lastErr = ""
	return nil
}

// MarkProcessing moves a queued upload from uploading to processing once
// its job is enqueued.
func (m *Machine) MarkProcessing() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateUploading {
		m.state = StateProcessing
	}
}

// LoadMeeting makes a stored meeting the active one without running the
// pipeline.
func (m *Machine) LoadMeeting(ctx context.Context, meetingID string) (*models.MeetingRecord, error) {
	m.mu.Lock()
	if m.state == StateProcessing || m.state == StateUploading {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	m.mu.Unlock()

	record, err := m.store.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.active = record
	m.state = StateResults
	m.lastErr = ""
	m.mu.Unlock()
	return record, nil
}

// CloseMeeting returns to the selecting state, keeping history intact.
func (m *Machine) CloseMeeting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateResults {
		m.state = StateSelecting
	}
	m.active = nil
}

// DeleteMeeting removes a stored meeting; when it was the active one the
// machine returns to selecting.
func (m *Machine) DeleteMeeting(ctx context.Context, meetingID string) error {
	if err := m.store.Delete(ctx, meetingID); err != nil {
		return err
	}
	m.mu.Lock()
	if m.active != nil && m.active.ID == meetingID {
		m.active = nil
		m.state = StateSelecting
	}
	m.mu.Unlock()
	return nil
}

// ActiveMeeting returns the currently active meeting, or nil.
func (m *Machine) ActiveMeeting() *models.MeetingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
