package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/analysis"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/meetings"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/internal/pipeline"
	"github.com/meetscribe/backend/internal/transcription"
)

type fakeChat struct{}

func (f *fakeChat) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return `{"summary": ["a"], "actionItems": ["b"], "sentiment": {"overall": "neutral", "positive": 0, "negative": 0}}`, nil
}

func (f *fakeChat) CompleteFunction(ctx context.Context, req llm.CompletionRequest, fn llm.FunctionSpec) (json.RawMessage, error) {
	return nil, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req llm.TranscriptionRequest) (*models.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Transcript{Text: f.text}, nil
}

type eventLog struct {
	events []string
}

func (e *eventLog) BroadcastAndPublish(sessionID, event string, payload interface{}) {
	e.events = append(e.events, event)
}

func testAudio() models.Audio {
	return models.Audio{Filename: "recording.wav", ContentType: "audio/wav", Data: []byte("riff")}
}

func newTestMachine(t *testing.T, transcriptText string, events pipeline.Events) (*Machine, *meetings.Store) {
	t.Helper()
	store := meetings.NewStore(meetings.NewMemoryRepository(), nil, nil)
	adapter := transcription.NewAdapter(&fakeTranscriber{text: transcriptText}, "en", nil)
	engine := analysis.NewEngine(&fakeChat{}, nil)
	p := pipeline.New(adapter, engine, store, events, nil)
	return NewMachine("s1", p, store, nil, nil), store
}

func TestProcessMovesToResultsAndPersists(t *testing.T) {
	events := &eventLog{}
	m, store := newTestMachine(t, "we discussed things", events)

	record, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)
	require.NotNil(t, record)

	snap := m.Snapshot()
	assert.Equal(t, StateResults, snap.State)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Meeting)
	assert.Equal(t, record.ID, snap.Meeting.ID)

	stored, err := store.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "we discussed things", stored.Text)

	// progress events then the terminal completed event
	require.NotEmpty(t, events.events)
	assert.Equal(t, "completed", events.events[len(events.events)-1])
	assert.Contains(t, events.events, "progress")
}

func TestProcessNoSpeechKeepsPriorMeeting(t *testing.T) {
	m, _ := newTestMachine(t, "earlier meeting", nil)
	prior, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)

	// Next run transcribes to silence.
	silent, _ := newTestMachine(t, "   ", nil)
	silent.active = prior
	silent.state = StateResults

	_, err = silent.Process(context.Background(), testAudio(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no speech was detected")

	snap := silent.Snapshot()
	assert.Equal(t, StateSelecting, snap.State)
	assert.Contains(t, snap.Error, "no speech was detected")
	require.NotNil(t, snap.Meeting)
	assert.Equal(t, prior.ID, snap.Meeting.ID)
}

func TestProcessRefusedWhileBusy(t *testing.T) {
	m, _ := newTestMachine(t, "text", nil)
	require.NoError(t, m.MarkUploading())

	_, err := m.Process(context.Background(), testAudio(), false)
	assert.ErrorIs(t, err, ErrBusy)

	err = m.StartRecording(false)
	assert.ErrorIs(t, err, ErrBusy)

	_, err = m.LoadMeeting(context.Background(), "meeting-x")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestProcessClearsPreviousError(t *testing.T) {
	m, _ := newTestMachine(t, "  ", nil)
	_, err := m.Process(context.Background(), testAudio(), false)
	require.Error(t, err)
	assert.NotEmpty(t, m.Snapshot().Error)

	ok, _ := newTestMachine(t, "real words now", nil)
	ok.lastErr = "no speech was detected in the recording"
	_, err = ok.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)
	assert.Empty(t, ok.Snapshot().Error)
}

func TestLoadMeetingBypassesPipeline(t *testing.T) {
	m, store := newTestMachine(t, "text", nil)
	record, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)

	other := NewMachine("s2", nil, store, nil, nil)
	loaded, err := other.LoadMeeting(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, loaded.ID)
	assert.Equal(t, StateResults, other.Snapshot().State)

	_, err = other.LoadMeeting(context.Background(), "meeting-missing")
	assert.Error(t, err)
}

func TestDeleteActiveMeetingReturnsToSelecting(t *testing.T) {
	m, store := newTestMachine(t, "text", nil)
	record, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)

	require.NoError(t, m.DeleteMeeting(context.Background(), record.ID))
	snap := m.Snapshot()
	assert.Equal(t, StateSelecting, snap.State)
	assert.Nil(t, snap.Meeting)

	_, err = store.Get(context.Background(), record.ID)
	assert.Error(t, err)
}

func TestDeleteOtherMeetingKeepsState(t *testing.T) {
	m, store := newTestMachine(t, "text", nil)
	active, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // meeting ids derive from wall-clock milliseconds
	other, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)
	_ = other

	// active is now the second record; delete the first
	require.NoError(t, m.DeleteMeeting(context.Background(), active.ID))
	snap := m.Snapshot()
	assert.Equal(t, StateResults, snap.State)
	require.NotNil(t, snap.Meeting)

	_, err = store.Get(context.Background(), snap.Meeting.ID)
	assert.NoError(t, err)
}

func TestCloseMeeting(t *testing.T) {
	m, _ := newTestMachine(t, "text", nil)
	_, err := m.Process(context.Background(), testAudio(), false)
	require.NoError(t, err)

	m.CloseMeeting()
	snap := m.Snapshot()
	assert.Equal(t, StateSelecting, snap.State)
	assert.Nil(t, snap.Meeting)
}

func TestManagerLifecycle(t *testing.T) {
	mgr := NewManager(nil, nil, nil, nil)
	m := mgr.Create()

	got, err := mgr.Get(m.ID())
	require.NoError(t, err)
	assert.Same(t, m, got)

	mgr.Remove(m.ID())
	_, err = mgr.Get(m.ID())
	assert.Error(t, err)
}
