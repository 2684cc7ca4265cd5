package meetings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
)

type fakeChat struct {
	response string
	err      error
}

func (f *fakeChat) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return f.response, f.err
}

func (f *fakeChat) CompleteFunction(ctx context.Context, req llm.CompletionRequest, fn llm.FunctionSpec) (json.RawMessage, error) {
	return nil, f.err
}

func testTranscript() *models.Transcript {
	return &models.Transcript{Text: "we talked about the launch"}
}

func testAnalysis() *models.Analysis {
	return &models.Analysis{
		Summary:     []string{"Launch moved to May"},
		ActionItems: []string{"Update the plan"},
		Sentiment:   models.Sentiment{Overall: "neutral"},
	}
}

func TestSaveNewAssignsIDFromTimestamp(t *testing.T) {
	store := NewStore(NewMemoryRepository(), &fakeChat{response: "Launch Planning"}, nil)
	store.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}

	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "meeting-2026-03-14T09-26-53-589Z", record.ID)
	assert.Equal(t, "2026-03-14T09:26:53.589Z", record.Timestamp)
	assert.Equal(t, "Launch Planning", record.Title)
}

func TestSaveNewPrependsNewestFirst(t *testing.T) {
	store := NewStore(NewMemoryRepository(), &fakeChat{response: "A Title"}, nil)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	calls := 0
	store.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Minute)
	}

	first, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	second, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)
	assert.Equal(t, first.ID, records[1].ID)
}

func TestTitleFallsBackWhenGenerationFails(t *testing.T) {
	store := NewStore(NewMemoryRepository(), &fakeChat{err: context.DeadlineExceeded}, nil)

	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, FallbackTitle, record.Title)
}

func TestTitleIsSanitizedAndCapped(t *testing.T) {
	store := NewStore(NewMemoryRepository(), &fakeChat{response: `"Quarterly Launch Planning Review With Platform Team Leads"`}, nil)

	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "Quarterly Launch Planning Review With Platform", record.Title)
}

func TestTitleStripsEmbeddedQuotes(t *testing.T) {
	store := NewStore(NewMemoryRepository(), &fakeChat{response: `The "Big" Launch's Plan`}, nil)

	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, "The Big Launchs Plan", record.Title)
}

func TestTitleFallsBackWithoutChat(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil, nil)

	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)
	assert.Equal(t, FallbackTitle, record.Title)
}

func TestListSanitizesStoredTitles(t *testing.T) {
	repo := NewMemoryRepository()
	require.NoError(t, repo.Save(context.Background(), models.MeetingRecord{
		ID:    "meeting-old",
		Title: `"Old Quoted Title"`,
	}))
	store := NewStore(repo, nil, nil)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Old Quoted Title", records[0].Title)

	record, err := store.Get(context.Background(), "meeting-old")
	require.NoError(t, err)
	assert.Equal(t, "Old Quoted Title", record.Title)
}

func TestDeleteRemovesMeeting(t *testing.T) {
	store := NewStore(NewMemoryRepository(), nil, nil)
	record, err := store.SaveNew(context.Background(), testTranscript(), testAnalysis())
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), record.ID))
	_, err = store.Get(context.Background(), record.ID)
	assert.Error(t, err)

	assert.Error(t, store.Delete(context.Background(), record.ID))
}
