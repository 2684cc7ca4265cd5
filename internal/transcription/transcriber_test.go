package transcription

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/storage"
)

type fakeTranscriber struct {
	result *models.Transcript
	err    error
	calls  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req llm.TranscriptionRequest) (*models.Transcript, error) {
	f.calls++
	return f.result, f.err
}

func TestTranscribeRejectsOversizedAudioBeforeNetwork(t *testing.T) {
	svc := &fakeTranscriber{}
	adapter := NewAdapter(svc, "en", nil)

	audio := models.Audio{
		Filename:    "big.wav",
		ContentType: "audio/wav",
		Data:        make([]byte, storage.MaxAudioFileSize+1),
	}
	_, err := adapter.Transcribe(context.Background(), audio, false, nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInput))
	assert.Contains(t, err.Error(), "25MB")
	assert.Zero(t, svc.calls)
}

func TestTranscribeRejectsUnsupportedFormatBeforeNetwork(t *testing.T) {
	svc := &fakeTranscriber{}
	adapter := NewAdapter(svc, "en", nil)

	audio := models.Audio{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("x")}
	_, err := adapter.Transcribe(context.Background(), audio, false, nil)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindInput))
	assert.Zero(t, svc.calls)
}

func TestTranscribeReportsMonotonicProgress(t *testing.T) {
	svc := &fakeTranscriber{result: &models.Transcript{Text: "hello"}}
	adapter := NewAdapter(svc, "en", nil)

	var reports []Progress
	audio := models.Audio{Filename: "a.wav", ContentType: "audio/wav", Data: []byte("riff")}
	transcript, err := adapter.Transcribe(context.Background(), audio, false, func(p Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", transcript.Text)

	require.NotEmpty(t, reports)
	assert.Equal(t, StageProcessing, reports[0].Stage)
	assert.Equal(t, 0, reports[0].Percent)
	last := 0
	for _, p := range reports {
		assert.GreaterOrEqual(t, p.Percent, last)
		last = p.Percent
	}
	assert.Equal(t, 100, reports[len(reports)-1].Percent)
}

func TestTranscribeDoesNotReportCompletionOnFailure(t *testing.T) {
	svc := &fakeTranscriber{err: errs.Service("transcription failed", nil)}
	adapter := NewAdapter(svc, "en", nil)

	var reports []Progress
	audio := models.Audio{Filename: "a.wav", ContentType: "audio/wav", Data: []byte("riff")}
	_, err := adapter.Transcribe(context.Background(), audio, false, func(p Progress) {
		reports = append(reports, p)
	})
	require.Error(t, err)
	for _, p := range reports {
		assert.Less(t, p.Percent, 100)
	}
}

func TestFormatTimestamped(t *testing.T) {
	transcript := &models.Transcript{
		Text: "hello there general",
		Segments: []models.Segment{
			{Start: 0, End: 4.6, Text: "hello there"},
			{Start: 64.2, End: 70.9, Text: "general"},
		},
	}
	assert.Equal(t, "[0:00 - 0:04] hello there\n[1:04 - 1:10] general", FormatTimestamped(transcript))

	plain := &models.Transcript{Text: "just text"}
	assert.Equal(t, "just text", FormatTimestamped(plain))
}
