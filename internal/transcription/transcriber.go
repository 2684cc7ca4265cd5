// Package transcription adapts the speech-to-text service boundary:
// validates audio objects before any network call, reports coarse
// progress, and returns plain or time-segmented transcripts.
package transcription

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/storage"
)

// Progress stages reported while a transcription runs.
const (
	StageProcessing   = "processing"
	StageTranscribing = "transcribing"
)

// Progress is one coarse progress report. Percent is monotonically
// non-decreasing from 0 to 100 across a single call.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// ProgressFunc receives progress reports. May be nil.
type ProgressFunc func(Progress)

// Adapter sends audio to the transcription service.
type Adapter struct {
	svc      llm.Transcriber
	language string
	logger   *zap.Logger
}

// NewAdapter creates a transcription adapter.
func NewAdapter(svc llm.Transcriber, language string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{svc: svc, language: language, logger: logger}
}

// Transcribe validates the audio object and sends it to the service.
// Oversized or unsupported input is rejected before any network call.
func (a *Adapter) Transcribe(ctx context.Context, audio models.Audio, withTimestamps bool, onProgress ProgressFunc) (*models.Transcript, error) {
	if audio.Size() > storage.MaxAudioFileSize {
		return nil, errs.Input("file size must be less than 25MB")
	}
	if !storage.ValidateAudioFileType(audio.ContentType, audio.Filename) {
		return nil, errs.Input("unsupported file format; upload one of: FLAC, M4A, MP3, MP4, MPEG, MPGA, OGA, OGG, WAV, or WEBM")
	}

	report(onProgress, Progress{Stage: StageProcessing, Percent: 0})
	report(onProgress, Progress{Stage: StageTranscribing, Percent: 50})

	transcript, err := a.svc.Transcribe(ctx, llm.TranscriptionRequest{
		Filename:       audio.Filename,
		ContentType:    audio.ContentType,
		Data:           audio.Data,
		Language:       a.language,
		WithTimestamps: withTimestamps,
	})
	if err != nil {
		return nil, err
	}

	report(onProgress, Progress{Stage: StageTranscribing, Percent: 100})

	a.logger.Debug("transcription complete",
		zap.Int("chars", len(transcript.Text)),
		zap.Int("segments", len(transcript.Segments)),
	)
	return transcript, nil
}

func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// FormatTimestamped renders a segmented transcript as one line per
// segment: [m:ss - m:ss] text. Without segments the plain text is
// returned unchanged.
func FormatTimestamped(t *models.Transcript) string {
	if len(t.Segments) == 0 {
		return t.Text
	}
	lines := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		lines = append(lines, fmt.Sprintf("[%s - %s] %s", formatTime(seg.Start), formatTime(seg.End), seg.Text))
	}
	return strings.Join(lines, "\n")
}

func formatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
