package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/backend/internal/errs"
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

func TestAskRecordsCompletedExchange(t *testing.T) {
	svc := NewService(&fakeChat{response: "Launch moved to May."}, nil)

	answer, err := svc.Ask(context.Background(), "s1", "we discussed the launch", "When is the launch?")
	require.NoError(t, err)
	assert.Equal(t, "Launch moved to May.", answer)

	log := svc.Messages("s1")
	require.Len(t, log, 1)
	assert.Equal(t, "When is the launch?", log[0].Question)
	assert.Equal(t, "Launch moved to May.", log[0].Answer)
	assert.Equal(t, models.ChatStatusComplete, log[0].Status)
}

func TestAskRemovesEntryOnFailure(t *testing.T) {
	svc := NewService(&fakeChat{err: errs.Service("model unavailable", nil)}, nil)

	_, err := svc.Ask(context.Background(), "s1", "transcript", "Anything?")
	require.Error(t, err)
	assert.Empty(t, svc.Messages("s1"))
}

func TestEarlierFailureKeepsLaterEntryAddressable(t *testing.T) {
	// Two questions in flight; the first fails after the second was
	// appended. Its removal must not strand the second in thinking.
	svc := NewService(&fakeChat{}, nil)

	first := svc.appendThinking("s1", "First?")
	second := svc.appendThinking("s1", "Second?")

	svc.remove("s1", first)
	svc.complete("s1", second, "An answer.")

	log := svc.Messages("s1")
	require.Len(t, log, 1)
	assert.Equal(t, "Second?", log[0].Question)
	assert.Equal(t, "An answer.", log[0].Answer)
	assert.Equal(t, models.ChatStatusComplete, log[0].Status)
}

func TestAskTrimsLeadingPronoun(t *testing.T) {
	svc := NewService(&fakeChat{response: "The launch moved to May."}, nil)

	answer, err := svc.Ask(context.Background(), "s1", "transcript", "When is the launch?")
	require.NoError(t, err)
	assert.Equal(t, "launch moved to May.", answer)
}

func TestAskRejectsEmptyInputs(t *testing.T) {
	svc := NewService(&fakeChat{response: "x"}, nil)

	_, err := svc.Ask(context.Background(), "s1", "transcript", "   ")
	assert.True(t, errs.IsKind(err, errs.KindInput))

	_, err = svc.Ask(context.Background(), "s1", "", "Why?")
	assert.True(t, errs.IsKind(err, errs.KindInput))
}

func TestClearDropsSessionLog(t *testing.T) {
	svc := NewService(&fakeChat{response: "ok fine"}, nil)
	_, err := svc.Ask(context.Background(), "s1", "transcript", "Question one?")
	require.NoError(t, err)

	svc.Clear("s1")
	assert.Empty(t, svc.Messages("s1"))
}

func TestTrimLeadIn(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The launch moved to May", "launch moved to May"},
		{"It was postponed", "was postponed"},
		{"They agreed on Friday", "agreed on Friday"},
		{"Launch moved to May", "Launch moved to May"},
		{"Yes", "Yes"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TrimLeadIn(tc.in))
	}
}
