// Package analysis turns a meeting transcript into a structured summary,
// action items, and sentiment via the chat model.
package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/llm"
	"github.com/meetscribe/backend/internal/models"
	"github.com/meetscribe/backend/pkg/structured"
)

const systemPrompt = `You are an expert meeting analyst. Analyze the meeting transcript and respond with a JSON object with exactly these fields:
{
  "summary": ["array of key discussion points as strings"],
  "actionItems": ["array of action items as strings"],
  "sentiment": {
    "overall": "positive, negative, or neutral",
    "positive": 0.0,
    "negative": 0.0
  }
}
The positive and negative values are fractions between 0 and 1. Respond with JSON only.`

// analysisShape is the contract the model's JSON must satisfy after
// coercion: lone strings become one-element lists, missing lists become
// empty, numeric strings become numbers, and missing sentiment fields take
// neutral defaults. Empty lists are preserved, not padded.
var analysisShape = structured.Shape{
	Fields: []structured.Field{
		{Name: "summary", Kind: structured.StringList, Default: []interface{}{}},
		{Name: "actionItems", Kind: structured.StringList, Default: []interface{}{}},
		{Name: "sentiment", Kind: structured.Object, Fields: []structured.Field{
			{Name: "overall", Kind: structured.String, Default: "neutral"},
			{Name: "positive", Kind: structured.Number, Default: 0.0},
			{Name: "negative", Kind: structured.Number, Default: 0.0},
		}},
	},
}

// Engine produces meeting analyses.
type Engine struct {
	chat   llm.Chat
	logger *zap.Logger
}

// NewEngine creates an analysis engine backed by the given chat model.
func NewEngine(chat llm.Chat, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{chat: chat, logger: logger}
}

// Analyze summarizes the transcript. Malformed or unparseable model output
// degrades to a neutral fallback analysis rather than failing the pipeline;
// configuration errors (missing API key) are returned so the caller can
// surface them.
func (e *Engine) Analyze(ctx context.Context, transcript string) (*models.Analysis, error) {
	if transcript == "" {
		return nil, errs.Input("transcript is empty")
	}

	raw, err := e.chat.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      "Meeting transcript:\n\n" + transcript,
		Temperature: 0.7,
		MaxTokens:   1000,
		JSONObject:  true,
	})
	if err != nil {
		if errs.IsKind(err, errs.KindConfiguration) || errs.IsQuota(err) {
			return nil, err
		}
		e.logger.Warn("analysis completion failed, using fallback", zap.Error(err))
		return fallbackAnalysis(), nil
	}

	obj, err := structured.DecodeObject(raw)
	if err != nil {
		e.logger.Warn("analysis response is not JSON, using fallback", zap.Error(err))
		return fallbackAnalysis(), nil
	}
	parsed, err := structured.Parse(analysisShape, obj)
	if err != nil {
		e.logger.Warn("analysis response failed validation, using fallback", zap.Error(err))
		return fallbackAnalysis(), nil
	}

	return analysisFromMap(parsed), nil
}

func fallbackAnalysis() *models.Analysis {
	return &models.Analysis{
		Summary:     []string{"Unable to generate summary."},
		ActionItems: []string{"No action items identified."},
		Sentiment:   models.Sentiment{Overall: "neutral", Positive: 0, Negative: 0},
	}
}

func analysisFromMap(parsed map[string]interface{}) *models.Analysis {
	a := &models.Analysis{
		Summary:     toStringSlice(parsed["summary"]),
		ActionItems: toStringSlice(parsed["actionItems"]),
		Sentiment:   models.Sentiment{Overall: "neutral"},
	}
	if sent, ok := parsed["sentiment"].(map[string]interface{}); ok {
		if s, ok := sent["overall"].(string); ok {
			a.Sentiment.Overall = s
		}
		if v, ok := sent["positive"].(float64); ok {
			a.Sentiment.Positive = v
		}
		if v, ok := sent["negative"].(float64); ok {
			a.Sentiment.Negative = v
		}
	}
	return a
}

func toStringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
