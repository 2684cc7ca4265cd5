package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"go.uber.org/zap"

	"github.com/meetscribe/backend/config"
	"github.com/meetscribe/backend/internal/errs"
	"github.com/meetscribe/backend/internal/models"
)

const transcriptionTimeout = 5 * time.Minute

// OpenAI implements Chat and Transcriber against the OpenAI API (or an
// OpenAI-compatible endpoint via OPENAI_BASE_URL).
type OpenAI struct {
	cfg    config.OpenAIConfig
	client openaiclient.Client
	http   *http.Client
	logger *zap.Logger
}

// NewOpenAI creates the OpenAI-backed service client. A missing API key is
// not an error here; every call reports it as a configuration error so the
// condition surfaces on the operation that needed the credential.
func NewOpenAI(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(cfg.APIKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeBaseURL(cfg.BaseURL); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	return &OpenAI{
		cfg:    cfg,
		client: openaiclient.NewClient(opts...),
		http:   &http.Client{Timeout: transcriptionTimeout},
		logger: logger,
	}
}

func (o *OpenAI) checkKey() error {
	if strings.TrimSpace(o.cfg.APIKey) == "" {
		return errs.Configuration("OPENAI_API_KEY environment variable is not set")
	}
	return nil
}

// Complete sends a chat completion and returns the assistant content.
func (o *OpenAI) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := o.checkKey(); err != nil {
		return "", err
	}

	params := openaiclient.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.cfg.ChatModel),
		Messages: buildMessages(req),
	}
	if req.Temperature > 0 {
		params.Temperature = openaiclient.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openaiclient.Int(int64(req.MaxTokens))
	}
	if req.JSONObject {
		params.ResponseFormat = openaiclient.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errs.Service("no response from the service", errors.New("empty completion"))
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteFunction forces a tool call of fn and returns its raw arguments.
func (o *OpenAI) CompleteFunction(ctx context.Context, req CompletionRequest, fn FunctionSpec) (json.RawMessage, error) {
	if err := o.checkKey(); err != nil {
		return nil, err
	}

	params := openaiclient.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.cfg.ChatModel),
		Messages: buildMessages(req),
		Tools: []openaiclient.ChatCompletionToolUnionParam{
			openaiclient.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        fn.Name,
				Description: openaiclient.String(fn.Description),
				Parameters:  shared.FunctionParameters(fn.Parameters),
			}),
		},
		ToolChoice: openaiclient.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openaiclient.ChatCompletionNamedToolChoiceParam{
				Function: openaiclient.ChatCompletionNamedToolChoiceFunctionParam{Name: fn.Name},
			},
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openaiclient.Float(req.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errs.Service("no response from the service", errors.New("empty completion"))
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 || strings.TrimSpace(calls[0].Function.Arguments) == "" {
		return nil, errs.Service("service returned no function call", errors.New("missing tool call"))
	}
	return json.RawMessage(calls[0].Function.Arguments), nil
}

// verboseTranscription is the whisper verbose_json response subset we use.
type verboseTranscription struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads audio as multipart form data. The SDK does not expose
// the segment-level verbose_json shape, so this endpoint is called
// directly, the same way the chat-completions endpoint is reached when an
// OpenAI-compatible provider is configured.
func (o *OpenAI) Transcribe(ctx context.Context, req TranscriptionRequest) (*models.Transcript, error) {
	if err := o.checkKey(); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, errs.Service("transcription request failed", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, errs.Service("transcription request failed", err)
	}
	_ = mw.WriteField("model", o.cfg.TranscribeModel)
	if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	if req.WithTimestamps {
		_ = mw.WriteField("response_format", "verbose_json")
		_ = mw.WriteField("timestamp_granularities[]", "segment")
	} else {
		_ = mw.WriteField("response_format", "text")
	}
	if err := mw.Close(); err != nil {
		return nil, errs.Service("transcription request failed", err)
	}

	endpoint := normalizeBaseURL(o.cfg.BaseURL)
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/audio/transcriptions", &body)
	if err != nil {
		return nil, errs.Service("transcription request failed", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(o.cfg.APIKey))
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, errs.Service("transcription failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Service("transcription failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, respBody)
	}

	if !req.WithTimestamps {
		return &models.Transcript{Text: strings.TrimSpace(string(respBody))}, nil
	}

	var verbose verboseTranscription
	if err := json.Unmarshal(respBody, &verbose); err != nil {
		return nil, errs.Validation("invalid transcription response from the service")
	}
	t := &models.Transcript{Text: verbose.Text}
	for _, seg := range verbose.Segments {
		t.Segments = append(t.Segments, models.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return t, nil
}

func buildMessages(req CompletionRequest) []openaiclient.ChatCompletionMessageParamUnion {
	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, openaiclient.SystemMessage(req.System))
	}
	messages = append(messages, openaiclient.UserMessage(req.Prompt))
	return messages
}

func classifyAPIError(err error) error {
	var apiErr *openaiclient.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return errs.Configuration("invalid API key; check the OpenAI API key configuration")
		case http.StatusTooManyRequests:
			return errs.Quota("API quota exceeded; try again later", err)
		}
	}
	return errs.Service("service request failed", err)
}

func classifyHTTPStatus(status int, body []byte) error {
	msg := extractErrorMessage(body)
	switch status {
	case http.StatusUnauthorized:
		return errs.Configuration("invalid API key; check the OpenAI API key configuration")
	case http.StatusTooManyRequests:
		return errs.Quota("API quota exceeded; try again later", fmt.Errorf("status 429: %s", msg))
	case http.StatusRequestEntityTooLarge:
		return errs.Input("file size too large; upload a file smaller than 25MB")
	case http.StatusBadRequest:
		return errs.Service(fmt.Sprintf("invalid request: %s", msg), fmt.Errorf("status 400"))
	default:
		return errs.Service(fmt.Sprintf("transcription failed: %s", msg), fmt.Errorf("status %d", status))
	}
}

func extractErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// normalizeBaseURL ensures the configured endpoint ends in /v1.
func normalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}
	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		path += "/v1"
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
