package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/revisely/revisely/internal/config"
	"github.com/revisely/revisely/internal/status"
)

const systemPrompt = `You are a writing advisor for university application essays.
Analyze the student's draft and respond with JSON only, matching this shape:
{"suggestions":[{"id":"","category":"grammar|spelling|punctuation|clarity|tone|structure|specificity","severity":"critical|warning|info|success","title":"","description":"","originalText":"","contextBefore":"","contextAfter":"","replacement":"","highlightRange":{"start":0,"end":0},"confidence":0.0}],"overallFeedback":""}
For each issue quote originalText exactly as it appears in the draft and
include roughly 20 characters of surrounding context on each side. Offsets
in highlightRange are byte offsets into the submitted text. Leave
replacement empty for observations that have no concrete fix.`

type openaiOptions struct {
	baseURL      string
	extraHeaders map[string]string
}

type OpenAIOption func(*openaiOptions)

func WithBaseURL(baseURL string) OpenAIOption {
	return func(o *openaiOptions) {
		o.baseURL = baseURL
	}
}

func WithExtraHeaders(headers map[string]string) OpenAIOption {
	return func(o *openaiOptions) {
		o.extraHeaders = headers
	}
}

// openaiAnalyzer implements Analyzer against the OpenAI chat-completions
// API. Transient failures (429/500) are retried with exponential backoff;
// a rate limit that survives all retries surfaces as *RateLimitError so the
// session can schedule a delayed re-run.
type openaiAnalyzer struct {
	cfg     config.AnalysisConfig
	options openaiOptions
	client  openai.Client
}

func NewOpenAIAnalyzer(cfg config.AnalysisConfig, opts ...OpenAIOption) Analyzer {
	openaiOpts := openaiOptions{baseURL: cfg.BaseURL}
	for _, o := range opts {
		o(&openaiOpts)
	}

	clientOptions := []option.RequestOption{}
	if cfg.APIKey != "" {
		clientOptions = append(clientOptions, option.WithAPIKey(cfg.APIKey))
	}
	if openaiOpts.baseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(openaiOpts.baseURL))
	}
	for key, value := range openaiOpts.extraHeaders {
		clientOptions = append(clientOptions, option.WithHeader(key, value))
	}

	return &openaiAnalyzer{
		cfg:     cfg,
		options: openaiOpts,
		client:  openai.NewClient(clientOptions...),
	}
}

func (o *openaiAnalyzer) Analyze(ctx context.Context, content, programContext string) (*Result, error) {
	userPrompt := content
	if programContext != "" {
		userPrompt = fmt.Sprintf("Program context: %s\n\nDraft:\n%s", programContext, content)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}

	attempts := 0
	for {
		attempts++
		response, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			retry, after, retryErr := o.shouldRetry(attempts, err)
			if retryErr != nil {
				return nil, retryErr
			}
			if retry {
				duration := time.Duration(after) * time.Millisecond
				status.Warn(fmt.Sprintf("Analysis rate limited, retrying in %s (attempt %d of %d)", duration, attempts, o.cfg.MaxRetries))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(duration):
					continue
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
		}

		if len(response.Choices) == 0 {
			return nil, fmt.Errorf("%w: empty response", ErrAnalysisFailed)
		}
		return parseResponse(response.Choices[0].Message.Content)
	}
}

func (o *openaiAnalyzer) shouldRetry(attempts int, err error) (bool, int64, error) {
	var apierr *openai.Error
	if !errors.As(err, &apierr) {
		return false, 0, nil
	}

	if apierr.StatusCode != 429 && apierr.StatusCode != 500 {
		return false, 0, nil
	}

	if attempts > o.cfg.MaxRetries {
		if apierr.StatusCode == 429 {
			wait, ok := ParseRetryAfter(apierr.Error())
			if !ok {
				wait = DefaultRetryAfter
			}
			return false, 0, &RateLimitError{RetryAfter: wait, Err: err}
		}
		return false, 0, fmt.Errorf("%w: maximum retry attempts reached after %d retries", ErrAnalysisFailed, o.cfg.MaxRetries)
	}

	backoffMs := 2000 * (1 << (attempts - 1))
	jitterMs := int(float64(backoffMs) * 0.2)
	retryMs := backoffMs + jitterMs
	if retryAfterValues := apierr.Response.Header.Values("Retry-After"); len(retryAfterValues) > 0 {
		if _, scanErr := fmt.Sscanf(retryAfterValues[0], "%d", &retryMs); scanErr == nil {
			retryMs = retryMs * 1000
		}
	}
	return true, int64(retryMs), nil
}

// parseResponse decodes the model's JSON reply, tolerating a markdown code
// fence around it.
func parseResponse(content string) (*Result, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		slog.Error("Failed to decode analysis response", "error", err)
		return nil, fmt.Errorf("%w: malformed response: %v", ErrAnalysisFailed, err)
	}
	return ingest(raw), nil
}
