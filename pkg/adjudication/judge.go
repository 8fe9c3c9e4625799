package adjudication

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Ramsey-B/clover/pkg/httpclient"
)

// Judge sends a prompt to an external reasoning service and returns its raw text reply.
type Judge interface {
	Name() string
	Judge(ctx context.Context, prompt string) (string, error)
}

// StatusError is returned for a non-2xx reply from the service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("external service returned status %d: %s", e.StatusCode, truncate(e.Body, 100))
}

// HuggingFaceJudge calls a text-generation model on the Hugging Face inference API.
type HuggingFaceJudge struct {
	client       *httpclient.Client
	endpoint     string
	apiKey       string
	maxNewTokens int
}

// NewHuggingFaceJudge creates a judge for the inference endpoint of a hosted model
func NewHuggingFaceJudge(client *httpclient.Client, endpoint, apiKey string, maxNewTokens int) *HuggingFaceJudge {
	return &HuggingFaceJudge{
		client:       client,
		endpoint:     endpoint,
		apiKey:       apiKey,
		maxNewTokens: maxNewTokens,
	}
}

func (j *HuggingFaceJudge) Name() string {
	return "huggingface"
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	ReturnFullText bool `json:"return_full_text"`
	MaxNewTokens   int  `json:"max_new_tokens,omitempty"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (j *HuggingFaceJudge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.PostJSON(ctx, j.endpoint, hfRequest{
		Inputs:     prompt,
		Parameters: hfParameters{ReturnFullText: false, MaxNewTokens: j.maxNewTokens},
	}, map[string]string{
		"Authorization": "Bearer " + j.apiKey,
	})
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	var generations []hfGeneration
	if err := json.Unmarshal(resp.Body, &generations); err != nil {
		return "", fmt.Errorf("unexpected inference response: %w", err)
	}
	if len(generations) == 0 {
		return "", fmt.Errorf("inference response contained no generations")
	}

	// some deployments ignore return_full_text and echo the prompt
	return strings.TrimPrefix(generations[0].GeneratedText, prompt), nil
}

// AnthropicJudge asks a Claude model through the Messages API.
type AnthropicJudge struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicJudge creates a judge backed by the Anthropic SDK. A non-empty
// baseURL overrides the API host. SDK retries are disabled.
func NewAnthropicJudge(apiKey, model, baseURL string, maxTokens int) *AnthropicJudge {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &AnthropicJudge{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

func (j *AnthropicJudge) Name() string {
	return "anthropic"
}

func (j *AnthropicJudge) Judge(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(j.model),
		MaxTokens: j.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}
