package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// OpenAI adapts the OpenAI Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider with SDK-level retries disabled.
func NewOpenAI(opts Options) *OpenAI {
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		model:  model,
	}
}

// Model implements Provider.
func (o *OpenAI) Model() string {
	return o.model
}

// Complete implements Provider.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	input := req.Prompt
	if req.System != "" {
		input = "System: " + req.System + "\n\n" + req.Prompt
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(input)},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classify(err, apiErr.StatusCode)
		}
		return "", classify(err, 0)
	}
	if resp == nil {
		return "", NewError(ErrorTypeEmptyResponse, "received empty response from OpenAI API")
	}
	return resp.OutputText(), nil
}
