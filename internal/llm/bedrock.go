package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	emailSystemPrompt = "You write complete, ready-to-send emails. Reply with the email only: a subject line followed by the body."

	anthropicVersion  = "bedrock-2023-05-31"
	defaultDraftLimit = 2048
	draftTemperature  = 0.4
)

// invoker is the part of the Bedrock runtime client the provider needs
type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient drafts emails with an Anthropic model on Amazon Bedrock
type BedrockClient struct {
	Region    string
	Model     string
	Timeout   time.Duration
	MaxTokens int

	svc invoker
}

type draftContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type draftTurn struct {
	Role    string         `json:"role"`
	Content []draftContent `json:"content"`
}

type draftRequest struct {
	AnthropicVersion string      `json:"anthropic_version"`
	MaxTokens        int         `json:"max_tokens"`
	Temperature      float64     `json:"temperature"`
	System           string      `json:"system"`
	Messages         []draftTurn `json:"messages"`
}

type draftResponse struct {
	Content    []draftContent `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// NewBedrock loads the default AWS config chain. region may be empty when the
// profile or environment supplies one.
func NewBedrock(ctx context.Context, region, model string, timeout time.Duration) (*BedrockClient, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("bedrock model is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if region = strings.TrimSpace(region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region not resolved: set llm.region or AWS_REGION")
	}
	return &BedrockClient{
		Region:    cfg.Region,
		Model:     model,
		Timeout:   timeout,
		MaxTokens: defaultDraftLimit,
		svc:       bedrockruntime.NewFromConfig(cfg),
	}, nil
}

// Name returns provider name
func (b *BedrockClient) Name() string { return "bedrock" }

// Generate drafts an email for prompt
func (b *BedrockClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !strings.Contains(strings.ToLower(b.Model), "anthropic.") {
		return "", fmt.Errorf("bedrock model %q is not an Anthropic model", b.Model)
	}
	limit := b.MaxTokens
	if limit <= 0 {
		limit = defaultDraftLimit
	}
	body, err := json.Marshal(draftRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        limit,
		Temperature:      draftTemperature,
		System:           emailSystemPrompt,
		Messages: []draftTurn{{
			Role:    "user",
			Content: []draftContent{{Type: "text", Text: prompt}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	if b.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.Timeout)
		defer cancel()
	}
	modelID := bedrockModelID(b.Model)
	out, err := b.svc.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", annotateBedrockError(fmt.Errorf("bedrock invoke %s: %w", modelID, err), modelID)
	}

	var resp draftResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode bedrock response: %w", err)
	}
	var draft strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			draft.WriteString(c.Text)
		}
	}
	email := strings.TrimSpace(draft.String())
	if email == "" {
		return "", &GenerationError{Detail: "empty draft from " + modelID}
	}
	return email, nil
}

// bedrockModelID adds the ":0" revision to bare foundation model ids. ARNs
// and inference profiles pass through.
func bedrockModelID(model string) string {
	model = strings.TrimSpace(model)
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "arn:") || strings.Contains(lower, "inference-profile/") || strings.Contains(model, ":") {
		return model
	}
	return model + ":0"
}

// annotateBedrockError adds a hint for model ids Bedrock rejects
func annotateBedrockError(err error, modelID string) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "model identifier is invalid") || strings.Contains(msg, "throughput isn't supported") {
		return fmt.Errorf("%w\nHint: check llm.model %q; newer models need an inference profile id such as us.anthropic...:0", err, modelID)
	}
	return err
}
