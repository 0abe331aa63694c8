package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrGenerationFailed is returned when the backend rejects a generation
// request without giving a reason.
var ErrGenerationFailed = errors.New("Generation failed")

// GenerationError carries the backend's reason for a rejected request
type GenerationError struct {
	Status int
	Detail string
}

func (e *GenerationError) Error() string {
	if e.Detail == "" {
		return ErrGenerationFailed.Error()
	}
	return e.Detail
}

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

// BackendClient generates emails through the EmailRAG backend's
// /generate-email endpoint.
type BackendClient struct {
	BaseURL string
	Timeout time.Duration

	http *http.Client
}

// NewBackend creates the EmailRAG backend provider. hc may be nil.
func NewBackend(baseURL string, hc *http.Client, timeout time.Duration) *BackendClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BackendClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: timeout,
		http:    hc,
	}
}

// Name returns provider name
func (b *BackendClient) Name() string { return "backend" }

// Generate posts the prompt and returns the generated email body
func (b *BackendClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"input": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/generate-email", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate-email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Detail string `json:"detail"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(data, &failure)
		return "", &GenerationError{Status: resp.StatusCode, Detail: strings.TrimSpace(failure.Detail)}
	}

	var out struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode generate-email response: %w", err)
	}
	return out.Email, nil
}
