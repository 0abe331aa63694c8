package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options selects and configures a provider
type Options struct {
	Provider string // backend (default), ollama, bedrock
	BaseURL  string // EmailRAG API base for the backend provider
	Endpoint string
	Model    string
	Region   string
	Timeout  time.Duration
	HTTP     *http.Client
}

// NewProvider creates a Provider from options
func NewProvider(ctx context.Context, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "backend", "":
		return NewBackend(opts.BaseURL, opts.HTTP, opts.Timeout), nil
	case "ollama":
		return NewOllama(opts.Endpoint, opts.Model, opts.Timeout), nil
	case "bedrock":
		return NewBedrock(ctx, opts.Region, opts.Model, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
