package llm

import (
	"context"
	"errors"

	"github.com/marketlyhq/contentscout/types"
)

var ErrNotSupported = errors.New("operation not supported by provider")

type Capabilities struct {
	Tools            bool
	StructuredOutput bool
}

// Provider is a chat-style completion service that accepts tool
// declarations and reports usage token counts. The research loop treats
// a Generate error as fatal and does not retry; wrap the provider with
// WithRetries for caller-side retry behavior.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Generate(ctx context.Context, req types.Request) (types.Response, error)
}
