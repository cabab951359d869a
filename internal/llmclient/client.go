// Package llmclient sends a normalized image and its instructions to the
// Anthropic Messages API and returns the text of the reply.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/example/describer/internal/imageprocessor"
	"github.com/example/describer/internal/prompt"
)

const (
	DefaultModel     = "claude-3-haiku-20240307"
	DefaultMaxTokens = 600

	// segmentSeparator joins consecutive text blocks of one reply.
	segmentSeparator = "\n\n"
)

// ErrNoText is wrapped in a ServiceError when a reply holds no text block.
var ErrNoText = errors.New("response contained no text content")

// CredentialResolver yields the API key for a single request.
type CredentialResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// ServiceError is any failure of the outbound exchange.
type ServiceError struct {
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("model request failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Options configures the fixed request parameters.
type Options struct {
	Model     string
	MaxTokens int64
	// BaseURL overrides the API endpoint; empty keeps the SDK default.
	BaseURL string
	// RequestOptions are appended to every request, after the defaults.
	RequestOptions []option.RequestOption
}

// Client performs one synchronous describe request per call.
type Client struct {
	credentials CredentialResolver
	model       string
	maxTokens   int64
	opts        []option.RequestOption
	logger      *zap.Logger
}

// New builds a Client. Zero Options fields fall back to the defaults.
func New(credentials CredentialResolver, opts Options, logger *zap.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}

	requestOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
	}
	requestOpts = append(requestOpts, opts.RequestOptions...)

	return &Client{
		credentials: credentials,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		opts:        requestOpts,
		logger:      logger.Named("llmclient"),
	}
}

// Describe resolves the API key, sends img with instructions and returns the
// text blocks of the reply joined by a blank line. Credential failures are
// returned as is; everything after that is a *ServiceError.
func (c *Client) Describe(ctx context.Context, img imageprocessor.NormalizedImage, instructions string) (string, error) {
	apiKey, err := c.credentials.Resolve(ctx)
	if err != nil {
		return "", err
	}

	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)
	client := anthropic.NewClient(opts...)

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: prompt.System}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(img.MediaType(), img.Base64()),
				anthropic.NewTextBlock(instructions),
			),
		},
	})
	if err != nil {
		return "", &ServiceError{Err: err}
	}

	c.logger.Debug("model replied",
		zap.String("model", c.model),
		zap.Int("blocks", len(message.Content)),
		zap.Int64("output_tokens", message.Usage.OutputTokens),
		zap.String("stop_reason", string(message.StopReason)),
	)

	text, ok := joinText(message.Content)
	if !ok {
		return "", &ServiceError{Err: ErrNoText}
	}
	return text, nil
}

// joinText concatenates the text blocks in reply order. ok is false when
// there are none.
func joinText(blocks []anthropic.ContentBlockUnion) (string, bool) {
	chunks := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type == "text" {
			chunks = append(chunks, block.Text)
		}
	}
	if len(chunks) == 0 {
		return "", false
	}
	return strings.Join(chunks, segmentSeparator), true
}
