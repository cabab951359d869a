// Package credentials resolves the model provider API key from an ordered
// list of sources.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// APIKeyName is the key looked up in every source.
const APIKeyName = "ANTHROPIC_API_KEY"

// ErrNotFound is returned by a Provider that has no value for the key.
var ErrNotFound = errors.New("credential not found")

// Provider is a single credential source.
type Provider interface {
	// Name identifies the source in errors and logs.
	Name() string
	// Lookup returns the credential or ErrNotFound.
	Lookup(ctx context.Context) (string, error)
}

// ConfigurationError is returned when no provider yields a credential.
type ConfigurationError struct {
	Key     string
	Sources []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("API key not found. Please set %s in the secrets file or as an environment variable (tried: %s)",
		e.Key, strings.Join(e.Sources, ", "))
}

// Chain tries providers in order; the first non-empty credential wins.
type Chain struct {
	key       string
	providers []Provider
	logger    *zap.Logger
}

// NewChain builds a chain resolving key from providers, in order.
func NewChain(logger *zap.Logger, key string, providers ...Provider) *Chain {
	return &Chain{
		key:       key,
		providers: providers,
		logger:    logger.Named("credentials"),
	}
}

// Resolve walks the chain. A provider failing for any reason other than
// ErrNotFound is logged and skipped.
func (c *Chain) Resolve(ctx context.Context) (string, error) {
	sources := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		sources = append(sources, p.Name())

		value, err := p.Lookup(ctx)
		switch {
		case err == nil && strings.TrimSpace(value) != "":
			c.logger.Debug("credential resolved", zap.String("source", p.Name()))
			return strings.TrimSpace(value), nil
		case err == nil, errors.Is(err, ErrNotFound):
			continue
		default:
			c.logger.Warn("credential source failed", zap.String("source", p.Name()), zap.Error(err))
		}
	}
	return "", &ConfigurationError{Key: c.key, Sources: sources}
}
