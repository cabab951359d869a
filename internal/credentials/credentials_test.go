package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	name  string
	value string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Lookup(ctx context.Context) (string, error) {
	s.calls++
	return s.value, s.err
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &stubProvider{name: "first", value: "key-from-secrets"}
	second := &stubProvider{name: "second", value: "key-from-env"}
	chain := NewChain(zap.NewNop(), APIKeyName, first, second)

	key, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "key-from-secrets", key)
	require.Zero(t, second.calls)
}

func TestChainFallsThroughMissingAndFailingSources(t *testing.T) {
	missing := &stubProvider{name: "missing", err: ErrNotFound}
	broken := &stubProvider{name: "broken", err: errors.New("permission denied")}
	env := &stubProvider{name: "env", value: "  sk-env \n"}
	chain := NewChain(zap.NewNop(), APIKeyName, missing, broken, env)

	key, err := chain.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
}

func TestChainExhaustedReturnsConfigurationError(t *testing.T) {
	chain := NewChain(zap.NewNop(), APIKeyName,
		&stubProvider{name: "secrets file x", err: ErrNotFound},
		&stubProvider{name: "environment ANTHROPIC_API_KEY", value: "   "},
	)

	_, err := chain.Resolve(context.Background())
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, APIKeyName, cfgErr.Key)
	require.Equal(t, []string{"secrets file x", "environment ANTHROPIC_API_KEY"}, cfgErr.Sources)
	require.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestSecretsFileProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.yaml")
	p := NewSecretsFileProvider(path, APIKeyName)

	_, err := p.Lookup(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(path, []byte("OTHER: x\n"), 0o600))
	_, err = p.Lookup(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, os.WriteFile(path, []byte("ANTHROPIC_API_KEY: sk-file\n"), 0o600))
	key, err := p.Lookup(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-file", key)

	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))
	_, err = p.Lookup(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestEnvProviderReadsAtLookupTime(t *testing.T) {
	p := NewEnvProvider("DESCRIBER_TEST_KEY")

	t.Setenv("DESCRIBER_TEST_KEY", "")
	_, err := p.Lookup(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	t.Setenv("DESCRIBER_TEST_KEY", "sk-env")
	key, err := p.Lookup(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-env", key)
}
