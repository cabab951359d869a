package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretsFileProvider reads a flat YAML map of secrets. The file is read on
// every lookup so edits apply without a restart.
type SecretsFileProvider struct {
	path string
	key  string
}

func NewSecretsFileProvider(path, key string) *SecretsFileProvider {
	return &SecretsFileProvider{path: path, key: key}
}

func (p *SecretsFileProvider) Name() string {
	return "secrets file " + p.path
}

func (p *SecretsFileProvider) Lookup(ctx context.Context) (string, error) {
	if p.path == "" {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read secrets file: %w", err)
	}

	var secrets map[string]string
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	value, ok := secrets[p.key]
	if !ok || value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// EnvProvider reads a process environment variable at lookup time.
type EnvProvider struct {
	name string
}

func NewEnvProvider(name string) *EnvProvider {
	return &EnvProvider{name: name}
}

func (p *EnvProvider) Name() string {
	return "environment " + p.name
}

func (p *EnvProvider) Lookup(ctx context.Context) (string, error) {
	value, ok := os.LookupEnv(p.name)
	if !ok || value == "" {
		return "", ErrNotFound
	}
	return value, nil
}

var (
	_ Provider = (*SecretsFileProvider)(nil)
	_ Provider = (*EnvProvider)(nil)
)
