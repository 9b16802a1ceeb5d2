package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/pkg/config"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestServeRunsInjectedApp(t *testing.T) {
	t.Setenv("OER_APP_ID", "app")
	t.Setenv("CMC_API_KEY", "key")

	var got *config.Config
	ran := false
	root := newRootCmd(Injectors{
		Serve: func(cfg *config.Config) (Runner, error) {
			got = cfg
			return runnerFunc(func(context.Context) error { ran = true; return nil }), nil
		},
	})
	root.SetArgs([]string{"serve", "--config", writeConfig(t, "environment: test\n")})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.True(t, ran)
	require.NotNil(t, got)
	assert.Equal(t, "app", got.Sources.FX.APIKey)
}

func TestServeRequiresAPIKeys(t *testing.T) {
	t.Setenv("OER_APP_ID", "")
	t.Setenv("CMC_API_KEY", "")

	root := newRootCmd(Injectors{
		Serve: func(*config.Config) (Runner, error) {
			t.Fatal("injector must not run")
			return nil, nil
		},
	})
	root.SetArgs([]string{"serve", "--config", writeConfig(t, "environment: test\n")})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OER_APP_ID")
}

func TestCheckConfig(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd(Injectors{})
	root.SetOut(&out)
	root.SetArgs([]string{"check-config", "-c", writeConfig(t, "environment: staging\n")})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "ok: env=staging remote=reddit groups=2\n", out.String())
}
