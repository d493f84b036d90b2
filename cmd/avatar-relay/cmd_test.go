package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/avatar-relay/pkg/loader"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestPolicyFlags_FlagsOverrideDefaults(t *testing.T) {
	var pf policyFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	pf.register(fs)
	require.NoError(t, fs.Parse([]string{"--core-timeout=2s", "--core-retries=0", "--core-retry-delay=100ms"}))

	p, err := pf.resolve()
	require.NoError(t, err)
	require.Equal(t, loader.DefaultURL, p.URL)
	require.Equal(t, 2*time.Second, p.Timeout)
	require.Equal(t, 0, p.MaxRetries)
	require.Equal(t, 100*time.Millisecond, p.RetryDelay)
}

func TestPolicyFlags_RejectsInvalidValues(t *testing.T) {
	var pf policyFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	pf.register(fs)
	require.NoError(t, fs.Parse([]string{"--core-timeout=0s"}))

	_, err := pf.resolve()
	require.Error(t, err)
}

func TestPolicyFlags_FileValuesApplyWhenFlagsUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: OtherCore\ntimeout: 3s\n"), 0o600))

	var pf policyFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	pf.register(fs)
	require.NoError(t, fs.Parse([]string{"--policy-file", path}))

	p, err := pf.resolve()
	require.NoError(t, err)
	require.Equal(t, "OtherCore", p.Symbol)
	require.Equal(t, 3*time.Second, p.Timeout)
	require.Equal(t, loader.DefaultMaxRetries, p.MaxRetries)
}

func TestPolicyFlags_ExplicitFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: OtherCore\ntimeout: 3s\nmax_retries: 5\n"), 0o600))

	var pf policyFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	pf.register(fs)
	require.NoError(t, fs.Parse([]string{"--policy-file", path, "--core-symbol=FlagCore", "--core-retries=0"}))

	p, err := pf.resolve()
	require.NoError(t, err)
	require.Equal(t, "FlagCore", p.Symbol)
	require.Equal(t, 0, p.MaxRetries)
	require.Equal(t, 3*time.Second, p.Timeout)
	require.Equal(t, loader.DefaultURL, p.URL)
}

func TestPolicyFlags_InvalidFlagOverFileIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: OtherCore\n"), 0o600))

	var pf policyFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	pf.register(fs)
	require.NoError(t, fs.Parse([]string{"--policy-file", path, "--core-retries=-1"}))

	_, err := pf.resolve()
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	require.NoError(t, initLogger(loggingSettings{Level: "debug", Format: "json"}))
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	require.Error(t, initLogger(loggingSettings{Level: "loud", Format: "text"}))
	require.Error(t, initLogger(loggingSettings{Level: "info", Format: "xml"}))
}
