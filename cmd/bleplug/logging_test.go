package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggingTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().Bool("verbose", false, "")
	cmd.Flags().String("config", "", "")
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestConfigureLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleplug.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	tests := []struct {
		name string
		args []string
		want logrus.Level
	}{
		{name: "silent by default", args: nil, want: logrus.PanicLevel},
		{name: "verbose", args: []string{"--verbose"}, want: logrus.DebugLevel},
		{name: "log level", args: []string{"--log-level", "error"}, want: logrus.ErrorLevel},
		{name: "log level beats verbose", args: []string{"--verbose", "--log-level", "info"}, want: logrus.InfoLevel},
		{name: "config file", args: []string{"--config", path}, want: logrus.WarnLevel},
		{name: "verbose beats config file", args: []string{"--config", path, "--verbose"}, want: logrus.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newLoggingTestCommand(t, tt.args...)
			cfg, err := loadConfig(cmd)
			require.NoError(t, err)

			logger, err := configureLogger(cmd, cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestConfigureLogger_InvalidLevel(t *testing.T) {
	cmd := newLoggingTestCommand(t, "--log-level", "trace")
	_, err := configureLogger(cmd, nil)
	assert.EqualError(t, err, "invalid log level: trace (must be debug, info, warn, or error)")
}

func TestLoadConfig_Missing(t *testing.T) {
	cmd := newLoggingTestCommand(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := loadConfig(cmd)
	assert.Error(t, err, "missing config file MUST be an error")
}
