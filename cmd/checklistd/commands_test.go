package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-checklists/internal/config"
	"github.com/example/facility-checklists/internal/version"
)

func TestInitCommand_WritesDefaultConfig(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "conf", "checklistd.yaml")
	previous := cfgFile
	cfgFile = dest
	t.Cleanup(func() { cfgFile = previous })

	run := func(args ...string) (string, error) {
		cmd := newInitCmd(serviceName, defaultConfigYAML)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run()
	require.NoError(t, err)
	assert.Contains(t, out, dest)

	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(written))

	_, err = run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, os.WriteFile(dest, []byte("http_port: 1"), 0o600))
	_, err = run("--force")
	require.NoError(t, err)
	written, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(written))
}

func TestDefaultConfigYAML_Loads(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(defaultConfigYAML)))

	_, err := config.Load(v)
	require.Error(t, err, "token secret must be supplied by the operator")

	v.Set("token_secret", "s3cret")
	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, config.StorageJSONFile, cfg.StorageDriver)
	assert.Equal(t, "@hourly", cfg.DigestSchedule)
	assert.Equal(t, filepath.Join("data", "uploads", "checklist-photos"), cfg.UploadDir)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), serviceName+" "+version.Version)
	assert.Contains(t, out.String(), version.GoVersion())
}
