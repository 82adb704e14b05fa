package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "cp1252", config.ISOEncoding)
	assert.Equal(t, "utf-8", config.JSONLEncoding)
	assert.Equal(t, "field", config.Mode)
	assert.True(t, config.WithNumber)
	assert.Equal(t, 3, config.Geometry.TagLen)
	assert.Equal(t, 4, config.Geometry.LenLen)
	assert.Equal(t, 5, config.Geometry.PosLen)
	assert.Equal(t, "#", config.Geometry.FieldTerminator)
	assert.Equal(t, 80, config.LineWrap.LineLen)
	assert.Equal(t, "isis", config.MST.Variant)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoadConfig(t *testing.T) {
	t.Run("load existing config", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")

		expected := DefaultConfig()
		expected.ISOEncoding = "latin1"
		expected.Mode = "pairs"
		expected.LineWrap.LineLen = 100

		require.NoError(t, SaveConfig(expected, configPath))

		loaded, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, expected, loaded)
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := LoadConfig("/non/existent/config.yaml")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "config file does not exist")
	})

	t.Run("load invalid yaml", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0644))

		_, err := LoadConfig(configPath)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	config := DefaultConfig()

	require.NoError(t, SaveConfig(config, configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestSaveConfigErrorHandling(t *testing.T) {
	config := DefaultConfig()
	invalidPath := "/invalid/path/that/cannot/be/created/config.yaml"

	err := SaveConfig(config, invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create config directory")
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.NotEmpty(t, path)
	assert.Contains(t, path, "ioisis")
	assert.Contains(t, path, "config.yaml")
}

func TestConfigExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath := filepath.Join(tmpDir, "exists.yaml")
	nonExistentPath := filepath.Join(tmpDir, "does-not-exist.yaml")

	require.NoError(t, os.WriteFile(existingPath, []byte("test"), 0644))

	assert.True(t, ConfigExists(existingPath))
	assert.False(t, ConfigExists(nonExistentPath))
}

func TestConfigYAMLMarshalling(t *testing.T) {
	config := DefaultConfig()
	config.Mode = "nest"
	config.MST.OnlyActive = true

	data, err := yaml.Marshal(config)
	require.NoError(t, err)

	var unmarshalled Config
	require.NoError(t, yaml.Unmarshal(data, &unmarshalled))
	assert.Equal(t, config, &unmarshalled)
}

func TestGeometry_ToGeometry(t *testing.T) {
	g := DefaultConfig().Geometry
	geom := g.ToGeometry()
	assert.Equal(t, 3, geom.TagLen)
	assert.Equal(t, byte('#'), geom.FieldTerminator)
	assert.Equal(t, byte('#'), geom.RecordTerminator)
}

func TestLineWrap_ToOptions(t *testing.T) {
	lw := DefaultConfig().LineWrap
	opts := lw.ToOptions()
	assert.Equal(t, 80, opts.LineLen)
	assert.Equal(t, []byte("\n"), opts.Newline)
}

func TestSubfield_ToOptions(t *testing.T) {
	sf := DefaultConfig().Subfield
	opts := sf.ToOptions(true)
	assert.Equal(t, byte('^'), opts.Prefix)
	assert.Equal(t, 1, opts.KeyLen)
	assert.True(t, opts.WithNumber)
}
