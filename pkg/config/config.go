// Package config loads and saves the CLI's YAML configuration file: the
// default encodings, ISO geometry, line-wrap framing, subfield mode, and
// logging level shared by the ioisis subcommands.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bireme/ioisis-go/pkg/codec"
	"github.com/bireme/ioisis-go/pkg/linewrap"
	"github.com/bireme/ioisis-go/pkg/subfield"
)

// Config is the CLI's persisted configuration.
type Config struct {
	// ISOEncoding is the default byte encoding for ISO 2709 and MST
	// field data.
	ISOEncoding string `yaml:"iso_encoding"`
	// JSONLEncoding names the text encoding at the JSONL boundary. The
	// converters do not consult it: JSONL is always read and written as
	// UTF-8.
	JSONLEncoding string `yaml:"jsonl_encoding"`
	// Mode is the default subfield mode: field, pairs or nest.
	Mode string `yaml:"mode"`
	// WithNumber prepends the "#" occurrence-index pair in pairs/nest
	// mode, unless the CLI's --no-number flag overrides it.
	WithNumber bool `yaml:"with_number"`

	Geometry Geometry `yaml:"geometry"`
	Subfield Subfield `yaml:"subfield"`
	LineWrap LineWrap `yaml:"line_wrap"`
	MST      MST      `yaml:"mst"`
	Logging  Logging  `yaml:"logging"`
}

// Geometry mirrors codec.Geometry in a YAML-friendly shape: terminators
// are given as single-character strings rather than raw bytes.
type Geometry struct {
	TagLen           int    `yaml:"tag_len"`
	LenLen           int    `yaml:"len_len"`
	PosLen           int    `yaml:"pos_len"`
	CustomLen        int    `yaml:"custom_len"`
	FieldTerminator  string `yaml:"field_terminator"`
	RecordTerminator string `yaml:"record_terminator"`
}

// Subfield mirrors subfield.Options.
type Subfield struct {
	Prefix string `yaml:"prefix"`
	KeyLen int    `yaml:"key_len"`
}

// LineWrap mirrors linewrap.Options.
type LineWrap struct {
	LineLen int    `yaml:"line_len"`
	Newline string `yaml:"newline"`
}

// MST holds defaults for the MST reader.
type MST struct {
	Variant    string `yaml:"variant"` // "isis" or "ffi"
	Shift      int    `yaml:"shift"`
	OnlyActive bool   `yaml:"only_active"`
}

// Logging contains logging configuration.
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the CLI's built-in defaults, matching spec §6:
// cp1252 for ISO/MST, utf-8 for JSONL, field mode, 80-byte line-wrap.
func DefaultConfig() *Config {
	return &Config{
		ISOEncoding:   "cp1252",
		JSONLEncoding: "utf-8",
		Mode:          string(subfield.ModeField),
		WithNumber:    true,
		Geometry: Geometry{
			TagLen:           3,
			LenLen:           4,
			PosLen:           5,
			CustomLen:        0,
			FieldTerminator:  "#",
			RecordTerminator: "#",
		},
		Subfield: Subfield{
			Prefix: "^",
			KeyLen: 1,
		},
		LineWrap: LineWrap{
			LineLen: 80,
			Newline: "\n",
		},
		MST: MST{
			Variant:    "isis",
			Shift:      0,
			OnlyActive: false,
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure
// permissions.
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default configuration path for the
// current platform.
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./ioisis.yaml"
	}
	configDir := filepath.Join(homeDir, ".config", "ioisis")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists.
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

func firstByteOr(s string, def byte) byte {
	if len(s) == 0 {
		return def
	}
	return s[0]
}

// ToGeometry converts the YAML shape to codec.Geometry.
func (g Geometry) ToGeometry() codec.Geometry {
	return codec.Geometry{
		TagLen:           g.TagLen,
		LenLen:           g.LenLen,
		PosLen:           g.PosLen,
		CustomLen:        g.CustomLen,
		FieldTerminator:  firstByteOr(g.FieldTerminator, '#'),
		RecordTerminator: firstByteOr(g.RecordTerminator, '#'),
	}
}

// ToOptions converts the YAML shape to subfield.Options. withNumber comes
// from the caller since the CLI's --no-number flag overrides the config
// default per invocation.
func (s Subfield) ToOptions(withNumber bool) subfield.Options {
	return subfield.Options{
		Prefix:     firstByteOr(s.Prefix, subfield.DefaultPrefix),
		KeyLen:     s.KeyLen,
		WithNumber: withNumber,
	}
}

// ToOptions converts the YAML shape to linewrap.Options.
func (l LineWrap) ToOptions() linewrap.Options {
	newline := []byte(l.Newline)
	if len(newline) == 0 {
		newline = linewrap.DefaultNewline
	}
	return linewrap.Options{
		LineLen: l.LineLen,
		Newline: newline,
	}
}
