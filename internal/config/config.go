// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/mdsplit/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mdsplit configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Editor  EditorConfig  `toml:"editor" json:"editor"`
	Preview PreviewConfig `toml:"preview" json:"preview"`
	Diagram DiagramConfig `toml:"diagram" json:"diagram"`
	Export  ExportConfig  `toml:"export" json:"export"`
	Server  ServerConfig  `toml:"server" json:"server"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// EditorConfig controls the editor pane and file handling.
type EditorConfig struct {
	// TabWidth is the number of spaces inserted for a tab.
	TabWidth int `toml:"tab_width" json:"tab_width"`
	// MaxFileSizeKB caps the size of files accepted by open/load.
	MaxFileSizeKB int64 `toml:"max_file_size_kb" json:"max_file_size_kb"`
	// WatchFile reloads the open file when it changes on disk.
	WatchFile bool `toml:"watch_file" json:"watch_file"`
	// ShowLineNumbers shows line numbers in the editor pane.
	ShowLineNumbers bool `toml:"show_line_numbers" json:"show_line_numbers"`
}

// PreviewConfig controls rendering in the preview pane.
type PreviewConfig struct {
	// Style is the glamour style for the terminal preview:
	// "auto", "dark", "light", "notty" or "ascii".
	Style string `toml:"style" json:"style"`
	// HighlightStyle is the chroma style used for code blocks in HTML output.
	HighlightStyle string `toml:"highlight_style" json:"highlight_style"`
	// HardWraps renders single newlines as line breaks.
	HardWraps bool `toml:"hard_wraps" json:"hard_wraps"`
}

// DiagramConfig controls diagram rendering.
type DiagramConfig struct {
	// Enabled turns diagram rendering on. When false, diagram blocks are
	// shown as source only.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Command is the mermaid CLI executable.
	Command string `toml:"command" json:"command"`
	// Language selects the message catalog ("en" or "de").
	Language string `toml:"language" json:"language"`
}

// ExportConfig controls document exports.
type ExportConfig struct {
	// OutputDir is the directory where exports are written.
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// OpenAfterExport opens the exported file in the default application.
	OpenAfterExport bool `toml:"open_after_export" json:"open_after_export"`
	// CSSFile is an optional stylesheet appended to HTML exports.
	CSSFile string `toml:"css_file" json:"css_file"`
	// PageSize is the PDF page size: "A4" or "Letter".
	PageSize string `toml:"page_size" json:"page_size"`
	// IncludeMetadata adds a title and timestamp header to Markdown exports
	// that have no front matter.
	IncludeMetadata bool `toml:"include_metadata" json:"include_metadata"`
}

// ServerConfig controls the live preview server.
type ServerConfig struct {
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
	// RateLimit is the number of requests per second allowed per client.
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// Burst is the rate limiter burst size.
	Burst int `toml:"burst" json:"burst"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File receives log output while the TUI owns the terminal.
	// Empty means ~/.mdsplit/mdsplit.log.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Editor: EditorConfig{
			TabWidth:        4,
			MaxFileSizeKB:   4096,
			WatchFile:       true,
			ShowLineNumbers: true,
		},

		Preview: PreviewConfig{
			Style:          "auto",
			HighlightStyle: "github",
			HardWraps:      false,
		},

		Diagram: DiagramConfig{
			Enabled:  true,
			Command:  "mmdc",
			Language: "en",
		},

		Export: ExportConfig{
			OutputDir:       ".",
			OpenAfterExport: false,
			PageSize:        "A4",
		},

		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8790,
			RateLimit: 20,
			Burst:     40,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the mdsplit configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mdsplit"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath returns the log file used while the TUI is running.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	dir, err := ConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "mdsplit.log")
	}
	return filepath.Join(dir, "mdsplit.log")
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. A file that fails
// to decode is reported alongside the defaults so callers can warn and go on.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg, err := LoadFromPath(tomlPath)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if loadErr == nil {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				cfg, err := LoadFromPath(jsonPath)
				if err == nil {
					return cfg, nil
				}
				loadErr = err
			}
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file with full validation.
// Files ending in .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Editor.TabWidth == 0 {
		c.Editor.TabWidth = d.Editor.TabWidth
	}
	if c.Editor.MaxFileSizeKB == 0 {
		c.Editor.MaxFileSizeKB = d.Editor.MaxFileSizeKB
	}
	if c.Preview.Style == "" {
		c.Preview.Style = d.Preview.Style
	}
	if c.Preview.HighlightStyle == "" {
		c.Preview.HighlightStyle = d.Preview.HighlightStyle
	}
	if c.Diagram.Command == "" {
		c.Diagram.Command = d.Diagram.Command
	}
	if c.Diagram.Language == "" {
		c.Diagram.Language = d.Diagram.Language
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = d.Export.OutputDir
	}
	if c.Export.PageSize == "" {
		c.Export.PageSize = d.Export.PageSize
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = d.Server.Burst
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// WriteTOML encodes the configuration as commented TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	if _, err := io.WriteString(w, "# mdsplit configuration file\n# Generated by mdsplit - edit with care\n\n"); err != nil {
		return err
	}
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Save writes the configuration to path, as JSON when path ends in .json
// and as TOML otherwise.
func Save(cfg *Config, path string) error {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	if err := cfg.WriteTOML(&sb); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Editor.TabWidth < 1 || c.Editor.TabWidth > 16 {
		errs = append(errs, ValidationError{
			Field:   "editor.tab_width",
			Message: fmt.Sprintf("must be between 1 and 16, got %d", c.Editor.TabWidth),
		})
	}
	if c.Editor.MaxFileSizeKB < 1 {
		errs = append(errs, ValidationError{
			Field:   "editor.max_file_size_kb",
			Message: "must be positive",
		})
	}

	validStyles := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true, "ascii": true}
	if !validStyles[strings.ToLower(c.Preview.Style)] {
		errs = append(errs, ValidationError{
			Field:   "preview.style",
			Message: fmt.Sprintf("invalid style '%s', must be one of: auto, dark, light, notty, ascii", c.Preview.Style),
		})
	}

	validLanguages := map[string]bool{"en": true, "de": true}
	if !validLanguages[strings.ToLower(c.Diagram.Language)] {
		errs = append(errs, ValidationError{
			Field:   "diagram.language",
			Message: fmt.Sprintf("unsupported language '%s', must be one of: en, de", c.Diagram.Language),
		})
	}
	if strings.TrimSpace(c.Diagram.Command) == "" {
		errs = append(errs, ValidationError{
			Field:   "diagram.command",
			Message: "must not be empty",
		})
	}

	validPages := map[string]bool{"a4": true, "letter": true}
	if !validPages[strings.ToLower(c.Export.PageSize)] {
		errs = append(errs, ValidationError{
			Field:   "export.page_size",
			Message: fmt.Sprintf("invalid page size '%s', must be A4 or Letter", c.Export.PageSize),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port),
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: "must not be negative",
		})
	}
	if c.Server.Burst < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.burst",
			Message: "must not be negative",
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MDSPLIT_THEME: overrides preview.style
//   - MDSPLIT_OUTPUT_DIR: overrides export.output_dir
//   - MDSPLIT_MMDC: overrides diagram.command
//   - MDSPLIT_PORT: overrides server.port
//   - MDSPLIT_LANG: overrides diagram.language
//   - MDSPLIT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if theme := os.Getenv("MDSPLIT_THEME"); theme != "" {
		c.Preview.Style = theme
	}
	if dir := os.Getenv("MDSPLIT_OUTPUT_DIR"); dir != "" {
		c.Export.OutputDir = dir
	}
	if cmd := os.Getenv("MDSPLIT_MMDC"); cmd != "" {
		c.Diagram.Command = cmd
	}
	if port := os.Getenv("MDSPLIT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if lang := os.Getenv("MDSPLIT_LANG"); lang != "" {
		c.Diagram.Language = lang
	}
	if level := os.Getenv("MDSPLIT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}
