package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Auth identifies the owner whose queue all operations are scoped to.
type Auth struct {
	OwnerID string `toml:"owner_id"`
}

// Service contains configuration for the external task-execution service.
type Service struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
	DefaultBranch  string `toml:"default_branch"`
}

// Segmenter contains tunable thresholds for prompt segmentation.
type Segmenter struct {
	// MinParagraphs is the minimum number of sections required before the
	// paragraph-based strategy applies.
	MinParagraphs int `toml:"min_paragraphs"`
	// MinSectionLength is the minimum trimmed length a section must have to
	// count as a paragraph subtask.
	MinSectionLength int `toml:"min_section_length"`
	// WarnSubtaskCount is the subtask count above which validation warns.
	WarnSubtaskCount int `toml:"warn_subtask_count"`
	// WarnContentLength is the per-subtask character count above which
	// validation warns.
	WarnContentLength int `toml:"warn_content_length"`
}

// Executor contains run-loop pacing configuration.
type Executor struct {
	// PacingDelayMS is the fixed delay after every successful submission.
	PacingDelayMS int `toml:"pacing_delay_ms"`
	// RetryDelayMS is the delay applied when a failure resolution requests a
	// delayed retry.
	RetryDelayMS int `toml:"retry_delay_ms"`
}

// Queue contains queue-store behavior settings.
type Queue struct {
	// ListCacheTTLSeconds bounds how long a cached owner list may be served
	// before the next List call hits the database again.
	ListCacheTTLSeconds int `toml:"list_cache_ttl_seconds"`
}

// Notifications configures optional ntfy push notifications for run events.
type Notifications struct {
	// NtfyTopic is the full ntfy topic URL. Empty disables notifications.
	NtfyTopic string `toml:"ntfy_topic"`
	// RequestTimeout bounds each notification request, in seconds.
	RequestTimeout int `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for promptq.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Auth: owner identity scoping every queue operation
//   - Service: external task-execution service endpoint and credentials
//   - Segmenter: prompt segmentation thresholds
//   - Executor: submission pacing and retry delays
//   - Queue: list cache lifetime
//   - Notifications: optional ntfy push notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Auth          Auth          `toml:"auth"`
	Service       Service       `toml:"service"`
	Segmenter     Segmenter     `toml:"segmenter"`
	Executor      Executor      `toml:"executor"`
	Queue         Queue         `toml:"queue"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/promptq/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes the sample configuration document to the target path.
func CreateSample(target string) error {
	if err := os.WriteFile(target, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("promptq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store and logger need.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves ~ prefixes and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
