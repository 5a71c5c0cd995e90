// Package config contains the settings store for jiradraft: a .env-style file with
// environment overrides and defaults applied on load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	envparse "github.com/caarlos0/env/v11"

	"github.com/codex-k8s/jiradraft/internal/draftapi"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/env"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

// Keys stored in the settings file.
const (
	KeyAPIKey       = "API_KEY"
	KeyModel        = "MODEL_NAME"
	KeyDisplayName  = "DISPLAY_NAME"
	KeyBaseURL      = "BASE_URL"
	KeyThreadLimit  = "THREAD_LIMIT"
	KeyLocatorsFile = "LOCATORS_FILE"
)

const (
	// DefaultDisplayName is the addressee used when none is configured.
	DefaultDisplayName = "Alex Ivanov"

	appDir   = "jiradraft"
	fileName = "config.env"
)

// Settings is the effective configuration of one drafting run.
type Settings struct {
	// APIKey is the generation service credential.
	APIKey string
	// Model is the model identifier.
	Model string
	// DisplayName is the person drafts are written as and questions are matched for.
	DisplayName string
	// BaseURL overrides the generation service endpoint.
	BaseURL string
	// ThreadLimit bounds the thread preview.
	ThreadLimit int
	// LocatorsFile is an optional YAML locator profile.
	LocatorsFile string
}

// MaskedAPIKey returns the key with everything but its ends hidden.
func (s Settings) MaskedAPIKey() string {
	key := s.APIKey
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	default:
		return key[:3] + "…" + key[len(key)-4:]
	}
}

// overrides are process environment values that win over the file.
type overrides struct {
	// APIKey is the credential from JIRADRAFT_API_KEY.
	APIKey string `env:"JIRADRAFT_API_KEY"`
	// OpenAIKey is the fallback credential from OPENAI_API_KEY.
	OpenAIKey string `env:"OPENAI_API_KEY"`
	// Model is the model override from JIRADRAFT_MODEL.
	Model string `env:"JIRADRAFT_MODEL"`
	// DisplayName is the addressee override from JIRADRAFT_DISPLAY_NAME.
	DisplayName string `env:"JIRADRAFT_DISPLAY_NAME"`
	// BaseURL is the endpoint override from JIRADRAFT_BASE_URL.
	BaseURL string `env:"JIRADRAFT_BASE_URL"`
	// ThreadLimit is the preview bound from JIRADRAFT_THREAD_LIMIT.
	ThreadLimit string `env:"JIRADRAFT_THREAD_LIMIT"`
	// LocatorsFile is the profile path from JIRADRAFT_LOCATORS.
	LocatorsFile string `env:"JIRADRAFT_LOCATORS"`
}

// Store reads and writes the settings file.
type Store struct {
	path    string
	environ map[string]string
}

// DefaultPath returns config.env under the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// NewStore returns a store over path. Overrides come from the process environment.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// WithEnvironment replaces the process environment used for overrides.
func (s *Store) WithEnvironment(environ map[string]string) *Store {
	s.environ = environ
	return s
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Read returns the raw file values; a missing file reads as empty.
func (s *Store) Read() (env.Vars, error) {
	vars, err := env.LoadOptionalEnvFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read settings %q: %w", s.path, err)
	}
	return vars, nil
}

// Load resolves the effective settings: environment overrides, then the file, then
// defaults. Values are trimmed and blank values count as unset.
func (s *Store) Load() (Settings, error) {
	file, err := s.Read()
	if err != nil {
		return Settings{}, err
	}

	var ov overrides
	if err := envparse.ParseWithOptions(&ov, envparse.Options{Environment: s.environ}); err != nil {
		return Settings{}, fmt.Errorf("parse environment overrides: %w", err)
	}

	limit, err := parseThreadLimit(firstNonBlank(ov.ThreadLimit, file[KeyThreadLimit]))
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		APIKey:       firstNonBlank(ov.APIKey, file[KeyAPIKey], ov.OpenAIKey),
		Model:        firstNonBlank(ov.Model, file[KeyModel], draftapi.DefaultModel),
		DisplayName:  firstNonBlank(ov.DisplayName, file[KeyDisplayName], DefaultDisplayName),
		BaseURL:      firstNonBlank(ov.BaseURL, file[KeyBaseURL]),
		ThreadLimit:  limit,
		LocatorsFile: firstNonBlank(ov.LocatorsFile, file[KeyLocatorsFile]),
	}, nil
}

// Set merges updates into the file. Values are trimmed; an empty value removes the key.
func (s *Store) Set(updates env.Vars) (env.Vars, error) {
	for key, value := range updates {
		if !knownKey(key) {
			return nil, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
		}
		if key == KeyThreadLimit {
			if _, err := parseThreadLimit(value); err != nil {
				return nil, err
			}
		}
		if _, err := env.Marshal(env.Vars{key: strings.TrimSpace(value)}); err != nil {
			return nil, drafterr.Wrap(drafterr.KindConfiguration, err, "Setting "+key+" cannot be saved: it mixes single and double quotes.")
		}
	}

	current, err := s.Read()
	if err != nil {
		return nil, err
	}
	merged := env.Merge(current)
	for key, value := range updates {
		value = strings.TrimSpace(value)
		if value == "" {
			delete(merged, key)
			continue
		}
		merged[key] = value
	}

	if err := env.SaveEnvFile(s.path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// Keys lists the recognized setting names in sorted order.
func Keys() []string {
	keys := []string{KeyAPIKey, KeyModel, KeyDisplayName, KeyBaseURL, KeyThreadLimit, KeyLocatorsFile}
	sort.Strings(keys)
	return keys
}

func knownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

func parseThreadLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return promptctx.DefaultThreadLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, drafterr.New(drafterr.KindConfiguration, "%s must be a positive integer, got %q.", KeyThreadLimit, raw)
	}
	return n, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
