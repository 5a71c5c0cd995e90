package cli

import (
	"os"
	"strings"

	envparse "github.com/caarlos0/env/v11"
)

// baseEnv defines root CLI defaults sourced from JIRADRAFT_* env vars.
type baseEnv struct {
	// ConfigPath is the settings file path from JIRADRAFT_CONFIG.
	ConfigPath string `env:"JIRADRAFT_CONFIG"`
	// LogLevel is the logging level from JIRADRAFT_LOG_LEVEL.
	LogLevel string `env:"JIRADRAFT_LOG_LEVEL"`
}

// pageEnv captures inputs shared by the commands that read a page.
type pageEnv struct {
	// PromptTemplate is a custom prompt template from JIRADRAFT_PROMPT_TEMPLATE.
	PromptTemplate string `env:"JIRADRAFT_PROMPT_TEMPLATE"`
}

// serveEnv captures inputs for the serve command.
type serveEnv struct {
	// Addr is the listen address from JIRADRAFT_ADDR.
	Addr string `env:"JIRADRAFT_ADDR"`
}

// parseEnv fills target from JIRADRAFT_* env vars via caarlos0/env.
func parseEnv(target interface{}) error {
	return envparse.Parse(target)
}

// envPresent reports whether a non-empty env var exists.
func envPresent(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}
