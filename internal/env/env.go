// Package env contains helpers for reading, merging and writing .env-style key/value files.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Vars represents a simple string-to-string map of variables.
type Vars map[string]string

// Merge merges several Vars maps into one, later maps overriding earlier keys.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// LoadEnvFile loads a single .env-style file into Vars.
func LoadEnvFile(path string) (Vars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	envMap, err := godotenv.Parse(f)
	if err != nil {
		return nil, err
	}
	out := make(Vars, len(envMap))
	for k, v := range envMap {
		out[k] = v
	}
	return out, nil
}

// LoadOptionalEnvFile is LoadEnvFile that treats a missing file as empty.
func LoadOptionalEnvFile(path string) (Vars, error) {
	vars, err := LoadEnvFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Vars{}, nil
	}
	return vars, err
}

// ErrUnencodable is returned when a value cannot be written so that it reads back
// unchanged.
var ErrUnencodable = errors.New("value cannot be stored in an env file")

// SaveEnvFile writes vars as a sorted .env file readable only by the owner, creating
// parent directories as needed. Every entry is checked to read back unchanged.
func SaveEnvFile(path string, vars Vars) error {
	content, err := Marshal(vars)
	if err != nil {
		return fmt.Errorf("encode env file %q: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create dir for %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("write env file %q: %w", path, err)
	}
	return nil
}

// Marshal renders vars as sorted KEY=VALUE lines that godotenv parses back to the same
// map. godotenv's own quoting is used where it survives a parse; otherwise the value is
// single-quoted, which godotenv reads literally.
func Marshal(vars Vars) (string, error) {
	lines := make([]string, 0, len(vars))
	for key, value := range vars {
		line, err := marshalEntry(key, value)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n"), nil
}

func marshalEntry(key, value string) (string, error) {
	quoted, err := godotenv.Marshal(map[string]string{key: value})
	if err != nil {
		return "", err
	}
	for _, line := range []string{quoted, key + "='" + value + "'"} {
		if readsBack(line, key, value) {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s: %w", key, ErrUnencodable)
}

func readsBack(line, key, value string) bool {
	parsed, err := godotenv.Unmarshal(line)
	if err != nil {
		return false
	}
	got, ok := parsed[key]
	return ok && len(parsed) == 1 && got == value
}

// ParseAssignments parses KEY=VALUE arguments into Vars. Keys and values are trimmed
// and a value may be empty.
func ParseAssignments(pairs []string) (Vars, error) {
	out := make(Vars, len(pairs))
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid assignment %q, expected KEY=VALUE", pair)
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			return nil, fmt.Errorf("empty key in assignment %q", pair)
		}
		out[key] = strings.TrimSpace(kv[1])
	}
	return out, nil
}
