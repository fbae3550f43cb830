// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. Environment variables of the form
// FRAMINGBOT_<KEY> (key upper-cased, dashes to underscores) override file values.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names recognized by the CLI and server.
const (
	KeyOpenAI          = "openai-api-key"
	KeyNotionToken     = "notion-api-key"
	KeyNotionFramingDB = "notion-framing-db-id"
	KeyNotionKeywordDB = "notion-keyword-db-id"
)

var knownKeys = map[string]bool{
	KeyOpenAI:          true,
	KeyNotionToken:     true,
	KeyNotionFramingDB: true,
	KeyNotionKeywordDB: true,
}

// EnvVar returns the environment variable name that overrides the secret key.
func EnvVar(key string) string {
	return "FRAMINGBOT_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Load reads all files in dir and returns a map of filename to trimmed contents,
// then applies environment overrides for the recognized keys. A missing directory
// or missing files are not errors; Load returns whatever the environment provides.
// Unreadable or unrecognized files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !knownKeys[name] {
			fmt.Fprintf(os.Stderr, "warning: unrecognized secret file %s (skipped)\n", name)
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	for key := range knownKeys {
		if v := strings.TrimSpace(os.Getenv(EnvVar(key))); v != "" {
			secrets[key] = v
		}
	}

	return secrets, nil
}
