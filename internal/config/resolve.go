package config

import (
	"os"
	"path/filepath"
)

// DefaultFileName is the config file wasmut looks for in the current
// directory when neither -c nor -C is given.
const DefaultFileName = "wasmut.toml"

// ResolvePath implements the config file lookup precedence: an explicit
// -c path wins outright; otherwise -C names a directory to look for
// wasmut.toml in; otherwise ./wasmut.toml is used if present. ok is false
// when none of these resolve to an existing file, meaning built-in
// defaults should be used instead.
func ResolvePath(explicitFile, configDir string) (path string, ok bool) {
	if explicitFile != "" {
		return explicitFile, true
	}
	if configDir != "" {
		candidate := filepath.Join(configDir, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		return "", false
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName, true
	}
	return "", false
}

// Load resolves and parses the configuration, falling back to Default()
// when no config file is found at all (not an error case).
func Load(explicitFile, configDir string) (Config, error) {
	path, ok := ResolvePath(explicitFile, configDir)
	if !ok {
		return Default(), nil
	}
	return ParseFile(path)
}
