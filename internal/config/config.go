// Package config loads the imag configuration from JSONC files and flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/imag/internal/log"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrStorePathEmpty     = errors.New("store_path cannot be empty")
)

// FileName is the project config file looked up in the working directory.
const FileName = ".imag.json"

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	StorePath   string `json:"store_path"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	ProcessLock bool   `json:"process_lock"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	StorePathAbs string `json:"-"` // Absolute path to the store root

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// fileConfig is the on-disk shape. Pointers distinguish "unset" from zero.
type fileConfig struct {
	StorePath   *string `json:"store_path"`
	LogLevel    *string `json:"log_level"`
	LogFormat   *string `json:"log_format"`
	ProcessLock *bool   `json:"process_lock"`
}

// Default returns the default configuration. The store lives in
// $HOME/.imag/store, or .imag/store below the working directory when HOME
// is unknown.
func Default(env map[string]string) Config {
	storePath := filepath.Join(".imag", "store")
	if home := env["HOME"]; home != "" {
		storePath = filepath.Join(home, ".imag", "store")
	}

	return Config{
		StorePath: storePath,
		LogLevel:  string(log.WarnLevel),
		LogFormat: string(log.FormatConsole),
	}
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	StoreOverride    *string           // --store flag value; nil means no override
	LogLevelOverride string            // --log-level flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/imag/config.json or ~/.config/imag/config.json)
// 3. Project config file in the working directory (.imag.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
//
// The store path in the returned Config is resolved to an absolute path.
func Load(in Input) (Config, error) {
	workDir := in.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolving working directory: %w", err)
	}

	cfg := Default(in.Env)

	if globalPath := globalConfigPath(in.Env); globalPath != "" {
		fc, loaded, err := loadFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = globalPath
			cfg = merge(cfg, fc)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false
	if in.ConfigPath != "" {
		projectPath, mustExist = in.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	fc, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, fc)
	}

	if in.StoreOverride != nil {
		if *in.StoreOverride == "" {
			return Config{}, fmt.Errorf("--store: %w", ErrStorePathEmpty)
		}

		cfg.StorePath = *in.StoreOverride
	}

	if in.LogLevelOverride != "" {
		cfg.LogLevel = in.LogLevelOverride
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.StorePathAbs = resolvePath(workDir, cfg.StorePath, in.Env)

	return cfg, nil
}

// Format renders cfg as key=value lines followed by the loaded sources.
func Format(cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "effective_cwd=%s\n", cfg.EffectiveCwd)
	fmt.Fprintf(&b, "store_path=%s\n", cfg.StorePathAbs)
	fmt.Fprintf(&b, "log_level=%s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "log_format=%s\n", cfg.LogFormat)
	fmt.Fprintf(&b, "process_lock=%t\n", cfg.ProcessLock)
	b.WriteString("\n# sources\n")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		b.WriteString("(defaults only)\n")

		return b.String()
	}

	if cfg.Sources.Global != "" {
		fmt.Fprintf(&b, "global_config=%s\n", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		fmt.Fprintf(&b, "project_config=%s\n", cfg.Sources.Project)
	}

	return b.String()
}

// globalConfigPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/imag/config.json if set, otherwise ~/.config/imag/config.json.
// Returns empty string if home directory cannot be determined.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "imag", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "imag", "config.json")
	}

	return ""
}

// loadFile loads a config file. If mustExist is false, a missing file is not
// an error and loaded is false.
func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
			}

			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	fc, err := parse(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	if fc.StorePath != nil && *fc.StorePath == "" {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrStorePathEmpty)
	}

	return fc, true, nil
}

func parse(data []byte) (fileConfig, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig

	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()

	err = dec.Decode(&fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return fc, nil
}

func merge(base Config, overlay fileConfig) Config {
	if overlay.StorePath != nil {
		base.StorePath = *overlay.StorePath
	}

	if overlay.LogLevel != nil {
		base.LogLevel = *overlay.LogLevel
	}

	if overlay.LogFormat != nil {
		base.LogFormat = *overlay.LogFormat
	}

	if overlay.ProcessLock != nil {
		base.ProcessLock = *overlay.ProcessLock
	}

	return base
}

func validate(cfg Config) error {
	if cfg.StorePath == "" {
		return ErrStorePathEmpty
	}

	_, err := log.ParseLevel(log.Level(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrConfigInvalid, err)
	}

	switch log.Format(strings.ToLower(cfg.LogFormat)) {
	case log.FormatConsole, log.FormatJSON:
	default:
		return fmt.Errorf("%w: log_format: %w: %q", ErrConfigInvalid, log.ErrInvalidFormat, cfg.LogFormat)
	}

	return nil
}

// resolvePath expands a leading ~/ and makes p absolute against workDir.
func resolvePath(workDir, p string, env map[string]string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok && env["HOME"] != "" {
		p = filepath.Join(env["HOME"], rest)
	}

	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(workDir, p)
}
