package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/kbukum/melos/errors"
	"github.com/kbukum/melos/logger"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "MELOS_"

// Defaulter is implemented by configs that fill their own defaults and
// validate themselves. Load calls both after unmarshalling.
type Defaulter interface {
	ApplyDefaults()
	Validate() error
}

// Resolver handles finding and resolving config and env files.
type Resolver struct {
	Fs          afero.Fs
	SearchPaths []string
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for a service.
// Returns explicit paths if provided, otherwise searches for them.
func (r *Resolver) ResolveFiles(serviceName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.find(serviceName+".yaml", serviceName+".yml", "config.yaml", "config.yml")
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.find(".env."+serviceName, ".env")
	}

	return resolved
}

// find returns the first existing name, trying each search path in turn.
func (r *Resolver) find(names ...string) string {
	paths := r.SearchPaths
	if len(paths) == 0 {
		paths = []string{".", "config"}
	}
	for _, dir := range paths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if ok, _ := afero.Exists(r.Fs, path); ok {
				return path
			}
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	Fs          afero.Fs
	ConfigFile  string   // Direct config file path (optional)
	EnvFile     string   // Direct env file path (optional)
	SearchPaths []string // Directories searched when no file is given
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets the filesystem files are read from.
func WithFileSystem(fs afero.Fs) LoaderOption {
	return func(lc *LoaderConfig) { lc.Fs = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithSearchPaths sets the directories searched for config and env files.
func WithSearchPaths(paths ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchPaths = paths }
}

// Load loads configuration for a service into cfg. It reads the config
// file, loads the .env file, binds MELOS_ environment variables and
// unmarshals the result. When cfg is a Defaulter its defaults are applied
// and it is validated.
func Load(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.Fs == nil {
		lc.Fs = afero.NewOsFs()
	}

	resolver := &Resolver{Fs: lc.Fs, SearchPaths: lc.SearchPaths}
	files := resolver.ResolveFiles(serviceName, lc)

	if err := loadFromResolvedFiles(serviceName, cfg, files, lc.Fs); err != nil {
		return err
	}

	if d, ok := cfg.(Defaulter); ok {
		d.ApplyDefaults()
		return d.Validate()
	}
	return nil
}

// loadFromResolvedFiles loads configuration from specific files.
func loadFromResolvedFiles(serviceName string, cfg any, files ResolvedFiles, fs afero.Fs) error {
	v := viper.New()
	v.SetFs(fs)

	// 1. YAML config is the base layer
	if files.ConfigFile != "" {
		if ok, _ := afero.Exists(fs, files.ConfigFile); ok {
			v.SetConfigFile(files.ConfigFile)
			if err := v.ReadInConfig(); err != nil {
				return errors.Config("failed to read config file "+files.ConfigFile, err)
			}
		}
	}

	// 2. .env fills the environment without overriding it
	if files.EnvFile != "" {
		if err := loadEnvFile(fs, files.EnvFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields("path", files.EnvFile, logger.FieldError, err.Error()))
		}
	}

	// 3. Environment variables win over the file
	bindEnvVars(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return errors.Config("failed to unmarshal config for service "+serviceName, err)
	}
	return nil
}

// loadEnvFile sets the variables of a .env file that are not already set.
func loadEnvFile(fs afero.Fs, path string) error {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return err
	}
	for k, val := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// bindEnvVars sets every MELOS_ variable under each nested key it may
// address.
func bindEnvVars(v *viper.Viper, environ []string) {
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		for _, variant := range generateEnvKeyVariants(strings.TrimPrefix(key, EnvPrefix)) {
			v.Set(variant, value)
		}
	}
}

// generateEnvKeyVariants creates all possible key variants for environment variable binding.
// Examples:
//
//	EXEC_FAIL_FAST -> [exec_fail_fast, exec.fail.fast, exec.fail_fast]
//	LOGGING_LEVEL  -> [logging_level, logging.level]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}

	// Generate progressive nesting patterns
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
