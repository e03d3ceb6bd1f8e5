package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderOption customizes Load.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	configFile string
	envFile    string
}

// WithConfigFile sets an explicit config file path instead of searching.
func WithConfigFile(path string) LoaderOption {
	return func(lo *loaderOptions) { lo.configFile = path }
}

// WithEnvFile sets an explicit .env file path instead of searching.
func WithEnvFile(path string) LoaderOption {
	return func(lo *loaderOptions) { lo.envFile = path }
}

// Load populates cfg from config.yml, .env, and the process environment.
// Environment variables win over file values; SECTION_FIELD names map onto
// nested keys (e.g. REDIS_ADDR -> redis.addr). Missing files are not errors;
// defaults cover the gaps.
func Load(cfg *Config, opts ...LoaderOption) error {
	var lo loaderOptions
	for _, opt := range opts {
		opt(&lo)
	}
	if lo.configFile == "" {
		lo.configFile = findFirst(
			"./cmd/transcriber/config.yml",
			"../cmd/transcriber/config.yml",
			"./config.yml",
		)
	}
	if lo.envFile == "" {
		lo.envFile = findFirst(".env.transcriber", ".env")
	}

	v := viper.New()

	if lo.configFile != "" && exists(lo.configFile) {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", lo.configFile, err)
		}
	}

	if lo.envFile != "" && exists(lo.envFile) {
		if err := godotenv.Load(lo.envFile); err != nil {
			return fmt.Errorf("config: load env file %s: %w", lo.envFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg.Validate()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func findFirst(paths ...string) string {
	for _, p := range paths {
		if exists(p) {
			return p
		}
	}
	return ""
}

// bindEnvVars maps UPPER_SNAKE environment variables onto viper's nested
// keys: the first underscore splits section from field, the full dotted form
// is bound as well.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 || pair[1] == "" {
			continue
		}

		for _, key := range envKeyVariants(pair[0]) {
			v.Set(key, pair[1])
		}
	}
}

// envKeyVariants generates viper key candidates for one environment
// variable, e.g. REDIS_JOB_TTL -> [redis_job_ttl, redis.job.ttl,
// redis.job_ttl].
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	variants := []string{
		lower,
		strings.ReplaceAll(lower, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, k := range variants {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
