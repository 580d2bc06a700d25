// Package config loads the application configuration once at startup.
//
// SOURCES, in order of precedence:
//  1. real environment variables
//  2. a .env file in the working directory (optional, loaded with godotenv;
//     it never overrides a variable that is already set)
//  3. the defaults below
//
// The result is a plain *Config that main hands to constructors. Nothing in
// the application reads the environment after Load returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/fragmenthub/internal/auth"
)

// Config holds every setting the server needs.
type Config struct {
	Port            int
	DBPath          string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	BcryptCost      int
	APIPrefix       string   // e.g. "/api/v1", never with a trailing slash
	CORSOrigins     []string // exact origins allowed to call the API from a browser
	LogLevel        slog.Level
	DefaultPageSize int
	MaxPageSize     int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "data/fragments.db")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", "30")
	v.SetDefault("BCRYPT_COST", "12")
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("BACKEND_CORS_ORIGINS", "http://localhost:8080,http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DEFAULT_PAGE_SIZE", "20")
	v.SetDefault("MAX_PAGE_SIZE", "100")
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	// a private instance rather than viper's package-level singleton
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

// fromViper builds a Config and collects every problem instead of stopping
// at the first one, so a misconfigured deployment sees the full list at once.
func fromViper(v *viper.Viper) (*Config, error) {
	var problems []string

	cfg := &Config{
		DBPath:      strings.TrimSpace(v.GetString("DB_PATH")),
		JWTSecret:   v.GetString("JWT_SECRET"),
		APIPrefix:   "/" + strings.Trim(strings.TrimSpace(v.GetString("API_PREFIX")), "/"),
		CORSOrigins: splitList(v.GetString("BACKEND_CORS_ORIGINS")),
	}

	var ok bool
	if cfg.Port, ok = getInt(v, "PORT", &problems); ok && (cfg.Port < 1 || cfg.Port > 65535) {
		problems = append(problems, fmt.Sprintf("PORT must be between 1 and 65535, got %d", cfg.Port))
	}

	if cfg.APIPrefix == "/" {
		problems = append(problems, "API_PREFIX must not be empty")
	}

	if cfg.DBPath == "" {
		problems = append(problems, "DB_PATH must not be empty")
	}

	switch {
	case cfg.JWTSecret == "":
		problems = append(problems, "missing required environment variable: JWT_SECRET")
	case len(cfg.JWTSecret) < auth.MinSecretLength:
		problems = append(problems, fmt.Sprintf("JWT_SECRET must be at least %d characters", auth.MinSecretLength))
	}

	minutes, ok := getInt(v, "ACCESS_TOKEN_EXPIRE_MINUTES", &problems)
	if ok && minutes <= 0 {
		problems = append(problems, "ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	cfg.AccessTokenTTL = time.Duration(minutes) * time.Minute

	if cfg.BcryptCost, ok = getInt(v, "BCRYPT_COST", &problems); ok &&
		(cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost) {
		problems = append(problems, fmt.Sprintf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString("LOG_LEVEL")))); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error; got %q", v.GetString("LOG_LEVEL")))
	}

	var defOK, maxOK bool
	cfg.DefaultPageSize, defOK = getInt(v, "DEFAULT_PAGE_SIZE", &problems)
	cfg.MaxPageSize, maxOK = getInt(v, "MAX_PAGE_SIZE", &problems)
	switch {
	case !defOK || !maxOK:
	case cfg.DefaultPageSize <= 0 || cfg.MaxPageSize <= 0:
		problems = append(problems, "DEFAULT_PAGE_SIZE and MAX_PAGE_SIZE must be positive")
	case cfg.DefaultPageSize > cfg.MaxPageSize:
		problems = append(problems, "DEFAULT_PAGE_SIZE must not exceed MAX_PAGE_SIZE")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("config: %d problem(s):\n  - %s", len(problems), strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

// getInt parses key as an integer and reports whether it parsed. viper's own
// GetInt turns garbage into 0 without complaint, so the string is parsed here.
func getInt(v *viper.Viper, key string, problems *[]string) (int, bool) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("invalid value for %s: expected integer, got %q", key, raw))
		return 0, false
	}
	return n, true
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
