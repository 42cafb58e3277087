// Package config reads service settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds every setting of the dashboard API.
type Config struct {
	Debug bool

	StorageConnectionString string
	TeamTable               string
	ProjectsTable           string
	TasksTable              string
	EventsQueue             string

	RedisConnectionString string
	CacheTTL              time.Duration
	DeduperTTL            time.Duration

	GeminiAPIKey        string
	GeminiModel         string
	GenerationTimeout   time.Duration
	MockGenerationDelay time.Duration

	Auth Auth

	StreamInterval  time.Duration
	SaveConcurrency int
	ListenAddr      string
}

// Auth selects how bearer tokens are validated.
type Auth struct {
	Disabled     bool
	Domain       string
	Audience     string
	LocalMode    string
	LocalSecret  string
	JWKSCacheTTL time.Duration
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration using lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg, err := read(lookup)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

// LoadStorage reads the configuration but only requires the storage
// settings. It serves tools that provision tables and queues.
func LoadStorage() (Config, error) {
	return LoadStorageFrom(os.LookupEnv)
}

// LoadStorageFrom is LoadStorage using lookup.
func LoadStorageFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg, err := read(lookup)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validateStorage()
}

func read(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Debug:                   e.boolean("DEBUG", false),
		StorageConnectionString: e.str("STORAGE_CONNECTION_STRING", ""),
		TeamTable:               e.str("TEAM_TABLE", "teammembers"),
		ProjectsTable:           e.str("PROJECTS_TABLE", "projects"),
		TasksTable:              e.str("TASKS_TABLE", "tasks"),
		EventsQueue:             e.str("PROJECT_EVENTS_QUEUE", ""),
		RedisConnectionString:   e.str("REDIS_CONNECTION_STRING", ""),
		CacheTTL:                e.duration("CACHE_TTL", 5*time.Minute),
		DeduperTTL:              e.duration("DEDUPER_TTL", 24*time.Hour),
		GeminiAPIKey:            e.str("GEMINI_API_KEY", ""),
		GeminiModel:             e.str("GEMINI_MODEL", "gemini-2.0-flash"),
		GenerationTimeout:       e.duration("GENERATION_TIMEOUT", 60*time.Second),
		MockGenerationDelay:     e.duration("MOCK_GENERATION_DELAY", 1500*time.Millisecond),
		Auth: Auth{
			Disabled:     e.boolean("AUTH_DISABLED", false),
			Domain:       e.str("AUTH0_DOMAIN", ""),
			Audience:     e.str("AUTH0_AUDIENCE", ""),
			LocalMode:    strings.ToLower(e.str("LOCAL_AUTH_MODE", "")),
			LocalSecret:  e.str("LOCAL_AUTH_SHARED_SECRET", ""),
			JWKSCacheTTL: e.duration("JWKS_CACHE_TTL", 15*time.Minute),
		},
		StreamInterval:  e.duration("STREAM_INTERVAL", 5*time.Second),
		SaveConcurrency: e.integer("SAVE_CONCURRENCY", 16),
		ListenAddr:      ":8080",
	}
	if port, ok := lookup("FUNCTIONS_CUSTOMHANDLER_PORT"); ok && port != "" {
		cfg.ListenAddr = ":" + port
	}
	if e.err != nil {
		return Config{}, e.err
	}
	return cfg, nil
}

func (c Config) validateStorage() error {
	if c.StorageConnectionString == "" {
		return errors.New("missing STORAGE_CONNECTION_STRING")
	}
	if c.TeamTable == "" || c.ProjectsTable == "" || c.TasksTable == "" {
		return errors.New("missing table config")
	}
	return nil
}

func (c Config) validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if c.RedisConnectionString == "" {
		return errors.New("missing REDIS_CONNECTION_STRING")
	}
	if c.GenerationTimeout <= 0 || c.StreamInterval <= 0 || c.DeduperTTL <= 0 {
		return errors.New("GENERATION_TIMEOUT, STREAM_INTERVAL and DEDUPER_TTL must be positive")
	}
	if c.SaveConcurrency <= 0 {
		return errors.New("SAVE_CONCURRENCY must be greater than zero")
	}
	switch {
	case c.Auth.Disabled:
	case c.Auth.LocalMode != "":
		if c.Auth.LocalMode != "hs256" {
			return fmt.Errorf("unsupported LOCAL_AUTH_MODE %q", c.Auth.LocalMode)
		}
		if c.Auth.LocalSecret == "" {
			return errors.New("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
	case c.Auth.Domain == "" || c.Auth.Audience == "":
		return errors.New("missing Auth0 config")
	}
	return nil
}

// RedisOptions parses RedisConnectionString. Both redis:// URLs and the
// "host:port,password=...,ssl=true" form are accepted.
func (c Config) RedisOptions() (*redis.Options, error) {
	if opts, err := redis.ParseURL(c.RedisConnectionString); err == nil {
		return opts, nil
	}
	parts := strings.Split(c.RedisConnectionString, ",")
	if strings.TrimSpace(parts[0]) == "" {
		return nil, errors.New("invalid REDIS_CONNECTION_STRING")
	}
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}

// env collects the first parse error so Load can report it.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return b
}

func (e *env) integer(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return def
	}
	return n
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		e.fail(key, fmt.Errorf("invalid duration %q", v))
		return def
	}
	return d
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
