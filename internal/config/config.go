package config

import (
	"crypto/rsa"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/baechuer/real-time-ressys/services/identity-service/internal/infrastructure/security"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string

	// Token keys, parsed once at load
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey

	// Infrastructure
	DBAddr  string
	DBDebug bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RoleCacheTTL  time.Duration

	RabbitURL      string
	RabbitExchange string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

func (c *Config) IsDev() bool { return c.Env == "dev" }

// LoadDotEnv overlays variables from .env files onto the process env.
// Missing files are not an error; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// OpsConfig is the subset operator tooling needs: no keys, no HTTP.
type OpsConfig struct {
	DBAddr  string
	DBDebug bool

	RabbitURL      string
	RabbitExchange string

	// set when the server caches roles; grants drop the cached entry
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadOps reads the settings used by cmd/tool. DB_ADDR is always required.
func LoadOps() (*OpsConfig, error) {
	addr := os.Getenv("DB_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}
	debug, err := getBool("DB_DEBUG", false)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	return &OpsConfig{
		DBAddr:         addr,
		DBDebug:        debug,
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "identity.events"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
	}, nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "identity.events"),
	}

	// required values: the service cannot issue or verify tokens without keys
	privPEM, err := getPEM("RSA_PRIVATE_KEY")
	if err != nil {
		return nil, err
	}
	if cfg.PrivateKey, err = security.ParsePrivateKey(privPEM); err != nil {
		return nil, fmt.Errorf("RSA_PRIVATE_KEY: %w", err)
	}

	pubPEM, err := getPEM("RSA_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}
	if cfg.PublicKey, err = security.ParsePublicKey(pubPEM); err != nil {
		return nil, fmt.Errorf("RSA_PUBLIC_KEY: %w", err)
	}

	if !cfg.PrivateKey.PublicKey.Equal(cfg.PublicKey) {
		return nil, fmt.Errorf("RSA_PUBLIC_KEY does not match RSA_PRIVATE_KEY")
	}

	// Outside dev the database is mandatory. In dev an empty DB_ADDR
	// selects the in-memory store.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" && !cfg.IsDev() {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}

	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RoleCacheTTL, err = getDuration("ROLE_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}

	//Timeout values are optional and have a default value if not
	if cfg.HTTPReadTimeout, err = getDuration("HTTP_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getDuration("HTTP_IDLE_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getPEM reads KEY inline, or the file named by KEY_FILE.
// Inline values may carry literal "\n" sequences.
func getPEM(key string) ([]byte, error) {
	if v := os.Getenv(key); v != "" {
		return []byte(strings.ReplaceAll(v, `\n`, "\n")), nil
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s_FILE: %w", key, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("missing required env var: %s (or %s_FILE)", key, key)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
