// Package config centralizes how ResumeDrop reads its settings: a .env file,
// an optional YAML file, then environment variables, in that order.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Process modes control what happens to a resume after it is stored.
const (
	ProcessInline = "inline"
	ProcessQueue  = "queue"
	ProcessOff    = "off"
)

// Config represents runtime configuration for the API, the worker and the CLI.
type Config struct {
	Address    string
	Env        string
	LogLevel   string
	UploadRoot string

	JWTSecret []byte
	// EphemeralSecret is set when no secret was configured and a random one
	// was generated. Tokens then stop verifying after a restart.
	EphemeralSecret bool
	JWTExpiry       time.Duration
	AllowedOrigins  []string
	ProcessMode     string

	MongoURI      string
	MongoDatabase string
	DatabaseURL   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UseSSL        bool
	S3Region        string
	RawBucket       string
	ProcessedBucket string

	WorkerConcurrency int
	SignedURLTTL      time.Duration
}

const (
	defaultAddress         = ":8080"
	defaultEnv             = "development"
	defaultLogLevel        = "info"
	defaultUploadRoot      = "uploads"
	defaultJWTExpiry       = 24 * time.Hour
	defaultOrigins         = "*"
	defaultMongoDatabase   = "resumedrop"
	defaultS3Region        = "us-east-1"
	defaultRawBucket       = "resumedrop-raw"
	defaultProcessedBucket = "resumedrop-processed"
	defaultSignedTTL       = 5 * time.Minute
	defaultWorkerCount     = 2
)

// fileConfig is the YAML shape. Durations are strings such as "24h".
type fileConfig struct {
	Address        string   `yaml:"address"`
	Env            string   `yaml:"env"`
	LogLevel       string   `yaml:"log_level"`
	UploadRoot     string   `yaml:"upload_root"`
	JWTSecret      string   `yaml:"jwt_secret"`
	JWTExpiry      string   `yaml:"jwt_expiry"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ProcessMode    string   `yaml:"process_mode"`
	Mongo          struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	DatabaseURL string `yaml:"database_url"`
	Redis       struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	S3 struct {
		Endpoint        string `yaml:"endpoint"`
		AccessKey       string `yaml:"access_key"`
		SecretKey       string `yaml:"secret_key"`
		UseSSL          bool   `yaml:"use_ssl"`
		Region          string `yaml:"region"`
		RawBucket       string `yaml:"raw_bucket"`
		ProcessedBucket string `yaml:"processed_bucket"`
	} `yaml:"s3"`
	WorkerConcurrency int    `yaml:"worker_concurrency"`
	SignedURLTTL      string `yaml:"signed_url_ttl"`
}

// Load reads .env (if present), the YAML file named by RESUMEDROP_CONFIG (if
// set) and then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Address:           defaultAddress,
		Env:               defaultEnv,
		LogLevel:          defaultLogLevel,
		UploadRoot:        defaultUploadRoot,
		JWTExpiry:         defaultJWTExpiry,
		AllowedOrigins:    splitList(defaultOrigins),
		ProcessMode:       ProcessInline,
		MongoDatabase:     defaultMongoDatabase,
		S3Region:          defaultS3Region,
		RawBucket:         defaultRawBucket,
		ProcessedBucket:   defaultProcessedBucket,
		WorkerConcurrency: defaultWorkerCount,
		SignedURLTTL:      defaultSignedTTL,
	}
	if path := os.Getenv("RESUMEDROP_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if cfg.JWTSecret == nil {
		cfg.JWTSecret = randomSecret()
		cfg.EphemeralSecret = true
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = defaultWorkerCount
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = defaultSignedTTL
	}
	if cfg.JWTExpiry <= 0 {
		cfg.JWTExpiry = defaultJWTExpiry
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error
	switch c.ProcessMode {
	case ProcessInline, ProcessOff:
	case ProcessQueue:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("process mode queue requires RESUMEDROP_REDIS_ADDR"))
		}
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("process mode queue requires RESUMEDROP_DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown process mode %q (want inline, queue or off)", c.ProcessMode))
	}
	if strings.TrimSpace(c.UploadRoot) == "" {
		errs = append(errs, errors.New("upload root is required"))
	}
	if c.S3Endpoint != "" && (c.S3AccessKey == "" || c.S3SecretKey == "") {
		errs = append(errs, errors.New("s3 endpoint set without access and secret keys"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	setString(&c.Address, fc.Address)
	setString(&c.Env, fc.Env)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.UploadRoot, fc.UploadRoot)
	if fc.JWTSecret != "" {
		c.JWTSecret = []byte(fc.JWTSecret)
	}
	if len(fc.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.AllowedOrigins
	}
	setString(&c.ProcessMode, fc.ProcessMode)
	setString(&c.MongoURI, fc.Mongo.URI)
	setString(&c.MongoDatabase, fc.Mongo.Database)
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.RedisAddr, fc.Redis.Addr)
	setString(&c.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != 0 {
		c.RedisDB = fc.Redis.DB
	}
	setString(&c.S3Endpoint, fc.S3.Endpoint)
	setString(&c.S3AccessKey, fc.S3.AccessKey)
	setString(&c.S3SecretKey, fc.S3.SecretKey)
	c.S3UseSSL = c.S3UseSSL || fc.S3.UseSSL
	setString(&c.S3Region, fc.S3.Region)
	setString(&c.RawBucket, fc.S3.RawBucket)
	setString(&c.ProcessedBucket, fc.S3.ProcessedBucket)
	if fc.WorkerConcurrency != 0 {
		c.WorkerConcurrency = fc.WorkerConcurrency
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{fc.JWTExpiry, &c.JWTExpiry, "jwt_expiry"},
		{fc.SignedURLTTL, &c.SignedURLTTL, "signed_url_ttl"},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Address = readEnv("RESUMEDROP_ADDRESS", c.Address)
	c.Env = readEnv("RESUMEDROP_ENV", c.Env)
	c.LogLevel = readEnv("RESUMEDROP_LOG_LEVEL", c.LogLevel)
	c.UploadRoot = readEnv("RESUMEDROP_UPLOAD_ROOT", c.UploadRoot)
	if secret := parseSecret("RESUMEDROP_JWT_SECRET"); secret != nil {
		c.JWTSecret = secret
	}
	c.JWTExpiry = parseDuration("RESUMEDROP_JWT_EXPIRY", c.JWTExpiry)
	if _, ok := os.LookupEnv("RESUMEDROP_ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = parseList("RESUMEDROP_ALLOWED_ORIGINS", strings.Join(c.AllowedOrigins, ","))
	}
	c.ProcessMode = strings.ToLower(readEnv("RESUMEDROP_PROCESS_MODE", c.ProcessMode))
	c.MongoURI = readEnv("RESUMEDROP_MONGO_URI", c.MongoURI)
	c.MongoDatabase = readEnv("RESUMEDROP_MONGO_DATABASE", c.MongoDatabase)
	c.DatabaseURL = readEnv("RESUMEDROP_DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = readEnv("RESUMEDROP_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = readEnv("RESUMEDROP_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = parseInt("RESUMEDROP_REDIS_DB", c.RedisDB)
	c.S3Endpoint = readEnv("RESUMEDROP_S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKey = readEnv("RESUMEDROP_S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = readEnv("RESUMEDROP_S3_SECRET_KEY", c.S3SecretKey)
	c.S3UseSSL = parseBool("RESUMEDROP_S3_USE_SSL", c.S3UseSSL)
	c.S3Region = readEnv("RESUMEDROP_S3_REGION", c.S3Region)
	c.RawBucket = readEnv("RESUMEDROP_S3_RAW_BUCKET", c.RawBucket)
	c.ProcessedBucket = readEnv("RESUMEDROP_S3_PROCESSED_BUCKET", c.ProcessedBucket)
	c.WorkerConcurrency = parseInt("RESUMEDROP_WORKERS", c.WorkerConcurrency)
	c.SignedURLTTL = parseDuration("RESUMEDROP_SIGNED_TTL", c.SignedURLTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func readEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func splitList(val string) []string {
	out := strings.Split(val, ",")
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}

func parseList(key, def string) []string {
	return splitList(readEnv(key, def))
}

func parseInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}

func parseSecret(key string) []byte {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return []byte(v)
	}
	return nil
}

// randomSecret is used when no JWT secret is configured. Tokens issued with it
// only verify within the same process.
func randomSecret() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return []byte(hex.EncodeToString([]byte("fallbacksecret")))
	}
	return buf
}
