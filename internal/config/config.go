package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hirehub/portal/internal/wizard"
)

const (
	defaultAppName        = "JobPortal"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultDevAPIPort     = "9090"
	defaultLogLevel       = "info"
	defaultBackendURL     = "http://localhost:9090/api/v1"
	defaultBackendTimeout = 15 * time.Second
	defaultSessionTTL     = 7 * 24 * time.Hour
	defaultSessionCookie  = "portal_session"
	defaultIdempotencyTTL = 24 * time.Hour
	defaultLoginPerMinute = 5
	defaultShutdownDelay  = 10 * time.Second
	devJWTSecret          = "dev-only-secret-change-me"

	configFileName = "portal"
)

// Config captures application runtime configuration.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	DevAPIPort     string
	LogLevel       string
	BackendURL     string
	BackendTimeout time.Duration
	RedisURL       string
	DatabaseURL    string
	SessionTTL     time.Duration
	SessionCookie  string
	IdempotencyTTL time.Duration
	LoginPerMinute int
	ShutdownPeriod time.Duration
	JWTSecret      string
	WizardPoints   wizard.Points
}

var bindings = map[string]string{
	"app.name":             "APP_NAME",
	"app.env":              "APP_ENV",
	"http.port":            "PORT",
	"devapi.port":          "DEVAPI_PORT",
	"log.level":            "LOG_LEVEL",
	"backend.url":          "BACKEND_URL",
	"backend.timeout":      "BACKEND_TIMEOUT",
	"redis.url":            "REDIS_URL",
	"database.url":         "DATABASE_URL",
	"session.ttl":          "SESSION_TTL",
	"session.cookie":       "SESSION_COOKIE",
	"idempotency.ttl":      "IDEMPOTENCY_TTL",
	"login.max_per_minute": "LOGIN_MAX_PER_MINUTE",
	"shutdown.timeout":     "SHUTDOWN_TIMEOUT",
	"jwt.secret":           "JWT_SECRET",
}

// Load reads configuration from an optional .env file, the process
// environment and an optional portal.yaml in the working directory.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	defaults := wizard.DefaultPoints()
	for _, key := range wizardKeys() {
		if err := v.BindEnv(pointsKey(key), pointsEnv(key)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", pointsKey(key), err)
		}
		v.SetDefault(pointsKey(key), defaults[key])
	}

	v.SetDefault("app.name", defaultAppName)
	v.SetDefault("app.env", defaultAppEnv)
	v.SetDefault("http.port", defaultPort)
	v.SetDefault("devapi.port", defaultDevAPIPort)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("backend.url", defaultBackendURL)
	v.SetDefault("backend.timeout", defaultBackendTimeout)
	v.SetDefault("session.ttl", defaultSessionTTL)
	v.SetDefault("session.cookie", defaultSessionCookie)
	v.SetDefault("idempotency.ttl", defaultIdempotencyTTL)
	v.SetDefault("login.max_per_minute", defaultLoginPerMinute)
	v.SetDefault("shutdown.timeout", defaultShutdownDelay)

	cfg := Config{
		AppName:        v.GetString("app.name"),
		AppEnv:         strings.ToLower(v.GetString("app.env")),
		Port:           v.GetString("http.port"),
		DevAPIPort:     v.GetString("devapi.port"),
		LogLevel:       strings.ToLower(v.GetString("log.level")),
		BackendURL:     strings.TrimRight(v.GetString("backend.url"), "/"),
		BackendTimeout: v.GetDuration("backend.timeout"),
		RedisURL:       v.GetString("redis.url"),
		DatabaseURL:    v.GetString("database.url"),
		SessionTTL:     v.GetDuration("session.ttl"),
		SessionCookie:  v.GetString("session.cookie"),
		IdempotencyTTL: v.GetDuration("idempotency.ttl"),
		LoginPerMinute: v.GetInt("login.max_per_minute"),
		ShutdownPeriod: v.GetDuration("shutdown.timeout"),
		JWTSecret:      v.GetString("jwt.secret"),
		WizardPoints:   make(wizard.Points),
	}
	for _, key := range wizardKeys() {
		cfg.WizardPoints[key] = v.GetInt(pointsKey(key))
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL must be set")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("invalid BACKEND_TIMEOUT %s", c.BackendTimeout)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL %s", c.SessionTTL)
	}
	if c.LoginPerMinute <= 0 {
		return fmt.Errorf("invalid LOGIN_MAX_PER_MINUTE %d", c.LoginPerMinute)
	}
	for key, pts := range c.WizardPoints {
		if pts < 0 {
			return fmt.Errorf("invalid %s: %d", pointsEnv(key), pts)
		}
	}
	if !c.IsDevelopment() {
		if c.RedisURL == "" {
			return errors.New("REDIS_URL must be set")
		}
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET must be set")
		}
	}
	if c.JWTSecret == "" {
		c.JWTSecret = devJWTSecret
	}
	return nil
}

// IsDevelopment reports whether in-memory fallbacks are allowed.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == defaultAppEnv || c.AppEnv == "dev" || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	return listenAddr(c.Port)
}

// DevAPIAddress is the listen address of the dev backend.
func (c Config) DevAPIAddress() string {
	return listenAddr(c.DevAPIPort)
}

func listenAddr(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

func wizardKeys() []wizard.SectionKey {
	keys := append([]wizard.SectionKey{}, wizard.RequiredSections...)
	return append(keys, wizard.BonusSections...)
}

func pointsKey(key wizard.SectionKey) string {
	return "wizard.points." + strings.ToLower(string(key))
}

// pointsEnv maps socioEconomic to WIZARD_POINTS_SOCIO_ECONOMIC.
func pointsEnv(key wizard.SectionKey) string {
	var b strings.Builder
	for i, r := range string(key) {
		if r >= 'A' && r <= 'Z' && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return "WIZARD_POINTS_" + strings.ToUpper(b.String())
}
