package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mind-engage/examportal/internal/db"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const devSecret = "supersecret-dev-key"

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt
	AuthHMACSecret  string

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	LogLevel string
	LogFile  string

	TracingEnabled           bool
	TracingCollectorEndpoint string

	NegativeMarking bool
}

// CORSOrigins returns the allow-list for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// keys maps viper keys to the environment variables they are read from.
var keys = map[string]string{
	"mode":                       "MODE",
	"http_addr":                  "HTTP_ADDR",
	"site_id":                    "SITE_ID",
	"db_driver":                  "DB_DRIVER",
	"db_dsn":                     "DB_DSN",
	"enable_local_auth":          "ENABLE_LOCAL_AUTH",
	"admin_user":                 "ADMIN_USER",
	"admin_pass_hash":            "ADMIN_PASS_HASH",
	"auth_hmac_secret":           "AUTH_HMAC_SECRET",
	"cors_origins_online":        "CORS_ORIGINS_ONLINE",
	"cors_origins_offline":       "CORS_ORIGINS_OFFLINE",
	"log_level":                  "LOG_LEVEL",
	"log_file":                   "LOG_FILE",
	"tracing_enabled":            "TRACING_ENABLED",
	"tracing_collector_endpoint": "TRACING_COLLECTOR_ENDPOINT",
	"negative_marking":           "NEGATIVE_MARKING",
}

func defaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("site_id", "local")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("enable_local_auth", true)
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass_hash", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("auth_hmac_secret", devSecret)
	v.SetDefault("cors_origins_online", "https://portal.mindengage.ai")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/portal.log")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("tracing_collector_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("negative_marking", true)
}

// Load reads defaults, then an optional config.yaml under dir, then .env, then
// the process environment. Later sources win.
func Load(dir string) (Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	defaults(v)
	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Mode:                     Mode(strings.ToLower(v.GetString("mode"))),
		HTTPAddr:                 v.GetString("http_addr"),
		SiteID:                   v.GetString("site_id"),
		DBDriver:                 string(db.Normalize(v.GetString("db_driver"))),
		DBDSN:                    v.GetString("db_dsn"),
		EnableLocalAuth:          v.GetBool("enable_local_auth"),
		AdminUser:                v.GetString("admin_user"),
		AdminPassHash:            v.GetString("admin_pass_hash"),
		AuthHMACSecret:           v.GetString("auth_hmac_secret"),
		CORSOriginsOnline:        csv(v.GetString("cors_origins_online")),
		CORSOriginsOffline:       csv(v.GetString("cors_origins_offline")),
		LogLevel:                 v.GetString("log_level"),
		LogFile:                  v.GetString("log_file"),
		TracingEnabled:           v.GetBool("tracing_enabled"),
		TracingCollectorEndpoint: v.GetString("tracing_collector_endpoint"),
		NegativeMarking:          v.GetBool("negative_marking"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations that must not reach production.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("MODE must be offline or online, got %q", c.Mode)
	}
	driver := db.Normalize(c.DBDriver)
	switch driver {
	case db.DriverSQLite, db.DriverPostgres, db.DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite, postgres or memory, got %q", c.DBDriver)
	}
	if c.Mode == ModeOnline {
		if c.AuthHMACSecret == devSecret || len(c.AuthHMACSecret) < 32 {
			return errors.New("AUTH_HMAC_SECRET must be set to at least 32 bytes in online mode")
		}
		if driver == db.DriverPostgres && c.DBDSN == "" {
			return errors.New("DB_DSN is required for postgres")
		}
		if driver == db.DriverMemory {
			return errors.New("DB_DRIVER=memory is for offline demos only")
		}
	}
	return nil
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
