package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone database for minimal images

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the service.
const EnvPrefix = "CHECKLIST"

const (
	StorageJSONFile = "jsonfile"
	StorageSQLite   = "sqlite"
)

// Config captures the configuration values of the checklist service.
type Config struct {
	HTTPPort               int
	DataDir                string
	StorageDriver          string
	SQLiteDSN              string
	TokenSecret            string
	TokenTTL               time.Duration
	Timezone               string
	Location               *time.Location
	UploadDir              string
	PhotoMaxWidth          int
	DigestSchedule         string
	LogLevel               string
	LogFile                string
	BootstrapAdminPassword string
	PublicURL              string
}

// SetDefaults registers the default value of every optional key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http_port", 8080)
	v.SetDefault("data_dir", "data")
	v.SetDefault("storage_driver", StorageJSONFile)
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("timezone", "America/Sao_Paulo")
	v.SetDefault("photo_max_width", 1600)
	v.SetDefault("digest_schedule", "@hourly")
	v.SetDefault("log_level", "info")
}

// Load reads and validates the configuration held by v.
//
// Missing required keys and invalid values are reported together, named by
// their environment variables.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		DataDir:                strings.TrimSpace(v.GetString("data_dir")),
		StorageDriver:          strings.ToLower(strings.TrimSpace(v.GetString("storage_driver"))),
		SQLiteDSN:              strings.TrimSpace(v.GetString("sqlite_dsn")),
		TokenSecret:            strings.TrimSpace(v.GetString("token_secret")),
		Timezone:               strings.TrimSpace(v.GetString("timezone")),
		UploadDir:              strings.TrimSpace(v.GetString("upload_dir")),
		DigestSchedule:         strings.TrimSpace(v.GetString("digest_schedule")),
		LogLevel:               strings.TrimSpace(v.GetString("log_level")),
		LogFile:                strings.TrimSpace(v.GetString("log_file")),
		BootstrapAdminPassword: v.GetString("bootstrap_admin_password"),
		PublicURL:              strings.TrimRight(strings.TrimSpace(v.GetString("public_url")), "/"),
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	port, err := toInt(v.Get("http_port"))
	if err != nil || port <= 0 || port > 65535 {
		invalid = append(invalid, envName("http_port"))
	} else {
		cfg.HTTPPort = port
	}

	if cfg.DataDir == "" {
		missing = append(missing, envName("data_dir"))
	}

	switch cfg.StorageDriver {
	case StorageJSONFile:
	case StorageSQLite:
		if cfg.SQLiteDSN == "" {
			cfg.SQLiteDSN = "file:" + filepath.Join(cfg.DataDir, "checklists.db")
		}
	default:
		invalid = append(invalid, envName("storage_driver"))
	}

	if cfg.TokenSecret == "" {
		missing = append(missing, envName("token_secret"))
	}

	ttl, err := time.ParseDuration(strings.TrimSpace(v.GetString("token_ttl")))
	if err != nil || ttl <= 0 {
		invalid = append(invalid, envName("token_ttl"))
	} else {
		cfg.TokenTTL = ttl
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		invalid = append(invalid, envName("timezone"))
	} else {
		cfg.Location = loc
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads", "checklist-photos")
	}

	width, err := toInt(v.Get("photo_max_width"))
	if err != nil || width < 0 {
		invalid = append(invalid, envName("photo_max_width"))
	} else {
		cfg.PhotoMaxWidth = width
	}

	if _, err := cron.ParseStandard(cfg.DigestSchedule); err != nil {
		invalid = append(invalid, envName("digest_schedule"))
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid = append(invalid, envName("log_level"))
	}

	if cfg.PublicURL != "" {
		if u, err := url.Parse(cfg.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, envName("public_url"))
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("variáveis de ambiente obrigatórias não definidas: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores de configuração inválidos: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// HTTPAddr is the listen address of the HTTP server.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

// toInt accepts ints from config files and strings from the environment.
func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}
