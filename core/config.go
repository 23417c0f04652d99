package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultAPIBaseURL = "https://api.masomo.cd/api/"

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SessionConfig struct {
		Path          string // file storage (CLI)
		DatabaseURL   string // postgres storage (dashboard); empty disables it
		RefreshMargin time.Duration
	}

	GuardConfig struct {
		Timeout   time.Duration
		LoginPath string
		HomePath  string
	}

	ServerConfig struct {
		Address         string
		Host            string
		ShutdownTimeout time.Duration
		CookieName      string
		CookieSecure    bool
		MaxUploadSize   int64
	}

	Config struct {
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string

		API     APIConfig
		Session SessionConfig
		Guard   GuardConfig
		Server  ServerConfig
	}
)

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. DEV_API_BASE_URL.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("app_name", "Masomo Admin")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbar.token", "")
	v.SetDefault("api.base_url", defaultAPIBaseURL)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("session.path", defaultSessionPath())
	v.SetDefault("session.database_url", "")
	v.SetDefault("session.refresh_margin", 5*time.Minute)
	v.SetDefault("guard.timeout", 5*time.Second)
	v.SetDefault("guard.login_path", "/login")
	v.SetDefault("guard.home_path", "/dashboard")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cookie_name", "masomo_sid")
	v.SetDefault("server.cookie_secure", false)
	v.SetDefault("server.max_upload_size", int64(512<<20))

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "DEV":
	case "TEST":
		v.SetDefault("test_mode", true)
	case "PROD":
		v.SetDefault("debug", false)
		fallthrough
	default:
		v.SetDefault("server.cookie_secure", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("test_mode"),
		AppName:      v.GetString("app_name"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbar.token"),
		API: APIConfig{
			BaseURL: v.GetString("api.base_url"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Session: SessionConfig{
			Path:          v.GetString("session.path"),
			DatabaseURL:   v.GetString("session.database_url"),
			RefreshMargin: v.GetDuration("session.refresh_margin"),
		},
		Guard: GuardConfig{
			Timeout:   v.GetDuration("guard.timeout"),
			LoginPath: v.GetString("guard.login_path"),
			HomePath:  v.GetString("guard.home_path"),
		},
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			CookieName:      v.GetString("server.cookie_name"),
			CookieSecure:    v.GetBool("server.cookie_secure"),
			MaxUploadSize:   v.GetInt64("server.max_upload_size"),
		},
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".masomo", "session.json")
	}
	return filepath.Join(home, ".masomo", "session.json")
}
