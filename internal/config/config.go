package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Skotchmaster/taskboard/pkg/config"
)

const DefaultDatabaseURL = "file:board.db?_pragma=foreign_keys(1)"

type Config struct {
	Port     int
	Env      string
	LogLevel string

	DatabaseURL string

	// APIToken gates every protected route; TasksAPIToken gates the /api/tasks
	// family and falls back to APIToken.
	APIToken      string
	TasksAPIToken string

	WebhookURL    string
	WebhookSecret string

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CORSOrigins []string
	CSRFEnabled bool
}

func (c *Config) Production() bool { return c.Env == "production" }

// Load reads the environment, after merging the given dotenv files (".env" when none
// are named). Missing files are ignored; variables already set win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{
		Port:          pkgconfig.EnvIntDefault("SERVER_PORT", 8080),
		Env:           pkgconfig.EnvDefault("APP_ENV", "development"),
		LogLevel:      pkgconfig.EnvDefault("LOG_LEVEL", "info"),
		DatabaseURL:   pkgconfig.EnvDefault("DATABASE_URL", DefaultDatabaseURL),
		APIToken:      os.Getenv("API_TOKEN"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		KafkaBrokers:  pkgconfig.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:    pkgconfig.EnvDefault("KAFKA_TOPIC", "board_events"),
		ESURL:         os.Getenv("ES_URL"),
		ESUser:        os.Getenv("ES_USER"),
		ESPassword:    os.Getenv("ES_PASSWORD"),
		ESIndex:       pkgconfig.EnvDefault("ES_INDEX", "tasks"),
		CORSOrigins:   pkgconfig.CSV(os.Getenv("CORS_ORIGINS")),
		CSRFEnabled:   pkgconfig.EnvBool("CSRF_ENABLED", false),
	}
	cfg.TasksAPIToken = pkgconfig.EnvDefault("TASKS_API_TOKEN", cfg.APIToken)

	return cfg, nil
}
