package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	GenAI    GenAIConfig
	Chat     ChatConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type GenAIConfig struct {
	APIKey          string
	Endpoint        string
	Model           string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
	TimeoutSec      int
}

type ChatConfig struct {
	HistoryLimit     int
	RulesPath        string
	ContextMinLength int
	KnowledgeLimit   int
	CacheTTLSec      int
	MaxMessageLength int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	// Local development keeps secrets in .env; missing file is fine.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/matalai-chat")

	viper.SetEnvPrefix("MATALAI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate fails fast on configuration the service cannot run without,
// instead of surfacing the gap on the first request.
func validate(cfg *Config) error {
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required (MATALAI_POSTGRES_DSN)")
	}
	if cfg.GenAI.APIKey == "" {
		return errors.New("genai.api_key is required (MATALAI_GENAI_APIKEY)")
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("postgres.maxOpenConns", 10)
	viper.SetDefault("postgres.maxIdleConns", 5)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("genai.endpoint", "https://generativelanguage.googleapis.com/v1beta/models")
	viper.SetDefault("genai.model", "gemini-2.5-pro")
	viper.SetDefault("genai.temperature", 0.7)
	viper.SetDefault("genai.topP", 0.95)
	viper.SetDefault("genai.topK", 40)
	viper.SetDefault("genai.maxOutputTokens", 1024)
	viper.SetDefault("genai.timeoutSec", 30)

	viper.SetDefault("chat.historyLimit", 8)
	viper.SetDefault("chat.contextMinLength", 80)
	viper.SetDefault("chat.knowledgeLimit", 5)
	viper.SetDefault("chat.cacheTTLSec", 300)
	viper.SetDefault("chat.maxMessageLength", 2000)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
