package configs

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bankterm/atm-terminal/pkg/utils"
)

// Config holds application configuration for the terminal.
type Config struct {
	DbAddr       string `mapstructure:"DB_ADDR" validate:"required"`
	MaxDbCons    int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons    int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	HistoryLimit int    `mapstructure:"HISTORY_LIMIT" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("MAX_DB_CONNECTIONS", "4")
	viper.SetDefault("MIN_DB_CONNECTIONS", "1")
	viper.SetDefault("HISTORY_LIMIT", "5")

	// Optional: Read from config.yaml if exists
	env := os.Getenv("APP_ENV")
	if env == "dev" || env == "qa" {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	} else {
		viper.SetConfigName("config.prod")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
