package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for notification-worker.
type Config struct {
	MetricsAddr        string        `mapstructure:"METRICS_ADDR" validate:"required"`
	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS" validate:"required"`
	PrimaryDbAddr      string        `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	MaxDbCons          int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons          int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	KafkaRetry         int           `mapstructure:"KAFKA_RETRY" validate:"min=1"`
	KafkaPartition     uint32        `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaEventsTopic   string        `mapstructure:"KAFKA_EVENTS_TOPIC" validate:"required"`
	KafkaConsumerGroup string        `mapstructure:"KAFKA_CONSUMER_GROUP" validate:"required"`
	KafkaDLQTopic      string        `mapstructure:"KAFKA_DLQ_TOPIC" validate:"required"`
	KafkaDLQRetention  time.Duration `mapstructure:"KAFKA_DLQ_RETENTION" validate:"required"`
	MaxConcurrentJobs  int           `mapstructure:"MAX_CONCURRENT_JOBS" validate:"min=1"`
	NotifyFunctionURL  string        `mapstructure:"NOTIFY_FUNCTION_URL"` // empty: store only, no email
	NotifyTimeout      time.Duration `mapstructure:"NOTIFY_TIMEOUT" validate:"required"`
	NotifyMaxElapsed   time.Duration `mapstructure:"NOTIFY_MAX_ELAPSED" validate:"required"` // total retry budget per event
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("METRICS_ADDR", ":9102")
	viper.SetDefault("MAX_DB_CONNECTIONS", "5")
	viper.SetDefault("MIN_DB_CONNECTIONS", "1")
	viper.SetDefault("KAFKA_RETRY", "3")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_EVENTS_TOPIC", "bank-events")
	viper.SetDefault("KAFKA_CONSUMER_GROUP", "notification-worker")
	viper.SetDefault("KAFKA_DLQ_TOPIC", "bank-events-dlq")
	viper.SetDefault("KAFKA_DLQ_RETENTION", "336h")
	viper.SetDefault("MAX_CONCURRENT_JOBS", "16")
	viper.SetDefault("NOTIFY_TIMEOUT", "5s")
	viper.SetDefault("NOTIFY_MAX_ELAPSED", "30s")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running_in_test_mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running_in_development_mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/notification-worker/configs")
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
