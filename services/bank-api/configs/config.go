package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port                 string        `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr        string        `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr        string        `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons            int32         `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons            int32         `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`
	RedisAddr            string        `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword        string        `mapstructure:"REDIS_PASSWORD"`
	KafkaBrokers         string        `mapstructure:"KAFKA_BROKERS" validate:"required"`
	KafkaRetry           int           `mapstructure:"KAFKA_RETRY" validate:"min=1"`
	KafkaPartition       uint32        `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaEventsTopic     string        `mapstructure:"KAFKA_EVENTS_TOPIC" validate:"required"`
	KafkaEventsRetention time.Duration `mapstructure:"KAFKA_EVENTS_RETENTION" validate:"required"`
	AesKey               string        `mapstructure:"AES_KEY" validate:"required"`
	JwtSecret            string        `mapstructure:"JWT_SECRET" validate:"required,min=32"`
	JwtIssuer            string        `mapstructure:"JWT_ISSUER"`
	RealtimeChannel      string        `mapstructure:"REALTIME_CHANNEL" validate:"required"`
	PriceFeedURL         string        `mapstructure:"PRICE_FEED_URL"`
	PriceCacheTTL        time.Duration `mapstructure:"PRICE_CACHE_TTL" validate:"required"`
	StaticPrices         string        `mapstructure:"STATIC_PRICES" validate:"required"` // e.g. BTC=65000,ETH=3200
	ExchangeFeeRate      string        `mapstructure:"EXCHANGE_FEE_RATE" validate:"required,numeric"`
	DefaultCurrency      string        `mapstructure:"DEFAULT_CURRENCY" validate:"required,len=3"`
	RateLimitPerSec      int           `mapstructure:"RATE_LIMIT_PER_SEC" validate:"min=0"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST" validate:"min=0"`
	RateLimitWindow      time.Duration `mapstructure:"RATE_LIMIT_WINDOW" validate:"required"`
	RateLimitPerWindow   int64         `mapstructure:"RATE_LIMIT_PER_WINDOW" validate:"min=0"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_RETRY", "3")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_EVENTS_TOPIC", "bank-events")
	viper.SetDefault("KAFKA_EVENTS_RETENTION", "168h")
	viper.SetDefault("JWT_ISSUER", "resilient-banking")
	viper.SetDefault("REALTIME_CHANNEL", "bank:changes")
	viper.SetDefault("PRICE_CACHE_TTL", "30s")
	viper.SetDefault("STATIC_PRICES", "BTC=65000,ETH=3200,SOL=150,USDC=1,USDT=1")
	viper.SetDefault("EXCHANGE_FEE_RATE", "0.005")
	viper.SetDefault("DEFAULT_CURRENCY", "USD")
	viper.SetDefault("RATE_LIMIT_PER_SEC", "50")
	viper.SetDefault("RATE_LIMIT_BURST", "100")
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("RATE_LIMIT_PER_WINDOW", "30")

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
	viper.AddConfigPath("./services/bank-api/configs")
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
