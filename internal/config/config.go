package config

import (
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var config *Config

// Config holds every configuration value the service binaries read.
// Nothing else in the codebase should read the environment directly.
type Config struct {
	AppEnv              string `env:"APP_ENV,default=dev"`
	AppName             string `env:"APP_NAME,default=booking_service"`
	AppDebug            bool   `env:"APP_DEBUG,default=true"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR,default=:9100"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI,default=/metrics"`
	AppBaseUrl          string `env:"APP_BASE_URL" validation:"mustExists"`
	LogLevel            string `env:"LOG_LEVEL,default=info"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR,default=:8080" validation:"mustExists"`
	HttpBasePath   string `env:"HTTP_BASE_PATH,default=/api/v1"`

	RealtimeListenAddr     string `env:"REALTIME_LISTEN_ADDR,default=:8090"`
	RealtimeAllowedOrigins string `env:"REALTIME_ALLOWED_ORIGINS"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST" validation:"mustExists"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR" validation:"mustExists"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE,default=healthythako"`

	QueueName              string        `env:"QUEUE_NAME,default=notifications"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP,default=notification-push"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME,default=processor"`
	QueueConsumers         int           `env:"QUEUE_CONSUMERS,default=4"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES,default=5"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT,default=30s"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL,default=500ms"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE,default=50"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN,default=100000"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ,default=true"`

	WorkerCount      int `env:"WORKER_COUNT,default=16"`
	WorkerBufferSize int `env:"WORKER_BUFFER_SIZE,default=1024"`

	GatewayBaseUrl string        `env:"GATEWAY_BASE_URL" validation:"mustExists"`
	GatewayApiKey  string        `env:"GATEWAY_API_KEY" validation:"mustExists"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT,default=15s"`

	PaymentSuccessPath    string        `env:"PAYMENT_SUCCESS_PATH,default=/payment-redirect/success"`
	PaymentCancelPath     string        `env:"PAYMENT_CANCEL_PATH,default=/payment-redirect/cancelled"`
	PaymentWebhookUrl     string        `env:"PAYMENT_WEBHOOK_URL"`
	PaymentCurrency       string        `env:"PAYMENT_CURRENCY,default=BDT"`
	PaymentCommissionRate string        `env:"PAYMENT_COMMISSION_RATE,default=0.10"`
	DeepLinkScheme        string        `env:"DEEP_LINK_SCHEME,default=healthythako"`
	ProvisionalTxnTTL     time.Duration `env:"PROVISIONAL_TXN_TTL,default=30m"`

	JwtSecret string `env:"JWT_SECRET" validation:"mustExists"`

	CheckoutRatePerMinute int           `env:"CHECKOUT_RATE_PER_MINUTE,default=10"`
	CacheTTL              time.Duration `env:"CACHE_TTL,default=5m"`

	OutboxRelaySchedule string `env:"OUTBOX_RELAY_SCHEDULE,default=@every 30s"`
	OutboxBatchSize     int    `env:"OUTBOX_BATCH_SIZE,default=100"`
	ReconcileSchedule   string `env:"RECONCILE_SCHEDULE,default=@every 5m"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err = godotenv.Load(path); err != nil {
			return errors.Wrapf(err, "failed to load configuration file %s", path)
		}
	}

	if _, err = env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Config")
	}

	config = c
	return nil
}

// Set replaces the active configuration. Tests and embedded callers use it
// instead of going through the environment.
func Set(c *Config) {
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// Validate reports every field tagged mustExists that is empty.
func (c *Config) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("APP_BASE_URL", c.AppBaseUrl)
	check("HTTP_LISTEN_ADDR", c.HttpListenAddr)
	check("POSTGRES_WRITE_HOST", c.PostgresWriteHost)
	check("REDIS_ADDR", c.RedisAddr)
	check("GATEWAY_BASE_URL", c.GatewayBaseUrl)
	check("GATEWAY_API_KEY", c.GatewayApiKey)
	check("JWT_SECRET", c.JwtSecret)
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if _, err := c.CommissionRate(); err != nil {
		return err
	}
	return nil
}

// CommissionRate parses PAYMENT_COMMISSION_RATE as a fraction in [0, 1).
func (c *Config) CommissionRate() (decimal.Decimal, error) {
	if c.PaymentCommissionRate == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(c.PaymentCommissionRate)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "invalid PAYMENT_COMMISSION_RATE")
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, errors.Errorf("PAYMENT_COMMISSION_RATE out of range: %s", rate)
	}
	return rate, nil
}

// AllowedOrigins splits REALTIME_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.RealtimeAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) PostgresWriteConfig() pg.Config {
	return pg.Config{
		User:     c.PostgresWriteUser,
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
	}
}

// PostgresReadConfig falls back to the write primary when no replica is configured.
func (c *Config) PostgresReadConfig() pg.Config {
	if c.PostgresReadHost == "" {
		return c.PostgresWriteConfig()
	}
	return pg.Config{
		User:     c.PostgresReadUser,
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
	}
}
